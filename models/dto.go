package models

import "time"

type RegisterRequest struct {
	Username string   `json:"username" validate:"required,min=3,max=50"`
	Email    string   `json:"email" validate:"required,email"`
	Password string   `json:"password" validate:"required,min=6"`
	Role     UserRole `json:"role,omitempty" validate:"omitempty,oneof=writer editor admin"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// CreateArtefactRequest registers document metadata and its first edition.
type CreateArtefactRequest struct {
	Slug                string `json:"slug" validate:"required,max=255"`
	Name                string `json:"name" validate:"required,min=1,max=255"`
	Kind                string `json:"kind" validate:"required"`
	Format              Format `json:"format" validate:"required"`
	Department          string `json:"department"`
	BusinessUnit        string `json:"business_unit"`
	Section             string `json:"section"`
	BusinessProposition bool   `json:"business_proposition"`
	LinedUp             bool   `json:"lined_up"`
}

type UpdateArtefactRequest struct {
	Name                *string        `json:"name" validate:"omitempty,min=1,max=255"`
	Slug                *string        `json:"slug" validate:"omitempty,max=255"`
	Department          *string        `json:"department"`
	BusinessUnit        *string        `json:"business_unit"`
	Section             *string        `json:"section"`
	BusinessProposition *bool          `json:"business_proposition"`
	State               *ArtefactState `json:"state" validate:"omitempty,oneof=draft live archived"`
}

type PartRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Slug  string `json:"slug"`
}

// UpdateEditionRequest carries an edit of content fields. Nil fields are left untouched.
type UpdateEditionRequest struct {
	Title            *string                `json:"title" validate:"omitempty,min=1,max=255"`
	Overview         *string                `json:"overview"`
	AlternativeTitle *string                `json:"alternative_title"`
	Slug             *string                `json:"slug"`
	Section          *string                `json:"section"`
	Department       *string                `json:"department"`
	Details          map[string]interface{} `json:"details"`
	Parts            *[]PartRequest         `json:"parts"`
	Tags             *[]string              `json:"tags"`
	MajorChange      *bool                  `json:"major_change"`
	ChangeNote       *string                `json:"change_note"`
	LockVersion      *int                   `json:"lock_version"`
}

type TransitionRequest struct {
	Action    string     `json:"action" validate:"required"`
	PublishAt *time.Time `json:"publish_at"`
}

type CloneRequest struct {
	Format Format `json:"format"`
}

type CreateTagRequest struct {
	Name  string  `json:"name" validate:"required,min=1,max=100"`
	Type  TagType `json:"type" validate:"omitempty,oneof=section topic browse_page"`
	Title string  `json:"title"`
}

type SlugCheckRequest struct {
	Kind string `json:"kind"`
	Slug string `json:"slug" validate:"required"`
}

type EditionListParams struct {
	State      string `form:"state"`
	Format     string `form:"format"`
	DocumentID string `form:"document_id"`
	Slug       string `form:"slug"`
	Assignee   string `form:"assignee"`
	Page       int    `form:"page,default=1"`
	Limit      int    `form:"limit,default=10"`
	SortBy     string `form:"sort_by,default=updated_at"`
	SortOrder  string `form:"sort_order,default=desc"`
}
