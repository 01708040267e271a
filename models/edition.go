package models

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

type State string

const (
	StateLinedUp                State = "lined_up"
	StateDraft                  State = "draft"
	StateInReview               State = "in_review"
	StateAmendsNeeded           State = "amends_needed"
	StateFactCheck              State = "fact_check"
	StateFactCheckReceived      State = "fact_check_received"
	StateReady                  State = "ready"
	StateScheduledForPublishing State = "scheduled_for_publishing"
	StatePublished              State = "published"
	StateArchived               State = "archived"
)

// AllStates lists every workflow state in lifecycle order.
var AllStates = []State{
	StateLinedUp, StateDraft, StateInReview, StateAmendsNeeded, StateFactCheck,
	StateFactCheckReceived, StateReady, StateScheduledForPublishing, StatePublished, StateArchived,
}

// Terminal reports whether s ends normal editing. Published and archived are terminal.
func (s State) Terminal() bool {
	return s == StatePublished || s == StateArchived
}

func (s State) InProgress() bool {
	return !s.Terminal()
}

func (s State) Valid() bool {
	for _, v := range AllStates {
		if v == s {
			return true
		}
	}
	return false
}

type Format string

const (
	FormatAnswer            Format = "answer"
	FormatGuide             Format = "guide"
	FormatProgramme         Format = "programme"
	FormatTransaction       Format = "transaction"
	FormatSimpleSmartAnswer Format = "simple_smart_answer"
	FormatTravelAdvice      Format = "travel_advice"
	FormatHelpPage          Format = "help_page"
)

// Edition is one version of one document.
type Edition struct {
	ID                  uint              `json:"id" gorm:"primarykey"`
	DocumentID          string            `json:"document_id" gorm:"type:varchar(36);not null;uniqueIndex:idx_series_version,priority:1"`
	VersionNumber       int               `json:"version_number" gorm:"not null;uniqueIndex:idx_series_version,priority:2"`
	Format              Format            `json:"format" gorm:"not null"`
	State               State             `json:"state" gorm:"not null;default:'draft';index"`
	Title               string            `json:"title" gorm:"not null"`
	Overview            string            `json:"overview" gorm:"type:text"`
	AlternativeTitle    string            `json:"alternative_title"`
	Slug                string            `json:"slug" gorm:"index"`
	Section             string            `json:"section"`
	Department          string            `json:"department"`
	BusinessProposition bool              `json:"business_proposition"`
	Details             datatypes.JSONMap `json:"details"`
	Parts               []Part            `json:"parts,omitempty" gorm:"foreignKey:EditionID;constraint:OnDelete:CASCADE"`
	Tags                []Tag             `json:"tags" gorm:"many2many:edition_tags;"`

	Assignee          string     `json:"assignee"`
	Reviewer          string     `json:"reviewer"`
	Creator           string     `json:"creator"`
	Publisher         string     `json:"publisher"`
	Archiver          string     `json:"archiver"`
	MajorChange       bool       `json:"major_change"`
	ChangeNote        string     `json:"change_note" gorm:"type:text"`
	ReviewRequestedAt *time.Time `json:"review_requested_at"`
	PublishAt         *time.Time `json:"publish_at"`
	PublishedAt       *time.Time `json:"published_at"`
	RejectedCount     int        `json:"rejected_count" gorm:"default:0"`
	LockVersion       int        `json:"lock_version" gorm:"not null;default:0"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

func (e *Edition) IsPublished() bool {
	return e.State == StatePublished
}

func (e *Edition) IsArchived() bool {
	return e.State == StateArchived
}

func (e *Edition) InProgress() bool {
	return e.State.InProgress()
}

// ScheduledForFuture reports whether the edition waits for a publication time still ahead of now.
func (e *Edition) ScheduledForFuture(now time.Time) bool {
	return e.State == StateScheduledForPublishing && e.PublishAt != nil && e.PublishAt.After(now)
}

// Detail returns a kind-specific string field, or "" when it is unset or not a string.
func (e *Edition) Detail(key string) string {
	if e.Details == nil {
		return ""
	}
	if s, ok := e.Details[key].(string); ok {
		return s
	}
	return ""
}

func (e *Edition) SetDetail(key string, value interface{}) {
	if e.Details == nil {
		e.Details = datatypes.JSONMap{}
	}
	e.Details[key] = value
}

// Snapshot flattens the persisted fields of the edition into a map keyed by field name.
// Details keys are prefixed with "details.". Two snapshots are compared to find changed fields.
func (e *Edition) Snapshot() map[string]interface{} {
	s := map[string]interface{}{
		"document_id":          e.DocumentID,
		"version_number":       e.VersionNumber,
		"format":               string(e.Format),
		"state":                string(e.State),
		"title":                e.Title,
		"overview":             e.Overview,
		"alternative_title":    e.AlternativeTitle,
		"slug":                 e.Slug,
		"section":              e.Section,
		"department":           e.Department,
		"business_proposition": e.BusinessProposition,
		"assignee":             e.Assignee,
		"reviewer":             e.Reviewer,
		"creator":              e.Creator,
		"publisher":            e.Publisher,
		"archiver":             e.Archiver,
		"major_change":         e.MajorChange,
		"change_note":          e.ChangeNote,
		"review_requested_at":  timeValue(e.ReviewRequestedAt),
		"publish_at":           timeValue(e.PublishAt),
		"published_at":         timeValue(e.PublishedAt),
		"rejected_count":       e.RejectedCount,
	}
	for k, v := range e.Details {
		s["details."+k] = normalise(v)
	}
	parts := make([]interface{}, 0, len(e.Parts))
	for _, p := range e.Parts {
		parts = append(parts, map[string]interface{}{
			"order": p.Order,
			"title": p.Title,
			"body":  p.Body,
			"slug":  p.Slug,
		})
	}
	s["parts"] = parts
	tags := make([]interface{}, 0, len(e.Tags))
	for _, t := range e.Tags {
		tags = append(tags, t.Name)
	}
	s["tags"] = tags
	return s
}

func timeValue(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// normalise round-trips v through JSON so values read from the database and values set in
// memory compare equal ([]string vs []interface{}, int vs float64).
func normalise(v interface{}) interface{} {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	var out interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Sprint(v)
	}
	return out
}

// CopyDetails returns a deep copy of the details map.
func CopyDetails(d datatypes.JSONMap) datatypes.JSONMap {
	if d == nil {
		return nil
	}
	out := datatypes.JSONMap{}
	for k, v := range d {
		out[k] = normalise(v)
	}
	return out
}

// PublicationMetadata holds the series-level values derived on publish.
type PublicationMetadata struct {
	DocumentID        string     `json:"document_id"`
	PublishedEdition  *Edition   `json:"published_edition,omitempty"`
	LatestMajorUpdate *Edition   `json:"latest_major_update,omitempty"`
	PublicUpdatedAt   *time.Time `json:"public_updated_at"`
	ChangeNote        string     `json:"change_note"`
}
