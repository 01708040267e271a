package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ArtefactState string

const (
	ArtefactDraft    ArtefactState = "draft"
	ArtefactLive     ArtefactState = "live"
	ArtefactArchived ArtefactState = "archived"
)

// Artefact is the document metadata record that owns a series of editions.
// It is maintained outside the edition workflow; the engine reads it before every save
// and deletes it only when the last edition of its series is destroyed.
type Artefact struct {
	ID                  string        `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Slug                string        `json:"slug" gorm:"uniqueIndex;not null"`
	Name                string        `json:"name" gorm:"not null"`
	Kind                string        `json:"kind" gorm:"not null"`
	Department          string        `json:"department"`
	BusinessUnit        string        `json:"business_unit"`
	Section             string        `json:"section"`
	OwningApp           string        `json:"owning_app" gorm:"default:'publisher'"`
	BusinessProposition bool          `json:"business_proposition"`
	State               ArtefactState `json:"state" gorm:"default:'draft';index"`
	CreatedAt           time.Time     `json:"created_at"`
	UpdatedAt           time.Time     `json:"updated_at"`
}

func (a *Artefact) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.State == "" {
		a.State = ArtefactDraft
	}
	return nil
}

func (a *Artefact) IsArchived() bool {
	return a.State == ArtefactArchived
}
