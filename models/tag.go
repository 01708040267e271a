package models

import (
	"time"

	"gorm.io/gorm"
)

type TagType string

const (
	TagTypeSection    TagType = "section"
	TagTypeTopic      TagType = "topic"
	TagTypeBrowsePage TagType = "browse_page"
)

type Tag struct {
	ID         uint           `json:"id" gorm:"primarykey"`
	Name       string         `json:"name" gorm:"uniqueIndex;not null"`
	Type       TagType        `json:"type" gorm:"default:'topic'"`
	Title      string         `json:"title"`
	UsageCount int            `json:"usage_count" gorm:"default:0"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `json:"-" gorm:"index"`
}
