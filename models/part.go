package models

import "time"

// Part is an ordered section of a parted edition (guide, programme, travel advice).
type Part struct {
	ID        uint      `json:"id" gorm:"primarykey"`
	EditionID uint      `json:"edition_id" gorm:"index;not null"`
	Order     int       `json:"order" gorm:"column:sort_order;not null"`
	Title     string    `json:"title" gorm:"not null"`
	Body      string    `json:"body" gorm:"type:text"`
	Slug      string    `json:"slug" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
}
