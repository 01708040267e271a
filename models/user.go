package models

import (
	"strconv"
	"time"

	"gorm.io/gorm"
)

type UserRole string

const (
	RoleWriter UserRole = "writer"
	RoleEditor UserRole = "editor"
	RoleAdmin  UserRole = "admin"
)

var roleRank = map[UserRole]int{RoleWriter: 1, RoleEditor: 2, RoleAdmin: 3}

func (r UserRole) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// AtLeast reports whether r ranks at or above min in writer < editor < admin.
func (r UserRole) AtLeast(min UserRole) bool {
	return roleRank[r] >= roleRank[min] && roleRank[r] > 0
}

type User struct {
	ID        uint           `json:"id" gorm:"primarykey"`
	Username  string         `json:"username" gorm:"uniqueIndex;not null"`
	Email     string         `json:"email" gorm:"uniqueIndex;not null"`
	Password  string         `json:"-" gorm:"not null"`
	Role      UserRole       `json:"role" gorm:"default:'writer'"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// Actor is the acting user as seen by the workflow. The engine only stores Ref().
type Actor struct {
	ID   uint
	Name string
	Role UserRole
}

// Ref is the opaque reference stamped into editorial metadata fields.
func (a Actor) Ref() string {
	if a.Name != "" {
		return a.Name
	}
	return "user-" + strconv.FormatUint(uint64(a.ID), 10)
}

// SystemActor performs supersession and other engine-driven changes.
var SystemActor = Actor{Name: "system", Role: RoleAdmin}
