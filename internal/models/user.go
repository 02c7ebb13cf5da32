package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is a parking attendant account. Attendant identity only protects
// the mutating API surface; audit attribution uses the per-terminal
// device id, not the user.
type User struct {
	gorm.Model
	ID       uuid.UUID `gorm:"type:uuid;primary_key"`
	Name     string    `gorm:"not null"`
	Email    string    `gorm:"unique;not null"`
	Password string    `gorm:"not null"`
}

func (user *User) BeforeCreate(tx *gorm.DB) (err error) {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	return
}
