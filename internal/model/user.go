package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User owns every category and task. Users are only created by the seed step.
type User struct {
	ID    string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Email string `gorm:"uniqueIndex;not null" json:"email"`
	// TodayRevision is bumped by every change to the user's Today list.
	TodayRevision int64     `gorm:"not null;default:0" json:"-"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}
