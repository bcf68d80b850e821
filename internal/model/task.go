package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EnergyLevel is the coarse effort tag of a task.
type EnergyLevel string

const (
	EnergyLow  EnergyLevel = "low"
	EnergyMed  EnergyLevel = "med"
	EnergyHigh EnergyLevel = "high"
)

func (e EnergyLevel) Valid() bool {
	switch e {
	case EnergyLow, EnergyMed, EnergyHigh:
		return true
	}
	return false
}

// Source tags where a task came from.
type Source string

const (
	SourceManual    Source = "manual"
	SourceAssistant Source = "assistant"
	SourceSlack     Source = "slack"
	SourceJira      Source = "jira"
	SourceCanvas    Source = "canvas"
	SourceNotion    Source = "notion"
)

func (s Source) Valid() bool {
	switch s {
	case SourceManual, SourceAssistant, SourceSlack, SourceJira, SourceCanvas, SourceNotion:
		return true
	}
	return false
}

// Task is a single unit of work.
//
// TodayPosition is non-nil exactly when InToday is true. A task with ArchivedAt
// set is soft-deleted and excluded from every listing.
type Task struct {
	ID              string      `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID          string      `gorm:"type:varchar(36);not null;index" json:"userId"`
	CategoryID      string      `gorm:"type:varchar(36);not null;index" json:"categoryId"`
	Title           string      `gorm:"not null" json:"title"`
	DurationMinutes Duration    `gorm:"not null" json:"durationMinutes"`
	EnergyLevel     EnergyLevel `gorm:"type:varchar(8);not null" json:"energyLevel"`
	Source          Source      `gorm:"type:varchar(16);not null;default:manual" json:"source"`
	Completed       bool        `gorm:"not null;default:false" json:"completed"`
	InToday         bool        `gorm:"not null;default:false;index" json:"inToday"`
	TodayPosition   *int        `json:"todayPosition"`
	ArchivedAt      *time.Time  `gorm:"index" json:"archivedAt"`
	CreatedAt       time.Time   `json:"createdAt"`
	UpdatedAt       time.Time   `json:"updatedAt"`
}

func (t *Task) BeforeCreate(*gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}
