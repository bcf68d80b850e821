package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuditAction tags the kind of mutation an AuditLog entry records.
type AuditAction string

const (
	ActionCreateTask      AuditAction = "create_task"
	ActionUpdateTask      AuditAction = "update_task"
	ActionCreateCategory  AuditAction = "create_category"
	ActionUpdateCategory  AuditAction = "update_category"
	ActionCompleteTask    AuditAction = "complete_task"
	ActionReopenTask      AuditAction = "reopen_task"
	ActionArchiveTask     AuditAction = "archive_task"
	ActionAddToToday      AuditAction = "add_to_today"
	ActionRemoveFromToday AuditAction = "remove_from_today"
)

// AuditLog is an append-only record of a mutation. Rows are never updated or deleted.
type AuditLog struct {
	ID        string         `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID    string         `gorm:"type:varchar(36);not null;index" json:"userId"`
	TaskID    *string        `gorm:"type:varchar(36);index" json:"taskId"`
	Action    AuditAction    `gorm:"type:varchar(32);not null" json:"action"`
	Payload   map[string]any `gorm:"type:text;serializer:json" json:"payload"`
	CreatedAt time.Time      `json:"timestamp"`
}

func (a *AuditLog) BeforeCreate(*gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}
