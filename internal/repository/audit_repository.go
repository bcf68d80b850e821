package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"today-planner/internal/model"
)

// AuditRepository appends audit entries. It never updates or deletes them.
type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Record(ctx context.Context, entry model.AuditLog) error {
	if err := r.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return fmt.Errorf("record audit %s: %w", entry.Action, err)
	}
	return nil
}

func (r *AuditRepository) ListByUser(ctx context.Context, userID string) ([]model.AuditLog, error) {
	var entries []model.AuditLog
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at ASC").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
