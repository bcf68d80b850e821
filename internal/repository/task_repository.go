package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"gorm.io/gorm"

	"today-planner/internal/model"
)

const activeTask = "archived_at IS NULL"

// TaskRepository handles CRUD for tasks.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) WithTx(tx *gorm.DB) *TaskRepository {
	return &TaskRepository{db: tx}
}

func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

// FindActive returns a non-archived task owned by userID.
func (r *TaskRepository) FindActive(ctx context.Context, userID, id string) (*model.Task, error) {
	var task model.Task
	if err := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, id).Where(activeTask).
		First(&task).Error; err != nil {
		return nil, notFound(err)
	}
	return &task, nil
}

func (r *TaskRepository) FindActiveByIDs(ctx context.Context, userID string, ids []string) ([]model.Task, error) {
	var tasks []model.Task
	if len(ids) == 0 {
		return tasks, nil
	}
	if err := r.db.WithContext(ctx).Where("user_id = ? AND id IN ?", userID, ids).Where(activeTask).
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// ListActive lists non-archived tasks, open ones first, newest first.
// An empty categoryID lists every category.
func (r *TaskRepository) ListActive(ctx context.Context, userID, categoryID string) ([]model.Task, error) {
	var tasks []model.Task
	q := r.db.WithContext(ctx).Where("user_id = ?", userID).Where(activeTask)
	if categoryID != "" {
		q = q.Where("category_id = ?", categoryID)
	}
	if err := q.Order("completed ASC, created_at DESC").Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *TaskRepository) ListToday(ctx context.Context, userID string) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).Where("user_id = ? AND in_today = ?", userID, true).Where(activeTask).
		Order("today_position ASC, created_at ASC").
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// RecentActive returns at most limit non-archived tasks, Today first, then open, then newest.
func (r *TaskRepository) RecentActive(ctx context.Context, userID string, limit int) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Where(activeTask).
		Order("in_today DESC, completed ASC, created_at DESC").
		Limit(limit).
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// MaxTodayPosition returns the highest position among the user's active Today tasks, nil when none.
func (r *TaskRepository) MaxTodayPosition(ctx context.Context, userID string) (*int, error) {
	var max sql.NullInt64
	row := r.db.WithContext(ctx).Model(&model.Task{}).
		Select("MAX(today_position)").
		Where("user_id = ? AND in_today = ?", userID, true).Where(activeTask).
		Row()
	if err := row.Scan(&max); err != nil {
		return nil, fmt.Errorf("max today position: %w", err)
	}
	if !max.Valid {
		return nil, nil
	}
	pos := int(max.Int64)
	return &pos, nil
}

// Update applies fields to a non-archived task owned by userID and returns the fresh row.
func (r *TaskRepository) Update(ctx context.Context, userID, id string, fields map[string]any) (*model.Task, error) {
	if len(fields) > 0 {
		res := r.db.WithContext(ctx).Model(&model.Task{}).
			Where("user_id = ? AND id = ?", userID, id).Where(activeTask).
			Updates(fields)
		if res.Error != nil {
			return nil, fmt.Errorf("update task: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil, ErrNotFound
		}
	}
	return r.FindActive(ctx, userID, id)
}

// Archive soft-deletes a task owned by userID and reports how many rows matched.
func (r *TaskRepository) Archive(ctx context.Context, userID, id string, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("user_id = ? AND id = ?", userID, id).
		Updates(map[string]any{
			"archived_at":    at,
			"in_today":       false,
			"today_position": nil,
		})
	if res.Error != nil {
		return 0, fmt.Errorf("archive task: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// SetPositions writes position i+1 for ids[i]. Run it inside a transaction.
func (r *TaskRepository) SetPositions(ctx context.Context, userID string, ids []string) error {
	db := r.db.WithContext(ctx)
	for i, id := range ids {
		res := db.Model(&model.Task{}).
			Where("user_id = ? AND id = ?", userID, id).Where(activeTask).
			Update("today_position", i+1)
		if res.Error != nil {
			return fmt.Errorf("set position of %s: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("set position of %s: %w", id, ErrNotFound)
		}
	}
	return nil
}

// PurgeArchived hard-deletes the user's archived tasks.
func (r *TaskRepository) PurgeArchived(ctx context.Context, userID string) (int64, error) {
	res := r.db.WithContext(ctx).Where("user_id = ? AND archived_at IS NOT NULL", userID).Delete(&model.Task{})
	if res.Error != nil {
		return 0, fmt.Errorf("purge archived tasks: %w", res.Error)
	}
	return res.RowsAffected, nil
}
