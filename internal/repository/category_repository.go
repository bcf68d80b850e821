package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"today-planner/internal/model"
)

// CategoryCounts aggregates a category's non-archived tasks.
type CategoryCounts struct {
	CategoryID string
	Total      int64
	InToday    int64
	Completed  int64
}

// CategoryRepository manages task categories.
type CategoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

func (r *CategoryRepository) WithTx(tx *gorm.DB) *CategoryRepository {
	return &CategoryRepository{db: tx}
}

func (r *CategoryRepository) Create(ctx context.Context, category *model.Category) error {
	if err := r.db.WithContext(ctx).Create(category).Error; err != nil {
		return fmt.Errorf("create category: %w", err)
	}
	return nil
}

// Upsert creates the category unless one with the same name already exists for the user.
// Existing rows are returned untouched.
func (r *CategoryRepository) Upsert(ctx context.Context, category *model.Category) (*model.Category, error) {
	var existing model.Category
	db := r.db.WithContext(ctx)
	err := db.Where("user_id = ? AND name = ?", category.UserID, category.Name).First(&existing).Error
	switch {
	case err == nil:
		return &existing, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		if err := db.Create(category).Error; err != nil {
			return nil, fmt.Errorf("create category: %w", err)
		}
		return category, nil
	default:
		return nil, fmt.Errorf("find category: %w", err)
	}
}

func (r *CategoryRepository) ListByUser(ctx context.Context, userID string) ([]model.Category, error) {
	var categories []model.Category
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("sort_order ASC, created_at ASC").
		Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *CategoryRepository) GetByID(ctx context.Context, userID, id string) (*model.Category, error) {
	var category model.Category
	if err := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, id).First(&category).Error; err != nil {
		return nil, notFound(err)
	}
	return &category, nil
}

func (r *CategoryRepository) Count(ctx context.Context, userID string) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.Category{}).Where("user_id = ?", userID).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

// DeleteWithTasks removes the category and every task in it, archived ones included.
func (r *CategoryRepository) DeleteWithTasks(ctx context.Context, userID, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ? AND category_id = ?", userID, id).Delete(&model.Task{}).Error; err != nil {
			return fmt.Errorf("delete category tasks: %w", err)
		}
		res := tx.Where("user_id = ? AND id = ?", userID, id).Delete(&model.Category{})
		if res.Error != nil {
			return fmt.Errorf("delete category: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// CountsByUser groups the user's non-archived tasks per category.
func (r *CategoryRepository) CountsByUser(ctx context.Context, userID string) (map[string]CategoryCounts, error) {
	var rows []CategoryCounts
	err := r.db.WithContext(ctx).Model(&model.Task{}).
		Select("category_id, COUNT(*) AS total, "+
			"SUM(CASE WHEN in_today THEN 1 ELSE 0 END) AS in_today, "+
			"SUM(CASE WHEN completed THEN 1 ELSE 0 END) AS completed").
		Where("user_id = ? AND archived_at IS NULL", userID).
		Group("category_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count tasks: %w", err)
	}

	counts := make(map[string]CategoryCounts, len(rows))
	for _, row := range rows {
		counts[row.CategoryID] = row
	}
	return counts, nil
}
