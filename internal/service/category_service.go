package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"today-planner/internal/logging"
	"today-planner/internal/model"
	"today-planner/internal/repository"
)

// CategoryCounts are computed from non-archived tasks on every call.
type CategoryCounts struct {
	Total     int64 `json:"total"`
	InToday   int64 `json:"inToday"`
	Completed int64 `json:"completed"`
}

// CategorySummary is a category with its task counts.
type CategorySummary struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description *string        `json:"description"`
	Color       string         `json:"color"`
	IsDefault   bool           `json:"isDefault"`
	SortOrder   int            `json:"sortOrder"`
	Counts      CategoryCounts `json:"counts"`
}

type CreateCategoryInput struct {
	Name        string
	Color       string
	Description *string
	SortOrder   *int
}

// CategoryService provides helpers around categories.
type CategoryService struct {
	repo  *repository.CategoryRepository
	audit AuditSink
	log   logging.Logger
}

func NewCategoryService(repo *repository.CategoryRepository, audit AuditSink, l logging.Logger) *CategoryService {
	return &CategoryService{repo: repo, audit: audit, log: l}
}

// List returns the owner's categories by sort order, each with its counts.
func (s *CategoryService) List(ctx context.Context, owner string) ([]CategorySummary, error) {
	categories, err := s.repo.ListByUser(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	counts, err := s.repo.CountsByUser(ctx, owner)
	if err != nil {
		return nil, err
	}

	summaries := make([]CategorySummary, 0, len(categories))
	for _, c := range categories {
		row := counts[c.ID]
		summaries = append(summaries, CategorySummary{
			ID:          c.ID,
			Name:        c.Name,
			Description: c.Description,
			Color:       c.Color,
			IsDefault:   c.IsDefault,
			SortOrder:   c.SortOrder,
			Counts: CategoryCounts{
				Total:     row.Total,
				InToday:   row.InToday,
				Completed: row.Completed,
			},
		})
	}
	return summaries, nil
}

// Create adds a custom category. A duplicate name for the same owner fails at the store.
func (s *CategoryService) Create(ctx context.Context, owner string, in CreateCategoryInput) (*model.Category, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, invalid("name", "is required")
	}
	if !model.ValidColor(in.Color) {
		return nil, invalid("color", "must be one of "+strings.Join(model.Palette, ", "))
	}

	category := model.Category{
		UserID:      owner,
		Name:        name,
		Description: in.Description,
		Color:       in.Color,
	}
	if in.SortOrder != nil {
		category.SortOrder = *in.SortOrder
	} else {
		n, err := s.repo.Count(ctx, owner)
		if err != nil {
			return nil, fmt.Errorf("count categories: %w", err)
		}
		category.SortOrder = int(n) + 1
	}

	if err := s.repo.Create(ctx, &category); err != nil {
		return nil, err
	}

	entry := model.AuditLog{
		UserID:  owner,
		Action:  model.ActionCreateCategory,
		Payload: map[string]any{"categoryId": category.ID},
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		s.log.Warn("audit record failed", "action", entry.Action, "err", err)
	}
	return &category, nil
}

// Delete removes a custom category together with all of its tasks.
func (s *CategoryService) Delete(ctx context.Context, owner, id string) error {
	category, err := s.repo.GetByID(ctx, owner, id)
	switch {
	case err == nil:
	case errors.Is(err, ErrNotFound):
		return ErrCategoryNotFound
	default:
		return fmt.Errorf("find category: %w", err)
	}

	if category.IsDefault {
		return invalid("id", "default categories cannot be deleted")
	}

	if err := s.repo.DeleteWithTasks(ctx, owner, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrCategoryNotFound
		}
		return err
	}
	return nil
}
