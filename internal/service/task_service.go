package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"today-planner/internal/logging"
	"today-planner/internal/model"
	"today-planner/internal/repository"
)

// AuditSink receives one entry per committed mutation.
type AuditSink interface {
	Record(ctx context.Context, entry model.AuditLog) error
}

// CreateTaskInput represents data required to create a task.
type CreateTaskInput struct {
	Title           string
	CategoryID      string
	DurationMinutes model.Duration
	EnergyLevel     model.EnergyLevel
	Source          model.Source
	AddToToday      bool
}

// UpdateTaskInput is a partial update; nil fields are left alone.
type UpdateTaskInput struct {
	Title           *string
	CategoryID      *string
	DurationMinutes *model.Duration
	EnergyLevel     *model.EnergyLevel
	Source          *model.Source
}

// TaskService owns every task state transition and its audit entry.
type TaskService struct {
	db         *gorm.DB
	tasks      *repository.TaskRepository
	categories *repository.CategoryRepository
	users      *repository.UserRepository
	audit      AuditSink
	log        logging.Logger
	now        func() time.Time
}

func NewTaskService(
	db *gorm.DB,
	tasks *repository.TaskRepository,
	categories *repository.CategoryRepository,
	users *repository.UserRepository,
	audit AuditSink,
	l logging.Logger,
) *TaskService {
	return &TaskService{
		db:         db,
		tasks:      tasks,
		categories: categories,
		users:      users,
		audit:      audit,
		log:        l,
		now:        time.Now,
	}
}

func (s *TaskService) Create(ctx context.Context, owner string, in CreateTaskInput) (*model.Task, error) {
	if in.Source == "" {
		in.Source = model.SourceManual
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, invalid("title", "is required")
	}
	if in.CategoryID == "" {
		return nil, invalid("categoryId", "is required")
	}
	if err := validateAttributes(&in.DurationMinutes, &in.EnergyLevel, &in.Source); err != nil {
		return nil, err
	}

	task := model.Task{
		UserID:          owner,
		CategoryID:      in.CategoryID,
		Title:           title,
		DurationMinutes: in.DurationMinutes,
		EnergyLevel:     in.EnergyLevel,
		Source:          in.Source,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.requireCategory(ctx, tx, owner, in.CategoryID); err != nil {
			return err
		}

		tasks := s.tasks.WithTx(tx)
		if in.AddToToday {
			max, err := tasks.MaxTodayPosition(ctx, owner)
			if err != nil {
				return err
			}
			pos := NextTodayPosition(max)
			task.InToday = true
			task.TodayPosition = &pos
		}

		if err := tasks.Create(ctx, &task); err != nil {
			return err
		}
		if task.InToday {
			return s.users.WithTx(tx).BumpTodayRevision(ctx, owner)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, owner, &task.ID, model.ActionCreateTask, map[string]any{
		"title":           task.Title,
		"categoryId":      task.CategoryID,
		"durationMinutes": int(task.DurationMinutes),
		"energyLevel":     string(task.EnergyLevel),
		"source":          string(task.Source),
		"addToToday":      in.AddToToday,
	})
	return &task, nil
}

// Update changes descriptive fields only. Today membership, completion and archival are untouched.
func (s *TaskService) Update(ctx context.Context, owner, id string, in UpdateTaskInput) (*model.Task, error) {
	fields := map[string]any{}
	patch := map[string]any{}

	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, invalid("title", "must not be empty")
		}
		fields["title"] = title
		patch["title"] = title
	}
	if in.DurationMinutes != nil {
		if !in.DurationMinutes.Valid() {
			return nil, invalid("durationMinutes", model.ErrInvalidDuration.Error())
		}
		fields["duration_minutes"] = *in.DurationMinutes
		patch["durationMinutes"] = int(*in.DurationMinutes)
	}
	if in.EnergyLevel != nil {
		if !in.EnergyLevel.Valid() {
			return nil, invalid("energyLevel", "must be low, med, or high")
		}
		fields["energy_level"] = *in.EnergyLevel
		patch["energyLevel"] = string(*in.EnergyLevel)
	}
	if in.Source != nil {
		if !in.Source.Valid() {
			return nil, invalid("source", "is not a known source")
		}
		fields["source"] = *in.Source
		patch["source"] = string(*in.Source)
	}
	if in.CategoryID != nil {
		if *in.CategoryID == "" {
			return nil, invalid("categoryId", "must not be empty")
		}
		fields["category_id"] = *in.CategoryID
		patch["categoryId"] = *in.CategoryID
	}

	var task *model.Task
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if in.CategoryID != nil {
			if err := s.requireCategory(ctx, tx, owner, *in.CategoryID); err != nil {
				return err
			}
		}
		var err error
		task, err = s.tasks.WithTx(tx).Update(ctx, owner, id, fields)
		return taskNotFound(err)
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, owner, &task.ID, model.ActionUpdateTask, patch)
	return task, nil
}

// SetToday adds the task to Today (appending unless position is given) or removes it.
// Completion is neither checked nor changed.
func (s *TaskService) SetToday(ctx context.Context, owner, id string, inToday bool, position *int) (*model.Task, error) {
	if position != nil && *position < 1 {
		return nil, invalid("todayPosition", "must be a positive integer")
	}

	var task *model.Task
	var pos *int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tasks := s.tasks.WithTx(tx)
		if _, err := tasks.FindActive(ctx, owner, id); err != nil {
			return taskNotFound(err)
		}

		fields := map[string]any{"in_today": false, "today_position": nil}
		if inToday {
			pos = position
			if pos == nil {
				max, err := tasks.MaxTodayPosition(ctx, owner)
				if err != nil {
					return err
				}
				next := NextTodayPosition(max)
				pos = &next
			}
			fields = map[string]any{"in_today": true, "today_position": *pos}
		}

		var err error
		if task, err = tasks.Update(ctx, owner, id, fields); err != nil {
			return taskNotFound(err)
		}
		return s.users.WithTx(tx).BumpTodayRevision(ctx, owner)
	})
	if err != nil {
		return nil, err
	}

	if inToday {
		s.record(ctx, owner, &task.ID, model.ActionAddToToday, map[string]any{"inToday": true, "todayPosition": *pos})
	} else {
		s.record(ctx, owner, &task.ID, model.ActionRemoveFromToday, map[string]any{"inToday": false, "todayPosition": nil})
	}
	return task, nil
}

// Reorder rewrites Today positions to 1..N in the order of ids, all or nothing.
// Tasks left out keep their positions. A non-nil revision must match the current
// Today revision or ErrConflict is returned.
func (s *TaskService) Reorder(ctx context.Context, owner string, ids []string, revision *int64) error {
	if len(Positions(ids)) != len(ids) {
		return invalid("taskIds", "must not contain duplicates")
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users := s.users.WithTx(tx)
		if revision != nil {
			current, err := users.TodayRevision(ctx, owner)
			if err != nil {
				return err
			}
			if current != *revision {
				return ErrConflict
			}
		}

		tasks := s.tasks.WithTx(tx)
		found, err := tasks.FindActiveByIDs(ctx, owner, ids)
		if err != nil {
			return err
		}
		if len(found) != len(ids) {
			return ErrTaskNotFound
		}
		for _, t := range found {
			if !t.InToday {
				return invalid("taskIds", fmt.Sprintf("task %s is not in Today", t.ID))
			}
		}

		if err := tasks.SetPositions(ctx, owner, ids); err != nil {
			return taskNotFound(err)
		}
		return users.BumpTodayRevision(ctx, owner)
	})
	if err != nil {
		return err
	}

	s.record(ctx, owner, nil, model.ActionUpdateTask, map[string]any{"reordered": ids})
	return nil
}

// SetCompleted marks a task done, which also drops it from Today, or reopens it.
// Reopening never restores Today membership. Archived tasks are not found.
func (s *TaskService) SetCompleted(ctx context.Context, owner, id string, completed bool) (*model.Task, error) {
	fields := map[string]any{"completed": false}
	action := model.ActionReopenTask
	payload := map[string]any{"completed": false}
	if completed {
		fields = map[string]any{"completed": true, "in_today": false, "today_position": nil}
		action = model.ActionCompleteTask
		payload = map[string]any{"completed": true, "inToday": false, "todayPosition": nil}
	}

	var task *model.Task
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tasks := s.tasks.WithTx(tx)
		before, err := tasks.FindActive(ctx, owner, id)
		if err != nil {
			return taskNotFound(err)
		}
		if task, err = tasks.Update(ctx, owner, id, fields); err != nil {
			return taskNotFound(err)
		}
		if before.InToday && completed {
			return s.users.WithTx(tx).BumpTodayRevision(ctx, owner)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, owner, &task.ID, action, payload)
	return task, nil
}

// Archive soft-deletes the task and removes it from Today.
func (s *TaskService) Archive(ctx context.Context, owner, id string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		n, err := s.tasks.WithTx(tx).Archive(ctx, owner, id, s.now())
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrTaskNotFound
		}
		return s.users.WithTx(tx).BumpTodayRevision(ctx, owner)
	})
	if err != nil {
		return err
	}

	s.record(ctx, owner, &id, model.ActionArchiveTask, map[string]any{})
	return nil
}

// List returns active tasks, optionally limited to one category.
func (s *TaskService) List(ctx context.Context, owner, categoryID string) ([]model.Task, error) {
	tasks, err := s.tasks.ListActive(ctx, owner, categoryID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// Today returns the Today list in position order.
func (s *TaskService) Today(ctx context.Context, owner string) ([]model.Task, error) {
	tasks, err := s.tasks.ListToday(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list today: %w", err)
	}
	return tasks, nil
}

func (s *TaskService) TodayRevision(ctx context.Context, owner string) (int64, error) {
	return s.users.TodayRevision(ctx, owner)
}

func (s *TaskService) requireCategory(ctx context.Context, tx *gorm.DB, owner, categoryID string) error {
	if _, err := s.categories.WithTx(tx).GetByID(ctx, owner, categoryID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrCategoryNotFound
		}
		return fmt.Errorf("find category: %w", err)
	}
	return nil
}

// record delivers an audit entry after commit. Failures are logged, not returned.
func (s *TaskService) record(ctx context.Context, owner string, taskID *string, action model.AuditAction, payload map[string]any) {
	entry := model.AuditLog{
		UserID:    owner,
		TaskID:    taskID,
		Action:    action,
		Payload:   payload,
		CreatedAt: s.now(),
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		s.log.Warn("audit record failed", "action", action, "err", err)
	}
}

func validateAttributes(d *model.Duration, e *model.EnergyLevel, src *model.Source) error {
	if !d.Valid() {
		return invalid("durationMinutes", model.ErrInvalidDuration.Error())
	}
	if !e.Valid() {
		return invalid("energyLevel", "must be low, med, or high")
	}
	if !src.Valid() {
		return invalid("source", "is not a known source")
	}
	return nil
}
