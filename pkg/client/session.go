package client

import (
	"context"
	"fmt"
	"sync"

	"today-planner/internal/model"
	"today-planner/internal/service"
	"today-planner/internal/view"
)

// Session keeps the last fetched categories, tasks and Today list. Every
// mutation goes to the server first and then refetches all three; the server
// is the only source of truth.
type Session struct {
	c *Client

	mu         sync.RWMutex
	categories []service.CategorySummary
	tasks      []model.Task
	today      []model.Task
	revision   int64
}

func NewSession(c *Client) *Session {
	return &Session{c: c}
}

// Refresh refetches categories, tasks and Today.
func (s *Session) Refresh(ctx context.Context) error {
	categories, err := s.c.Categories(ctx)
	if err != nil {
		return fmt.Errorf("fetch categories: %w", err)
	}
	tasks, err := s.c.Tasks(ctx, "")
	if err != nil {
		return fmt.Errorf("fetch tasks: %w", err)
	}
	today, revision, err := s.c.Today(ctx)
	if err != nil {
		return fmt.Errorf("fetch today: %w", err)
	}

	s.mu.Lock()
	s.categories = categories
	s.tasks = tasks
	s.today = today
	s.revision = revision
	s.mu.Unlock()
	return nil
}

func (s *Session) Categories() []service.CategorySummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]service.CategorySummary(nil), s.categories...)
}

func (s *Session) Tasks() []model.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Task(nil), s.tasks...)
}

func (s *Session) Today() []model.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Task(nil), s.today...)
}

// Revision is the Today revision seen on the last refresh.
func (s *Session) Revision() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

// Board derives the filtered category board from the cached state.
func (s *Session) Board(f view.Filter) view.Board {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return view.BuildBoard(s.categories, s.tasks, s.today, f)
}

func (s *Session) CreateTask(ctx context.Context, req CreateTaskRequest) (*model.Task, error) {
	task, err := s.c.CreateTask(ctx, req)
	return task, s.settle(ctx, err)
}

func (s *Session) UpdateTask(ctx context.Context, id string, req UpdateTaskRequest) (*model.Task, error) {
	task, err := s.c.UpdateTask(ctx, id, req)
	return task, s.settle(ctx, err)
}

func (s *Session) SetToday(ctx context.Context, id string, inToday bool, position *int) (*model.Task, error) {
	task, err := s.c.SetToday(ctx, id, inToday, position)
	return task, s.settle(ctx, err)
}

func (s *Session) SetCompleted(ctx context.Context, id string, completed bool) (*model.Task, error) {
	task, err := s.c.SetCompleted(ctx, id, completed)
	return task, s.settle(ctx, err)
}

func (s *Session) Archive(ctx context.Context, id string) error {
	return s.settle(ctx, s.c.Archive(ctx, id))
}

// ReorderToday submits ids against the revision of the last refresh. A 409
// means someone else changed Today; the state is refreshed either way.
func (s *Session) ReorderToday(ctx context.Context, ids []string) error {
	rev := s.Revision()
	return s.settle(ctx, s.c.Reorder(ctx, ids, &rev))
}

func (s *Session) CreateCategory(ctx context.Context, req CreateCategoryRequest) (*model.Category, error) {
	category, err := s.c.CreateCategory(ctx, req)
	return category, s.settle(ctx, err)
}

func (s *Session) DeleteCategory(ctx context.Context, id string) error {
	return s.settle(ctx, s.c.DeleteCategory(ctx, id))
}

// Chat sends a message and refreshes when the assistant created a task.
func (s *Session) Chat(ctx context.Context, message string) (string, *model.Task, error) {
	result, err := s.c.Chat(ctx, message)
	if err != nil {
		return "", nil, err
	}
	if result.Task != nil {
		if err := s.Refresh(ctx); err != nil {
			return result.Reply, result.Task, err
		}
	}
	return result.Reply, result.Task, nil
}

// settle refetches after a mutation. The mutation error wins over a refresh error.
func (s *Session) settle(ctx context.Context, err error) error {
	refreshErr := s.Refresh(ctx)
	if err != nil {
		return err
	}
	return refreshErr
}
