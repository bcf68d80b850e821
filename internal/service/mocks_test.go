package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"gorm.io/gorm"

	"today-planner/internal/logging"
	"today-planner/internal/model"
	"today-planner/internal/repository"
	"today-planner/internal/testutil"
)

var ErrMockSink = errors.New("mock sink error")

// MockSink implements AuditSink for testing
type MockSink struct {
	mu         sync.Mutex
	RecordFunc func(ctx context.Context, entry model.AuditLog) error
	Entries    []model.AuditLog
}

func (m *MockSink) Record(ctx context.Context, entry model.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.RecordFunc != nil {
		if err := m.RecordFunc(ctx, entry); err != nil {
			return err
		}
	}
	m.Entries = append(m.Entries, entry)
	return nil
}

func (m *MockSink) Actions() []model.AuditAction {
	m.mu.Lock()
	defer m.mu.Unlock()

	actions := make([]model.AuditAction, 0, len(m.Entries))
	for _, e := range m.Entries {
		actions = append(actions, e.Action)
	}
	return actions
}

type fixture struct {
	db       *gorm.DB
	sink     *MockSink
	tasks    *TaskService
	cats     *CategoryService
	user     *model.User
	category *model.Category
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.OpenDB(t)
	sink := &MockSink{}
	taskRepo := repository.NewTaskRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	userRepo := repository.NewUserRepository(db)

	user := testutil.SeedUser(t, db, "owner@example.com")
	category := testutil.SeedCategory(t, db, user.ID, "Work", true)

	return &fixture{
		db:       db,
		sink:     sink,
		tasks:    NewTaskService(db, taskRepo, categoryRepo, userRepo, sink, logging.Discard()),
		cats:     NewCategoryService(categoryRepo, sink, logging.Discard()),
		user:     user,
		category: category,
	}
}

func (f *fixture) create(t *testing.T, title string, addToToday bool) *model.Task {
	t.Helper()
	task, err := f.tasks.Create(context.Background(), f.user.ID, CreateTaskInput{
		Title:           title,
		CategoryID:      f.category.ID,
		DurationMinutes: model.Duration30,
		EnergyLevel:     model.EnergyMed,
		Source:          model.SourceManual,
		AddToToday:      addToToday,
	})
	if err != nil {
		t.Fatalf("Create %s: %v", title, err)
	}
	return task
}

// assertTodayInvariant checks inToday <=> todayPosition != nil over every stored task.
func assertTodayInvariant(t *testing.T, db *gorm.DB) {
	t.Helper()
	var tasks []model.Task
	if err := db.Find(&tasks).Error; err != nil {
		t.Fatalf("load tasks: %v", err)
	}
	for _, task := range tasks {
		if task.InToday != (task.TodayPosition != nil) {
			t.Errorf("task %s breaks invariant: inToday=%v todayPosition=%v", task.Title, task.InToday, task.TodayPosition)
		}
	}
}
