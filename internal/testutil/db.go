// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"today-planner/internal/logging"
	"today-planner/internal/model"
	"today-planner/internal/repository"
)

// OpenDB returns a migrated in-memory SQLite database private to the test.
func OpenDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%s?mode=memory&cache=shared", name, uuid.NewString()[:8])
	db, err := repository.NewDB(dsn, logging.Discard())
	if err != nil {
		t.Fatalf("Failed to open test db: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// SeedUser creates a user with the given email.
func SeedUser(t *testing.T, db *gorm.DB, email string) *model.User {
	t.Helper()
	user, err := repository.NewUserRepository(db).UpsertByEmail(context.Background(), email, "")
	if err != nil {
		t.Fatalf("Failed to seed user %s: %v", email, err)
	}
	return user
}

// SeedCategory creates a category for the user.
func SeedCategory(t *testing.T, db *gorm.DB, userID, name string, isDefault bool) *model.Category {
	t.Helper()
	category := &model.Category{UserID: userID, Name: name, Color: "teal", IsDefault: isDefault}
	if err := repository.NewCategoryRepository(db).Create(context.Background(), category); err != nil {
		t.Fatalf("Failed to seed category %s: %v", name, err)
	}
	return category
}

// SeedTask inserts a task row directly, bypassing the lifecycle service.
func SeedTask(t *testing.T, db *gorm.DB, task model.Task) *model.Task {
	t.Helper()
	if task.DurationMinutes == 0 {
		task.DurationMinutes = model.Duration30
	}
	if task.EnergyLevel == "" {
		task.EnergyLevel = model.EnergyMed
	}
	if task.Source == "" {
		task.Source = model.SourceManual
	}
	if task.Title == "" {
		task.Title = "Task " + uuid.NewString()[:4]
	}
	if err := repository.NewTaskRepository(db).Create(context.Background(), &task); err != nil {
		t.Fatalf("Failed to seed task %s: %v", task.Title, err)
	}
	return &task
}

func IntPtr(v int) *int { return &v }
