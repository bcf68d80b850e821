package service

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"today-planner/internal/logging"
	"today-planner/internal/model"
	"today-planner/internal/repository"
)

const DefaultUserEmail = "demo@notton.ai"

// SeedCategory describes one default category.
type SeedCategory struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Color       string `yaml:"color"`
	SortOrder   int    `yaml:"sortOrder"`
}

var DefaultCategories = []SeedCategory{
	{Name: "Work", Description: "Professional tasks, meetings, deliverables, communications", Color: "teal", SortOrder: 1},
	{Name: "Academics", Description: "Assignments, readings, coursework, exams, deadlines", Color: "lavender", SortOrder: 2},
	{Name: "Personal", Description: "Errands, household, relationships, finances", Color: "blue", SortOrder: 3},
	{Name: "Well-being", Description: "Meditation, exercise, rest, self-care", Color: "green", SortOrder: 4},
}

type SeedOptions struct {
	Email          string
	FixedID        string
	CategoriesFile string
}

// SeedService bootstraps the default user and its protected categories.
type SeedService struct {
	users      *repository.UserRepository
	categories *repository.CategoryRepository
	tasks      *repository.TaskRepository
	log        logging.Logger
}

func NewSeedService(users *repository.UserRepository, categories *repository.CategoryRepository, tasks *repository.TaskRepository, l logging.Logger) *SeedService {
	return &SeedService{users: users, categories: categories, tasks: tasks, log: l}
}

// Run is idempotent: existing users and categories are left as they are.
// Archived tasks of the seeded user are purged.
func (s *SeedService) Run(ctx context.Context, opts SeedOptions) (*model.User, error) {
	if opts.Email == "" {
		opts.Email = DefaultUserEmail
	}

	defaults := DefaultCategories
	if opts.CategoriesFile != "" {
		loaded, err := LoadSeedCategories(opts.CategoriesFile)
		if err != nil {
			return nil, err
		}
		defaults = loaded
	}

	user, err := s.users.UpsertByEmail(ctx, opts.Email, opts.FixedID)
	if err != nil {
		return nil, err
	}

	purged, err := s.tasks.PurgeArchived(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	for _, def := range defaults {
		category := &model.Category{
			UserID:    user.ID,
			Name:      def.Name,
			Color:     def.Color,
			IsDefault: true,
			SortOrder: def.SortOrder,
		}
		if def.Description != "" {
			desc := def.Description
			category.Description = &desc
		}
		if _, err := s.categories.Upsert(ctx, category); err != nil {
			return nil, fmt.Errorf("seed category %s: %w", def.Name, err)
		}
	}

	s.log.Info("seed complete", "user", user.Email, "id", user.ID, "categories", len(defaults), "purged", purged)
	return user, nil
}

// LoadSeedCategories reads a YAML file of the form `categories: [{name, description, color, sortOrder}]`.
func LoadSeedCategories(path string) ([]SeedCategory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}

	var doc struct {
		Categories []SeedCategory `yaml:"categories"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}

	if len(doc.Categories) == 0 {
		return nil, fmt.Errorf("seed file %s lists no categories", path)
	}
	for i, c := range doc.Categories {
		if c.Name == "" {
			return nil, fmt.Errorf("seed file %s: category %d has no name", path, i+1)
		}
		if !model.ValidColor(c.Color) {
			return nil, fmt.Errorf("seed file %s: category %s has unknown color %q", path, c.Name, c.Color)
		}
		if c.SortOrder == 0 {
			doc.Categories[i].SortOrder = i + 1
		}
	}
	return doc.Categories, nil
}
