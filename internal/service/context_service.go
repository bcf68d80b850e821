package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"today-planner/internal/model"
	"today-planner/internal/repository"
)

const DefaultContextLimit = 100

// ContextCategoryRef is the slice of a category embedded in each context task.
type ContextCategoryRef struct {
	Name        string  `json:"name"`
	Color       string  `json:"color"`
	Description *string `json:"description"`
}

type ContextTask struct {
	ID              string             `json:"id"`
	Title           string             `json:"title"`
	DurationMinutes model.Duration     `json:"durationMinutes"`
	EnergyLevel     model.EnergyLevel  `json:"energyLevel"`
	Completed       bool               `json:"completed"`
	InToday         bool               `json:"inToday"`
	TodayPosition   *int               `json:"todayPosition"`
	Source          model.Source       `json:"source"`
	Category        ContextCategoryRef `json:"category"`
	CreatedAt       time.Time          `json:"createdAt"`
	UpdatedAt       time.Time          `json:"updatedAt"`
}

type ContextCategory struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Color       string  `json:"color"`
	IsDefault   bool    `json:"isDefault"`
	ActiveTasks int64   `json:"activeTasks"`
}

// ContextStats are computed over the snapshot's tasks; breakdowns count open tasks only.
type ContextStats struct {
	TotalTasks      int `json:"totalTasks"`
	ActiveTasks     int `json:"activeTasks"`
	CompletedTasks  int `json:"completedTasks"`
	InProgressTasks int `json:"inProgressTasks"`
	TodayTasks      int `json:"todayTasks"`
	LowEnergyTasks  int `json:"lowEnergyTasks"`
	MedEnergyTasks  int `json:"medEnergyTasks"`
	HighEnergyTasks int `json:"highEnergyTasks"`
	ShortTasks      int `json:"shortTasks"`
	MediumTasks     int `json:"mediumTasks"`
	LongTasks       int `json:"longTasks"`
	ManualTasks     int `json:"manualTasks"`
	ImportedTasks   int `json:"importedTasks"`
}

// ChatContext is the bounded snapshot handed to the assistant.
type ChatContext struct {
	Tasks      []ContextTask     `json:"tasks"`
	Categories []ContextCategory `json:"categories"`
	Stats      ContextStats      `json:"stats"`
}

// ContextService builds the assistant's view of a user's planner.
type ContextService struct {
	taskRepo     *repository.TaskRepository
	categoryRepo *repository.CategoryRepository
	limit        int
}

func NewContextService(taskRepo *repository.TaskRepository, categoryRepo *repository.CategoryRepository, limit int) *ContextService {
	if limit <= 0 {
		limit = DefaultContextLimit
	}
	return &ContextService{taskRepo: taskRepo, categoryRepo: categoryRepo, limit: limit}
}

func (s *ContextService) Snapshot(ctx context.Context, owner string) (ChatContext, error) {
	tasks, err := s.taskRepo.RecentActive(ctx, owner, s.limit)
	if err != nil {
		return ChatContext{}, fmt.Errorf("load context tasks: %w", err)
	}
	categories, err := s.categoryRepo.ListByUser(ctx, owner)
	if err != nil {
		return ChatContext{}, fmt.Errorf("load context categories: %w", err)
	}
	counts, err := s.categoryRepo.CountsByUser(ctx, owner)
	if err != nil {
		return ChatContext{}, err
	}

	refs := make(map[string]ContextCategoryRef, len(categories))
	out := ChatContext{
		Tasks:      make([]ContextTask, 0, len(tasks)),
		Categories: make([]ContextCategory, 0, len(categories)),
	}
	for _, c := range categories {
		refs[c.ID] = ContextCategoryRef{Name: c.Name, Color: c.Color, Description: c.Description}
		row := counts[c.ID]
		out.Categories = append(out.Categories, ContextCategory{
			ID:          c.ID,
			Name:        c.Name,
			Description: c.Description,
			Color:       c.Color,
			IsDefault:   c.IsDefault,
			ActiveTasks: row.Total - row.Completed,
		})
	}

	for _, t := range tasks {
		out.Tasks = append(out.Tasks, ContextTask{
			ID:              t.ID,
			Title:           t.Title,
			DurationMinutes: t.DurationMinutes,
			EnergyLevel:     t.EnergyLevel,
			Completed:       t.Completed,
			InToday:         t.InToday,
			TodayPosition:   t.TodayPosition,
			Source:          t.Source,
			Category:        refs[t.CategoryID],
			CreatedAt:       t.CreatedAt,
			UpdatedAt:       t.UpdatedAt,
		})
	}
	out.Stats = computeStats(tasks)
	return out, nil
}

func computeStats(tasks []model.Task) ContextStats {
	var st ContextStats
	st.TotalTasks = len(tasks)
	for _, t := range tasks {
		if t.InToday {
			st.TodayTasks++
		}
		if t.Completed {
			st.CompletedTasks++
			continue
		}

		st.ActiveTasks++
		if t.InToday {
			st.InProgressTasks++
		}
		switch t.EnergyLevel {
		case model.EnergyLow:
			st.LowEnergyTasks++
		case model.EnergyMed:
			st.MedEnergyTasks++
		case model.EnergyHigh:
			st.HighEnergyTasks++
		}
		switch {
		case t.DurationMinutes == model.Duration15:
			st.ShortTasks++
		case t.DurationMinutes == model.Duration30:
			st.MediumTasks++
		case t.DurationMinutes >= model.Duration60:
			st.LongTasks++
		}
		if t.Source == model.SourceManual {
			st.ManualTasks++
		} else {
			st.ImportedTasks++
		}
	}
	return st
}

// Prompt renders the snapshot as the assistant's system prompt.
func (s *ContextService) Prompt(c ChatContext) string {
	var b strings.Builder
	b.WriteString("You are a helpful task management assistant. You help users manage their tasks, prioritize work, and maintain productivity.\n\n")

	b.WriteString("Current User Context:\n")
	fmt.Fprintf(&b, "- Total Tasks: %d\n", c.Stats.TotalTasks)
	fmt.Fprintf(&b, "- In Progress Tasks: %d\n", c.Stats.InProgressTasks)
	fmt.Fprintf(&b, "- Completed Tasks: %d\n", c.Stats.CompletedTasks)
	fmt.Fprintf(&b, "- Tasks in Today's List: %d\n", c.Stats.TodayTasks)
	fmt.Fprintf(&b, "- Energy: %d low, %d med, %d high\n", c.Stats.LowEnergyTasks, c.Stats.MedEnergyTasks, c.Stats.HighEnergyTasks)

	b.WriteString("\nCategories:\n")
	if len(c.Categories) == 0 {
		b.WriteString("- No categories\n")
	}
	for _, cat := range c.Categories {
		fmt.Fprintf(&b, "- %s (id %s): %d tasks\n", cat.Name, cat.ID, cat.ActiveTasks)
	}

	b.WriteString("\nActive Tasks:\n")
	active := 0
	for _, t := range c.Tasks {
		if t.Completed {
			continue
		}
		active++
		fmt.Fprintf(&b, "- %q - %d min, %s energy, Category: %s", t.Title, t.DurationMinutes, t.EnergyLevel, t.Category.Name)
		if t.InToday {
			b.WriteString(" (In Today)")
		}
		b.WriteByte('\n')
	}
	if active == 0 {
		b.WriteString("- No active tasks\n")
	}

	b.WriteString(`
Instructions:
- Help the user manage their tasks effectively
- Suggest tasks based on time available and energy level
- Provide specific task recommendations from their actual task list
- Reference tasks by their actual titles
- Be concise, friendly, and actionable
- If the user asks you to add a task, include exactly one JSON object in your reply:
  {"action": "create_task", "title": "...", "categoryId": "<category id>", "durationMinutes": 15|30|60|120, "energyLevel": "low"|"med"|"high", "addToToday": true|false}

Answer the user's question based on their actual task data.`)

	return b.String()
}
