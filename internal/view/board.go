package view

import (
	"today-planner/internal/model"
	"today-planner/internal/service"
)

type TaskView struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	Duration string       `json:"duration"`
	Energy   string       `json:"energy"`
	Source   model.Source `json:"source"`
}

type CategoryView struct {
	ID            string                 `json:"id"`
	Title         string                 `json:"title"`
	Color         string                 `json:"color"`
	IsDefault     bool                   `json:"isDefault"`
	Counts        service.CategoryCounts `json:"counts"`
	UpNext        []TaskView             `json:"upNext"`
	Completed     []TaskView             `json:"completed"`
	SuggestedTask string                 `json:"suggestedTask,omitempty"`
}

type TodayView struct {
	TaskView
	Category  string `json:"category"`
	Completed bool   `json:"completed"`
}

type Board struct {
	Categories []CategoryView `json:"categories"`
	Today      []TodayView    `json:"today"`
}

// BuildBoard groups tasks under their categories. The filter narrows Up Next and
// Today; completed lists are never filtered. The suggestion is the first task
// left in Up Next.
func BuildBoard(categories []service.CategorySummary, tasks, today []model.Task, f Filter) Board {
	board := Board{
		Categories: make([]CategoryView, 0, len(categories)),
		Today:      make([]TodayView, 0, len(today)),
	}

	names := make(map[string]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}

	for _, c := range categories {
		cv := CategoryView{
			ID:        c.ID,
			Title:     c.Name,
			Color:     c.Color,
			IsDefault: c.IsDefault,
			Counts:    c.Counts,
			UpNext:    []TaskView{},
			Completed: []TaskView{},
		}
		if cv.Color == "" {
			cv.Color = "teal"
		}

		for _, t := range tasks {
			if t.CategoryID != c.ID || t.ArchivedAt != nil {
				continue
			}
			switch {
			case t.Completed:
				cv.Completed = append(cv.Completed, taskView(t))
			case !t.InToday && f.Matches(t):
				cv.UpNext = append(cv.UpNext, taskView(t))
			}
		}
		if len(cv.UpNext) > 0 {
			cv.SuggestedTask = cv.UpNext[0].Name
		}
		board.Categories = append(board.Categories, cv)
	}

	for _, t := range today {
		if t.ArchivedAt != nil || !f.Matches(t) {
			continue
		}
		name, ok := names[t.CategoryID]
		if !ok {
			name = "Task"
		}
		board.Today = append(board.Today, TodayView{TaskView: taskView(t), Category: name, Completed: t.Completed})
	}
	return board
}

func taskView(t model.Task) TaskView {
	return TaskView{
		ID:       t.ID,
		Name:     t.Title,
		Duration: DurationLabel(t.DurationMinutes),
		Energy:   EnergyLabel(t.EnergyLevel),
		Source:   t.Source,
	}
}
