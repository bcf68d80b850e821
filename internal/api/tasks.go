package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"today-planner/internal/model"
	"today-planner/internal/service"
)

type createTaskRequest struct {
	Title           string            `json:"title" binding:"required"`
	CategoryID      string            `json:"categoryId" binding:"required,uuid"`
	DurationMinutes model.Duration    `json:"durationMinutes" binding:"required"`
	EnergyLevel     model.EnergyLevel `json:"energyLevel" binding:"required,oneof=low med high"`
	Source          model.Source      `json:"source" binding:"required,oneof=manual assistant slack jira canvas notion"`
	AddToToday      bool              `json:"addToToday"`
}

type updateTaskRequest struct {
	Title           *string            `json:"title" binding:"omitempty,min=1"`
	CategoryID      *string            `json:"categoryId" binding:"omitempty,uuid"`
	DurationMinutes *model.Duration    `json:"durationMinutes"`
	EnergyLevel     *model.EnergyLevel `json:"energyLevel" binding:"omitempty,oneof=low med high"`
	Source          *model.Source      `json:"source" binding:"omitempty,oneof=manual assistant slack jira canvas notion"`
}

type todayRequest struct {
	InToday       *bool `json:"inToday" binding:"required"`
	TodayPosition *int  `json:"todayPosition" binding:"omitempty,min=1"`
}

type completeRequest struct {
	Completed *bool `json:"completed" binding:"required"`
}

type reorderRequest struct {
	TaskIDs  []string `json:"taskIds" binding:"required,dive,uuid"`
	Revision *int64   `json:"revision"`
}

func (s *Server) listTasks(c *gin.Context) {
	tasks, err := s.tasks.List(c.Request.Context(), ownerOf(c), c.Query("category_id"))
	if err != nil {
		s.writeError(c, err, "Failed to fetch tasks")
		return
	}
	c.JSON(http.StatusOK, tasks)
}

func (s *Server) createTask(c *gin.Context) {
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	task, err := s.tasks.Create(c.Request.Context(), ownerOf(c), service.CreateTaskInput{
		Title:           req.Title,
		CategoryID:      req.CategoryID,
		DurationMinutes: req.DurationMinutes,
		EnergyLevel:     req.EnergyLevel,
		Source:          req.Source,
		AddToToday:      req.AddToToday,
	})
	if err != nil {
		s.writeError(c, err, "Failed to create task")
		return
	}
	c.JSON(http.StatusCreated, task)
}

func (s *Server) updateTask(c *gin.Context) {
	var req updateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	task, err := s.tasks.Update(c.Request.Context(), ownerOf(c), c.Param("id"), service.UpdateTaskInput{
		Title:           req.Title,
		CategoryID:      req.CategoryID,
		DurationMinutes: req.DurationMinutes,
		EnergyLevel:     req.EnergyLevel,
		Source:          req.Source,
	})
	if err != nil {
		s.writeError(c, err, "Failed to update task")
		return
	}
	c.JSON(http.StatusOK, task)
}

func (s *Server) setToday(c *gin.Context) {
	var req todayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	owner := ownerOf(c)
	task, err := s.tasks.SetToday(c.Request.Context(), owner, c.Param("id"), *req.InToday, req.TodayPosition)
	if err != nil {
		s.writeError(c, err, "Failed to update today status")
		return
	}
	s.setRevision(c, owner)
	c.JSON(http.StatusOK, task)
}

func (s *Server) setCompleted(c *gin.Context) {
	var req completeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	owner := ownerOf(c)
	task, err := s.tasks.SetCompleted(c.Request.Context(), owner, c.Param("id"), *req.Completed)
	if err != nil {
		s.writeError(c, err, "Failed to update completion")
		return
	}
	s.setRevision(c, owner)
	c.JSON(http.StatusOK, task)
}

func (s *Server) archiveTask(c *gin.Context) {
	if err := s.tasks.Archive(c.Request.Context(), ownerOf(c), c.Param("id")); err != nil {
		s.writeError(c, err, "Failed to archive task")
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) listToday(c *gin.Context) {
	owner := ownerOf(c)
	// Revision is read before the list.
	s.setRevision(c, owner)
	tasks, err := s.tasks.Today(c.Request.Context(), owner)
	if err != nil {
		s.writeError(c, err, "Failed to fetch today tasks")
		return
	}
	c.JSON(http.StatusOK, tasks)
}

func (s *Server) reorderToday(c *gin.Context) {
	var req reorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	owner := ownerOf(c)
	if err := s.tasks.Reorder(c.Request.Context(), owner, req.TaskIDs, req.Revision); err != nil {
		s.writeError(c, err, "Failed to reorder today tasks")
		return
	}
	s.setRevision(c, owner)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func formatRevision(rev int64) string {
	return strconv.FormatInt(rev, 10)
}
