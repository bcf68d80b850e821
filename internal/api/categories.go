package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"today-planner/internal/service"
	"today-planner/internal/view"
)

type createCategoryRequest struct {
	Name        string  `json:"name" binding:"required"`
	Description *string `json:"description"`
	Color       string  `json:"color" binding:"required"`
	SortOrder   *int    `json:"sortOrder"`
}

func (s *Server) listCategories(c *gin.Context) {
	categories, err := s.categories.List(c.Request.Context(), ownerOf(c))
	if err != nil {
		s.writeError(c, err, "Failed to fetch categories")
		return
	}
	c.JSON(http.StatusOK, categories)
}

func (s *Server) createCategory(c *gin.Context) {
	var req createCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	category, err := s.categories.Create(c.Request.Context(), ownerOf(c), service.CreateCategoryInput{
		Name:        req.Name,
		Color:       req.Color,
		Description: req.Description,
		SortOrder:   req.SortOrder,
	})
	if err != nil {
		s.writeError(c, err, "Failed to create category")
		return
	}
	c.JSON(http.StatusCreated, category)
}

func (s *Server) deleteCategory(c *gin.Context) {
	if err := s.categories.Delete(c.Request.Context(), ownerOf(c), c.Param("id")); err != nil {
		s.writeError(c, err, "Failed to delete category")
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// board renders the filtered category board for ?time= and ?energy=.
func (s *Server) board(c *gin.Context) {
	bucket, err := view.ParseTimeBucket(c.Query("time"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "issues": []issue{{Field: "time", Message: err.Error()}}})
		return
	}
	energy, err := view.ParseEnergyFilter(c.Query("energy"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "issues": []issue{{Field: "energy", Message: err.Error()}}})
		return
	}

	ctx := c.Request.Context()
	owner := ownerOf(c)
	categories, err := s.categories.List(ctx, owner)
	if err != nil {
		s.writeError(c, err, "Failed to build board")
		return
	}
	tasks, err := s.tasks.List(ctx, owner, "")
	if err != nil {
		s.writeError(c, err, "Failed to build board")
		return
	}
	today, err := s.tasks.Today(ctx, owner)
	if err != nil {
		s.writeError(c, err, "Failed to build board")
		return
	}

	c.JSON(http.StatusOK, view.BuildBoard(categories, tasks, today, view.Filter{Time: bucket, Energy: energy}))
}
