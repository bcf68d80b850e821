// Package api exposes the planner over HTTP with gin.
package api

import (
	"context"
	"net/http"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"today-planner/internal/assistant"
	"today-planner/internal/logging"
	"today-planner/internal/service"
)

const (
	ownerKey       = "owner"
	revisionHeader = "X-Today-Revision"
)

// Chatter answers a chat message for an owner.
type Chatter interface {
	Chat(ctx context.Context, owner, message string) (assistant.ChatResult, error)
}

type Deps struct {
	Tasks       *service.TaskService
	Categories  *service.CategoryService
	Contexts    *service.ContextService
	Chat        Chatter
	Owners      OwnerResolver
	Log         logging.Logger
	CORSOrigins []string
}

type Server struct {
	tasks      *service.TaskService
	categories *service.CategoryService
	contexts   *service.ContextService
	chat       Chatter
	owners     OwnerResolver
	log        logging.Logger
}

var registerTagNames sync.Once

// NewRouter wires every route onto a fresh gin engine.
func NewRouter(d Deps) *gin.Engine {
	registerTagNames.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			v.RegisterTagNameFunc(jsonFieldName)
		}
	})

	s := &Server{
		tasks:      d.Tasks,
		categories: d.Categories,
		contexts:   d.Contexts,
		chat:       d.Chat,
		owners:     d.Owners,
		log:        d.Log,
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(d.Log), cors(d.CORSOrigins))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	// Resolves its own owner so ?userId= works before the default user exists.
	r.GET("/api/chat/context", s.chatContext)

	owned := r.Group("/", s.requireOwner)
	{
		owned.GET("/categories", s.listCategories)
		owned.POST("/categories", s.createCategory)
		owned.DELETE("/categories/:id", s.deleteCategory)

		owned.GET("/tasks", s.listTasks)
		owned.POST("/tasks", s.createTask)
		owned.PATCH("/tasks/:id", s.updateTask)
		owned.PATCH("/tasks/:id/today", s.setToday)
		owned.PATCH("/tasks/:id/complete", s.setCompleted)
		owned.PATCH("/tasks/:id/archive", s.archiveTask)

		owned.GET("/today", s.listToday)
		owned.POST("/today/reorder", s.reorderToday)

		owned.GET("/board", s.board)

		owned.POST("/api/chat", s.postChat)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Route not found"})
	})
	return r
}

func (s *Server) requireOwner(c *gin.Context) {
	owner, err := s.owners.Resolve(c.Request.Context(), c.Request)
	if err != nil {
		s.writeError(c, err, "Failed to resolve user")
		c.Abort()
		return
	}
	c.Set(ownerKey, owner)
	c.Next()
}

func ownerOf(c *gin.Context) string {
	return c.GetString(ownerKey)
}

func (s *Server) setRevision(c *gin.Context, owner string) {
	if rev, err := s.tasks.TodayRevision(c.Request.Context(), owner); err == nil {
		c.Header(revisionHeader, formatRevision(rev))
	} else {
		s.log.Warn("read today revision", "err", err)
	}
}

func cors(origins []string) gin.HandlerFunc {
	allowAll := len(origins) == 0
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		if o == "*" {
			allowAll = true
		}
		allowed[o] = true
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		switch {
		case allowAll:
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		case allowed[origin]:
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Add("Vary", "Origin")
		}
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization")
		c.Writer.Header().Set("Access-Control-Expose-Headers", revisionHeader)
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func requestLogger(l logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		args := []interface{}{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"took", time.Since(start),
		}
		switch {
		case status >= http.StatusInternalServerError:
			l.Error("request", args...)
		case status >= http.StatusBadRequest:
			l.Warn("request", args...)
		default:
			l.Debug("request", args...)
		}
	}
}

func jsonFieldName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return f.Name
	}
	return name
}
