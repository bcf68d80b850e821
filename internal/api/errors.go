package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"today-planner/internal/assistant"
	"today-planner/internal/model"
	"today-planner/internal/service"
)

type issue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// bindError answers 400 with field-level detail for a body that failed to bind.
func bindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "issues": issues(err)})
}

func issues(err error) []issue {
	var verrs validator.ValidationErrors
	var typeErr *json.UnmarshalTypeError
	var syntaxErr *json.SyntaxError

	switch {
	case errors.As(err, &verrs):
		out := make([]issue, 0, len(verrs))
		for _, fe := range verrs {
			out = append(out, issue{Field: fe.Field(), Message: tagMessage(fe)})
		}
		return out
	case errors.Is(err, model.ErrInvalidDuration):
		return []issue{{Field: "durationMinutes", Message: model.ErrInvalidDuration.Error()}}
	case errors.As(err, &typeErr):
		return []issue{{Field: typeErr.Field, Message: "must be a " + typeErr.Type.String()}}
	case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
		return []issue{{Field: "body", Message: "malformed JSON"}}
	case errors.Is(err, io.EOF):
		return []issue{{Field: "body", Message: "is required"}}
	}
	return []issue{{Field: "body", Message: err.Error()}}
}

func tagMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "uuid":
		return "must be a UUID"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "min":
		return "must be at least " + fe.Param()
	}
	return fmt.Sprintf("failed %s validation", fe.Tag())
}

// writeError maps a service error to its status. fallback is the message used for 500s.
func (s *Server) writeError(c *gin.Context, err error, fallback string) {
	var verr *service.ValidationError
	var upstream *assistant.UpstreamError

	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":  verr.Error(),
			"issues": []issue{{Field: verr.Field, Message: verr.Message}},
		})
	case errors.Is(err, service.ErrCategoryNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Category not found"})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
	case errors.Is(err, service.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "Today list changed, refetch and retry"})
	case errors.Is(err, errUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
	case errors.Is(err, assistant.ErrNotConfigured):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Assistant is not configured", "reply": assistant.FallbackReply})
	case errors.As(err, &upstream):
		s.log.Warn("assistant upstream error", "status", upstream.Status, "err", upstream.Message)
		c.JSON(http.StatusBadGateway, gin.H{"error": upstream.Message, "reply": assistant.FallbackReply})
	default:
		s.log.Error(fallback, "err", err, "path", c.Request.URL.Path)
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}
