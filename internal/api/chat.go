package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"today-planner/internal/assistant"
	"today-planner/internal/service"
)

type chatRequest struct {
	Message string `json:"message" binding:"required"`
}

// chatContext serves the assistant snapshot. ?userId= picks the user when
// callers are not authenticated; with tokens it must name the caller.
func (s *Server) chatContext(c *gin.Context) {
	ctx := c.Request.Context()
	owner := c.Query("userId")
	if owner == "" || s.owners.Authenticated() {
		resolved, err := s.owners.Resolve(ctx, c.Request)
		if err != nil {
			s.writeError(c, err, "Failed to resolve user")
			return
		}
		if owner != "" && owner != resolved {
			c.JSON(http.StatusForbidden, gin.H{"error": "userId does not match the authenticated user"})
			return
		}
		owner = resolved
	}

	snapshot, err := s.contexts.Snapshot(ctx, owner)
	if err != nil {
		s.writeError(c, err, "Failed to fetch context")
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

func (s *Server) postChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	if s.chat == nil {
		s.writeError(c, assistant.ErrNotConfigured, "")
		return
	}

	result, err := s.chat.Chat(c.Request.Context(), ownerOf(c), req.Message)
	if err != nil {
		var verr *service.ValidationError
		var upstream *assistant.UpstreamError
		if errors.As(err, &verr) || errors.As(err, &upstream) || errors.Is(err, assistant.ErrNotConfigured) {
			s.writeError(c, err, "")
			return
		}
		s.log.Error("chat failed", "err", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Assistant request failed", "reply": assistant.FallbackReply})
		return
	}
	c.JSON(http.StatusOK, result)
}
