package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "aibos-vmp/core/internal/pkg/errors"
)

// ListNotifications returns the caller's most recent inbox notifications
// (spec 4.J).
func (s *Server) ListNotifications(c *gin.Context) {
	p := principalFrom(c)
	if p == nil {
		writeError(c, apperrors.ContextMissing())
		return
	}

	limit := 0
	if limitParam := c.Query("limit"); limitParam != "" {
		if parsed, err := strconv.Atoi(limitParam); err == nil {
			limit = parsed
		}
	}

	rows, err := s.deps.Inbox.List(c.Request.Context(), p.UserID, limit)
	if err != nil {
		writeError(c, apperrors.Internalf("list notifications: %v", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": rows})
}

// GetUnreadCount returns the caller's unread notification breakdown (spec 4.J).
func (s *Server) GetUnreadCount(c *gin.Context) {
	p := principalFrom(c)
	if p == nil {
		writeError(c, apperrors.ContextMissing())
		return
	}

	counts, err := s.deps.Inbox.GetUnreadCount(c.Request.Context(), p.UserID)
	if err != nil {
		writeError(c, apperrors.Internalf("get unread count: %v", err))
		return
	}
	c.JSON(http.StatusOK, counts)
}

type markReadRequest struct {
	IDs []string `json:"ids"`
}

// MarkNotificationsRead marks the given notification IDs read for the
// caller (spec 4.J).
func (s *Server) MarkNotificationsRead(c *gin.Context) {
	p := principalFrom(c)
	if p == nil {
		writeError(c, apperrors.ContextMissing())
		return
	}

	var req markReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperrors.Validationf("invalid mark-read request: %v", err))
		return
	}

	count, err := s.deps.Inbox.MarkRead(c.Request.Context(), p.UserID, req.IDs)
	if err != nil {
		writeError(c, apperrors.Internalf("mark notifications read: %v", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": count})
}
