package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ktanui/circulate/internal/middleware"
	"github.com/ktanui/circulate/internal/services"
)

// NotificationHandler serves a student's notification feed.
type NotificationHandler struct {
	notifications *services.NotificationService
}

func NewNotificationHandler(notifications *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// List handles GET /student/notifications
func (h *NotificationHandler) List(c *gin.Context) {
	studentID, ok := middleware.UserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "INVALID_TOKEN", "Authentication required")
		return
	}

	limit, offset := paginationParams(c)
	resp, err := h.notifications.ListForStudent(c.Request.Context(), studentID, limit, offset)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, resp, "")
}

// MarkAllRead handles POST /student/notifications/read
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	studentID, ok := middleware.UserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "INVALID_TOKEN", "Authentication required")
		return
	}

	updated, err := h.notifications.MarkAllRead(c.Request.Context(), studentID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, gin.H{"updated": updated}, "Notifications marked read")
}
