package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ktanui/circulate/internal/models"
	"github.com/ktanui/circulate/internal/services"
)

// AlertHandler manages broadcast announcements.
type AlertHandler struct {
	alerts *services.AlertService
}

func NewAlertHandler(alerts *services.AlertService) *AlertHandler {
	return &AlertHandler{alerts: alerts}
}

// Post handles POST /admin/alerts
func (h *AlertHandler) Post(c *gin.Context) {
	var req models.PostAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	alert, err := h.alerts.Post(c.Request.Context(), &req)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondSuccess(c, http.StatusCreated, alert, "Alert posted")
}

// List handles GET /alerts
func (h *AlertHandler) List(c *gin.Context) {
	alerts, err := h.alerts.List(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, alerts, "")
}

// Delete handles DELETE /admin/alerts/:id
func (h *AlertHandler) Delete(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		return
	}

	if err := h.alerts.Delete(c.Request.Context(), id); err != nil {
		respondServiceError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, nil, "Alert deleted")
}
