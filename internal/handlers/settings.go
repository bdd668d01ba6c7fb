package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ktanui/circulate/internal/models"
	"github.com/ktanui/circulate/internal/services"
)

// SettingsHandler manages the library configuration.
type SettingsHandler struct {
	settings *services.SettingsService
}

func NewSettingsHandler(settings *services.SettingsService) *SettingsHandler {
	return &SettingsHandler{settings: settings}
}

// Get handles GET /admin/settings
func (h *SettingsHandler) Get(c *gin.Context) {
	cfg, err := h.settings.GetConfig(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, cfg, "")
}

// Update handles PUT /admin/settings. The new duration applies to future
// approvals only.
func (h *SettingsHandler) Update(c *gin.Context) {
	var req models.UpdateLibraryConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	cfg, err := h.settings.UpdateConfig(c.Request.Context(), &req)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, cfg, "Loan duration updated")
}
