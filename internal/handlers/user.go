package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ktanui/circulate/internal/middleware"
	"github.com/ktanui/circulate/internal/models"
	"github.com/ktanui/circulate/internal/services"
)

// UserHandler handles account administration and self-service profile
// endpoints.
type UserHandler struct {
	users *services.UserService
}

func NewUserHandler(users *services.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// CreateStudent handles POST /admin/students
func (h *UserHandler) CreateStudent(c *gin.Context) {
	var req models.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	user, err := h.users.CreateUser(c.Request.Context(), &req, models.RoleStudent)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondSuccess(c, http.StatusCreated, user.ToResponse(), "Student account created")
}

// ListStudents handles GET /admin/students
func (h *UserHandler) ListStudents(c *gin.Context) {
	limit, offset := paginationParams(c)
	page := int(offset/limit) + 1

	resp, err := h.users.ListUsers(c.Request.Context(), models.RoleStudent, page, int(limit))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, resp, "")
}

// GetUser handles GET /admin/students/:id
func (h *UserHandler) GetUser(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		return
	}

	user, err := h.users.GetUser(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, user.ToResponse(), "")
}

// SetStatus handles POST /admin/students/:id/status
func (h *UserHandler) SetStatus(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		return
	}

	var req struct {
		Status models.UserStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	if err := h.users.SetStatus(c.Request.Context(), id, req.Status); err != nil {
		respondServiceError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, nil, "Status updated")
}

// DeleteUser handles DELETE /admin/students/:id
func (h *UserHandler) DeleteUser(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		return
	}

	if err := h.users.DeleteUser(c.Request.Context(), id); err != nil {
		respondServiceError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, nil, "Account deleted")
}

// Me handles GET /me
func (h *UserHandler) Me(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "INVALID_TOKEN", "Authentication required")
		return
	}

	user, err := h.users.GetUser(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, user.ToResponse(), "")
}

// UpdateMe handles PATCH /me
func (h *UserHandler) UpdateMe(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "INVALID_TOKEN", "Authentication required")
		return
	}

	var req models.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	user, err := h.users.UpdateProfile(c.Request.Context(), userID, &req)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, user.ToResponse(), "Profile updated")
}
