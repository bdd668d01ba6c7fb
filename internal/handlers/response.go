package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ktanui/circulate/internal/services"
)

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Success bool        `json:"success"`
	Error   ErrorDetail `json:"error"`
}

// ErrorDetail represents detailed error information
type ErrorDetail struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// SuccessResponse represents a standard success response
type SuccessResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

func respondSuccess(c *gin.Context, status int, data interface{}, message string) {
	c.JSON(status, SuccessResponse{
		Success: true,
		Data:    data,
		Message: message,
	})
}

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, ErrorResponse{
		Success: false,
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}

func respondValidationError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Success: false,
		Error: ErrorDetail{
			Code:    "VALIDATION_ERROR",
			Message: "Invalid request data",
			Details: err.Error(),
		},
	})
}

// respondServiceError maps the service failure taxonomy onto HTTP status
// codes and stable error codes clients can branch on.
func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		respondError(c, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, services.ErrOutOfStock):
		respondError(c, http.StatusConflict, "OUT_OF_STOCK", err.Error())
	case errors.Is(err, services.ErrDuplicateRequest):
		respondError(c, http.StatusConflict, "DUPLICATE_REQUEST", err.Error())
	case errors.Is(err, services.ErrTooEarly):
		respondError(c, http.StatusConflict, "REISSUE_TOO_EARLY", err.Error())
	case errors.Is(err, services.ErrOverdue):
		respondError(c, http.StatusConflict, "LOAN_OVERDUE", err.Error())
	case errors.Is(err, services.ErrNotPending):
		respondError(c, http.StatusConflict, "NOT_PENDING", err.Error())
	case errors.Is(err, services.ErrAlreadyReturned):
		respondError(c, http.StatusConflict, "NOT_ACTIVE", err.Error())
	case errors.Is(err, services.ErrHasActiveLoans):
		respondError(c, http.StatusConflict, "HAS_ACTIVE_LOANS", err.Error())
	case errors.Is(err, services.ErrCopiesOutstanding):
		respondError(c, http.StatusConflict, "COPIES_OUTSTANDING", err.Error())
	case errors.Is(err, services.ErrHasLoanHistory):
		respondError(c, http.StatusConflict, "HAS_LOAN_HISTORY", err.Error())
	case errors.Is(err, services.ErrEmailTaken):
		respondError(c, http.StatusConflict, "EMAIL_TAKEN", err.Error())
	case errors.Is(err, services.ErrPermissionDenied):
		respondError(c, http.StatusForbidden, "PERMISSION_DENIED", err.Error())
	case errors.Is(err, services.ErrUserBlocked):
		respondError(c, http.StatusForbidden, "USER_BLOCKED", err.Error())
	case errors.Is(err, services.ErrWrongPortal):
		respondError(c, http.StatusForbidden, "WRONG_PORTAL", err.Error())
	case errors.Is(err, services.ErrInvalidCredentials):
		respondError(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", err.Error())
	case errors.Is(err, services.ErrEmailNotVerified):
		respondError(c, http.StatusForbidden, "EMAIL_NOT_VERIFIED", err.Error())
	case errors.Is(err, services.ErrInvalidToken), errors.Is(err, services.ErrInvalidResetToken):
		respondError(c, http.StatusUnauthorized, "INVALID_TOKEN", err.Error())
	case errors.Is(err, services.ErrInvalidPassword):
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	default:
		respondError(c, http.StatusInternalServerError, "REMOTE_FAILURE", "The operation could not be completed")
	}
}
