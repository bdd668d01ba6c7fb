package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/ktanui/circulate/internal/services"
)

func TestRespondServiceError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "not found",
			err:        services.ErrNotFound,
			wantStatus: http.StatusNotFound,
			wantCode:   "NOT_FOUND",
		},
		{
			name:       "out of stock",
			err:        services.ErrOutOfStock,
			wantStatus: http.StatusConflict,
			wantCode:   "OUT_OF_STOCK",
		},
		{
			name:       "duplicate request",
			err:        services.ErrDuplicateRequest,
			wantStatus: http.StatusConflict,
			wantCode:   "DUPLICATE_REQUEST",
		},
		{
			name:       "reissue too early",
			err:        services.ErrTooEarly,
			wantStatus: http.StatusConflict,
			wantCode:   "REISSUE_TOO_EARLY",
		},
		{
			name:       "overdue",
			err:        services.ErrOverdue,
			wantStatus: http.StatusConflict,
			wantCode:   "LOAN_OVERDUE",
		},
		{
			name:       "not pending",
			err:        services.ErrNotPending,
			wantStatus: http.StatusConflict,
			wantCode:   "NOT_PENDING",
		},
		{
			name:       "already returned",
			err:        services.ErrAlreadyReturned,
			wantStatus: http.StatusConflict,
			wantCode:   "NOT_ACTIVE",
		},
		{
			name:       "loan history retained",
			err:        services.ErrHasLoanHistory,
			wantStatus: http.StatusConflict,
			wantCode:   "HAS_LOAN_HISTORY",
		},
		{
			name:       "blocked user",
			err:        services.ErrUserBlocked,
			wantStatus: http.StatusForbidden,
			wantCode:   "USER_BLOCKED",
		},
		{
			name:       "wrong portal",
			err:        services.ErrWrongPortal,
			wantStatus: http.StatusForbidden,
			wantCode:   "WRONG_PORTAL",
		},
		{
			name:       "invalid credentials",
			err:        services.ErrInvalidCredentials,
			wantStatus: http.StatusUnauthorized,
			wantCode:   "INVALID_CREDENTIALS",
		},
		{
			name:       "wrapped sentinel still maps",
			err:        fmt.Errorf("reissue request: %w", services.ErrDuplicateRequest),
			wantStatus: http.StatusConflict,
			wantCode:   "DUPLICATE_REQUEST",
		},
		{
			name:       "unknown error hides detail",
			err:        errors.New("pq: connection refused"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "REMOTE_FAILURE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			respondServiceError(c, tt.err)

			if w.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, w.Code)
			}

			var resp ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("Failed to unmarshal response: %v", err)
			}

			if resp.Success {
				t.Error("Expected success to be false")
			}

			if resp.Error.Code != tt.wantCode {
				t.Errorf("Expected code %q, got %q", tt.wantCode, resp.Error.Code)
			}

			if tt.wantCode == "REMOTE_FAILURE" && resp.Error.Message == tt.err.Error() {
				t.Error("Internal error detail must not leak to clients")
			}
		})
	}
}
