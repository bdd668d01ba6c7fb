package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ktanui/circulate/internal/middleware"
	"github.com/ktanui/circulate/internal/models"
	"github.com/ktanui/circulate/internal/services"
)

// LendingHandler exposes the loan lifecycle over HTTP. Student routes act
// on the authenticated user; admin routes act on any request or loan.
type LendingHandler struct {
	lending *services.LendingService
}

func NewLendingHandler(lending *services.LendingService) *LendingHandler {
	return &LendingHandler{lending: lending}
}

// RequestIssue handles POST /student/requests
func (h *LendingHandler) RequestIssue(c *gin.Context) {
	studentID, ok := middleware.UserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "INVALID_TOKEN", "Authentication required")
		return
	}

	var req models.RequestIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	loan, err := h.lending.RequestIssue(c.Request.Context(), studentID, req.BookID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondSuccess(c, http.StatusCreated, loan.ToResponse(time.Now()), "Request submitted")
}

// RequestReissue handles POST /student/requests/reissue
func (h *LendingHandler) RequestReissue(c *gin.Context) {
	studentID, ok := middleware.UserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "INVALID_TOKEN", "Authentication required")
		return
	}

	var req models.RequestIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	loan, err := h.lending.RequestReissue(c.Request.Context(), studentID, req.BookID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondSuccess(c, http.StatusCreated, loan.ToResponse(time.Now()), "Reissue request submitted")
}

// CancelRequest handles DELETE /student/requests/:id
func (h *LendingHandler) CancelRequest(c *gin.Context) {
	studentID, ok := middleware.UserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "INVALID_TOKEN", "Authentication required")
		return
	}

	id, err := parseIDParam(c)
	if err != nil {
		return
	}

	if err := h.lending.CancelRequest(c.Request.Context(), studentID, id); err != nil {
		respondServiceError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, nil, "Request cancelled")
}

// MyLoans handles GET /student/loans
func (h *LendingHandler) MyLoans(c *gin.Context) {
	studentID, ok := middleware.UserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "INVALID_TOKEN", "Authentication required")
		return
	}

	loans, err := h.lending.ListStudentLoans(c.Request.Context(), studentID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, toLoanResponses(loans), "")
}

// ApproveIssue handles POST /admin/requests/:id/approve
func (h *LendingHandler) ApproveIssue(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		return
	}

	loan, err := h.lending.ApproveIssue(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, loan.ToResponse(time.Now()), "Request approved")
}

// ApproveReissue handles POST /admin/reissues/:id/approve
func (h *LendingHandler) ApproveReissue(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		return
	}

	loan, err := h.lending.ApproveReissue(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, loan.ToResponse(time.Now()), "Reissue approved")
}

// Reject handles POST /admin/requests/:id/reject
func (h *LendingHandler) Reject(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		return
	}

	if err := h.lending.RejectRequest(c.Request.Context(), id); err != nil {
		respondServiceError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, nil, "Request rejected")
}

// DirectIssue handles POST /admin/loans
func (h *LendingHandler) DirectIssue(c *gin.Context) {
	var req models.DirectIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	loan, err := h.lending.DirectIssue(c.Request.Context(), req.StudentID, req.BookID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondSuccess(c, http.StatusCreated, loan.ToResponse(time.Now()), "Book issued")
}

// Return handles POST /admin/loans/:id/return
func (h *LendingHandler) Return(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		return
	}

	loan, err := h.lending.ReturnLoan(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, loan.ToResponse(time.Now()), "Book returned")
}

// PendingRequests handles GET /admin/requests?type=Issue|Reissue
func (h *LendingHandler) PendingRequests(c *gin.Context) {
	loanType := models.LoanType(c.DefaultQuery("type", string(models.LoanTypeIssue)))
	limit, offset := paginationParams(c)

	loans, err := h.lending.ListPendingRequests(c.Request.Context(), loanType, limit, offset)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, toLoanResponses(loans), "")
}

// GetRequest handles GET /admin/requests/:id
func (h *LendingHandler) GetRequest(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		return
	}

	loan, err := h.lending.GetLoan(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, loan.ToResponse(time.Now()), "")
}

// Stats handles GET /admin/loans/stats
func (h *LendingHandler) Stats(c *gin.Context) {
	stats, err := h.lending.GetStats(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, stats, "")
}

// ActiveLoans handles GET /admin/loans/active
func (h *LendingHandler) ActiveLoans(c *gin.Context) {
	limit, offset := paginationParams(c)

	loans, err := h.lending.ListActiveLoans(c.Request.Context(), limit, offset)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, toLoanResponses(loans), "")
}

// OverdueLoans handles GET /admin/loans/overdue
func (h *LendingHandler) OverdueLoans(c *gin.Context) {
	loans, err := h.lending.ListOverdueLoans(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, toLoanResponses(loans), "")
}

// ReturnHistory handles GET /admin/loans/returned
func (h *LendingHandler) ReturnHistory(c *gin.Context) {
	limit, offset := paginationParams(c)

	loans, err := h.lending.ListReturnedLoans(c.Request.Context(), limit, offset)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, toLoanResponses(loans), "")
}

func toLoanResponses(loans []models.Loan) []models.LoanResponse {
	now := time.Now()
	responses := make([]models.LoanResponse, 0, len(loans))
	for i := range loans {
		responses = append(responses, loans[i].ToResponse(now))
	}
	return responses
}

func parseIDParam(c *gin.Context) (int32, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 32)
	if err != nil || id < 1 {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid id parameter")
		return 0, strconv.ErrSyntax
	}
	return int32(id), nil
}

func paginationParams(c *gin.Context) (limit, offset int32) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 100 {
		size = 20
	}
	return int32(size), int32((page - 1) * size)
}
