package models

import (
	"time"
)

// LoanStatus represents the lifecycle state of a loan request
type LoanStatus string

const (
	LoanStatusPending  LoanStatus = "Pending"
	LoanStatusIssued   LoanStatus = "Issued"
	LoanStatusReissued LoanStatus = "Reissued"
	LoanStatusReturned LoanStatus = "Returned"
)

// IsValid checks if the loan status is valid
func (s LoanStatus) IsValid() bool {
	switch s {
	case LoanStatusPending, LoanStatusIssued, LoanStatusReissued, LoanStatusReturned:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the status is final. A Returned loan is an
// immutable historical record; it never transitions again.
func (s LoanStatus) IsTerminal() bool {
	return s == LoanStatusReturned
}

// IsActive reports whether the student currently holds a copy.
func (s LoanStatus) IsActive() bool {
	return s == LoanStatusIssued || s == LoanStatusReissued
}

// LoanType distinguishes a new issue from a due-date extension
type LoanType string

const (
	LoanTypeIssue   LoanType = "Issue"
	LoanTypeReissue LoanType = "Reissue"
)

// IsValid checks if the loan type is valid
func (t LoanType) IsValid() bool {
	return t == LoanTypeIssue || t == LoanTypeReissue
}

// LoanVia records how a loan entered the system
type LoanVia string

const (
	LoanViaRequest LoanVia = "Request"
	LoanViaManual  LoanVia = "Manual"
)

// Loan is a single record representing both a pending request and, once
// approved, the active loan itself. A Reissue-type record never becomes a
// loan of its own: approving it extends the original and deletes the
// request row.
type Loan struct {
	ID                int32      `json:"id" db:"id"`
	BookID            int32      `json:"book_id" db:"book_id"`
	BookTitle         string     `json:"book_title" db:"book_title"`
	StudentID         int32      `json:"student_id" db:"student_id"`
	StudentName       string     `json:"student_name" db:"student_name"`
	StudentEmail      string     `json:"student_email" db:"student_email"`
	Status            LoanStatus `json:"status" db:"status"`
	Type              LoanType   `json:"type" db:"type"`
	Via               LoanVia    `json:"via" db:"via"`
	OriginalRequestID *int32     `json:"original_request_id,omitempty" db:"original_request_id"`
	RequestDate       time.Time  `json:"request_date" db:"request_date"`
	IssuedAt          *time.Time `json:"issued_at,omitempty" db:"issued_at"`
	ReturnDate        *time.Time `json:"return_date,omitempty" db:"return_date"`
	ReturnedAt        *time.Time `json:"returned_at,omitempty" db:"returned_at"`
	ReissueCount      int32      `json:"reissue_count" db:"reissue_count"`
}

// IsOverdue reports whether the loan is past its due date while still held.
// Overdue is always computed on read; it is never a stored state.
func (l *Loan) IsOverdue(now time.Time) bool {
	return l.Status.IsActive() && l.ReturnDate != nil && l.ReturnDate.Before(now)
}

// DaysLeft returns the number of whole days until the due date, rounding
// partial days up, negative once overdue.
func (l *Loan) DaysLeft(now time.Time) int {
	if l.ReturnDate == nil {
		return 0
	}
	d := l.ReturnDate.Sub(now)
	days := int(d / (24 * time.Hour))
	if d%(24*time.Hour) > 0 {
		days++
	}
	return days
}

// IsValidLoanTransition checks if a status transition is legal.
// Rejection is not a transition; a rejected request is deleted.
func IsValidLoanTransition(from, to LoanStatus) bool {
	validTransitions := map[LoanStatus][]LoanStatus{
		LoanStatusPending:  {LoanStatusIssued},
		LoanStatusIssued:   {LoanStatusReissued, LoanStatusReturned},
		LoanStatusReissued: {LoanStatusReissued, LoanStatusReturned},
		LoanStatusReturned: {},
	}

	allowed, exists := validTransitions[from]
	if !exists {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// ReissueWindowDays is the tail of a loan during which a student may ask
// for an extension.
const ReissueWindowDays = 7

// RequestIssueRequest represents a student's request to borrow a book
type RequestIssueRequest struct {
	BookID int32 `json:"book_id" binding:"required,min=1"`
}

// DirectIssueRequest represents an admin walk-in issue
type DirectIssueRequest struct {
	StudentID int32 `json:"student_id" binding:"required,min=1"`
	BookID    int32 `json:"book_id" binding:"required,min=1"`
}

// LoanResponse is the wire shape of a loan record
type LoanResponse struct {
	ID                int32      `json:"id"`
	BookID            int32      `json:"book_id"`
	BookTitle         string     `json:"book_title"`
	StudentID         int32      `json:"student_id"`
	StudentName       string     `json:"student_name"`
	Status            LoanStatus `json:"status"`
	Type              LoanType   `json:"type"`
	Via               LoanVia    `json:"via"`
	OriginalRequestID *int32     `json:"original_request_id,omitempty"`
	RequestDate       time.Time  `json:"request_date"`
	IssuedAt          *time.Time `json:"issued_at,omitempty"`
	ReturnDate        *time.Time `json:"return_date,omitempty"`
	ReturnedAt        *time.Time `json:"returned_at,omitempty"`
	ReissueCount      int32      `json:"reissue_count"`
	Overdue           bool       `json:"overdue"`
	DaysLeft          int        `json:"days_left"`
}

// ToResponse converts a Loan to its response shape, computing the derived
// overdue fields against now.
func (l *Loan) ToResponse(now time.Time) LoanResponse {
	return LoanResponse{
		ID:                l.ID,
		BookID:            l.BookID,
		BookTitle:         l.BookTitle,
		StudentID:         l.StudentID,
		StudentName:       l.StudentName,
		Status:            l.Status,
		Type:              l.Type,
		Via:               l.Via,
		OriginalRequestID: l.OriginalRequestID,
		RequestDate:       l.RequestDate,
		IssuedAt:          l.IssuedAt,
		ReturnDate:        l.ReturnDate,
		ReturnedAt:        l.ReturnedAt,
		ReissueCount:      l.ReissueCount,
		Overdue:           l.IsOverdue(now),
		DaysLeft:          l.DaysLeft(now),
	}
}

// LoanListResponse represents a paginated list of loans
type LoanListResponse struct {
	Loans      []LoanResponse `json:"loans"`
	Pagination Pagination     `json:"pagination"`
}

// LoanStats summarizes the circulation queue for the admin dashboard.
type LoanStats struct {
	PendingRequests int64 `json:"pending_requests"`
	ActiveLoans     int64 `json:"active_loans"`
	ReturnedLoans   int64 `json:"returned_loans"`
}
