package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoanStatus_IsValid(t *testing.T) {
	tests := []struct {
		name   string
		status LoanStatus
		want   bool
	}{
		{
			name:   "pending",
			status: LoanStatusPending,
			want:   true,
		},
		{
			name:   "issued",
			status: LoanStatusIssued,
			want:   true,
		},
		{
			name:   "reissued",
			status: LoanStatusReissued,
			want:   true,
		},
		{
			name:   "returned",
			status: LoanStatusReturned,
			want:   true,
		},
		{
			name:   "unknown value",
			status: LoanStatus("Rejected"),
			want:   false,
		},
		{
			name:   "empty",
			status: LoanStatus(""),
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.status.IsValid())
		})
	}
}

func TestLoanStatus_IsActiveAndTerminal(t *testing.T) {
	assert.False(t, LoanStatusPending.IsActive())
	assert.True(t, LoanStatusIssued.IsActive())
	assert.True(t, LoanStatusReissued.IsActive())
	assert.False(t, LoanStatusReturned.IsActive())

	assert.False(t, LoanStatusPending.IsTerminal())
	assert.False(t, LoanStatusIssued.IsTerminal())
	assert.False(t, LoanStatusReissued.IsTerminal())
	assert.True(t, LoanStatusReturned.IsTerminal())
}

func TestIsValidLoanTransition(t *testing.T) {
	tests := []struct {
		name string
		from LoanStatus
		to   LoanStatus
		want bool
	}{
		{
			name: "pending to issued",
			from: LoanStatusPending,
			to:   LoanStatusIssued,
			want: true,
		},
		{
			name: "issued to reissued",
			from: LoanStatusIssued,
			to:   LoanStatusReissued,
			want: true,
		},
		{
			name: "issued to returned",
			from: LoanStatusIssued,
			to:   LoanStatusReturned,
			want: true,
		},
		{
			name: "reissued again",
			from: LoanStatusReissued,
			to:   LoanStatusReissued,
			want: true,
		},
		{
			name: "reissued to returned",
			from: LoanStatusReissued,
			to:   LoanStatusReturned,
			want: true,
		},
		{
			name: "pending straight to returned",
			from: LoanStatusPending,
			to:   LoanStatusReturned,
			want: false,
		},
		{
			name: "pending to reissued",
			from: LoanStatusPending,
			to:   LoanStatusReissued,
			want: false,
		},
		{
			name: "returned never transitions",
			from: LoanStatusReturned,
			to:   LoanStatusIssued,
			want: false,
		},
		{
			name: "issued back to pending",
			from: LoanStatusIssued,
			to:   LoanStatusPending,
			want: false,
		},
		{
			name: "unknown source",
			from: LoanStatus("Lost"),
			to:   LoanStatusReturned,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidLoanTransition(tt.from, tt.to))
		})
	}
}

func TestLoan_IsOverdue(t *testing.T) {
	now := time.Now()
	past := now.Add(-24 * time.Hour)
	future := now.Add(24 * time.Hour)

	tests := []struct {
		name       string
		status     LoanStatus
		returnDate *time.Time
		want       bool
	}{
		{
			name:       "issued past due",
			status:     LoanStatusIssued,
			returnDate: &past,
			want:       true,
		},
		{
			name:       "reissued past due",
			status:     LoanStatusReissued,
			returnDate: &past,
			want:       true,
		},
		{
			name:       "issued with time remaining",
			status:     LoanStatusIssued,
			returnDate: &future,
			want:       false,
		},
		{
			name:       "pending request has no due date semantics",
			status:     LoanStatusPending,
			returnDate: &past,
			want:       false,
		},
		{
			name:       "returned loan is never overdue",
			status:     LoanStatusReturned,
			returnDate: &past,
			want:       false,
		},
		{
			name:       "no due date set",
			status:     LoanStatusIssued,
			returnDate: nil,
			want:       false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loan := &Loan{Status: tt.status, ReturnDate: tt.returnDate}
			assert.Equal(t, tt.want, loan.IsOverdue(now))
		})
	}
}

func TestLoan_DaysLeft(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name string
		due  *time.Time
		want int
	}{
		{
			name: "whole days remaining",
			due:  timePtr(now.Add(3 * 24 * time.Hour)),
			want: 3,
		},
		{
			name: "partial day rounds up",
			due:  timePtr(now.Add(2*24*time.Hour + time.Hour)),
			want: 3,
		},
		{
			name: "due in one hour counts as a day",
			due:  timePtr(now.Add(time.Hour)),
			want: 1,
		},
		{
			name: "overdue goes negative",
			due:  timePtr(now.Add(-2 * 24 * time.Hour)),
			want: -2,
		},
		{
			name: "no due date",
			due:  nil,
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loan := &Loan{Status: LoanStatusIssued, ReturnDate: tt.due}
			assert.Equal(t, tt.want, loan.DaysLeft(now))
		})
	}
}

func TestLoan_ToResponse(t *testing.T) {
	now := time.Now()
	due := now.Add(-24 * time.Hour)
	issued := now.Add(-10 * 24 * time.Hour)

	loan := &Loan{
		ID:           42,
		BookID:       7,
		BookTitle:    "The Go Programming Language",
		StudentID:    3,
		StudentName:  "Jane Doe",
		Status:       LoanStatusIssued,
		Type:         LoanTypeIssue,
		Via:          LoanViaRequest,
		RequestDate:  issued,
		IssuedAt:     &issued,
		ReturnDate:   &due,
		ReissueCount: 1,
	}

	resp := loan.ToResponse(now)

	assert.Equal(t, int32(42), resp.ID)
	assert.Equal(t, LoanStatusIssued, resp.Status)
	assert.Equal(t, int32(1), resp.ReissueCount)
	assert.True(t, resp.Overdue)
	assert.Equal(t, -1, resp.DaysLeft)
}

func timePtr(t time.Time) *time.Time {
	return &t
}
