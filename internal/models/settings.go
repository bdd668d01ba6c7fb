package models

// DefaultLoanDurationDays is used when no library config has been stored.
const DefaultLoanDurationDays = 14

// LibraryConfig is the singleton settings record. LoanDuration only affects
// approvals made after the change; existing due dates are never recomputed.
type LibraryConfig struct {
	LoanDuration int32 `json:"loan_duration" db:"loan_duration"`
}

// UpdateLibraryConfigRequest changes the loan duration
type UpdateLibraryConfigRequest struct {
	LoanDuration int32 `json:"loan_duration" binding:"required,min=1,max=365"`
}
