package services

import "errors"

// Failure taxonomy shared by the service layer. Handlers translate these
// into HTTP error codes; nothing is retried automatically.
var (
	ErrNotFound           = errors.New("record not found")
	ErrOutOfStock         = errors.New("book is out of stock")
	ErrDuplicateRequest   = errors.New("a live request already exists for this book")
	ErrDuplicateBook      = errors.New("book with this title and author already exists")
	ErrTooEarly           = errors.New("reissue is only allowed in the final days of a loan")
	ErrOverdue            = errors.New("loan is overdue; the book must be returned in person")
	ErrNotPending         = errors.New("request is not pending")
	ErrAlreadyReturned    = errors.New("loan is not active")
	ErrUserBlocked        = errors.New("user account is blocked")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrHasActiveLoans     = errors.New("student still has books issued")
	ErrCopiesOutstanding  = errors.New("book still has copies checked out")
	ErrHasLoanHistory     = errors.New("record is referenced by loan history")
	ErrEmailTaken         = errors.New("email is already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailNotVerified   = errors.New("email address is not verified")
	ErrWrongPortal        = errors.New("account role does not match this portal")
	ErrInvalidToken       = errors.New("invalid token")
	ErrInvalidPassword    = errors.New("invalid password format")
	ErrInvalidRSAKey      = errors.New("invalid RSA key")
	ErrInvalidResetToken  = errors.New("invalid or expired reset token")
)
