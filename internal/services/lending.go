package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ktanui/circulate/internal/database"
	"github.com/ktanui/circulate/internal/models"
)

// LoanPolicy supplies the currently configured loan duration. Changing the
// duration affects loans issued afterwards only; existing due dates stand.
type LoanPolicy interface {
	LoanDuration(ctx context.Context) int32
}

// LendingNotifier delivers per-student notifications produced by lifecycle
// transitions. Delivery failures are logged, never surfaced to the caller.
type LendingNotifier interface {
	Notify(ctx context.Context, studentID int32, title, message string, notifType models.NotificationType) error
}

// LendingService drives the loan lifecycle: request, approval, rejection,
// reissue, walk-in issue and return. Every paired mutation (stock counter
// plus loan state) runs inside a single transaction.
type LendingService struct {
	store   database.LendingStore
	queries database.LoanQueryStore
	policy  LoanPolicy
	notify  LendingNotifier
	logger  *slog.Logger
}

func NewLendingService(store database.LendingStore, queries database.LoanQueryStore, policy LoanPolicy, notify LendingNotifier, logger *slog.Logger) *LendingService {
	return &LendingService{
		store:   store,
		queries: queries,
		policy:  policy,
		notify:  notify,
		logger:  logger,
	}
}

// RequestIssue records a student's pending request for a book. Stock is not
// decremented here; copies leave the shelf only on approval.
func (s *LendingService) RequestIssue(ctx context.Context, studentID, bookID int32) (*models.Loan, error) {
	user, err := s.store.GetUser(ctx, studentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user.Status == models.UserStatusBlocked {
		return nil, ErrUserBlocked
	}

	book, err := s.store.GetBook(ctx, bookID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get book: %w", err)
	}
	if book.Qty <= 0 {
		return nil, ErrOutOfStock
	}

	live, err := s.store.HasLiveRequest(ctx, studentID, bookID)
	if err != nil {
		return nil, fmt.Errorf("failed to check live requests: %w", err)
	}
	if live {
		return nil, ErrDuplicateRequest
	}

	loan, err := s.store.CreateLoan(ctx, &models.Loan{
		BookID:       bookID,
		BookTitle:    book.Title,
		StudentID:    studentID,
		StudentName:  user.DisplayName,
		StudentEmail: user.Email,
		Status:       models.LoanStatusPending,
		Type:         models.LoanTypeIssue,
		Via:          models.LoanViaRequest,
		RequestDate:  time.Now(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	s.logger.Info("issue requested",
		slog.Int("student_id", int(studentID)),
		slog.Int("book_id", int(bookID)),
		slog.Int("request_id", int(loan.ID)))

	return loan, nil
}

// ApproveIssue turns a pending request into an issued loan. Stock is
// re-checked under a row lock; the last copy goes to exactly one approval.
func (s *LendingService) ApproveIssue(ctx context.Context, requestID int32) (*models.Loan, error) {
	var issued *models.Loan

	err := s.store.WithTx(ctx, func(tx database.LendingStore) error {
		loan, err := tx.GetLoanForUpdate(ctx, requestID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to get request: %w", err)
		}
		if loan.Status != models.LoanStatusPending || loan.Type != models.LoanTypeIssue {
			return ErrNotPending
		}

		book, err := tx.GetBookForUpdate(ctx, loan.BookID)
		if err != nil {
			return fmt.Errorf("failed to lock book: %w", err)
		}
		if book.Qty <= 0 {
			return ErrOutOfStock
		}

		if err := tx.AdjustBookQty(ctx, loan.BookID, -1); err != nil {
			return fmt.Errorf("failed to decrement stock: %w", err)
		}

		now := time.Now()
		due := now.AddDate(0, 0, int(s.policy.LoanDuration(ctx)))
		issued, err = tx.MarkIssued(ctx, requestID, now, due)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotPending
			}
			return fmt.Errorf("failed to mark issued: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("issue approved",
		slog.Int("request_id", int(requestID)),
		slog.Int("book_id", int(issued.BookID)),
		slog.Time("return_date", *issued.ReturnDate))

	s.sendNotification(ctx, issued.StudentID, "Book Issued",
		fmt.Sprintf("%q has been issued to you. Return it by %s.",
			issued.BookTitle, issued.ReturnDate.Format("Jan 2, 2006")),
		models.NotificationTypeSuccess)

	return issued, nil
}

// RejectRequest removes a pending request and tells the student why it
// went away. Rejection never touches stock.
func (s *LendingService) RejectRequest(ctx context.Context, requestID int32) error {
	loan, err := s.store.GetLoan(ctx, requestID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to get request: %w", err)
	}
	if loan.Status != models.LoanStatusPending {
		return ErrNotPending
	}

	if err := s.store.DeleteLoan(ctx, requestID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotPending
		}
		return fmt.Errorf("failed to delete request: %w", err)
	}

	s.logger.Info("request rejected",
		slog.Int("request_id", int(requestID)),
		slog.String("type", string(loan.Type)))

	title, message := "Request Rejected",
		fmt.Sprintf("Your request for %q was declined by the library.", loan.BookTitle)
	if loan.Type == models.LoanTypeReissue {
		title = "Reissue Rejected"
		message = fmt.Sprintf("Your reissue request for %q was declined. Please return the book by its due date.", loan.BookTitle)
	}
	s.sendNotification(ctx, loan.StudentID, title, message, models.NotificationTypeError)

	return nil
}

// RequestReissue records a pending extension request against the student's
// active loan. The window opens ReissueWindowDays before the due date and
// closes the moment the loan is overdue; an overdue book must come back to
// the desk in person.
func (s *LendingService) RequestReissue(ctx context.Context, studentID, bookID int32) (*models.Loan, error) {
	user, err := s.store.GetUser(ctx, studentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user.Status == models.UserStatusBlocked {
		return nil, ErrUserBlocked
	}

	active, err := s.store.FindActiveLoan(ctx, studentID, bookID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find active loan: %w", err)
	}

	now := time.Now()
	if active.IsOverdue(now) {
		return nil, ErrOverdue
	}
	if active.DaysLeft(now) > models.ReissueWindowDays {
		return nil, ErrTooEarly
	}

	pending, err := s.store.HasPendingReissue(ctx, active.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check pending reissues: %w", err)
	}
	if pending {
		return nil, ErrDuplicateRequest
	}

	loan, err := s.store.CreateLoan(ctx, &models.Loan{
		BookID:            bookID,
		BookTitle:         active.BookTitle,
		StudentID:         studentID,
		StudentName:       user.DisplayName,
		StudentEmail:      user.Email,
		Status:            models.LoanStatusPending,
		Type:              models.LoanTypeReissue,
		Via:               models.LoanViaRequest,
		OriginalRequestID: &active.ID,
		RequestDate:       now,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create reissue request: %w", err)
	}

	s.logger.Info("reissue requested",
		slog.Int("student_id", int(studentID)),
		slog.Int("loan_id", int(active.ID)),
		slog.Int("request_id", int(loan.ID)))

	return loan, nil
}

// ApproveReissue extends the original loan and deletes the reissue request.
// The new due date is measured from the loan's current due date, not from
// the approval time, so an early approval never shortens the extension.
func (s *LendingService) ApproveReissue(ctx context.Context, requestID int32) (*models.Loan, error) {
	var extended *models.Loan
	var days int32

	err := s.store.WithTx(ctx, func(tx database.LendingStore) error {
		req, err := tx.GetLoanForUpdate(ctx, requestID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to get request: %w", err)
		}
		if req.Status != models.LoanStatusPending || req.Type != models.LoanTypeReissue {
			return ErrNotPending
		}
		if req.OriginalRequestID == nil {
			return fmt.Errorf("reissue request %d has no original loan", requestID)
		}

		orig, err := tx.GetLoanForUpdate(ctx, *req.OriginalRequestID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to lock original loan: %w", err)
		}
		if !orig.Status.IsActive() || orig.ReturnDate == nil {
			return ErrAlreadyReturned
		}

		days = s.policy.LoanDuration(ctx)
		newDue := orig.ReturnDate.AddDate(0, 0, int(days))
		extended, err = tx.ExtendLoan(ctx, orig.ID, newDue)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrAlreadyReturned
			}
			return fmt.Errorf("failed to extend loan: %w", err)
		}

		if err := tx.DeleteLoan(ctx, requestID); err != nil {
			return fmt.Errorf("failed to delete reissue request: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("reissue approved",
		slog.Int("request_id", int(requestID)),
		slog.Int("loan_id", int(extended.ID)),
		slog.Time("return_date", *extended.ReturnDate))

	s.sendNotification(ctx, extended.StudentID, "Reissue Approved",
		fmt.Sprintf("%q has been extended by %d days. New return date: %s.",
			extended.BookTitle, days, extended.ReturnDate.Format("Jan 2, 2006")),
		models.NotificationTypeSuccess)

	return extended, nil
}

// DirectIssue handles a walk-in at the desk. If the student already holds
// the book the visit becomes an in-person extension, which is also the only
// path left once a loan is overdue. Otherwise a loan is created already
// Issued, skipping the pending queue.
func (s *LendingService) DirectIssue(ctx context.Context, studentID, bookID int32) (*models.Loan, error) {
	user, err := s.store.GetUser(ctx, studentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	active, err := s.store.FindActiveLoan(ctx, studentID, bookID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to find active loan: %w", err)
	}
	if active != nil {
		return s.extendInPerson(ctx, active)
	}

	live, err := s.store.HasLiveRequest(ctx, studentID, bookID)
	if err != nil {
		return nil, fmt.Errorf("failed to check live requests: %w", err)
	}
	if live {
		// A pending request exists; approve it from the queue instead
		// of creating a competing claim.
		return nil, ErrDuplicateRequest
	}

	var issued *models.Loan
	err = s.store.WithTx(ctx, func(tx database.LendingStore) error {
		book, err := tx.GetBookForUpdate(ctx, bookID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to lock book: %w", err)
		}
		if book.Qty <= 0 {
			return ErrOutOfStock
		}
		if err := tx.AdjustBookQty(ctx, bookID, -1); err != nil {
			return fmt.Errorf("failed to decrement stock: %w", err)
		}

		now := time.Now()
		due := now.AddDate(0, 0, int(s.policy.LoanDuration(ctx)))
		issued, err = tx.CreateLoan(ctx, &models.Loan{
			BookID:       bookID,
			BookTitle:    book.Title,
			StudentID:    studentID,
			StudentName:  user.DisplayName,
			StudentEmail: user.Email,
			Status:       models.LoanStatusIssued,
			Type:         models.LoanTypeIssue,
			Via:          models.LoanViaManual,
			RequestDate:  now,
			IssuedAt:     &now,
			ReturnDate:   &due,
		})
		if err != nil {
			return fmt.Errorf("failed to create loan: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("book issued at desk",
		slog.Int("student_id", int(studentID)),
		slog.Int("book_id", int(bookID)),
		slog.Int("loan_id", int(issued.ID)))

	s.sendNotification(ctx, studentID, "Book Issued",
		fmt.Sprintf("%q has been issued to you. Return it by %s.",
			issued.BookTitle, issued.ReturnDate.Format("Jan 2, 2006")),
		models.NotificationTypeSuccess)

	return issued, nil
}

func (s *LendingService) extendInPerson(ctx context.Context, active *models.Loan) (*models.Loan, error) {
	var days int32
	var extended *models.Loan
	err := s.store.WithTx(ctx, func(tx database.LendingStore) error {
		orig, err := tx.GetLoanForUpdate(ctx, active.ID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to lock loan: %w", err)
		}
		if !orig.Status.IsActive() || orig.ReturnDate == nil {
			return ErrAlreadyReturned
		}

		days = s.policy.LoanDuration(ctx)
		newDue := orig.ReturnDate.AddDate(0, 0, int(days))
		extended, err = tx.ExtendLoan(ctx, orig.ID, newDue)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrAlreadyReturned
			}
			return fmt.Errorf("failed to extend loan: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("loan extended at desk",
		slog.Int("loan_id", int(extended.ID)),
		slog.Time("return_date", *extended.ReturnDate))

	s.sendNotification(ctx, extended.StudentID, "Loan Extended",
		fmt.Sprintf("%q has been extended by %d days. New return date: %s.",
			extended.BookTitle, days, extended.ReturnDate.Format("Jan 2, 2006")),
		models.NotificationTypeSuccess)

	return extended, nil
}

// ReturnLoan closes an active loan and puts the copy back on the shelf.
// A second return of the same loan fails instead of inflating stock.
func (s *LendingService) ReturnLoan(ctx context.Context, loanID int32) (*models.Loan, error) {
	var returned *models.Loan

	err := s.store.WithTx(ctx, func(tx database.LendingStore) error {
		loan, err := tx.GetLoanForUpdate(ctx, loanID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to get loan: %w", err)
		}
		if !loan.Status.IsActive() {
			return ErrAlreadyReturned
		}

		returned, err = tx.MarkReturned(ctx, loanID, time.Now())
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrAlreadyReturned
			}
			return fmt.Errorf("failed to mark returned: %w", err)
		}

		if err := tx.AdjustBookQty(ctx, loan.BookID, 1); err != nil {
			return fmt.Errorf("failed to restore stock: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("book returned",
		slog.Int("loan_id", int(loanID)),
		slog.Int("book_id", int(returned.BookID)))

	return returned, nil
}

// CancelRequest lets a student withdraw their own pending request.
func (s *LendingService) CancelRequest(ctx context.Context, studentID, requestID int32) error {
	loan, err := s.store.GetLoan(ctx, requestID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to get request: %w", err)
	}
	if loan.StudentID != studentID {
		return ErrPermissionDenied
	}
	if loan.Status != models.LoanStatusPending {
		return ErrNotPending
	}

	if err := s.store.DeleteLoan(ctx, requestID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotPending
		}
		return fmt.Errorf("failed to delete request: %w", err)
	}

	s.logger.Info("request cancelled",
		slog.Int("student_id", int(studentID)),
		slog.Int("request_id", int(requestID)))

	return nil
}

// GetLoan fetches a single loan record.
func (s *LendingService) GetLoan(ctx context.Context, id int32) (*models.Loan, error) {
	loan, err := s.queries.GetLoan(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get loan: %w", err)
	}
	return loan, nil
}

// ListPendingRequests returns the admin approval queue for one request type.
func (s *LendingService) ListPendingRequests(ctx context.Context, loanType models.LoanType, limit, offset int32) ([]models.Loan, error) {
	if !loanType.IsValid() {
		loanType = models.LoanTypeIssue
	}
	loans, err := s.queries.ListPendingRequests(ctx, loanType, normalizeLimit(limit), offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending requests: %w", err)
	}
	return loans, nil
}

// ListStudentLoans returns a student's full lending record, newest first.
func (s *LendingService) ListStudentLoans(ctx context.Context, studentID int32) ([]models.Loan, error) {
	loans, err := s.queries.ListLoansByStudent(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list student loans: %w", err)
	}
	return loans, nil
}

// ListActiveLoans returns currently issued loans, soonest due first.
func (s *LendingService) ListActiveLoans(ctx context.Context, limit, offset int32) ([]models.Loan, error) {
	loans, err := s.queries.ListActiveLoans(ctx, normalizeLimit(limit), offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list active loans: %w", err)
	}
	return loans, nil
}

// ListOverdueLoans returns active loans past their due date as of now.
func (s *LendingService) ListOverdueLoans(ctx context.Context) ([]models.Loan, error) {
	loans, err := s.queries.ListOverdueLoans(ctx, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to list overdue loans: %w", err)
	}
	return loans, nil
}

// ListReturnedLoans returns the return history, most recent first.
func (s *LendingService) ListReturnedLoans(ctx context.Context, limit, offset int32) ([]models.Loan, error) {
	loans, err := s.queries.ListReturnedLoans(ctx, normalizeLimit(limit), offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list returned loans: %w", err)
	}
	return loans, nil
}

// GetStats counts the queue and the stock movement for the admin dashboard.
func (s *LendingService) GetStats(ctx context.Context) (*models.LoanStats, error) {
	pending, err := s.queries.CountLoans(ctx, models.LoanStatusPending)
	if err != nil {
		return nil, fmt.Errorf("failed to count pending requests: %w", err)
	}
	issued, err := s.queries.CountLoans(ctx, models.LoanStatusIssued)
	if err != nil {
		return nil, fmt.Errorf("failed to count issued loans: %w", err)
	}
	reissued, err := s.queries.CountLoans(ctx, models.LoanStatusReissued)
	if err != nil {
		return nil, fmt.Errorf("failed to count reissued loans: %w", err)
	}
	returned, err := s.queries.CountLoans(ctx, models.LoanStatusReturned)
	if err != nil {
		return nil, fmt.Errorf("failed to count returned loans: %w", err)
	}

	return &models.LoanStats{
		PendingRequests: pending,
		ActiveLoans:     issued + reissued,
		ReturnedLoans:   returned,
	}, nil
}

func (s *LendingService) sendNotification(ctx context.Context, studentID int32, title, message string, notifType models.NotificationType) {
	if s.notify == nil {
		return
	}
	if err := s.notify.Notify(ctx, studentID, title, message, notifType); err != nil {
		s.logger.Warn("failed to deliver notification",
			slog.Int("student_id", int(studentID)),
			slog.String("title", title),
			slog.String("error", err.Error()))
	}
}

func normalizeLimit(limit int32) int32 {
	if limit <= 0 || limit > 100 {
		return 20
	}
	return limit
}
