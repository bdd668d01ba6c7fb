package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ktanui/circulate/internal/models"
)

// LendingStore defines the operations the lending lifecycle engine runs
// against the database. WithTx hands the engine a store bound to a single
// transaction so paired mutations (stock adjustment + status transition)
// commit or roll back as a unit.
type LendingStore interface {
	WithTx(ctx context.Context, fn func(LendingStore) error) error

	GetBook(ctx context.Context, id int32) (*models.Book, error)
	GetBookForUpdate(ctx context.Context, id int32) (*models.Book, error)
	AdjustBookQty(ctx context.Context, id, delta int32) error

	GetUser(ctx context.Context, id int32) (*models.User, error)

	CreateLoan(ctx context.Context, loan *models.Loan) (*models.Loan, error)
	GetLoan(ctx context.Context, id int32) (*models.Loan, error)
	GetLoanForUpdate(ctx context.Context, id int32) (*models.Loan, error)
	DeleteLoan(ctx context.Context, id int32) error
	FindActiveLoan(ctx context.Context, studentID, bookID int32) (*models.Loan, error)
	HasLiveRequest(ctx context.Context, studentID, bookID int32) (bool, error)
	HasPendingReissue(ctx context.Context, originalRequestID int32) (bool, error)
	MarkIssued(ctx context.Context, id int32, issuedAt, returnDate time.Time) (*models.Loan, error)
	ExtendLoan(ctx context.Context, id int32, newDue time.Time) (*models.Loan, error)
	MarkReturned(ctx context.Context, id int32, returnedAt time.Time) (*models.Loan, error)
}

// LoanQueryStore defines the read-side queries used by list/history views.
type LoanQueryStore interface {
	GetLoan(ctx context.Context, id int32) (*models.Loan, error)
	ListPendingRequests(ctx context.Context, loanType models.LoanType, limit, offset int32) ([]models.Loan, error)
	ListLoansByStudent(ctx context.Context, studentID int32) ([]models.Loan, error)
	ListActiveLoans(ctx context.Context, limit, offset int32) ([]models.Loan, error)
	ListOverdueLoans(ctx context.Context, now time.Time) ([]models.Loan, error)
	ListReturnedLoans(ctx context.Context, limit, offset int32) ([]models.Loan, error)
	CountLoans(ctx context.Context, status models.LoanStatus) (int64, error)
}

// WithTx runs fn against a transaction-bound store.
func (s *Store) WithTx(ctx context.Context, fn func(LendingStore) error) error {
	return s.transact(ctx, func(tx *Store) error {
		return fn(tx)
	})
}

const loanColumns = `id, book_id, book_title, student_id, student_name, student_email,
	status, type, via, original_request_id, request_date, issued_at, return_date,
	returned_at, reissue_count`

func scanLoan(row interface{ Scan(dest ...any) error }) (*models.Loan, error) {
	var l models.Loan
	err := row.Scan(
		&l.ID, &l.BookID, &l.BookTitle, &l.StudentID, &l.StudentName, &l.StudentEmail,
		&l.Status, &l.Type, &l.Via, &l.OriginalRequestID, &l.RequestDate, &l.IssuedAt,
		&l.ReturnDate, &l.ReturnedAt, &l.ReissueCount,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (s *Store) CreateLoan(ctx context.Context, loan *models.Loan) (*models.Loan, error) {
	row := s.db.QueryRow(ctx, `
		INSERT INTO loans (book_id, book_title, student_id, student_name, student_email,
			status, type, via, original_request_id, request_date, issued_at, return_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING `+loanColumns,
		loan.BookID, loan.BookTitle, loan.StudentID, loan.StudentName, loan.StudentEmail,
		loan.Status, loan.Type, loan.Via, loan.OriginalRequestID, loan.RequestDate,
		loan.IssuedAt, loan.ReturnDate)
	return scanLoan(row)
}

func (s *Store) GetLoan(ctx context.Context, id int32) (*models.Loan, error) {
	row := s.db.QueryRow(ctx, `SELECT `+loanColumns+` FROM loans WHERE id = $1`, id)
	return scanLoan(row)
}

// GetLoanForUpdate locks the loan row so a concurrent cancel or double
// return surfaces inside the transaction instead of after it.
func (s *Store) GetLoanForUpdate(ctx context.Context, id int32) (*models.Loan, error) {
	row := s.db.QueryRow(ctx, `SELECT `+loanColumns+` FROM loans WHERE id = $1 FOR UPDATE`, id)
	return scanLoan(row)
}

// DeleteLoan removes a pending request. The status guard keeps a delete
// that races an approval from destroying the now-issued loan row; zero
// rows affected surfaces as ErrNoRows for the caller to map.
func (s *Store) DeleteLoan(ctx context.Context, id int32) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM loans WHERE id = $1 AND status = 'Pending'`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// FindActiveLoan returns the Issued/Reissued loan for the pair, if any.
func (s *Store) FindActiveLoan(ctx context.Context, studentID, bookID int32) (*models.Loan, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+loanColumns+` FROM loans
		WHERE student_id = $1 AND book_id = $2 AND status IN ('Issued', 'Reissued')`,
		studentID, bookID)
	return scanLoan(row)
}

// HasLiveRequest reports whether any non-terminal record exists for the
// pair. At most one claim per (student, book) may be live at a time.
func (s *Store) HasLiveRequest(ctx context.Context, studentID, bookID int32) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM loans
			WHERE student_id = $1 AND book_id = $2
			  AND status IN ('Pending', 'Issued', 'Reissued')
		)`, studentID, bookID).Scan(&exists)
	return exists, err
}

func (s *Store) HasPendingReissue(ctx context.Context, originalRequestID int32) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM loans
			WHERE original_request_id = $1 AND status = 'Pending'
		)`, originalRequestID).Scan(&exists)
	return exists, err
}

// MarkIssued transitions Pending -> Issued. The WHERE clause re-checks the
// status so an approval racing a cancel affects zero rows.
func (s *Store) MarkIssued(ctx context.Context, id int32, issuedAt, returnDate time.Time) (*models.Loan, error) {
	row := s.db.QueryRow(ctx, `
		UPDATE loans
		SET status = 'Issued', issued_at = $2, return_date = $3
		WHERE id = $1 AND status = 'Pending'
		RETURNING `+loanColumns,
		id, issuedAt, returnDate)
	return scanLoan(row)
}

// ExtendLoan pushes the due date out and bumps the reissue counter on an
// active loan.
func (s *Store) ExtendLoan(ctx context.Context, id int32, newDue time.Time) (*models.Loan, error) {
	row := s.db.QueryRow(ctx, `
		UPDATE loans
		SET status = 'Reissued', return_date = $2, reissue_count = reissue_count + 1
		WHERE id = $1 AND status IN ('Issued', 'Reissued')
		RETURNING `+loanColumns,
		id, newDue)
	return scanLoan(row)
}

// MarkReturned transitions an active loan to Returned exactly once.
func (s *Store) MarkReturned(ctx context.Context, id int32, returnedAt time.Time) (*models.Loan, error) {
	row := s.db.QueryRow(ctx, `
		UPDATE loans
		SET status = 'Returned', returned_at = $2
		WHERE id = $1 AND status IN ('Issued', 'Reissued')
		RETURNING `+loanColumns,
		id, returnedAt)
	return scanLoan(row)
}

func (s *Store) ListPendingRequests(ctx context.Context, loanType models.LoanType, limit, offset int32) ([]models.Loan, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+loanColumns+` FROM loans
		WHERE status = 'Pending' AND type = $1
		ORDER BY request_date DESC
		LIMIT $2 OFFSET $3`, loanType, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectLoans(rows)
}

func (s *Store) ListLoansByStudent(ctx context.Context, studentID int32) ([]models.Loan, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+loanColumns+` FROM loans
		WHERE student_id = $1
		ORDER BY request_date DESC`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectLoans(rows)
}

func (s *Store) ListActiveLoans(ctx context.Context, limit, offset int32) ([]models.Loan, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+loanColumns+` FROM loans
		WHERE status IN ('Issued', 'Reissued')
		ORDER BY return_date ASC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectLoans(rows)
}

// ListOverdueLoans selects active loans past their due date. Overdue is a
// read-time predicate, never a stored status.
func (s *Store) ListOverdueLoans(ctx context.Context, now time.Time) ([]models.Loan, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+loanColumns+` FROM loans
		WHERE status IN ('Issued', 'Reissued') AND return_date < $1
		ORDER BY return_date ASC`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectLoans(rows)
}

func (s *Store) ListReturnedLoans(ctx context.Context, limit, offset int32) ([]models.Loan, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+loanColumns+` FROM loans
		WHERE status = 'Returned'
		ORDER BY returned_at DESC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectLoans(rows)
}

func (s *Store) CountLoans(ctx context.Context, status models.LoanStatus) (int64, error) {
	var count int64
	err := s.db.QueryRow(ctx, `SELECT count(*) FROM loans WHERE status = $1`, status).Scan(&count)
	return count, err
}

func collectLoans(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]models.Loan, error) {
	var loans []models.Loan
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			return nil, err
		}
		loans = append(loans, *l)
	}
	return loans, rows.Err()
}
