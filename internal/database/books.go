package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ktanui/circulate/internal/models"
)

// BookStore defines the catalog operations used by the book service.
type BookStore interface {
	CreateBook(ctx context.Context, title, author, category string, qty int32) (*models.Book, error)
	GetBook(ctx context.Context, id int32) (*models.Book, error)
	FindBookByTitleAuthor(ctx context.Context, title, author string) (*models.Book, error)
	ListBooks(ctx context.Context, limit, offset int32) ([]models.Book, error)
	SearchBooks(ctx context.Context, query, category string, availableOnly bool, limit, offset int32) ([]models.Book, error)
	CountSearchBooks(ctx context.Context, query, category string, availableOnly bool) (int64, error)
	UpdateBook(ctx context.Context, book *models.Book) error
	DeleteBook(ctx context.Context, id int32) error
	RestockBook(ctx context.Context, id, qty int32) (*models.Book, error)
	GetRestockHistory(ctx context.Context, bookID int32) ([]models.RestockEntry, error)
	CountBooks(ctx context.Context) (int64, error)
	CountActiveLoansForBook(ctx context.Context, bookID int32) (int64, error)
	GetBookStats(ctx context.Context) (*models.BookStats, error)
}

const bookColumns = `id, title, author, category, total_qty, qty, added_at, last_updated`

func scanBook(row interface{ Scan(dest ...any) error }) (*models.Book, error) {
	var b models.Book
	err := row.Scan(&b.ID, &b.Title, &b.Author, &b.Category, &b.TotalQty, &b.Qty, &b.AddedAt, &b.LastUpdated)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// CreateBook registers a new title and writes its "Initial Stock" journal
// entry in the same transaction.
func (s *Store) CreateBook(ctx context.Context, title, author, category string, qty int32) (*models.Book, error) {
	var book *models.Book
	err := s.transact(ctx, func(tx *Store) error {
		row := tx.db.QueryRow(ctx, `
			INSERT INTO books (title, author, category, total_qty, qty)
			VALUES ($1, $2, $3, $4, $4)
			RETURNING `+bookColumns,
			title, author, category, qty)
		b, err := scanBook(row)
		if err != nil {
			return fmt.Errorf("failed to insert book: %w", err)
		}
		_, err = tx.db.Exec(ctx, `
			INSERT INTO restock_history (book_id, qty, action)
			VALUES ($1, $2, $3)`,
			b.ID, qty, models.RestockActionInitial)
		if err != nil {
			return fmt.Errorf("failed to insert restock entry: %w", err)
		}
		book = b
		return nil
	})
	return book, err
}

func (s *Store) GetBook(ctx context.Context, id int32) (*models.Book, error) {
	row := s.db.QueryRow(ctx, `SELECT `+bookColumns+` FROM books WHERE id = $1`, id)
	return scanBook(row)
}

// GetBookForUpdate locks the book row for the duration of the enclosing
// transaction so two approvals cannot both see the last copy.
func (s *Store) GetBookForUpdate(ctx context.Context, id int32) (*models.Book, error) {
	row := s.db.QueryRow(ctx, `SELECT `+bookColumns+` FROM books WHERE id = $1 FOR UPDATE`, id)
	return scanBook(row)
}

// FindBookByTitleAuthor does a case-insensitive exact match used for
// duplicate detection when registering a title.
func (s *Store) FindBookByTitleAuthor(ctx context.Context, title, author string) (*models.Book, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+bookColumns+` FROM books
		WHERE lower(trim(title)) = $1 AND lower(trim(author)) = $2`,
		strings.ToLower(strings.TrimSpace(title)),
		strings.ToLower(strings.TrimSpace(author)))
	return scanBook(row)
}

func (s *Store) ListBooks(ctx context.Context, limit, offset int32) ([]models.Book, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+bookColumns+` FROM books
		ORDER BY added_at DESC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var books []models.Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, *b)
	}
	return books, rows.Err()
}

func (s *Store) SearchBooks(ctx context.Context, query, category string, availableOnly bool, limit, offset int32) ([]models.Book, error) {
	sql := `SELECT ` + bookColumns + ` FROM books WHERE 1=1`
	args := []any{}
	i := 1
	if query != "" {
		sql += fmt.Sprintf(` AND (title ILIKE $%d OR author ILIKE $%d OR category ILIKE $%d)`, i, i, i)
		args = append(args, "%"+query+"%")
		i++
	}
	if category != "" {
		sql += fmt.Sprintf(` AND category ILIKE $%d`, i)
		args = append(args, category)
		i++
	}
	if availableOnly {
		sql += ` AND qty > 0`
	}
	sql += fmt.Sprintf(` ORDER BY title LIMIT $%d OFFSET $%d`, i, i+1)
	args = append(args, limit, offset)

	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var books []models.Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, *b)
	}
	return books, rows.Err()
}

// CountSearchBooks counts the rows SearchBooks would match, for pagination.
func (s *Store) CountSearchBooks(ctx context.Context, query, category string, availableOnly bool) (int64, error) {
	sql := `SELECT COUNT(*) FROM books WHERE 1=1`
	args := []any{}
	i := 1
	if query != "" {
		sql += fmt.Sprintf(` AND (title ILIKE $%d OR author ILIKE $%d OR category ILIKE $%d)`, i, i, i)
		args = append(args, "%"+query+"%")
		i++
	}
	if category != "" {
		sql += fmt.Sprintf(` AND category ILIKE $%d`, i)
		args = append(args, category)
	}
	if availableOnly {
		sql += ` AND qty > 0`
	}

	var total int64
	err := s.db.QueryRow(ctx, sql, args...).Scan(&total)
	return total, err
}

func (s *Store) UpdateBook(ctx context.Context, book *models.Book) error {
	_, err := s.db.Exec(ctx, `
		UPDATE books
		SET title = $2, author = $3, category = $4, last_updated = now()
		WHERE id = $1`,
		book.ID, book.Title, book.Author, book.Category)
	return err
}

func (s *Store) DeleteBook(ctx context.Context, id int32) error {
	_, err := s.db.Exec(ctx, `DELETE FROM books WHERE id = $1`, id)
	return err
}

// AdjustBookQty moves the shelf counter by delta. It is only called inside
// lending transactions, paired with exactly one loan status change.
func (s *Store) AdjustBookQty(ctx context.Context, id, delta int32) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE books SET qty = qty + $2, last_updated = now()
		WHERE id = $1 AND qty + $2 >= 0 AND qty + $2 <= total_qty`,
		id, delta)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("qty adjustment of %d rejected for book %d", delta, id)
	}
	return nil
}

// RestockBook adds copies to both counters and journals the restock, all in
// one transaction.
func (s *Store) RestockBook(ctx context.Context, id, qty int32) (*models.Book, error) {
	var book *models.Book
	err := s.transact(ctx, func(tx *Store) error {
		row := tx.db.QueryRow(ctx, `
			UPDATE books
			SET total_qty = total_qty + $2, qty = qty + $2, last_updated = now()
			WHERE id = $1
			RETURNING `+bookColumns,
			id, qty)
		b, err := scanBook(row)
		if err != nil {
			return err
		}
		_, err = tx.db.Exec(ctx, `
			INSERT INTO restock_history (book_id, qty, action)
			VALUES ($1, $2, $3)`,
			id, qty, models.RestockActionRestock)
		if err != nil {
			return fmt.Errorf("failed to insert restock entry: %w", err)
		}
		book = b
		return nil
	})
	return book, err
}

func (s *Store) GetRestockHistory(ctx context.Context, bookID int32) ([]models.RestockEntry, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, book_id, date, qty, action
		FROM restock_history
		WHERE book_id = $1
		ORDER BY date ASC`, bookID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.RestockEntry
	for rows.Next() {
		var e models.RestockEntry
		var date time.Time
		if err := rows.Scan(&e.ID, &e.BookID, &date, &e.Qty, &e.Action); err != nil {
			return nil, err
		}
		e.Date = date
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *Store) CountBooks(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRow(ctx, `SELECT count(*) FROM books`).Scan(&count)
	return count, err
}

func (s *Store) CountActiveLoansForBook(ctx context.Context, bookID int32) (int64, error) {
	var count int64
	err := s.db.QueryRow(ctx, `
		SELECT count(*) FROM loans
		WHERE book_id = $1 AND status IN ('Issued', 'Reissued')`, bookID).Scan(&count)
	return count, err
}

func (s *Store) GetBookStats(ctx context.Context) (*models.BookStats, error) {
	var stats models.BookStats
	err := s.db.QueryRow(ctx, `
		SELECT count(*),
		       coalesce(sum(total_qty), 0),
		       coalesce(sum(qty), 0)
		FROM books`).Scan(&stats.TotalBooks, &stats.TotalCopies, &stats.AvailableCopies)
	if err != nil {
		return nil, err
	}
	stats.IssuedCopies = stats.TotalCopies - stats.AvailableCopies
	return &stats, nil
}
