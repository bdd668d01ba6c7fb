package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ktanui/circulate/internal/database"
	"github.com/ktanui/circulate/internal/models"
)

// BookService manages the catalog. Adding a title that already exists,
// matched case-insensitively on title and author, becomes a restock of
// the existing record instead of a duplicate row.
type BookService struct {
	store  database.BookStore
	logger *slog.Logger
}

func NewBookService(store database.BookStore, logger *slog.Logger) *BookService {
	return &BookService{store: store, logger: logger}
}

// AddBookResult reports whether the add created a new title or restocked
// an existing one.
type AddBookResult struct {
	Book      *models.Book
	Restocked bool
}

// AddBook registers a title or, when the (title, author) pair already
// exists, adds the copies to the existing record and journals a restock.
func (s *BookService) AddBook(ctx context.Context, req *models.CreateBookRequest) (*AddBookResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.store.FindBookByTitleAuthor(ctx, req.Title, req.Author)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to check for duplicate: %w", err)
	}

	if existing != nil {
		book, err := s.store.RestockBook(ctx, existing.ID, req.Qty)
		if err != nil {
			return nil, fmt.Errorf("failed to restock book: %w", err)
		}
		s.logger.Info("existing title restocked",
			slog.Int("book_id", int(book.ID)),
			slog.Int("added", int(req.Qty)))
		return &AddBookResult{Book: book, Restocked: true}, nil
	}

	book, err := s.store.CreateBook(ctx, req.Title, req.Author, req.Category, req.Qty)
	if err != nil {
		return nil, fmt.Errorf("failed to create book: %w", err)
	}

	s.logger.Info("book added",
		slog.Int("book_id", int(book.ID)),
		slog.String("title", book.Title))

	return &AddBookResult{Book: book}, nil
}

// RestockBook adds copies to a known title.
func (s *BookService) RestockBook(ctx context.Context, id int32, req *models.RestockRequest) (*models.Book, error) {
	if req.Qty < 1 {
		return nil, errors.New("quantity must be at least 1")
	}

	book, err := s.store.RestockBook(ctx, id, req.Qty)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to restock book: %w", err)
	}

	s.logger.Info("book restocked",
		slog.Int("book_id", int(id)),
		slog.Int("added", int(req.Qty)))

	return book, nil
}

// GetBook returns one title with its restock history attached.
func (s *BookService) GetBook(ctx context.Context, id int32) (*models.BookResponse, error) {
	book, err := s.store.GetBook(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get book: %w", err)
	}

	history, err := s.store.GetRestockHistory(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get restock history: %w", err)
	}

	resp := book.ToResponse()
	resp.RestockHistory = history
	return &resp, nil
}

// ListBooks returns a page of the catalog.
func (s *BookService) ListBooks(ctx context.Context, page, limit int) (*models.BookListResponse, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	offset := int32((page - 1) * limit)

	books, err := s.store.ListBooks(ctx, int32(limit), offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}

	total, err := s.store.CountBooks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count books: %w", err)
	}

	responses := make([]models.BookResponse, 0, len(books))
	for i := range books {
		responses = append(responses, books[i].ToResponse())
	}

	return &models.BookListResponse{
		Books: responses,
		Pagination: models.Pagination{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: int((total + int64(limit) - 1) / int64(limit)),
		},
	}, nil
}

// SearchBooks filters the catalog by free text, category and availability.
func (s *BookService) SearchBooks(ctx context.Context, req *models.BookSearchRequest) (*models.BookListResponse, error) {
	page := req.Page
	if page < 1 {
		page = 1
	}
	limit := req.Limit
	if limit < 1 || limit > 100 {
		limit = 20
	}
	offset := int32((page - 1) * limit)

	books, err := s.store.SearchBooks(ctx, req.Query, req.Category, req.AvailableOnly, int32(limit), offset)
	if err != nil {
		return nil, fmt.Errorf("failed to search books: %w", err)
	}

	total, err := s.store.CountSearchBooks(ctx, req.Query, req.Category, req.AvailableOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to count search results: %w", err)
	}

	responses := make([]models.BookResponse, 0, len(books))
	for i := range books {
		responses = append(responses, books[i].ToResponse())
	}

	return &models.BookListResponse{
		Books: responses,
		Pagination: models.Pagination{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: int((total + int64(limit) - 1) / int64(limit)),
		},
	}, nil
}

// UpdateBook edits a title's descriptive fields. Stock counters are not
// touched here.
func (s *BookService) UpdateBook(ctx context.Context, id int32, req *models.UpdateBookRequest) (*models.Book, error) {
	book, err := s.store.GetBook(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get book: %w", err)
	}

	if req.Title != nil {
		book.Title = *req.Title
	}
	if req.Author != nil {
		book.Author = *req.Author
	}
	if req.Category != nil {
		book.Category = *req.Category
	}

	if err := s.store.UpdateBook(ctx, book); err != nil {
		return nil, fmt.Errorf("failed to update book: %w", err)
	}

	return book, nil
}

// DeleteBook removes a title. Deletion is refused while any copy is
// checked out so loan records never point at a missing book.
func (s *BookService) DeleteBook(ctx context.Context, id int32) error {
	if _, err := s.store.GetBook(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to get book: %w", err)
	}

	active, err := s.store.CountActiveLoansForBook(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to count active loans: %w", err)
	}
	if active > 0 {
		return ErrCopiesOutstanding
	}

	if err := s.store.DeleteBook(ctx, id); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return ErrHasLoanHistory
		}
		return fmt.Errorf("failed to delete book: %w", err)
	}

	s.logger.Info("book deleted", slog.Int("book_id", int(id)))
	return nil
}

// GetStats returns catalog-wide counters for the admin dashboard.
func (s *BookService) GetStats(ctx context.Context) (*models.BookStats, error) {
	stats, err := s.store.GetBookStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get book stats: %w", err)
	}
	return stats, nil
}
