package services

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ktanui/circulate/internal/models"
)

// MockBookStore implements database.BookStore for testing
type MockBookStore struct {
	mock.Mock
}

func (m *MockBookStore) CreateBook(ctx context.Context, title, author, category string, qty int32) (*models.Book, error) {
	args := m.Called(ctx, title, author, category, qty)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Book), args.Error(1)
}

func (m *MockBookStore) GetBook(ctx context.Context, id int32) (*models.Book, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Book), args.Error(1)
}

func (m *MockBookStore) FindBookByTitleAuthor(ctx context.Context, title, author string) (*models.Book, error) {
	args := m.Called(ctx, title, author)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Book), args.Error(1)
}

func (m *MockBookStore) ListBooks(ctx context.Context, limit, offset int32) ([]models.Book, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]models.Book), args.Error(1)
}

func (m *MockBookStore) CountSearchBooks(ctx context.Context, query, category string, availableOnly bool) (int64, error) {
	args := m.Called(ctx, query, category, availableOnly)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockBookStore) SearchBooks(ctx context.Context, query, category string, availableOnly bool, limit, offset int32) ([]models.Book, error) {
	args := m.Called(ctx, query, category, availableOnly, limit, offset)
	return args.Get(0).([]models.Book), args.Error(1)
}

func (m *MockBookStore) UpdateBook(ctx context.Context, book *models.Book) error {
	args := m.Called(ctx, book)
	return args.Error(0)
}

func (m *MockBookStore) DeleteBook(ctx context.Context, id int32) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockBookStore) RestockBook(ctx context.Context, id, qty int32) (*models.Book, error) {
	args := m.Called(ctx, id, qty)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Book), args.Error(1)
}

func (m *MockBookStore) GetRestockHistory(ctx context.Context, bookID int32) ([]models.RestockEntry, error) {
	args := m.Called(ctx, bookID)
	return args.Get(0).([]models.RestockEntry), args.Error(1)
}

func (m *MockBookStore) CountBooks(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockBookStore) CountActiveLoansForBook(ctx context.Context, bookID int32) (int64, error) {
	args := m.Called(ctx, bookID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockBookStore) GetBookStats(ctx context.Context) (*models.BookStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BookStats), args.Error(1)
}

func newTestBookService(store *MockBookStore) *BookService {
	return NewBookService(store, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestBookService_AddBook_NewTitle(t *testing.T) {
	store := &MockBookStore{}
	service := newTestBookService(store)
	ctx := context.Background()

	created := testStockedBook(4)
	store.On("FindBookByTitleAuthor", ctx, "The Go Programming Language", "Donovan & Kernighan").Return(nil, pgx.ErrNoRows)
	store.On("CreateBook", ctx, "The Go Programming Language", "Donovan & Kernighan", "Programming", int32(4)).Return(created, nil)

	result, err := service.AddBook(ctx, &models.CreateBookRequest{
		Title:    "The Go Programming Language",
		Author:   "Donovan & Kernighan",
		Category: "Programming",
		Qty:      4,
	})

	require.NoError(t, err)
	assert.False(t, result.Restocked)
	assert.Equal(t, created.ID, result.Book.ID)
	store.AssertExpectations(t)
}

// Adding a title that already exists, matched case-insensitively on title
// and author, restocks the existing record instead of creating a duplicate.
func TestBookService_AddBook_DuplicateBecomesRestock(t *testing.T) {
	store := &MockBookStore{}
	service := newTestBookService(store)
	ctx := context.Background()

	existing := testStockedBook(2)
	restocked := testStockedBook(5)
	restocked.TotalQty = 8

	store.On("FindBookByTitleAuthor", ctx, "the go programming language", "DONOVAN & KERNIGHAN").Return(existing, nil)
	store.On("RestockBook", ctx, existing.ID, int32(3)).Return(restocked, nil)

	result, err := service.AddBook(ctx, &models.CreateBookRequest{
		Title:  "the go programming language",
		Author: "DONOVAN & KERNIGHAN",
		Qty:    3,
	})

	require.NoError(t, err)
	assert.True(t, result.Restocked)
	assert.Equal(t, int32(5), result.Book.Qty)
	store.AssertNotCalled(t, "CreateBook", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	store.AssertExpectations(t)
}

func TestBookService_AddBook_InvalidRequest(t *testing.T) {
	store := &MockBookStore{}
	service := newTestBookService(store)

	_, err := service.AddBook(context.Background(), &models.CreateBookRequest{
		Title:  "   ",
		Author: "Somebody",
		Qty:    1,
	})

	require.Error(t, err)
	store.AssertNotCalled(t, "FindBookByTitleAuthor", mock.Anything, mock.Anything, mock.Anything)
}

func TestBookService_DeleteBook_CopiesOutstanding(t *testing.T) {
	store := &MockBookStore{}
	service := newTestBookService(store)
	ctx := context.Background()

	store.On("GetBook", ctx, int32(3)).Return(testStockedBook(2), nil)
	store.On("CountActiveLoansForBook", ctx, int32(3)).Return(int64(2), nil)

	err := service.DeleteBook(ctx, 3)

	require.ErrorIs(t, err, ErrCopiesOutstanding)
	store.AssertNotCalled(t, "DeleteBook", mock.Anything, mock.Anything)
	store.AssertExpectations(t)
}

func TestBookService_DeleteBook_Success(t *testing.T) {
	store := &MockBookStore{}
	service := newTestBookService(store)
	ctx := context.Background()

	store.On("GetBook", ctx, int32(3)).Return(testStockedBook(5), nil)
	store.On("CountActiveLoansForBook", ctx, int32(3)).Return(int64(0), nil)
	store.On("DeleteBook", ctx, int32(3)).Return(nil)

	err := service.DeleteBook(ctx, 3)

	require.NoError(t, err)
	store.AssertExpectations(t)
}

// Returned loans keep their book_id reference forever, so the delete can
// hit the foreign key even when no copy is currently out.
func TestBookService_DeleteBook_RetainedLoanHistory(t *testing.T) {
	store := &MockBookStore{}
	service := newTestBookService(store)
	ctx := context.Background()

	store.On("GetBook", ctx, int32(3)).Return(testStockedBook(5), nil)
	store.On("CountActiveLoansForBook", ctx, int32(3)).Return(int64(0), nil)
	store.On("DeleteBook", ctx, int32(3)).Return(&pgconn.PgError{Code: "23503"})

	err := service.DeleteBook(ctx, 3)

	require.ErrorIs(t, err, ErrHasLoanHistory)
	store.AssertExpectations(t)
}

func TestBookService_SearchBooks_TotalCountsAllMatches(t *testing.T) {
	store := &MockBookStore{}
	service := newTestBookService(store)
	ctx := context.Background()

	page := []models.Book{*testStockedBook(2), *testStockedBook(1)}
	store.On("SearchBooks", ctx, "go", "", false, int32(2), int32(0)).Return(page, nil)
	store.On("CountSearchBooks", ctx, "go", "", false).Return(int64(7), nil)

	result, err := service.SearchBooks(ctx, &models.BookSearchRequest{
		Query: "go",
		Page:  1,
		Limit: 2,
	})

	require.NoError(t, err)
	assert.Len(t, result.Books, 2)
	assert.Equal(t, int64(7), result.Pagination.Total)
	assert.Equal(t, 4, result.Pagination.TotalPages)
	store.AssertExpectations(t)
}

func TestBookService_GetBook_IncludesRestockHistory(t *testing.T) {
	store := &MockBookStore{}
	service := newTestBookService(store)
	ctx := context.Background()

	history := []models.RestockEntry{
		{ID: 1, BookID: 3, Qty: 5, Action: models.RestockActionInitial},
		{ID: 2, BookID: 3, Qty: 3, Action: models.RestockActionRestock},
	}
	store.On("GetBook", ctx, int32(3)).Return(testStockedBook(2), nil)
	store.On("GetRestockHistory", ctx, int32(3)).Return(history, nil)

	resp, err := service.GetBook(ctx, 3)

	require.NoError(t, err)
	assert.Len(t, resp.RestockHistory, 2)
	assert.Equal(t, models.RestockActionInitial, resp.RestockHistory[0].Action)
	store.AssertExpectations(t)
}

func TestBookService_UpdateBook_NotFound(t *testing.T) {
	store := &MockBookStore{}
	service := newTestBookService(store)
	ctx := context.Background()

	store.On("GetBook", ctx, int32(99)).Return(nil, pgx.ErrNoRows)

	title := "New Title"
	_, err := service.UpdateBook(ctx, 99, &models.UpdateBookRequest{Title: &title})

	require.ErrorIs(t, err, ErrNotFound)
	store.AssertExpectations(t)
}
