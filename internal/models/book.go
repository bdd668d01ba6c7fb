package models

import (
	"errors"
	"strings"
	"time"
)

// Book represents a title in the catalog. TotalQty counts every copy ever
// registered; Qty counts copies currently on the shelf (not checked out).
type Book struct {
	ID          int32     `json:"id" db:"id"`
	Title       string    `json:"title" db:"title"`
	Author      string    `json:"author" db:"author"`
	Category    string    `json:"category" db:"category"`
	TotalQty    int32     `json:"total_qty" db:"total_qty"`
	Qty         int32     `json:"qty" db:"qty"`
	AddedAt     time.Time `json:"added_at" db:"added_at"`
	LastUpdated time.Time `json:"last_updated" db:"last_updated"`
}

// RestockAction labels an entry in a book's restock history
type RestockAction string

const (
	RestockActionInitial RestockAction = "Initial Stock"
	RestockActionRestock RestockAction = "Restock"
)

// RestockEntry is one line of a book's stock journal. TotalQty only ever
// grows through these entries.
type RestockEntry struct {
	ID     int32         `json:"id" db:"id"`
	BookID int32         `json:"book_id" db:"book_id"`
	Date   time.Time     `json:"date" db:"date"`
	Qty    int32         `json:"qty" db:"qty"`
	Action RestockAction `json:"action" db:"action"`
}

// CreateBookRequest represents the request to register a new title
type CreateBookRequest struct {
	Title    string `json:"title" binding:"required,min=1,max=255"`
	Author   string `json:"author" binding:"required,min=1,max=255"`
	Category string `json:"category" binding:"omitempty,max=100"`
	Qty      int32  `json:"qty" binding:"required,min=1"`
}

// Validate performs validation beyond struct tags
func (r *CreateBookRequest) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return errors.New("title is required")
	}
	if strings.TrimSpace(r.Author) == "" {
		return errors.New("author is required")
	}
	if r.Qty < 1 {
		return errors.New("quantity must be at least 1")
	}
	return nil
}

// UpdateBookRequest represents the request to edit a title's details.
// Quantities are not editable here; stock changes go through restock,
// issue and return so the counters stay paired with loan records.
type UpdateBookRequest struct {
	Title    *string `json:"title" binding:"omitempty,min=1,max=255"`
	Author   *string `json:"author" binding:"omitempty,min=1,max=255"`
	Category *string `json:"category" binding:"omitempty,max=100"`
}

// RestockRequest adds copies to an existing title
type RestockRequest struct {
	Qty int32 `json:"qty" binding:"required,min=1"`
}

// BookSearchRequest represents the request to search the catalog
type BookSearchRequest struct {
	Query         string `json:"query" form:"query"`
	Category      string `json:"category" form:"category"`
	AvailableOnly bool   `json:"available_only" form:"available_only"`
	Page          int    `json:"page" form:"page,default=1" binding:"min=1"`
	Limit         int    `json:"limit" form:"limit,default=20" binding:"min=1,max=100"`
}

// BookResponse represents the response for book operations
type BookResponse struct {
	ID             int32          `json:"id"`
	Title          string         `json:"title"`
	Author         string         `json:"author"`
	Category       string         `json:"category"`
	TotalQty       int32          `json:"total_qty"`
	Qty            int32          `json:"qty"`
	Available      bool           `json:"available"`
	AddedAt        time.Time      `json:"added_at"`
	RestockHistory []RestockEntry `json:"restock_history,omitempty"`
}

// ToResponse converts a Book to a BookResponse
func (b *Book) ToResponse() BookResponse {
	return BookResponse{
		ID:        b.ID,
		Title:     b.Title,
		Author:    b.Author,
		Category:  b.Category,
		TotalQty:  b.TotalQty,
		Qty:       b.Qty,
		Available: b.Qty > 0,
		AddedAt:   b.AddedAt,
	}
}

// BookListResponse represents a paginated list of books
type BookListResponse struct {
	Books      []BookResponse `json:"books"`
	Pagination Pagination     `json:"pagination"`
}

// BookStats represents catalog statistics
type BookStats struct {
	TotalBooks      int64 `json:"total_books"`
	TotalCopies     int64 `json:"total_copies"`
	AvailableCopies int64 `json:"available_copies"`
	IssuedCopies    int64 `json:"issued_copies"`
}

// Pagination represents pagination information
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}
