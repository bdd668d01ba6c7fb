package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ktanui/circulate/internal/models"
	"github.com/ktanui/circulate/internal/services"
)

// BookHandler handles catalog HTTP requests
type BookHandler struct {
	books *services.BookService
}

func NewBookHandler(books *services.BookService) *BookHandler {
	return &BookHandler{books: books}
}

// AddBook handles POST /admin/books. Adding an existing (title, author)
// pair restocks it; the response message says which happened.
func (h *BookHandler) AddBook(c *gin.Context) {
	var req models.CreateBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	result, err := h.books.AddBook(c.Request.Context(), &req)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	if result.Restocked {
		respondSuccess(c, http.StatusOK, result.Book.ToResponse(), "Existing title restocked")
		return
	}
	respondSuccess(c, http.StatusCreated, result.Book.ToResponse(), "Book added")
}

// GetBook handles GET /books/:id
func (h *BookHandler) GetBook(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		return
	}

	book, err := h.books.GetBook(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, book, "")
}

// ListBooks handles GET /books
func (h *BookHandler) ListBooks(c *gin.Context) {
	var search models.BookSearchRequest
	if err := c.ShouldBindQuery(&search); err != nil {
		respondValidationError(c, err)
		return
	}

	if search.Query != "" || search.Category != "" || search.AvailableOnly {
		resp, err := h.books.SearchBooks(c.Request.Context(), &search)
		if err != nil {
			respondServiceError(c, err)
			return
		}
		respondSuccess(c, http.StatusOK, resp, "")
		return
	}

	resp, err := h.books.ListBooks(c.Request.Context(), search.Page, search.Limit)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, resp, "")
}

// UpdateBook handles PATCH /admin/books/:id
func (h *BookHandler) UpdateBook(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		return
	}

	var req models.UpdateBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	book, err := h.books.UpdateBook(c.Request.Context(), id, &req)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, book.ToResponse(), "Book updated")
}

// RestockBook handles POST /admin/books/:id/restock
func (h *BookHandler) RestockBook(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		return
	}

	var req models.RestockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	book, err := h.books.RestockBook(c.Request.Context(), id, &req)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, book.ToResponse(), "Book restocked")
}

// DeleteBook handles DELETE /admin/books/:id
func (h *BookHandler) DeleteBook(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		return
	}

	if err := h.books.DeleteBook(c.Request.Context(), id); err != nil {
		respondServiceError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, nil, "Book deleted")
}

// Stats handles GET /admin/books/stats
func (h *BookHandler) Stats(c *gin.Context) {
	stats, err := h.books.GetStats(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, stats, "")
}
