package api

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rongwang/bookkeeper-server/internal/models"
)

// ListBooks returns all books for the authenticated user
func (h *Handler) ListBooks(c *gin.Context) {
	books, activeID, err := h.svc.ListBooks(c.Request.Context(), userID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.BookListResponse{
		Status:       "success",
		Books:        books,
		ActiveBookID: activeID,
	})
}

// CreateBook creates a new book
func (h *Handler) CreateBook(c *gin.Context) {
	var req models.CreateBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Status:  "error",
			Code:    "INVALID_REQUEST",
			Message: err.Error(),
		})
		return
	}

	book, err := h.svc.CreateBook(c.Request.Context(), userID(c), req.Name)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.BookResponse{
		Status: "success",
		Book:   book,
	})
}

// DeleteBook removes a book and everything in it. The last remaining book
// cannot be deleted.
func (h *Handler) DeleteBook(c *gin.Context) {
	if err := h.svc.DeleteBook(c.Request.Context(), userID(c), c.Param("bookId")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// ActivateBook switches the user's active book
func (h *Handler) ActivateBook(c *gin.Context) {
	if err := h.svc.ActivateBook(c.Request.Context(), userID(c), c.Param("bookId")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// ExportBook records an export of the book and returns its updated metadata
func (h *Handler) ExportBook(c *gin.Context) {
	book, err := h.svc.ExportBook(c.Request.Context(), userID(c), c.Param("bookId"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.BookResponse{
		Status: "success",
		Book:   book,
	})
}

// GetSettings returns the user's settings document
func (h *Handler) GetSettings(c *gin.Context) {
	settings, err := h.svc.GetSettings(c.Request.Context(), userID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.SettingsResponse{
		Status:   "success",
		Settings: settings,
	})
}

// PutSettings replaces the user's settings document. The body is stored
// as-is; only well-formed JSON is accepted.
func (h *Handler) PutSettings(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Status:  "error",
			Code:    "INVALID_REQUEST",
			Message: "could not read request body",
		})
		return
	}

	if err := h.svc.PutSettings(c.Request.Context(), userID(c), json.RawMessage(body)); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.SettingsResponse{
		Status:   "success",
		Settings: json.RawMessage(body),
	})
}
