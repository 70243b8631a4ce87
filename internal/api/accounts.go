package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rongwang/bookkeeper-server/internal/models"
	"github.com/rongwang/bookkeeper-server/internal/store"
)

// ListAccounts returns accounts for a book. The view query parameter selects
// top-level accounts, favorites, or the whole tree (the default).
func (h *Handler) ListAccounts(c *gin.Context) {
	uid := userID(c)
	bookID := c.Param("bookId")

	var (
		accounts []*models.Account
		err      error
	)
	switch c.Query("view") {
	case "top":
		accounts, err = h.svc.TopLevelAccounts(c.Request.Context(), uid, bookID)
	case "favorites":
		accounts, err = h.svc.FavoriteAccounts(c.Request.Context(), uid, bookID)
	case "", "all":
		accounts, err = h.svc.AllAccounts(c.Request.Context(), uid, bookID)
	default:
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Status:  "error",
			Code:    "INVALID_REQUEST",
			Message: "view must be one of top, favorites, all",
		})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.AccountListResponse{
		Status:   "success",
		Accounts: accounts,
	})
}

// ChildAccounts returns the direct children of an account
func (h *Handler) ChildAccounts(c *gin.Context) {
	accounts, err := h.svc.ChildAccounts(c.Request.Context(), userID(c), c.Param("bookId"), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.AccountListResponse{
		Status:   "success",
		Accounts: accounts,
	})
}

// CreateAccount creates a new account in a book
func (h *Handler) CreateAccount(c *gin.Context) {
	var req models.CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Status:  "error",
			Code:    "INVALID_REQUEST",
			Message: err.Error(),
		})
		return
	}

	account, err := h.svc.CreateAccount(c.Request.Context(), userID(c), c.Param("bookId"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.AccountResponse{
		Status:  "success",
		Account: account,
	})
}

// CreateDefaultAccounts seeds a book with the standard chart of accounts
func (h *Handler) CreateDefaultAccounts(c *gin.Context) {
	accounts, err := h.svc.CreateDefaultAccounts(c.Request.Context(), userID(c), c.Param("bookId"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.AccountListResponse{
		Status:   "success",
		Accounts: accounts,
	})
}

// UpdateAccount applies a field-level patch to an account
func (h *Handler) UpdateAccount(c *gin.Context) {
	var req models.UpdateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Status:  "error",
			Code:    "INVALID_REQUEST",
			Message: err.Error(),
		})
		return
	}

	account, err := h.svc.UpdateAccount(c.Request.Context(), userID(c), c.Param("bookId"), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.AccountResponse{
		Status:  "success",
		Account: account,
	})
}

// DeleteAccount removes an account and all its descendants. If the cascade
// fails partway through, the response reports which accounts were removed
// and which remain.
func (h *Handler) DeleteAccount(c *gin.Context) {
	removed, err := h.svc.DeleteAccount(c.Request.Context(), userID(c), c.Param("bookId"), c.Param("id"))
	if err != nil {
		var cascadeErr *store.PartialCascadeError
		if errors.As(err, &cascadeErr) {
			c.JSON(http.StatusConflict, models.DeleteAccountResponse{
				Status:    "error",
				Removed:   cascadeErr.Removed,
				Remaining: cascadeErr.Remaining,
			})
			return
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.DeleteAccountResponse{
		Status:  "success",
		Removed: removed,
	})
}

// DeleteAllAccounts removes every account in a book
func (h *Handler) DeleteAllAccounts(c *gin.Context) {
	if err := h.svc.DeleteAllAccounts(c.Request.Context(), userID(c), c.Param("bookId")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// ToggleFavorite flips an account's favorite flag
func (h *Handler) ToggleFavorite(c *gin.Context) {
	account, err := h.svc.ToggleFavorite(c.Request.Context(), userID(c), c.Param("bookId"), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.AccountResponse{
		Status:  "success",
		Account: account,
	})
}

// ReparentAccount moves an account under a new parent or to the top level
func (h *Handler) ReparentAccount(c *gin.Context) {
	var req models.ReparentAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Status:  "error",
			Code:    "INVALID_REQUEST",
			Message: err.Error(),
		})
		return
	}

	account, err := h.svc.ReparentAccount(c.Request.Context(), userID(c), c.Param("bookId"), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.AccountResponse{
		Status:  "success",
		Account: account,
	})
}
