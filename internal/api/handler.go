package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rongwang/bookkeeper-server/internal/models"
	"github.com/rongwang/bookkeeper-server/internal/service"
	"github.com/rongwang/bookkeeper-server/internal/store"
)

// Handler holds the service and implements the HTTP handlers
type Handler struct {
	svc service.Service
}

// NewHandler creates a new API handler
func NewHandler(svc service.Service) *Handler {
	return &Handler{svc: svc}
}

// SetupRoutes registers all API routes on the router
func (h *Handler) SetupRoutes(router *gin.Engine) {
	// Public routes
	auth := router.Group("/api/auth")
	{
		auth.POST("/signup", h.SignUp)
		auth.POST("/login", h.Login)
	}

	// Protected routes
	api := router.Group("/api")
	api.Use(AuthMiddleware())
	{
		api.GET("/books", h.ListBooks)
		api.POST("/books", h.CreateBook)
		api.DELETE("/books/:bookId", h.DeleteBook)
		api.POST("/books/:bookId/activate", h.ActivateBook)
		api.POST("/books/:bookId/export", h.ExportBook)

		api.GET("/books/:bookId/accounts", h.ListAccounts)
		api.POST("/books/:bookId/accounts", h.CreateAccount)
		api.DELETE("/books/:bookId/accounts", h.DeleteAllAccounts)
		api.POST("/books/:bookId/accounts/defaults", h.CreateDefaultAccounts)
		api.GET("/books/:bookId/accounts/:id/children", h.ChildAccounts)
		api.PUT("/books/:bookId/accounts/:id", h.UpdateAccount)
		api.DELETE("/books/:bookId/accounts/:id", h.DeleteAccount)
		api.POST("/books/:bookId/accounts/:id/favorite", h.ToggleFavorite)
		api.POST("/books/:bookId/accounts/:id/reparent", h.ReparentAccount)

		api.GET("/settings", h.GetSettings)
		api.PUT("/settings", h.PutSettings)

		api.GET("/navigation", h.Navigation)
		api.POST("/navigation/dispatch", h.DispatchNavigation)
	}
}

// userID extracts the authenticated user id set by AuthMiddleware.
func userID(c *gin.Context) string {
	return c.MustGet("userId").(string)
}

// respondError maps engine and service errors to HTTP status codes.
func respondError(c *gin.Context, err error) {
	var (
		validationErr *store.ValidationError
		notFoundErr   *store.NotFoundError
		cycleErr      *store.CycleError
		cascadeErr    *store.PartialCascadeError
		persistErr    *store.PersistenceError
	)

	switch {
	case errors.As(err, &cascadeErr):
		c.JSON(http.StatusConflict, models.DeleteAccountResponse{
			Status:    "error",
			Removed:   cascadeErr.Removed,
			Remaining: cascadeErr.Remaining,
		})
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Status:  "error",
			Code:    "VALIDATION_ERROR",
			Message: err.Error(),
		})
	case errors.As(err, &cycleErr):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Status:  "error",
			Code:    "CYCLE_ERROR",
			Message: err.Error(),
		})
	case errors.As(err, &notFoundErr):
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Status:  "error",
			Code:    "NOT_FOUND",
			Message: err.Error(),
		})
	case errors.Is(err, service.ErrBookNotFound), errors.Is(err, service.ErrNotOwner):
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Status:  "error",
			Code:    "BOOK_NOT_FOUND",
			Message: "Book not found",
		})
	case errors.Is(err, service.ErrLastBook):
		c.JSON(http.StatusConflict, models.ErrorResponse{
			Status:  "error",
			Code:    "LAST_BOOK",
			Message: err.Error(),
		})
	case errors.As(err, &persistErr):
		c.JSON(http.StatusBadGateway, models.ErrorResponse{
			Status:  "error",
			Code:    "PERSISTENCE_ERROR",
			Message: err.Error(),
		})
	default:
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Status:  "error",
			Code:    "INTERNAL_ERROR",
			Message: err.Error(),
		})
	}
}

// SignUp handles user registration
func (h *Handler) SignUp(c *gin.Context) {
	var req models.SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Status:  "error",
			Code:    "INVALID_REQUEST",
			Message: err.Error(),
		})
		return
	}

	resp, err := h.svc.SignUp(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrEmailTaken) {
			c.JSON(http.StatusConflict, models.ErrorResponse{
				Status:  "error",
				Code:    "EMAIL_TAKEN",
				Message: err.Error(),
			})
			return
		}
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Status:  "error",
			Code:    "SIGNUP_FAILED",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// Login handles user authentication
func (h *Handler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Status:  "error",
			Code:    "INVALID_REQUEST",
			Message: err.Error(),
		})
		return
	}

	resp, err := h.svc.Login(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{
			Status:  "error",
			Code:    "LOGIN_FAILED",
			Message: "Invalid email or password",
		})
		return
	}

	c.JSON(http.StatusOK, resp)
}
