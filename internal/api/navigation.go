package api

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rongwang/bookkeeper-server/internal/models"
)

// Navigation returns the user's current navigation state
func (h *Handler) Navigation(c *gin.Context) {
	state, color, err := h.svc.Navigation(c.Request.Context(), userID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	raw, err := json.Marshal(state)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.NavigationResponse{
		Status:      "success",
		State:       raw,
		HeaderColor: color,
	})
}

// DispatchNavigation advances the navigation state by one user action
func (h *Handler) DispatchNavigation(c *gin.Context) {
	var req models.DispatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Status:  "error",
			Code:    "INVALID_REQUEST",
			Message: err.Error(),
		})
		return
	}

	state, color, err := h.svc.DispatchNavigation(c.Request.Context(), userID(c), req)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Status:  "error",
			Code:    "INVALID_ACTION",
			Message: err.Error(),
		})
		return
	}

	raw, err := json.Marshal(state)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.NavigationResponse{
		Status:      "success",
		State:       raw,
		HeaderColor: color,
	})
}
