package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/justsurfingit/extrajob/internal/dtos"
	"github.com/justsurfingit/extrajob/internal/services"
)

type BusinessHandler struct {
	BusinessService *services.BusinessService
	Logger          *slog.Logger
}

func NewBusinessHandler(b *services.BusinessService, logger *slog.Logger) *BusinessHandler {
	return &BusinessHandler{BusinessService: b, Logger: logger}
}

func (h *BusinessHandler) List(c *gin.Context) {
	list, err := h.BusinessService.List(c.Request.Context(), identity(c).UserID)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *BusinessHandler) Create(c *gin.Context) {
	var req dtos.BusinessCreationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badJSON(c, err)
		return
	}
	b, err := h.BusinessService.Create(c.Request.Context(), identity(c).UserID, &req)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

// SetDefault answers with the full list so the client sees the flag move.
func (h *BusinessHandler) SetDefault(c *gin.Context) {
	list, err := h.BusinessService.SetDefault(c.Request.Context(), identity(c).UserID, c.Param("id"))
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *BusinessHandler) Delete(c *gin.Context) {
	if err := h.BusinessService.Delete(c.Request.Context(), identity(c).UserID, c.Param("id")); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}
