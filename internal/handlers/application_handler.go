package handlers

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/justsurfingit/extrajob/internal/dtos"
	"github.com/justsurfingit/extrajob/internal/services"
)

type ApplicationHandler struct {
	Ledger *services.Ledger
	Logger *slog.Logger
}

func NewApplicationHandler(l *services.Ledger, logger *slog.Logger) *ApplicationHandler {
	return &ApplicationHandler{Ledger: l, Logger: logger}
}

// Apply is POST /applications. A repeated apply answers 200 with the
// existing application instead of 201.
func (h *ApplicationHandler) Apply(c *gin.Context) {
	var req dtos.ApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badJSON(c, err)
		return
	}
	if req.JobID == "" {
		respondError(c, h.Logger, fmt.Errorf("%w: job_id is required", services.ErrInvalidInput))
		return
	}
	app, created, err := h.Ledger.Apply(c.Request.Context(), identity(c).UserID, req.JobID)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"success": true, "created": created, "application": app})
}

// Withdraw is DELETE /applications/:jobId and succeeds when nothing existed.
func (h *ApplicationHandler) Withdraw(c *gin.Context) {
	if err := h.Ledger.Withdraw(c.Request.Context(), identity(c).UserID, c.Param("jobId")); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ApplicationHandler) List(c *gin.Context) {
	apps, err := h.Ledger.ListMyApplications(c.Request.Context(), identity(c).UserID)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, apps)
}

func (h *ApplicationHandler) JobIDs(c *gin.Context) {
	ids, err := h.Ledger.ListMine(c.Request.Context(), identity(c).UserID)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"job_ids": ids})
}
