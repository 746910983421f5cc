package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/justsurfingit/extrajob/internal/dtos"
	"github.com/justsurfingit/extrajob/internal/services"
)

type JobHandler struct {
	JobService *services.JobService
	Ledger     *services.Ledger
	Logger     *slog.Logger
}

// NewJobHandler creates the handler with dependencies
func NewJobHandler(j *services.JobService, l *services.Ledger, logger *slog.Logger) *JobHandler {
	return &JobHandler{JobService: j, Ledger: l, Logger: logger}
}

// CreateJob is POST /jobs
func (h *JobHandler) CreateJob(c *gin.Context) {
	var req dtos.JobCreationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badJSON(c, err)
		return
	}
	job, err := h.JobService.CreateJob(c.Request.Context(), identity(c).UserID, &req)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, job)
}

// ListFeed is GET /jobs?q=
func (h *JobHandler) ListFeed(c *gin.Context) {
	jobs, err := h.JobService.ListFeed(c.Request.Context(), c.Query("q"))
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, jobs)
}

func (h *JobHandler) GetJob(c *gin.Context) {
	job, err := h.JobService.GetJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

// ListMine is GET /employer/jobs
func (h *JobHandler) ListMine(c *gin.Context) {
	jobs, err := h.JobService.ListForEmployer(c.Request.Context(), identity(c).UserID)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, jobs)
}

// Applicants is GET /jobs/:id/applicants. Jobs of other employers read as 404.
func (h *JobHandler) Applicants(c *gin.Context) {
	list, err := h.Ledger.ListApplicantsForJob(c.Request.Context(), identity(c).UserID, c.Param("id"))
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, list)
}
