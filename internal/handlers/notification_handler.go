package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/justsurfingit/extrajob/internal/dtos"
	"github.com/justsurfingit/extrajob/internal/notify"
	"github.com/justsurfingit/extrajob/internal/services"
)

// JobNotifier re-sends the employer email for a job.
type JobNotifier interface {
	NotifyJob(ctx context.Context, jobID string) (notify.Result, error)
}

type NotificationHandler struct {
	Notifications *services.NotificationService
	JobService    *services.JobService
	Notifier      JobNotifier
	Logger        *slog.Logger
}

func NewNotificationHandler(n *services.NotificationService, j *services.JobService, notifier JobNotifier, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{Notifications: n, JobService: j, Notifier: notifier, Logger: logger}
}

// List is GET /notifications?limit=
func (h *NotificationHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	list, err := h.Notifications.List(c.Request.Context(), identity(c).UserID, limit)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	if err := h.Notifications.MarkRead(c.Request.Context(), identity(c).UserID, c.Param("id")); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Resend is POST /notifications/application. Only the caller's own jobs can
// be targeted. The body is always {ok, reason}; a missing employer email is a
// 400 and a transport failure a 502.
func (h *NotificationHandler) Resend(c *gin.Context) {
	var req dtos.ApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badJSON(c, err)
		return
	}
	if req.JobID == "" {
		respondError(c, h.Logger, fmt.Errorf("%w: job_id is required", services.ErrInvalidInput))
		return
	}
	job, err := h.JobService.GetJob(c.Request.Context(), req.JobID)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	if job.EmployerID != identity(c).UserID {
		respondError(c, h.Logger, fmt.Errorf("job: %w", services.ErrNotFound))
		return
	}

	res, err := h.Notifier.NotifyJob(c.Request.Context(), job.ID)
	if err != nil {
		h.Logger.Warn("notification resend failed", "job_id", job.ID, "reason", res.Reason, "error", err)
	}
	c.JSON(resendStatus(res), res)
}

func resendStatus(res notify.Result) int {
	if res.Delivered {
		return http.StatusOK
	}
	switch res.Reason {
	case notify.ReasonMissingEmail:
		return http.StatusBadRequest
	case notify.ReasonJobNotFound:
		return http.StatusNotFound
	case notify.ReasonTransport:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
