package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/justsurfingit/extrajob/internal/models"
	"github.com/justsurfingit/extrajob/internal/services"
)

// respondError maps service errors to status codes. Only sentinel messages
// reach the client; anything else is logged and reported as a generic 500.
func respondError(c *gin.Context, log *slog.Logger, err error) {
	status, reason := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
		c.AbortWithStatusJSON(status, gin.H{"error": reason})
		return
	}
	c.AbortWithStatusJSON(status, gin.H{"error": reason, "detail": err.Error()})
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_input"
	case errors.Is(err, services.ErrUnauthenticated):
		return http.StatusUnauthorized, "not_logged_in"
	case errors.Is(err, services.ErrProfileRequired):
		return http.StatusForbidden, "profile_required"
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, models.ErrInvalidRole):
		return http.StatusForbidden, "invalid_role"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func badJSON(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid_input", "detail": "Invalid JSON format: " + err.Error()})
}
