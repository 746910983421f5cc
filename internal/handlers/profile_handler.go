package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/justsurfingit/extrajob/internal/dtos"
	"github.com/justsurfingit/extrajob/internal/services"
)

type ProfileHandler struct {
	ProfileService *services.ProfileService
	Logger         *slog.Logger
}

func NewProfileHandler(p *services.ProfileService, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{ProfileService: p, Logger: logger}
}

// Me returns the session identity and, once onboarding is done, the profile.
func (h *ProfileHandler) Me(c *gin.Context) {
	id := identity(c)
	p, err := h.ProfileService.GetProfile(c.Request.Context(), id.UserID)
	switch {
	case errors.Is(err, services.ErrProfileRequired):
		p = nil
	case err != nil:
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": id.UserID, "email": id.Email, "profile": p})
}

func (h *ProfileHandler) Update(c *gin.Context) {
	var req dtos.ProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badJSON(c, err)
		return
	}
	p, err := h.ProfileService.EnsureProfile(c.Request.Context(), identity(c).UserID, &req)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, p)
}
