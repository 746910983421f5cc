package handlers

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/justsurfingit/extrajob/internal/auth"
	"github.com/justsurfingit/extrajob/internal/models"
	"github.com/justsurfingit/extrajob/internal/services"
)

const (
	identityKey = "extrajob.identity"
	profileKey  = "extrajob.profile"
)

// Identifier is what the middleware needs from the identity provider.
type Identifier interface {
	Session(ctx context.Context, token string) (auth.Identity, error)
	Profile(ctx context.Context, userID string) (*models.Profile, error)
}

type Middleware struct {
	Auth   Identifier
	Logger *slog.Logger
}

func NewMiddleware(a Identifier, logger *slog.Logger) *Middleware {
	return &Middleware{Auth: a, Logger: logger}
}

// RequireSession resolves the bearer token. EventSource clients cannot set
// headers, so an access_token query parameter is accepted as well.
func (m *Middleware) RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimSpace(strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer "))
		if token == "" {
			token = c.Query("access_token")
		}
		id, err := m.Auth.Session(c.Request.Context(), token)
		if err != nil {
			respondError(c, m.Logger, err)
			return
		}
		c.Set(identityKey, id)
		c.Next()
	}
}

// RequireProfile blocks sessions that have not completed onboarding.
func (m *Middleware) RequireProfile() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := m.Auth.Profile(c.Request.Context(), identity(c).UserID)
		if err != nil {
			respondError(c, m.Logger, err)
			return
		}
		c.Set(profileKey, p)
		c.Next()
	}
}

// RequireRole must run after RequireProfile.
func (m *Middleware) RequireRole(role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if p := profile(c); p == nil || p.Role != role {
			respondError(c, m.Logger, services.ErrForbidden)
			return
		}
		c.Next()
	}
}

// RequestLogger logs one line per request.
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"client_ip", c.ClientIP(),
		)
	}
}

func identity(c *gin.Context) auth.Identity {
	v, _ := c.Get(identityKey)
	id, _ := v.(auth.Identity)
	return id
}

func profile(c *gin.Context) *models.Profile {
	v, _ := c.Get(profileKey)
	p, _ := v.(*models.Profile)
	return p
}
