package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/justsurfingit/extrajob/internal/models"
	"github.com/justsurfingit/extrajob/internal/services"
	"gorm.io/gorm"
)

// Identity is what a valid session resolves to.
type Identity struct {
	UserID string
	Email  string
}

// Authenticator resolves bearer tokens and profiles against the identity
// tables. Issuing sessions stands in for the external identity provider.
type Authenticator struct {
	DB  *gorm.DB
	TTL time.Duration
	Now func() time.Time
}

func NewAuthenticator(db *gorm.DB, ttl time.Duration) *Authenticator {
	return &Authenticator{DB: db, TTL: ttl, Now: time.Now}
}

// Session looks up a live session by token.
func (a *Authenticator) Session(ctx context.Context, token string) (Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Identity{}, services.ErrUnauthenticated
	}
	var sess models.Session
	err := a.DB.WithContext(ctx).Preload("User").Where("token = ?", token).First(&sess).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Identity{}, services.ErrUnauthenticated
	}
	if err != nil {
		return Identity{}, fmt.Errorf("load session: %w", err)
	}
	if !a.Now().Before(sess.ExpiresAt) {
		return Identity{}, services.ErrUnauthenticated
	}
	return Identity{UserID: sess.UserID, Email: sess.User.Email}, nil
}

// Profile returns the user's profile, or ErrProfileRequired when none exists.
// A stored role outside the closed set surfaces as models.ErrInvalidRole.
func (a *Authenticator) Profile(ctx context.Context, userID string) (*models.Profile, error) {
	var p models.Profile
	err := a.DB.WithContext(ctx).Where("user_id = ?", userID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, services.ErrProfileRequired
	}
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	return &p, nil
}

// Issue creates the user if needed and returns a fresh session.
func (a *Authenticator) Issue(ctx context.Context, email string) (*models.Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", services.ErrInvalidInput)
	}

	token, err := newToken()
	if err != nil {
		return nil, err
	}

	var sess *models.Session
	err = a.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Where(models.User{Email: email}).FirstOrCreate(&user).Error; err != nil {
			return err
		}
		sess = &models.Session{
			Token:     token,
			UserID:    user.ID,
			ExpiresAt: a.Now().Add(a.TTL),
			User:      user,
		}
		return tx.Omit("User").Create(sess).Error
	})
	if err != nil {
		return nil, fmt.Errorf("issue session: %w", err)
	}
	return sess, nil
}

func newToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
