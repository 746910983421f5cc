package services

import (
	"context"
	"testing"

	"github.com/justsurfingit/extrajob/internal/dtos"
	"github.com/justsurfingit/extrajob/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func str(s string) *string { return &s }

func TestEnsureProfile(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	svc := NewProfileService(e.db)
	u := models.User{Email: "w@x.test"}
	require.NoError(t, e.db.Create(&u).Error)

	_, err := svc.GetProfile(ctx, u.ID)
	assert.ErrorIs(t, err, ErrProfileRequired)

	_, err = svc.EnsureProfile(ctx, u.ID, &dtos.ProfileRequest{Role: "admin"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	p, err := svc.EnsureProfile(ctx, u.ID, &dtos.ProfileRequest{Role: "worker", Name: str(" Ada "), Phone: str("+39 333 1234567")})
	require.NoError(t, err)
	assert.Equal(t, models.RoleWorker, p.Role)
	assert.Equal(t, "Ada", p.Name)

	p, err = svc.EnsureProfile(ctx, u.ID, &dtos.ProfileRequest{Surname: str("Byron")})
	require.NoError(t, err)
	assert.Equal(t, "Ada", p.Name, "nil fields are left untouched")
	assert.Equal(t, "Byron", p.Surname)

	_, err = svc.EnsureProfile(ctx, u.ID, &dtos.ProfileRequest{Role: "employer"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	got, err := svc.GetProfile(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleWorker, got.Role)
	assert.Equal(t, "Ada Byron", got.DisplayName("x"))
}
