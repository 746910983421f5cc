package auth

import (
	"context"
	"testing"
	"time"

	"github.com/justsurfingit/extrajob/internal/database"
	"github.com/justsurfingit/extrajob/internal/models"
	"github.com/justsurfingit/extrajob/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndResolveSession(t *testing.T) {
	db := database.OpenTest(t)
	a := NewAuthenticator(db, time.Hour)
	ctx := context.Background()

	sess, err := a.Issue(ctx, " Worker@X.test ")
	require.NoError(t, err)
	assert.Len(t, sess.Token, 64)

	id, err := a.Session(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, "worker@x.test", id.Email)
	assert.Equal(t, sess.UserID, id.UserID)

	again, err := a.Issue(ctx, "worker@x.test")
	require.NoError(t, err)
	assert.Equal(t, sess.UserID, again.UserID, "same email maps to the same user")
	assert.NotEqual(t, sess.Token, again.Token)
}

func TestSessionRejectsUnknownAndExpired(t *testing.T) {
	db := database.OpenTest(t)
	a := NewAuthenticator(db, time.Minute)
	ctx := context.Background()

	_, err := a.Session(ctx, "")
	assert.ErrorIs(t, err, services.ErrUnauthenticated)
	_, err = a.Session(ctx, "nope")
	assert.ErrorIs(t, err, services.ErrUnauthenticated)

	sess, err := a.Issue(ctx, "w@x.test")
	require.NoError(t, err)

	a.Now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = a.Session(ctx, sess.Token)
	assert.ErrorIs(t, err, services.ErrUnauthenticated)
}

func TestIssueRequiresEmail(t *testing.T) {
	a := NewAuthenticator(database.OpenTest(t), time.Hour)
	_, err := a.Issue(context.Background(), "  ")
	assert.ErrorIs(t, err, services.ErrInvalidInput)
}

func TestProfileLookup(t *testing.T) {
	db := database.OpenTest(t)
	a := NewAuthenticator(db, time.Hour)
	ctx := context.Background()

	sess, err := a.Issue(ctx, "e@x.test")
	require.NoError(t, err)

	_, err = a.Profile(ctx, sess.UserID)
	assert.ErrorIs(t, err, services.ErrProfileRequired)

	require.NoError(t, db.Create(&models.Profile{UserID: sess.UserID, Role: models.RoleEmployer}).Error)
	p, err := a.Profile(ctx, sess.UserID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleEmployer, p.Role)

	require.NoError(t, db.Exec("UPDATE profiles SET role = ? WHERE user_id = ?", "admin", sess.UserID).Error)
	_, err = a.Profile(ctx, sess.UserID)
	assert.ErrorIs(t, err, models.ErrInvalidRole)
}
