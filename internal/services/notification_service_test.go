package services

import (
	"context"
	"testing"

	"github.com/justsurfingit/extrajob/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationListAndMarkRead(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	svc := NewNotificationService(e.db)

	n := models.Notification{UserID: "u1", Kind: models.NotificationKindApplicationCreated, Title: "New application"}
	require.NoError(t, e.db.Create(&n).Error)
	require.NoError(t, e.db.Create(&models.Notification{UserID: "u2", Kind: models.NotificationKindApplicationCreated}).Error)

	list, err := svc.List(ctx, "u1", 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Nil(t, list[0].ReadAt)

	assert.ErrorIs(t, svc.MarkRead(ctx, "u2", n.ID), ErrNotFound)
	require.NoError(t, svc.MarkRead(ctx, "u1", n.ID))

	list, err = svc.List(ctx, "u1", 10)
	require.NoError(t, err)
	require.NotNil(t, list[0].ReadAt)
	first := *list[0].ReadAt

	require.NoError(t, svc.MarkRead(ctx, "u1", n.ID))
	list, err = svc.List(ctx, "u1", 10)
	require.NoError(t, err)
	assert.True(t, first.Equal(*list[0].ReadAt))
}
