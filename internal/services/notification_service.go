package services

import (
	"context"
	"fmt"
	"time"

	"github.com/justsurfingit/extrajob/internal/models"
	"gorm.io/gorm"
)

// NotificationService reads and acknowledges in-app notifications.
type NotificationService struct {
	DB *gorm.DB
}

func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{DB: db}
}

// List returns the user's notifications, newest first, capped at limit.
func (s *NotificationService) List(ctx context.Context, userID string, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	out := []models.Notification{}
	err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return out, nil
}

// MarkRead stamps a notification as read. Re-marking keeps the first stamp.
func (s *NotificationService) MarkRead(ctx context.Context, userID, id string) error {
	db := s.DB.WithContext(ctx)
	var n int64
	if err := db.Model(&models.Notification{}).Where("id = ? AND user_id = ?", id, userID).Count(&n).Error; err != nil {
		return fmt.Errorf("load notification: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("notification: %w", ErrNotFound)
	}
	err := db.Model(&models.Notification{}).
		Where("id = ? AND user_id = ? AND read_at IS NULL", id, userID).
		Update("read_at", time.Now().UTC()).Error
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	return nil
}
