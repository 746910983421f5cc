package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/justsurfingit/extrajob/internal/dtos"
	"github.com/justsurfingit/extrajob/internal/models"
	"gorm.io/gorm"
)

// BusinessService manages an employer's businesses. At most one business per
// owner is the default at any time.
type BusinessService struct {
	DB     *gorm.DB
	Logger *slog.Logger
}

func NewBusinessService(db *gorm.DB, logger *slog.Logger) *BusinessService {
	return &BusinessService{DB: db, Logger: logger}
}

// List returns the owner's businesses, newest first.
func (s *BusinessService) List(ctx context.Context, ownerID string) ([]models.Business, error) {
	return listBusinesses(s.DB.WithContext(ctx), ownerID)
}

// Create stores a business. The owner's first business becomes the default.
// The insert and the promotion are separate statements; when two creates race,
// the unique default index lets only one of them win the promotion.
func (s *BusinessService) Create(ctx context.Context, ownerID string, req *dtos.BusinessCreationRequest) (*models.Business, error) {
	b := &models.Business{
		OwnerID: ownerID,
		Name:    strings.TrimSpace(req.Name),
		Type:    strings.TrimSpace(req.Type),
		Address: strings.TrimSpace(req.Address),
	}
	if b.Name == "" || b.Address == "" {
		return nil, fmt.Errorf("%w: name and address are required", ErrInvalidInput)
	}

	db := s.DB.WithContext(ctx)
	if err := db.Create(b).Error; err != nil {
		return nil, fmt.Errorf("create business: %w", err)
	}

	hasDefault := db.Model(&models.Business{}).Select("1").
		Where("owner_id = ? AND is_default = ?", ownerID, true)
	res := db.Model(&models.Business{}).
		Where("id = ? AND NOT EXISTS (?)", b.ID, hasDefault).
		Update("is_default", true)
	switch {
	case errors.Is(res.Error, gorm.ErrDuplicatedKey):
		// Another business of this owner became the default first.
	case res.Error != nil:
		return nil, fmt.Errorf("promote business to default: %w", res.Error)
	default:
		b.IsDefault = res.RowsAffected == 1
	}

	s.Logger.Info("business created", "business_id", b.ID, "owner_id", ownerID, "default", b.IsDefault)
	return b, nil
}

// SetDefault makes id the owner's only default. Clearing and setting share one
// transaction, so readers see either the old default or the new one.
func (s *BusinessService) SetDefault(ctx context.Context, ownerID, id string) ([]models.Business, error) {
	var out []models.Business
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureOwnedBusiness(tx, ownerID, id); err != nil {
			return err
		}
		if err := tx.Model(&models.Business{}).
			Where("owner_id = ?", ownerID).
			Update("is_default", false).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Business{}).
			Where("id = ? AND owner_id = ?", id, ownerID).
			Update("is_default", true).Error; err != nil {
			return err
		}
		var err error
		out, err = listBusinesses(tx, ownerID)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("business: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("set default business: %w", err)
	}
	return out, nil
}

// Delete removes a business. If it was the default, the most recently created
// remaining business is promoted; with none left there is no default.
func (s *BusinessService) Delete(ctx context.Context, ownerID, id string) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var b models.Business
		err := tx.Where("id = ? AND owner_id = ?", id, ownerID).First(&b).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if err := tx.Delete(&b).Error; err != nil {
			return err
		}
		if !b.IsDefault {
			return nil
		}

		var next models.Business
		err = tx.Where("owner_id = ?", ownerID).Order("created_at DESC").First(&next).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return tx.Model(&next).Update("is_default", true).Error
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("business: %w", ErrNotFound)
		}
		return fmt.Errorf("delete business: %w", err)
	}
	s.Logger.Info("business deleted", "business_id", id, "owner_id", ownerID)
	return nil
}

func ensureOwnedBusiness(tx *gorm.DB, ownerID, id string) error {
	var n int64
	if err := tx.Model(&models.Business{}).Where("id = ? AND owner_id = ?", id, ownerID).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func listBusinesses(db *gorm.DB, ownerID string) ([]models.Business, error) {
	var out []models.Business
	if err := db.Where("owner_id = ?", ownerID).Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list businesses: %w", err)
	}
	return out, nil
}
