package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/justsurfingit/extrajob/internal/dtos"
	"github.com/justsurfingit/extrajob/internal/models"
	"gorm.io/gorm"
)

type ProfileService struct {
	DB *gorm.DB
}

func NewProfileService(db *gorm.DB) *ProfileService {
	return &ProfileService{DB: db}
}

func (s *ProfileService) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	var p models.Profile
	err := s.DB.WithContext(ctx).Where("user_id = ?", userID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProfileRequired
	}
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	return &p, nil
}

// EnsureProfile creates the profile on first call and updates the provided
// fields afterwards. The role is fixed at creation.
func (s *ProfileService) EnsureProfile(ctx context.Context, userID string, req *dtos.ProfileRequest) (*models.Profile, error) {
	var out models.Profile
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("user_id = ?", userID).First(&out).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			role, err := models.ParseRole(strings.TrimSpace(req.Role))
			if err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidInput, err)
			}
			out = models.Profile{UserID: userID, Role: role}
			applyProfileFields(&out, req)
			return tx.Create(&out).Error
		case err != nil:
			return err
		}

		if req.Role != "" && req.Role != out.Role.String() {
			return fmt.Errorf("%w: role cannot be changed", ErrInvalidInput)
		}
		applyProfileFields(&out, req)
		return tx.Model(&out).Select("name", "surname", "phone", "avatar_url", "contact_email").Updates(&out).Error
	})
	if err != nil {
		if errors.Is(err, ErrInvalidInput) {
			return nil, err
		}
		return nil, fmt.Errorf("save profile: %w", err)
	}
	return &out, nil
}

func applyProfileFields(p *models.Profile, req *dtos.ProfileRequest) {
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = strings.TrimSpace(*v)
		}
	}
	set(&p.Name, req.Name)
	set(&p.Surname, req.Surname)
	set(&p.Phone, req.Phone)
	set(&p.AvatarURL, req.AvatarURL)
	set(&p.ContactEmail, req.ContactEmail)
}
