package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/justsurfingit/extrajob/internal/dtos"
	"github.com/justsurfingit/extrajob/internal/models"
	"github.com/justsurfingit/extrajob/internal/syncbus"
	"gorm.io/gorm"
)

type JobService struct {
	DB     *gorm.DB
	Bus    *syncbus.Bus
	Logger *slog.Logger
}

func NewJobService(db *gorm.DB, bus *syncbus.Bus, logger *slog.Logger) *JobService {
	return &JobService{DB: db, Bus: bus, Logger: logger}
}

// CreateJob stores a job owned by employerID. When a business is named, its
// current fields are copied onto the job and never refreshed afterwards.
func (s *JobService) CreateJob(ctx context.Context, employerID string, req *dtos.JobCreationRequest) (*models.Job, error) {
	job := &models.Job{
		EmployerID: employerID,
		Role:       strings.TrimSpace(req.Role),
		Location:   strings.TrimSpace(req.Location),
		Pay:        strings.TrimSpace(req.Pay),
		StartDate:  req.StartDate.UTC(),
		EndDate:    req.EndDate.UTC(),
	}
	if job.Role == "" || job.Location == "" || job.Pay == "" {
		return nil, fmt.Errorf("%w: role, location and pay are required", ErrInvalidInput)
	}
	if job.StartDate.IsZero() || job.EndDate.IsZero() {
		return nil, fmt.Errorf("%w: start and end dates are required", ErrInvalidInput)
	}
	if !job.EndDate.After(job.StartDate) {
		return nil, fmt.Errorf("%w: end date must be after start date", ErrInvalidInput)
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if id := strings.TrimSpace(req.BusinessID); id != "" {
			var b models.Business
			err := tx.Where("id = ? AND owner_id = ?", id, employerID).First(&b).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			if err != nil {
				return err
			}
			job.BusinessID = &b.ID
			job.BusinessName = b.Name
			job.BusinessType = b.Type
			job.BusinessAddress = b.Address
		}
		return tx.Create(job).Error
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("business: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("create job: %w", err)
	}

	s.Logger.Info("job created", "job_id", job.ID, "employer_id", employerID)
	s.Bus.Publish(syncbus.JobsChanged)
	return job, nil
}

func (s *JobService) GetJob(ctx context.Context, id string) (*models.Job, error) {
	var job models.Job
	err := s.DB.WithContext(ctx).Where("id = ?", id).First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("job: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load job: %w", err)
	}
	return &job, nil
}

// ListFeed returns every job, newest first, optionally filtered by a
// case-insensitive match on role, location or business name.
func (s *JobService) ListFeed(ctx context.Context, query string) ([]models.Job, error) {
	q := s.DB.WithContext(ctx).Order("created_at DESC")
	if query = strings.ToLower(strings.TrimSpace(query)); query != "" {
		like := "%" + escapeLike(query) + "%"
		q = q.Where(
			"LOWER(role) LIKE ? ESCAPE '\\' OR LOWER(location) LIKE ? ESCAPE '\\' OR LOWER(business_name) LIKE ? ESCAPE '\\'",
			like, like, like,
		)
	}
	var jobs []models.Job
	if err := q.Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return jobs, nil
}

func (s *JobService) ListForEmployer(ctx context.Context, employerID string) ([]models.Job, error) {
	var jobs []models.Job
	err := s.DB.WithContext(ctx).Where("employer_id = ?", employerID).Order("created_at DESC").Find(&jobs).Error
	if err != nil {
		return nil, fmt.Errorf("list employer jobs: %w", err)
	}
	return jobs, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
