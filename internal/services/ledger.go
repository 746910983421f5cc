package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/justsurfingit/extrajob/internal/metrics"
	"github.com/justsurfingit/extrajob/internal/models"
	"github.com/justsurfingit/extrajob/internal/syncbus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Notifier receives every newly inserted application exactly once. It must
// not block; delivery is best-effort and failures never reach the worker.
type Notifier interface {
	Enqueue(app models.Application)
}

// MyApplication is a worker's application joined with its job.
type MyApplication struct {
	ID        string      `json:"id"`
	JobID     string      `json:"job_id"`
	CreatedAt time.Time   `json:"created_at"`
	Job       *models.Job `json:"job"`
}

// Ledger records and retracts candidacies. The store's unique index on
// (job_id, worker_id) is the only uniqueness guard.
type Ledger struct {
	DB       *gorm.DB
	Bus      *syncbus.Bus
	Notifier Notifier
	Metrics  *metrics.Collector
	Logger   *slog.Logger
}

func NewLedger(db *gorm.DB, bus *syncbus.Bus, notifier Notifier, m *metrics.Collector, logger *slog.Logger) *Ledger {
	return &Ledger{DB: db, Bus: bus, Notifier: notifier, Metrics: m, Logger: logger}
}

// Apply inserts the (worker, job) application with a single insert attempt.
// An existing row resolves as success with created=false. Only a new row
// publishes a sync signal and triggers the employer notification.
func (l *Ledger) Apply(ctx context.Context, workerID, jobID string) (*models.Application, bool, error) {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return nil, false, fmt.Errorf("%w: job_id is required", ErrInvalidInput)
	}

	var app models.Application
	created := false
	err := l.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.Job{}).Where("id = ?", jobID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}

		app = models.Application{JobID: jobID, WorkerID: workerID, Status: models.ApplicationStatusApplied}
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "job_id"}, {Name: "worker_id"}},
			DoNothing: true,
		}).Create(&app)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			created = true
			return nil
		}

		app = models.Application{}
		return tx.Where("job_id = ? AND worker_id = ?", jobID, workerID).First(&app).Error
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, false, fmt.Errorf("job: %w", ErrNotFound)
		}
		return nil, false, fmt.Errorf("apply: %w", err)
	}

	if created {
		l.Bus.Publish(syncbus.ApplicationsChanged)
		l.Metrics.ApplicationCreated()
		l.Logger.Info("application created", "application_id", app.ID, "job_id", jobID, "worker_id", workerID)
		if l.Notifier != nil {
			l.Notifier.Enqueue(app)
		}
	} else {
		l.Metrics.ApplicationDuplicate()
		l.Logger.Info("application already present", "application_id", app.ID, "job_id", jobID, "worker_id", workerID)
	}
	return &app, created, nil
}

// Withdraw hard-deletes the worker's application for jobID. A missing row is
// not an error.
func (l *Ledger) Withdraw(ctx context.Context, workerID, jobID string) error {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return fmt.Errorf("%w: job_id is required", ErrInvalidInput)
	}
	res := l.DB.WithContext(ctx).
		Where("job_id = ? AND worker_id = ?", jobID, workerID).
		Delete(&models.Application{})
	if res.Error != nil {
		return fmt.Errorf("withdraw: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		l.Metrics.ApplicationWithdrawn()
		l.Logger.Info("application withdrawn", "job_id", jobID, "worker_id", workerID)
		l.Bus.Publish(syncbus.ApplicationsChanged)
	}
	return nil
}

// ListMine returns the ids of the jobs the worker has applied to, newest first.
func (l *Ledger) ListMine(ctx context.Context, workerID string) ([]string, error) {
	ids := []string{}
	err := l.DB.WithContext(ctx).Model(&models.Application{}).
		Where("worker_id = ?", workerID).
		Order("created_at DESC").
		Pluck("job_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("list applied jobs: %w", err)
	}
	return ids, nil
}

// ListMyApplications returns the worker's applications with their jobs.
func (l *Ledger) ListMyApplications(ctx context.Context, workerID string) ([]MyApplication, error) {
	var rows []models.Application
	err := l.DB.WithContext(ctx).Preload("Job").
		Where("worker_id = ?", workerID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	out := make([]MyApplication, 0, len(rows))
	for _, r := range rows {
		out = append(out, MyApplication{ID: r.ID, JobID: r.JobID, CreatedAt: r.CreatedAt, Job: r.Job})
	}
	return out, nil
}

type applicantRow struct {
	ApplicationID string
	CreatedAt     time.Time
	WorkerID      string
	Name          *string
	Surname       *string
	Phone         *string
	AvatarURL     *string
}

// ListApplicantsForJob returns the job's applicants, newest first. The job
// must belong to employerID; other employers' jobs read as not found.
func (l *Ledger) ListApplicantsForJob(ctx context.Context, employerID, jobID string) ([]models.Applicant, error) {
	db := l.DB.WithContext(ctx)

	var n int64
	if err := db.Model(&models.Job{}).Where("id = ? AND employer_id = ?", jobID, employerID).Count(&n).Error; err != nil {
		return nil, fmt.Errorf("load job: %w", err)
	}
	if n == 0 {
		return nil, fmt.Errorf("job: %w", ErrNotFound)
	}

	var rows []applicantRow
	err := db.Table("applications").
		Select("applications.id AS application_id, applications.created_at, applications.worker_id, " +
			"profiles.name, profiles.surname, profiles.phone, profiles.avatar_url").
		Joins("LEFT JOIN profiles ON profiles.user_id = applications.worker_id").
		Where("applications.job_id = ?", jobID).
		Order("applications.created_at DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list applicants: %w", err)
	}

	out := make([]models.Applicant, 0, len(rows))
	for _, r := range rows {
		a := models.Applicant{
			ApplicationID: r.ApplicationID,
			CreatedAt:     r.CreatedAt,
			WorkerID:      r.WorkerID,
			Name:          deref(r.Name),
			Surname:       deref(r.Surname),
			Phone:         deref(r.Phone),
			AvatarURL:     deref(r.AvatarURL),
		}
		digits := PhoneDigits(a.Phone)
		a.PhoneContactable = len(digits) >= 8
		if a.PhoneContactable {
			a.ContactURL = "https://wa.me/" + digits
		}
		out = append(out, a)
	}
	return out, nil
}

// PhoneDigits keeps only the ASCII digits of a phone number.
func PhoneDigits(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
