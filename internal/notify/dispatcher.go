// Package notify delivers the employer email and in-app notice that follow a
// new application. Delivery is best-effort: nothing here can fail or undo the
// application itself.
package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"strings"

	"github.com/justsurfingit/extrajob/internal/mail"
	"github.com/justsurfingit/extrajob/internal/metrics"
	"github.com/justsurfingit/extrajob/internal/models"
	"gorm.io/gorm"
)

const (
	ReasonJobNotFound   = "job_not_found"
	ReasonMissingEmail  = "missing_employer_email"
	ReasonTransport     = "transport_error"
	ReasonStoreError    = "store_error"
	defaultEmployerName = "there"
)

// Result reports what happened to one notification.
type Result struct {
	Delivered bool   `json:"ok"`
	Reason    string `json:"reason,omitempty"`
}

var bodyTemplate = template.Must(template.New("application").Parse(
	`<div style="font-family:system-ui,-apple-system,Segoe UI,Roboto,Arial,sans-serif;line-height:1.4">
  <h2>You received a new application!</h2>
  <p>Hi {{.EmployerName}},</p>
  <p>Someone applied for:</p>
  <p><b>{{.Role}}</b></p>
  <p>Sign in to extraJob to see the details.</p>
</div>
`))

// Dispatcher resolves the employer behind a job and sends the notice
// synchronously. Use AsyncDispatcher to keep it off the request path.
type Dispatcher struct {
	DB      *gorm.DB
	Mailer  mail.Mailer
	Metrics *metrics.Collector
	Logger  *slog.Logger
}

func NewDispatcher(db *gorm.DB, mailer mail.Mailer, m *metrics.Collector, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{DB: db, Mailer: mailer, Metrics: m, Logger: logger}
}

type recipient struct {
	job   models.Job
	email string
	name  string
}

// NotifyApplication records the in-app notice for the job's employer and
// emails them. The returned error is only for logging.
func (d *Dispatcher) NotifyApplication(ctx context.Context, app models.Application) (Result, error) {
	rcpt, res, err := d.resolve(ctx, app.JobID)
	if rcpt != nil {
		if recErr := d.record(ctx, app, rcpt.job); recErr != nil {
			d.Logger.Warn("in-app notification not stored", "application_id", app.ID, "error", recErr)
		}
	}
	if err != nil {
		return d.fail(res, err)
	}
	return d.send(ctx, rcpt)
}

// NotifyJob emails the job's employer without recording an in-app notice.
func (d *Dispatcher) NotifyJob(ctx context.Context, jobID string) (Result, error) {
	rcpt, res, err := d.resolve(ctx, jobID)
	if err != nil {
		return d.fail(res, err)
	}
	return d.send(ctx, rcpt)
}

// resolve finds the job, its employer's display name and email. The contact
// email on the profile wins; the identity record's email is the fallback.
// With no email at all the recipient is still returned next to the error.
func (d *Dispatcher) resolve(ctx context.Context, jobID string) (*recipient, Result, error) {
	db := d.DB.WithContext(ctx)

	var job models.Job
	err := db.Where("id = ?", jobID).First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, Result{Reason: ReasonJobNotFound}, fmt.Errorf("job %s not found", jobID)
	}
	if err != nil {
		return nil, Result{Reason: ReasonStoreError}, fmt.Errorf("load job: %w", err)
	}

	rcpt := &recipient{job: job, name: defaultEmployerName}

	var profile models.Profile
	err = db.Where("user_id = ?", job.EmployerID).First(&profile).Error
	switch {
	case err == nil:
		rcpt.name = profile.DisplayName(defaultEmployerName)
		rcpt.email = strings.TrimSpace(profile.ContactEmail)
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, Result{Reason: ReasonStoreError}, fmt.Errorf("load employer profile: %w", err)
	}

	if rcpt.email == "" {
		var user models.User
		err = db.Where("id = ?", job.EmployerID).First(&user).Error
		switch {
		case err == nil:
			rcpt.email = strings.TrimSpace(user.Email)
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return nil, Result{Reason: ReasonStoreError}, fmt.Errorf("load employer user: %w", err)
		}
	}

	if rcpt.email == "" {
		return rcpt, Result{Reason: ReasonMissingEmail}, fmt.Errorf("employer %s has no email", job.EmployerID)
	}
	return rcpt, Result{}, nil
}

func (d *Dispatcher) send(ctx context.Context, rcpt *recipient) (Result, error) {
	msg, err := Compose(rcpt.email, rcpt.name, rcpt.job.Role)
	if err != nil {
		return d.fail(Result{Reason: ReasonTransport}, err)
	}
	accepted, err := d.Mailer.Send(ctx, msg)
	if err != nil || !accepted {
		if err == nil {
			err = errors.New("message not accepted")
		}
		return d.fail(Result{Reason: ReasonTransport}, err)
	}

	d.Metrics.NotificationSent()
	d.Logger.Info("employer notified", "job_id", rcpt.job.ID, "employer_id", rcpt.job.EmployerID)
	return Result{Delivered: true}, nil
}

func (d *Dispatcher) fail(res Result, err error) (Result, error) {
	d.Metrics.NotificationFailed(res.Reason)
	d.Logger.Warn("employer notification not delivered", "reason", res.Reason, "error", err)
	return res, err
}

func (d *Dispatcher) record(ctx context.Context, app models.Application, job models.Job) error {
	db := d.DB.WithContext(ctx)

	workerName := "Someone"
	var worker models.Profile
	if err := db.Where("user_id = ?", app.WorkerID).First(&worker).Error; err == nil {
		workerName = worker.DisplayName(workerName)
	}

	n := &models.Notification{
		UserID:        job.EmployerID,
		Kind:          models.NotificationKindApplicationCreated,
		Title:         "New application",
		Message:       fmt.Sprintf("%s applied for: %s", workerName, job.Role),
		JobID:         job.ID,
		ApplicationID: app.ID,
		WorkerID:      app.WorkerID,
	}
	return db.Create(n).Error
}

// Compose renders the fixed employer email. Role and name are HTML-escaped.
func Compose(to, employerName, role string) (mail.Message, error) {
	var body bytes.Buffer
	err := bodyTemplate.Execute(&body, struct {
		EmployerName string
		Role         string
	}{EmployerName: employerName, Role: role})
	if err != nil {
		return mail.Message{}, fmt.Errorf("render notification: %w", err)
	}
	return mail.Message{
		To:      to,
		Subject: "New application for: " + role,
		HTML:    body.String(),
	}, nil
}
