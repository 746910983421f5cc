package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ApplicationStatusApplied is the only status an Application row carries.
// Absence of a row means "not applied".
const ApplicationStatusApplied = "applied"

// NotificationKindApplicationCreated marks an in-app notice about a new candidacy.
const NotificationKindApplicationCreated = "application.created"

func newID() string { return uuid.NewString() }

// User is the identity-provider record. The email lives here, not on the profile.
type User struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	Email string `gorm:"uniqueIndex;not null" json:"email"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == "" {
		u.ID = newID()
	}
	return nil
}

// Session maps an opaque bearer token to a user.
type Session struct {
	Token     string    `gorm:"type:varchar(64);primaryKey" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `gorm:"index" json:"expires_at"`

	UserID string `gorm:"type:varchar(36);not null;index" json:"user_id"`
	User   User   `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

type Profile struct {
	UserID    string    `gorm:"type:varchar(36);primaryKey" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Role         Role   `gorm:"type:varchar(16);not null" json:"role"`
	Name         string `json:"name"`
	Surname      string `json:"surname"`
	Phone        string `json:"phone"`
	AvatarURL    string `json:"avatar_url"`
	ContactEmail string `json:"contact_email"`
}

// DisplayName joins name and surname, falling back when both are empty.
func (p *Profile) DisplayName(fallback string) string {
	name := p.Name
	if p.Surname != "" {
		if name != "" {
			name += " "
		}
		name += p.Surname
	}
	if name == "" {
		return fallback
	}
	return name
}

type Business struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`

	// The partial unique index allows at most one default per owner.
	OwnerID   string `gorm:"type:varchar(36);not null;index;uniqueIndex:idx_businesses_one_default,where:is_default = true" json:"owner_id"`
	Name      string `gorm:"not null" json:"name"`
	Type      string `json:"type,omitempty"`
	Address   string `gorm:"not null" json:"address"`
	IsDefault bool   `gorm:"not null;default:false" json:"is_default"`
}

func (b *Business) BeforeCreate(*gorm.DB) error {
	if b.ID == "" {
		b.ID = newID()
	}
	return nil
}

type Job struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`

	EmployerID string    `gorm:"type:varchar(36);not null;index;<-:create" json:"employer_id"`
	Role       string    `gorm:"not null" json:"role"`
	Location   string    `gorm:"not null" json:"location"`
	Pay        string    `gorm:"not null" json:"pay"`
	StartDate  time.Time `gorm:"not null" json:"start_date"`
	EndDate    time.Time `gorm:"not null" json:"end_date"`

	// Business snapshot taken at creation; never follows later edits.
	BusinessID      *string `gorm:"type:varchar(36);<-:create" json:"business_id,omitempty"`
	BusinessName    string  `gorm:"<-:create" json:"business_name,omitempty"`
	BusinessType    string  `gorm:"<-:create" json:"business_type,omitempty"`
	BusinessAddress string  `gorm:"<-:create" json:"business_address,omitempty"`
}

func (j *Job) BeforeCreate(*gorm.DB) error {
	if j.ID == "" {
		j.ID = newID()
	}
	return nil
}

// Application is one (worker, job) candidacy. The composite unique index is
// what makes apply idempotent.
type Application struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`

	JobID    string `gorm:"type:varchar(36);not null;uniqueIndex:idx_applications_job_worker" json:"job_id"`
	WorkerID string `gorm:"type:varchar(36);not null;uniqueIndex:idx_applications_job_worker;index" json:"worker_id"`
	Status   string `gorm:"type:varchar(16);not null;default:'applied'" json:"status"`

	Job *Job `gorm:"foreignKey:JobID;constraint:OnDelete:CASCADE" json:"job,omitempty"`
}

func (a *Application) BeforeCreate(*gorm.DB) error {
	if a.ID == "" {
		a.ID = newID()
	}
	if a.Status == "" {
		a.Status = ApplicationStatusApplied
	}
	return nil
}

// Applicant is the employer-facing join of an Application with the worker's
// contact fields. It is never stored.
type Applicant struct {
	ApplicationID    string    `json:"application_id"`
	CreatedAt        time.Time `json:"created_at"`
	WorkerID         string    `json:"worker_id"`
	Name             string    `json:"name"`
	Surname          string    `json:"surname"`
	Phone            string    `json:"phone"`
	AvatarURL        string    `json:"avatar_url"`
	PhoneContactable bool      `json:"phone_contactable"`
	ContactURL       string    `json:"contact_url,omitempty"`
}

// Notification is an in-app notice addressed to one user.
type Notification struct {
	ID        string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	CreatedAt time.Time  `gorm:"index" json:"created_at"`
	ReadAt    *time.Time `json:"read_at,omitempty"`

	UserID        string `gorm:"type:varchar(36);not null;index" json:"user_id"`
	Kind          string `gorm:"type:varchar(32);not null" json:"kind"`
	Title         string `json:"title"`
	Message       string `gorm:"type:text" json:"message"`
	JobID         string `gorm:"type:varchar(36)" json:"job_id,omitempty"`
	ApplicationID string `gorm:"type:varchar(36)" json:"application_id,omitempty"`
	WorkerID      string `gorm:"type:varchar(36)" json:"worker_id,omitempty"`
}

func (n *Notification) BeforeCreate(*gorm.DB) error {
	if n.ID == "" {
		n.ID = newID()
	}
	return nil
}

// All lists every model for AutoMigrate.
func All() []any {
	return []any{
		&User{}, &Session{}, &Profile{}, &Business{}, &Job{}, &Application{}, &Notification{},
	}
}
