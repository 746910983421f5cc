package dtos

import "time"

type JobCreationRequest struct {
	Role      string    `json:"role" binding:"required"`
	Location  string    `json:"location" binding:"required"`
	Pay       string    `json:"pay" binding:"required"`
	StartDate time.Time `json:"start_date" binding:"required"`
	EndDate   time.Time `json:"end_date" binding:"required"`

	// Optional: snapshot this business onto the job.
	BusinessID string `json:"business_id"`
}

type BusinessCreationRequest struct {
	Name    string `json:"name" binding:"required"`
	Type    string `json:"type"`
	Address string `json:"address" binding:"required"`
}

type ApplicationRequest struct {
	JobID string `json:"job_id"`
}

// ProfileRequest upserts the caller's profile. Role is required the first
// time and may not change afterwards; nil fields are left untouched.
type ProfileRequest struct {
	Role         string  `json:"role"`
	Name         *string `json:"name"`
	Surname      *string `json:"surname"`
	Phone        *string `json:"phone"`
	AvatarURL    *string `json:"avatar_url"`
	ContactEmail *string `json:"contact_email"`
}
