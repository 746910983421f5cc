// Package client talks to an extraJob server over its HTTP API.
//
// Usage:
//
//	c := client.New("http://localhost:8080", client.WithToken(token))
//
//	created, err := c.Apply(ctx, jobID)
//	applied := c.Applied().Has(jobID)
//
//	err = c.Watch(ctx, func(topic syncbus.Topic) { ... })
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/justsurfingit/extrajob/internal/models"
	"github.com/justsurfingit/extrajob/internal/services"
)

// Errors an APIError matches with errors.Is. They are the server's own
// sentinels, exported here for importers outside this module.
var (
	ErrInvalidInput    = services.ErrInvalidInput
	ErrUnauthenticated = services.ErrUnauthenticated
	ErrProfileRequired = services.ErrProfileRequired
	ErrForbidden       = services.ErrForbidden
	ErrNotFound        = services.ErrNotFound
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status int    `json:"-"`
	Code   string `json:"error"`
	Detail string `json:"detail"`
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("extrajob/client: %d %s: %s", e.Status, e.Code, e.Detail)
	}
	return fmt.Sprintf("extrajob/client: %d %s", e.Status, e.Code)
}

// Is maps the response status onto ErrInvalidInput, ErrUnauthenticated,
// ErrProfileRequired, ErrForbidden and ErrNotFound.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrInvalidInput:
		return e.Status == http.StatusBadRequest
	case ErrUnauthenticated:
		return e.Status == http.StatusUnauthorized
	case ErrProfileRequired:
		return e.Status == http.StatusForbidden && e.Code == "profile_required"
	case ErrForbidden:
		return e.Status == http.StatusForbidden
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	}
	return false
}

// Client is safe for concurrent use.
type Client struct {
	base   string
	token  string
	http   *http.Client
	logger *slog.Logger

	applied *AppliedSet
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		base:    strings.TrimRight(baseURL, "/"),
		http:    http.DefaultClient,
		logger:  slog.Default(),
		applied: NewAppliedSet(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Applied is the locally cached set of job ids the caller has applied to.
// Apply and Withdraw update it optimistically; RefreshApplied replaces it.
func (c *Client) Applied() *AppliedSet { return c.applied }

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+"/api/v1"+path, rdr)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("extrajob/client: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		_ = json.NewDecoder(resp.Body).Decode(apiErr)
		if apiErr.Code == "" {
			apiErr.Code = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// Apply applies to jobID. The job is marked applied before the request and
// rolled back if it fails. created is false when an application already
// existed.
func (c *Client) Apply(ctx context.Context, jobID string) (created bool, err error) {
	undo := c.applied.Add(jobID)
	var resp struct {
		Created bool `json:"created"`
	}
	if err := c.do(ctx, http.MethodPost, "/applications", map[string]string{"job_id": jobID}, &resp); err != nil {
		undo()
		return false, err
	}
	return resp.Created, nil
}

// Withdraw removes the application for jobID, restoring the local mark on
// failure.
func (c *Client) Withdraw(ctx context.Context, jobID string) error {
	undo := c.applied.Remove(jobID)
	if err := c.do(ctx, http.MethodDelete, "/applications/"+url.PathEscape(jobID), nil, nil); err != nil {
		undo()
		return err
	}
	return nil
}

// AppliedJobIDs fetches the server's view without touching the local set.
func (c *Client) AppliedJobIDs(ctx context.Context) ([]string, error) {
	var resp struct {
		JobIDs []string `json:"job_ids"`
	}
	if err := c.do(ctx, http.MethodGet, "/applications/job-ids", nil, &resp); err != nil {
		return nil, err
	}
	return resp.JobIDs, nil
}

// RefreshApplied refetches the applied set and replaces the local copy.
func (c *Client) RefreshApplied(ctx context.Context) ([]string, error) {
	ids, err := c.AppliedJobIDs(ctx)
	if err != nil {
		return nil, err
	}
	c.applied.Replace(ids)
	return ids, nil
}

// Application is one row of the caller's applications.
type Application struct {
	ID        string      `json:"id"`
	JobID     string      `json:"job_id"`
	CreatedAt time.Time   `json:"created_at"`
	Job       *models.Job `json:"job"`
}

func (c *Client) Applications(ctx context.Context) ([]Application, error) {
	var out []Application
	if err := c.do(ctx, http.MethodGet, "/applications", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Applicants(ctx context.Context, jobID string) ([]models.Applicant, error) {
	var out []models.Applicant
	if err := c.do(ctx, http.MethodGet, "/jobs/"+url.PathEscape(jobID)+"/applicants", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
