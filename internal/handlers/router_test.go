package handlers

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/justsurfingit/extrajob/internal/auth"
	"github.com/justsurfingit/extrajob/internal/database"
	"github.com/justsurfingit/extrajob/internal/logging"
	"github.com/justsurfingit/extrajob/internal/metrics"
	"github.com/justsurfingit/extrajob/internal/models"
	"github.com/justsurfingit/extrajob/internal/notify"
	"github.com/justsurfingit/extrajob/internal/services"
	"github.com/justsurfingit/extrajob/internal/syncbus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type queueNotifier struct {
	mu      sync.Mutex
	apps    []models.Application
	resends []string
	result  *notify.Result
}

func (q *queueNotifier) Enqueue(app models.Application) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.apps = append(q.apps, app)
}

func (q *queueNotifier) NotifyJob(_ context.Context, jobID string) (notify.Result, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.resends = append(q.resends, jobID)
	if q.result != nil {
		return *q.result, errors.New(q.result.Reason)
	}
	return notify.Result{Delivered: true}, nil
}

func (q *queueNotifier) enqueued() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.apps)
}

type server struct {
	db       *gorm.DB
	auth     *auth.Authenticator
	bus      *syncbus.Bus
	notifier *queueNotifier
	router   *gin.Engine
}

func newServer(t *testing.T) *server {
	t.Helper()
	db := database.OpenTest(t)
	log := logging.Discard()
	bus := syncbus.New(log)
	m := metrics.NewCollector()
	n := &queueNotifier{}
	a := auth.NewAuthenticator(db, time.Hour)
	ledger := services.NewLedger(db, bus, n, m, log)
	jobs := services.NewJobService(db, bus, log)

	r := NewRouter(Deps{
		Auth:          a,
		Jobs:          jobs,
		Businesses:    services.NewBusinessService(db, log),
		Profiles:      services.NewProfileService(db),
		Ledger:        ledger,
		Notifications: services.NewNotificationService(db),
		Notifier:      n,
		Bus:           bus,
		Metrics:       m,
		Logger:        log,
	})
	return &server{db: db, auth: a, bus: bus, notifier: n, router: r}
}

// login issues a session and, when role is set, creates the profile.
func (s *server) login(t *testing.T, email string, role models.Role) (token, userID string) {
	t.Helper()
	sess, err := s.auth.Issue(context.Background(), email)
	require.NoError(t, err)
	if role != "" {
		require.NoError(t, s.db.Create(&models.Profile{UserID: sess.UserID, Role: role, ContactEmail: email}).Error)
	}
	return sess.Token, sess.UserID
}

func (s *server) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func (s *server) createJob(t *testing.T, token, role string) models.Job {
	t.Helper()
	start := time.Date(2026, 11, 1, 18, 0, 0, 0, time.UTC)
	w := s.do(t, http.MethodPost, "/api/v1/jobs", token, map[string]any{
		"role": role, "location": "Roma", "pay": "90",
		"start_date": start, "end_date": start.Add(5 * time.Hour),
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[models.Job](t, w)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newServer(t)

	w := s.do(t, http.MethodGet, "/api/v1/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = s.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "extrajob_http_requests_total")
}

func TestAccessGates(t *testing.T) {
	s := newServer(t)
	bare, _ := s.login(t, "new@x.test", "")
	worker, _ := s.login(t, "w@x.test", models.RoleWorker)

	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/api/v1/jobs", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/api/v1/jobs", "bogus", nil).Code)

	w := s.do(t, http.MethodGet, "/api/v1/jobs", bare, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "profile_required", decode[map[string]any](t, w)["error"])

	w = s.do(t, http.MethodPost, "/api/v1/applications", bare, map[string]string{"job_id": "x"})
	assert.Equal(t, http.StatusForbidden, w.Code, "apply without a profile is blocked")

	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodGet, "/api/v1/businesses", worker, nil).Code)

	w = s.do(t, http.MethodGet, "/api/v1/me", bare, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, decode[map[string]any](t, w)["profile"])
}

func TestOnboardingThroughProfileEndpoint(t *testing.T) {
	s := newServer(t)
	token, _ := s.login(t, "new@x.test", "")

	w := s.do(t, http.MethodPut, "/api/v1/me/profile", token, map[string]string{"role": "boss"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPut, "/api/v1/me/profile", token, map[string]string{"role": "worker", "name": "Ada"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/v1/jobs", token, nil).Code)
}

func TestApplyWithdrawOverHTTP(t *testing.T) {
	s := newServer(t)
	employer, _ := s.login(t, "e1@x.test", models.RoleEmployer)
	worker, _ := s.login(t, "w1@x.test", models.RoleWorker)
	job := s.createJob(t, employer, "Sommelier")

	w := s.do(t, http.MethodPost, "/api/v1/applications", worker, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code, "missing job_id")

	w = s.do(t, http.MethodPost, "/api/v1/applications", worker, map[string]string{"job_id": "nope"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/applications", worker, map[string]string{"job_id": job.ID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(t, http.MethodPost, "/api/v1/applications", worker, map[string]string{"job_id": job.ID})
	assert.Equal(t, http.StatusOK, w.Code, "duplicate apply is success")
	assert.Equal(t, false, decode[map[string]any](t, w)["created"])
	assert.Equal(t, 1, s.notifier.enqueued())

	w = s.do(t, http.MethodGet, "/api/v1/applications/job-ids", worker, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{job.ID}, decode[struct {
		JobIDs []string `json:"job_ids"`
	}](t, w).JobIDs)

	w = s.do(t, http.MethodGet, "/api/v1/jobs/"+job.ID+"/applicants", employer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.Applicant](t, w), 1)

	other, _ := s.login(t, "e2@x.test", models.RoleEmployer)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/v1/jobs/"+job.ID+"/applicants", other, nil).Code)

	assert.Equal(t, http.StatusNoContent, s.do(t, http.MethodDelete, "/api/v1/applications/"+job.ID, worker, nil).Code)
	assert.Equal(t, http.StatusNoContent, s.do(t, http.MethodDelete, "/api/v1/applications/"+job.ID, worker, nil).Code)

	w = s.do(t, http.MethodGet, "/api/v1/applications", worker, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
	assert.Equal(t, 1, s.notifier.enqueued())
}

func TestBusinessesOverHTTP(t *testing.T) {
	s := newServer(t)
	employer, _ := s.login(t, "e1@x.test", models.RoleEmployer)

	w := s.do(t, http.MethodPost, "/api/v1/businesses", employer, map[string]string{"name": "B1", "address": "A"})
	require.Equal(t, http.StatusCreated, w.Code)
	b1 := decode[models.Business](t, w)

	w = s.do(t, http.MethodPost, "/api/v1/businesses", employer, map[string]string{"name": "B2", "address": "B"})
	require.Equal(t, http.StatusCreated, w.Code)
	b2 := decode[models.Business](t, w)

	w = s.do(t, http.MethodPut, "/api/v1/businesses/"+b2.ID+"/default", employer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	for _, b := range decode[[]models.Business](t, w) {
		assert.Equal(t, b.ID == b2.ID, b.IsDefault)
	}

	assert.Equal(t, http.StatusNoContent, s.do(t, http.MethodDelete, "/api/v1/businesses/"+b1.ID, employer, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodDelete, "/api/v1/businesses/"+b1.ID, employer, nil).Code)

	w = s.do(t, http.MethodPost, "/api/v1/businesses", employer, map[string]string{"name": "no address"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestResendIsOwnerOnly(t *testing.T) {
	s := newServer(t)
	employer, _ := s.login(t, "e1@x.test", models.RoleEmployer)
	other, _ := s.login(t, "e2@x.test", models.RoleEmployer)
	job := s.createJob(t, employer, "Chef")

	w := s.do(t, http.MethodPost, "/api/v1/notifications/application", other, map[string]string{"job_id": job.ID})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/notifications/application", employer, map[string]string{"job_id": job.ID})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true}`, w.Body.String())
}

func TestResendFailureStatuses(t *testing.T) {
	s := newServer(t)
	employer, _ := s.login(t, "e1@x.test", models.RoleEmployer)
	job := s.createJob(t, employer, "Chef")

	cases := []struct {
		reason string
		status int
	}{
		{notify.ReasonMissingEmail, http.StatusBadRequest},
		{notify.ReasonTransport, http.StatusBadGateway},
		{notify.ReasonStoreError, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.reason, func(t *testing.T) {
			s.notifier.mu.Lock()
			s.notifier.result = &notify.Result{Reason: tc.reason}
			s.notifier.mu.Unlock()

			w := s.do(t, http.MethodPost, "/api/v1/notifications/application", employer, map[string]string{"job_id": job.ID})
			assert.Equal(t, tc.status, w.Code)
			assert.JSONEq(t, `{"ok":false,"reason":"`+tc.reason+`"}`, w.Body.String())
		})
	}
}

func TestNotificationsOverHTTP(t *testing.T) {
	s := newServer(t)
	employer, employerID := s.login(t, "e1@x.test", models.RoleEmployer)
	n := models.Notification{UserID: employerID, Kind: models.NotificationKindApplicationCreated, Title: "New application"}
	require.NoError(t, s.db.Create(&n).Error)

	w := s.do(t, http.MethodGet, "/api/v1/notifications", employer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.Notification](t, w), 1)

	assert.Equal(t, http.StatusNoContent, s.do(t, http.MethodPost, "/api/v1/notifications/"+n.ID+"/read", employer, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodPost, "/api/v1/notifications/missing/read", employer, nil).Code)
}

func TestStatusFor(t *testing.T) {
	cases := map[error]int{
		services.ErrInvalidInput:    http.StatusBadRequest,
		services.ErrUnauthenticated: http.StatusUnauthorized,
		services.ErrProfileRequired: http.StatusForbidden,
		services.ErrForbidden:       http.StatusForbidden,
		services.ErrNotFound:        http.StatusNotFound,
		models.ErrInvalidRole:       http.StatusForbidden,
		context.DeadlineExceeded:    http.StatusInternalServerError,
	}
	for err, want := range cases {
		got, _ := statusFor(err)
		assert.Equal(t, want, got, err.Error())
	}
}

func readEvent(t *testing.T, r *bufio.Reader) (name, data string) {
	t.Helper()
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case strings.HasPrefix(line, "event:"):
			name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		case line == "" && name != "":
			return name, data
		}
	}
}

func TestEventsStreamRelaysSignals(t *testing.T) {
	s := newServer(t)
	worker, _ := s.login(t, "w@x.test", models.RoleWorker)
	ts := httptest.NewServer(s.router)
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/v1/events?topics=applications.changed", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+worker)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	r := bufio.NewReader(resp.Body)
	name, _ := readEvent(t, r)
	require.Equal(t, "ready", name)

	s.bus.Publish(syncbus.JobsChanged)
	s.bus.Publish(syncbus.ApplicationsChanged)

	name, data := readEvent(t, r)
	assert.Equal(t, "signal", name)
	assert.Equal(t, "applications.changed", data)
}

func TestApplicationsStreamPushesSnapshots(t *testing.T) {
	s := newServer(t)
	employer, _ := s.login(t, "e@x.test", models.RoleEmployer)
	worker, _ := s.login(t, "w@x.test", models.RoleWorker)
	job := s.createJob(t, employer, "Host")
	ts := httptest.NewServer(s.router)
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/v1/applications/stream?access_token="+worker, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	type snapshot struct {
		Version uint64   `json:"version"`
		Data    []string `json:"data"`
	}
	r := bufio.NewReader(resp.Body)

	name, data := readEvent(t, r)
	require.Equal(t, "snapshot", name)
	var first snapshot
	require.NoError(t, json.Unmarshal([]byte(data), &first))
	assert.Empty(t, first.Data)

	w := s.do(t, http.MethodPost, "/api/v1/applications", worker, map[string]string{"job_id": job.ID})
	require.Equal(t, http.StatusCreated, w.Code)

	name, data = readEvent(t, r)
	require.Equal(t, "snapshot", name)
	var second snapshot
	require.NoError(t, json.Unmarshal([]byte(data), &second))
	assert.Equal(t, []string{job.ID}, second.Data)
	assert.Greater(t, second.Version, first.Version)
}
