package services

import (
	"sync"
	"testing"
	"time"

	"github.com/justsurfingit/extrajob/internal/database"
	"github.com/justsurfingit/extrajob/internal/logging"
	"github.com/justsurfingit/extrajob/internal/metrics"
	"github.com/justsurfingit/extrajob/internal/models"
	"github.com/justsurfingit/extrajob/internal/syncbus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recordingNotifier struct {
	mu   sync.Mutex
	apps []models.Application
}

func (r *recordingNotifier) Enqueue(app models.Application) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.apps = append(r.apps, app)
}

func (r *recordingNotifier) calls() []models.Application {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Application(nil), r.apps...)
}

type env struct {
	db       *gorm.DB
	bus      *syncbus.Bus
	notifier *recordingNotifier
	ledger   *Ledger
	jobs     *JobService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := database.OpenTest(t)
	bus := syncbus.New(logging.Discard())
	n := &recordingNotifier{}
	return &env{
		db:       db,
		bus:      bus,
		notifier: n,
		ledger:   NewLedger(db, bus, n, metrics.NewCollector(), logging.Discard()),
		jobs:     NewJobService(db, bus, logging.Discard()),
	}
}

func (e *env) user(t *testing.T, email string, role models.Role, p models.Profile) models.User {
	t.Helper()
	u := models.User{Email: email}
	require.NoError(t, e.db.Create(&u).Error)
	p.UserID = u.ID
	p.Role = role
	require.NoError(t, e.db.Create(&p).Error)
	return u
}

func (e *env) job(t *testing.T, employerID, role string) models.Job {
	t.Helper()
	start := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	j := models.Job{EmployerID: employerID, Role: role, Location: "Torino", Pay: "12/h", StartDate: start, EndDate: start.Add(8 * time.Hour)}
	require.NoError(t, e.db.Create(&j).Error)
	return j
}

func expectSignal(t *testing.T, sub *syncbus.Subscription) syncbus.Topic {
	t.Helper()
	select {
	case topic, ok := <-sub.C():
		require.True(t, ok)
		sub.Ack(topic)
		return topic
	case <-time.After(time.Second):
		t.Fatal("no sync signal")
	}
	return ""
}

func expectNoSignal(t *testing.T, sub *syncbus.Subscription) {
	t.Helper()
	select {
	case topic := <-sub.C():
		t.Fatalf("unexpected sync signal %q", topic)
	default:
	}
}
