package notify

import (
	"context"
	"testing"
	"time"

	"github.com/justsurfingit/extrajob/internal/database"
	"github.com/justsurfingit/extrajob/internal/logging"
	"github.com/justsurfingit/extrajob/internal/metrics"
	"github.com/justsurfingit/extrajob/internal/models"
	"github.com/justsurfingit/extrajob/internal/services"
	"github.com/justsurfingit/extrajob/internal/syncbus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Ledger, queue, dispatcher and mailer wired the way the server wires them.
func TestApplyWithdrawEmailsEmployerOnce(t *testing.T) {
	db := database.OpenTest(t)
	log := logging.Discard()
	m := metrics.NewCollector()
	mailer := &fakeMailer{}

	employer := models.User{Email: "e1@x.test"}
	worker := models.User{Email: "w1@x.test"}
	require.NoError(t, db.Create(&employer).Error)
	require.NoError(t, db.Create(&worker).Error)
	require.NoError(t, db.Create(&models.Profile{UserID: employer.ID, Role: models.RoleEmployer, Name: "Elena"}).Error)
	require.NoError(t, db.Create(&models.Profile{UserID: worker.ID, Role: models.RoleWorker, Name: "Wes"}).Error)

	start := time.Date(2026, 12, 24, 19, 0, 0, 0, time.UTC)
	j1 := models.Job{EmployerID: employer.ID, Role: "Waiter", Location: "Bari", Pay: "100", StartDate: start, EndDate: start.Add(5 * time.Hour)}
	require.NoError(t, db.Create(&j1).Error)

	async := NewAsyncDispatcher(NewDispatcher(db, mailer, m, log), 8, 0, time.Second)
	done := make(chan error, 1)
	go func() { done <- async.Run(context.Background()) }()

	ledger := services.NewLedger(db, syncbus.New(log), async, m, log)
	ctx := context.Background()

	_, created, err := ledger.Apply(ctx, worker.ID, j1.ID)
	require.NoError(t, err)
	require.True(t, created)

	require.Eventually(t, func() bool { return len(mailer.messages()) == 1 }, 2*time.Second, 10*time.Millisecond)
	msg := mailer.messages()[0]
	assert.Equal(t, "e1@x.test", msg.To)
	assert.Contains(t, msg.Subject, "Waiter")
	assert.Contains(t, msg.HTML, "Waiter")

	mine, err := ledger.ListMine(ctx, worker.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{j1.ID}, mine)

	require.NoError(t, ledger.Withdraw(ctx, worker.ID, j1.ID))
	mine, err = ledger.ListMine(ctx, worker.ID)
	require.NoError(t, err)
	assert.Empty(t, mine)

	async.Close()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("dispatcher did not drain")
	}
	assert.Len(t, mailer.messages(), 1, "withdraw sends nothing")
}
