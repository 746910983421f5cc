package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/justsurfingit/extrajob/internal/metrics"
	"github.com/justsurfingit/extrajob/internal/models"
	"golang.org/x/time/rate"
)

// AsyncDispatcher queues notifications and delivers them on a background
// goroutine. Enqueue never blocks: a full or closed queue drops the
// notification, which is acceptable for at-most-once delivery.
type AsyncDispatcher struct {
	dispatcher *Dispatcher
	limiter    *rate.Limiter
	timeout    time.Duration
	metrics    *metrics.Collector
	logger     *slog.Logger

	mu     sync.RWMutex
	queue  chan models.Application
	closed bool
}

// NewAsyncDispatcher builds a dispatcher with a bounded queue. perSecond <= 0
// disables rate limiting.
func NewAsyncDispatcher(d *Dispatcher, queueSize int, perSecond float64, timeout time.Duration) *AsyncDispatcher {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	return &AsyncDispatcher{
		dispatcher: d,
		limiter:    rate.NewLimiter(limit, 1),
		timeout:    timeout,
		metrics:    d.Metrics,
		logger:     d.Logger,
		queue:      make(chan models.Application, queueSize),
	}
}

// Enqueue implements services.Notifier.
func (a *AsyncDispatcher) Enqueue(app models.Application) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		a.drop(app, "closed")
		return
	}
	select {
	case a.queue <- app:
	default:
		a.drop(app, "queue full")
	}
}

func (a *AsyncDispatcher) drop(app models.Application, why string) {
	a.metrics.NotificationDropped()
	a.logger.Warn("notification dropped", "application_id", app.ID, "job_id", app.JobID, "why", why)
}

// Run delivers queued notifications until Close has been called and the
// queue is drained, or until ctx is cancelled.
func (a *AsyncDispatcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case app, ok := <-a.queue:
			if !ok {
				return nil
			}
			a.deliver(ctx, app)
		}
	}
}

func (a *AsyncDispatcher) deliver(ctx context.Context, app models.Application) {
	if err := a.limiter.Wait(ctx); err != nil {
		a.drop(app, "rate limiter: "+err.Error())
		return
	}
	sendCtx := ctx
	if a.timeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}
	// Failures are already logged and counted by the dispatcher.
	_, _ = a.dispatcher.NotifyApplication(sendCtx, app)
}

// Close stops accepting notifications. Run returns once the queue is empty.
func (a *AsyncDispatcher) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	a.closed = true
	close(a.queue)
}
