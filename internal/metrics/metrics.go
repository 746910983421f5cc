// Package metrics exposes Prometheus counters for the application workflow,
// the notification dispatcher, the sync bus and the HTTP layer.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds every metric the service records. A nil *Collector is valid
// and records nothing.
type Collector struct {
	registry *prometheus.Registry

	applicationsCreated   prometheus.Counter
	applicationsDuplicate prometheus.Counter
	applicationsWithdrawn prometheus.Counter

	notificationsSent    prometheus.Counter
	notificationsFailed  *prometheus.CounterVec
	notificationsDropped prometheus.Counter

	busPublished *prometheus.CounterVec
	busDelivered *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec
}

// NewCollector registers all metrics on a fresh registry, so separate
// collectors never collide.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	c := &Collector{
		registry: reg,
		applicationsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "extrajob_applications_created_total",
			Help: "Applications inserted by a new apply.",
		}),
		applicationsDuplicate: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "extrajob_applications_duplicate_total",
			Help: "Apply calls resolved idempotently against an existing application.",
		}),
		applicationsWithdrawn: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "extrajob_applications_withdrawn_total",
			Help: "Applications deleted by withdraw.",
		}),
		notificationsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "extrajob_notifications_sent_total",
			Help: "Employer emails accepted by the mail transport.",
		}),
		notificationsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "extrajob_notifications_failed_total",
			Help: "Employer emails not delivered, by reason.",
		}, []string{"reason"}),
		notificationsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "extrajob_notifications_dropped_total",
			Help: "Notifications dropped because the dispatch queue was full or closed.",
		}),
		busPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "extrajob_syncbus_published_total",
			Help: "Sync bus publishes by topic.",
		}, []string{"topic"}),
		busDelivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "extrajob_syncbus_delivered_total",
			Help: "Sync bus signals delivered to subscribers by topic.",
		}, []string{"topic"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "extrajob_http_requests_total",
			Help: "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "extrajob_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	reg.MustRegister(
		c.applicationsCreated,
		c.applicationsDuplicate,
		c.applicationsWithdrawn,
		c.notificationsSent,
		c.notificationsFailed,
		c.notificationsDropped,
		c.busPublished,
		c.busDelivered,
		c.httpRequests,
		c.httpLatency,
	)
	return c
}

func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) ApplicationCreated() {
	if c != nil {
		c.applicationsCreated.Inc()
	}
}

func (c *Collector) ApplicationDuplicate() {
	if c != nil {
		c.applicationsDuplicate.Inc()
	}
}

func (c *Collector) ApplicationWithdrawn() {
	if c != nil {
		c.applicationsWithdrawn.Inc()
	}
}

func (c *Collector) NotificationSent() {
	if c != nil {
		c.notificationsSent.Inc()
	}
}

func (c *Collector) NotificationFailed(reason string) {
	if c != nil {
		c.notificationsFailed.WithLabelValues(reason).Inc()
	}
}

func (c *Collector) NotificationDropped() {
	if c != nil {
		c.notificationsDropped.Inc()
	}
}

// BusPublished matches the syncbus observer signature.
func (c *Collector) BusPublished(topic string, delivered int) {
	if c == nil {
		return
	}
	c.busPublished.WithLabelValues(topic).Inc()
	c.busDelivered.WithLabelValues(topic).Add(float64(delivered))
}

// Middleware records request counts and latency per matched route.
func (c *Collector) Middleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if c == nil {
			ctx.Next()
			return
		}
		start := time.Now()
		ctx.Next()

		route := ctx.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := ctx.Request.Method
		c.httpRequests.WithLabelValues(method, route, strconv.Itoa(ctx.Writer.Status())).Inc()
		c.httpLatency.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}
