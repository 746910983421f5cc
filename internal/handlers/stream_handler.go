package handlers

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/justsurfingit/extrajob/internal/models"
	"github.com/justsurfingit/extrajob/internal/services"
	"github.com/justsurfingit/extrajob/internal/syncbus"
	"github.com/justsurfingit/extrajob/internal/view"
)

// StreamHandler serves Server-Sent Events. /events relays raw sync signals;
// the */stream endpoints mount a view.Surface and push every refreshed
// snapshot.
type StreamHandler struct {
	Bus       *syncbus.Bus
	Ledger    *services.Ledger
	Heartbeat time.Duration
	Logger    *slog.Logger
}

func NewStreamHandler(bus *syncbus.Bus, l *services.Ledger, logger *slog.Logger) *StreamHandler {
	return &StreamHandler{Bus: bus, Ledger: l, Heartbeat: 15 * time.Second, Logger: logger}
}

func sseHeaders(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
}

// Events is GET /events?topics=a,b. Each event is named "signal" and its data
// is only the topic.
func (h *StreamHandler) Events(c *gin.Context) {
	var topics []syncbus.Topic
	for _, t := range strings.Split(c.Query("topics"), ",") {
		if t = strings.TrimSpace(t); t != "" {
			topics = append(topics, syncbus.Topic(t))
		}
	}
	sub := h.Bus.Subscribe(topics...)
	defer sub.Close()

	heartbeat := time.NewTicker(h.Heartbeat)
	defer heartbeat.Stop()
	done := c.Request.Context().Done()

	sseHeaders(c)
	c.SSEvent("ready", gin.H{"topics": sub.Topics()})
	c.Writer.Flush()

	c.Stream(func(io.Writer) bool {
		select {
		case <-done:
			return false
		case <-heartbeat.C:
			c.SSEvent("ping", "")
			return true
		case t, ok := <-sub.C():
			if !ok {
				return false
			}
			sub.Ack(t)
			c.SSEvent("signal", string(t))
			return true
		}
	})
}

// MyJobIDs is GET /applications/stream.
func (h *StreamHandler) MyJobIDs(c *gin.Context) {
	workerID := identity(c).UserID
	streamSurface(c, h, func(ctx context.Context) ([]string, error) {
		return h.Ledger.ListMine(ctx, workerID)
	}, syncbus.ApplicationsChanged)
}

// Applicants is GET /jobs/:id/applicants/stream.
func (h *StreamHandler) Applicants(c *gin.Context) {
	employerID, jobID := identity(c).UserID, c.Param("id")
	streamSurface(c, h, func(ctx context.Context) ([]models.Applicant, error) {
		return h.Ledger.ListApplicantsForJob(ctx, employerID, jobID)
	}, syncbus.ApplicationsChanged)
}

func streamSurface[T any](c *gin.Context, h *StreamHandler, fetch view.Fetcher[T], topics ...syncbus.Topic) {
	surface, err := view.Mount(c.Request.Context(), h.Bus, fetch, topics...)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	defer surface.Unmount()

	heartbeat := time.NewTicker(h.Heartbeat)
	defer heartbeat.Stop()
	done := c.Request.Context().Done()

	sseHeaders(c)
	c.Stream(func(io.Writer) bool {
		select {
		case <-done:
			return false
		case <-heartbeat.C:
			c.SSEvent("ping", "")
			return true
		case <-surface.Updates():
			state, version, err := surface.Snapshot()
			if err != nil {
				h.Logger.Warn("surface refresh failed", "path", c.FullPath(), "error", err)
				return true
			}
			c.SSEvent("snapshot", gin.H{"version": version, "data": state})
			return true
		}
	})
}
