// Package syncbus is the payload-free publish/subscribe signal that tells
// independently mounted views to refetch from the source of truth.
//
// A signal is only a topic name. Subscribers never patch local state from it;
// they rerun their own fetch. Each subscriber holds at most one pending signal
// per topic, so a burst of mutations collapses into a single refresh.
package syncbus

import (
	"log/slog"
	"sync"
	"sync/atomic"
)

// Topic names a class of mutation.
type Topic string

const (
	ApplicationsChanged Topic = "applications.changed"
	JobsChanged         Topic = "jobs.changed"
)

// Topics lists every topic the service publishes.
func Topics() []Topic { return []Topic{ApplicationsChanged, JobsChanged} }

// Bus fans signals out to subscriptions. It is safe for concurrent use.
// Always construct one with New and inject it; there is no package-level bus.
type Bus struct {
	logger *slog.Logger

	mu     sync.RWMutex
	topics map[Topic]map[uint64]*Subscription
	nextID uint64

	published atomic.Int64
	coalesced atomic.Int64

	observer func(Topic, int)
}

// Option configures a Bus.
type Option func(*Bus)

// WithObserver registers a callback invoked after every publish with the
// number of subscriptions that received a new signal.
func WithObserver(fn func(topic Topic, delivered int)) Option {
	return func(b *Bus) { b.observer = fn }
}

func New(logger *slog.Logger, opts ...Option) *Bus {
	b := &Bus{
		logger: logger,
		topics: make(map[Topic]map[uint64]*Subscription),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers interest in the given topics. With no topics the
// subscription receives every topic.
func (b *Bus) Subscribe(topics ...Topic) *Subscription {
	if len(topics) == 0 {
		topics = Topics()
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	sub := &Subscription{
		id:      b.nextID,
		bus:     b,
		ch:      make(chan Topic, len(topics)),
		pending: make(map[Topic]bool, len(topics)),
		topics:  topics,
	}
	for _, t := range topics {
		subs, ok := b.topics[t]
		if !ok {
			subs = make(map[uint64]*Subscription)
			b.topics[t] = subs
		}
		subs[sub.id] = sub
	}
	return sub
}

// Publish signals every subscription on topic. Call it only after the
// mutation it announces has been committed. It returns the number of
// subscriptions that received a new signal; subscriptions that already had
// one pending are counted as coalesced.
func (b *Bus) Publish(topic Topic) int {
	b.mu.RLock()
	subs := b.topics[topic]
	targets := make([]*Subscription, 0, len(subs))
	for _, s := range subs {
		targets = append(targets, s)
	}
	b.mu.RUnlock()

	delivered := 0
	for _, s := range targets {
		if s.signal(topic) {
			delivered++
		} else {
			b.coalesced.Add(1)
		}
	}
	b.published.Add(1)

	b.logger.Debug("sync bus publish", "topic", topic, "delivered", delivered, "subscribers", len(targets))
	if b.observer != nil {
		b.observer(topic, delivered)
	}
	return delivered
}

func (b *Bus) remove(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, t := range sub.topics {
		subs, ok := b.topics[t]
		if !ok {
			continue
		}
		delete(subs, sub.id)
		if len(subs) == 0 {
			delete(b.topics, t)
		}
	}
}

// Stats is a point-in-time view of bus activity.
type Stats struct {
	Subscribers int   `json:"subscribers"`
	Published   int64 `json:"published"`
	Coalesced   int64 `json:"coalesced"`
}

func (b *Bus) Stats() Stats {
	b.mu.RLock()
	seen := make(map[uint64]struct{})
	for _, subs := range b.topics {
		for id := range subs {
			seen[id] = struct{}{}
		}
	}
	b.mu.RUnlock()
	return Stats{
		Subscribers: len(seen),
		Published:   b.published.Load(),
		Coalesced:   b.coalesced.Load(),
	}
}
