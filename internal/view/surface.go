// Package view keeps a mounted copy of some server-side state fresh. A Surface
// fetches once on mount and again on every sync bus signal it listens to. It
// never patches state from a signal.
package view

import (
	"context"
	"errors"
	"sync"

	"github.com/justsurfingit/extrajob/internal/syncbus"
)

// ErrUnmounted is returned by Refresh after Unmount.
var ErrUnmounted = errors.New("view: surface unmounted")

// Fetcher reads the current state from the source of truth.
type Fetcher[T any] func(ctx context.Context) (T, error)

// Surface is a live, refreshing view of T.
type Surface[T any] struct {
	fetch Fetcher[T]
	sub   *syncbus.Subscription

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu      sync.Mutex
	state   T
	err     error
	version uint64
	mounted bool

	updates chan struct{}
}

// Mount subscribes to topics, performs the initial fetch and starts
// refreshing in the background. The surface lives until Unmount or until ctx
// is cancelled.
func Mount[T any](ctx context.Context, bus *syncbus.Bus, fetch Fetcher[T], topics ...syncbus.Topic) (*Surface[T], error) {
	ctx, cancel := context.WithCancel(ctx)
	s := &Surface[T]{
		fetch:   fetch,
		sub:     bus.Subscribe(topics...),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
		mounted: true,
		updates: make(chan struct{}, 1),
	}

	if err := s.Refresh(ctx); err != nil {
		s.Unmount()
		close(s.done)
		return nil, err
	}

	go s.loop()
	return s, nil
}

func (s *Surface[T]) loop() {
	defer close(s.done)
	for {
		if _, ok := s.sub.Next(s.ctx.Done()); !ok {
			return
		}
		// Errors are kept on the surface; the next signal tries again.
		_ = s.Refresh(s.ctx)
	}
}

// Refresh refetches now. The result is dropped if the surface was unmounted
// while the fetch was in flight.
func (s *Surface[T]) Refresh(ctx context.Context) error {
	v, err := s.fetch(ctx)

	s.mu.Lock()
	if !s.mounted || s.ctx.Err() != nil {
		s.mu.Unlock()
		return ErrUnmounted
	}
	if err != nil {
		s.err = err
		s.mu.Unlock()
		return err
	}
	s.state = v
	s.err = nil
	s.version++
	s.mu.Unlock()

	select {
	case s.updates <- struct{}{}:
	default:
	}
	return nil
}

// Snapshot returns the last committed state, its version (incremented per
// successful fetch) and the error of the latest failed fetch, if any.
func (s *Surface[T]) Snapshot() (T, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.version, s.err
}

// Updates fires after each committed refresh. Bursts coalesce into one tick.
func (s *Surface[T]) Updates() <-chan struct{} { return s.updates }

// Done is closed once the background loop has exited.
func (s *Surface[T]) Done() <-chan struct{} { return s.done }

// Unmount stops refreshing and unsubscribes. Safe to call more than once.
func (s *Surface[T]) Unmount() {
	s.mu.Lock()
	wasMounted := s.mounted
	s.mounted = false
	s.mu.Unlock()
	if !wasMounted {
		return
	}
	s.cancel()
	s.sub.Close()
}
