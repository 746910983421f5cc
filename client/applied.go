package client

import (
	"sort"
	"sync"
)

// AppliedSet is a concurrency-safe set of job ids.
type AppliedSet struct {
	mu  sync.RWMutex
	ids map[string]struct{}
}

func NewAppliedSet() *AppliedSet {
	return &AppliedSet{ids: make(map[string]struct{})}
}

func (s *AppliedSet) Has(jobID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.ids[jobID]
	return ok
}

// Add marks jobID and returns a func that reverts the mark. The revert is a
// no-op when jobID was already present.
func (s *AppliedSet) Add(jobID string) (undo func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ids[jobID]; ok {
		return func() {}
	}
	s.ids[jobID] = struct{}{}
	return func() {
		s.mu.Lock()
		delete(s.ids, jobID)
		s.mu.Unlock()
	}
}

// Remove unmarks jobID and returns a func that restores it.
func (s *AppliedSet) Remove(jobID string) (undo func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ids[jobID]; !ok {
		return func() {}
	}
	delete(s.ids, jobID)
	return func() {
		s.mu.Lock()
		s.ids[jobID] = struct{}{}
		s.mu.Unlock()
	}
}

// Replace swaps in the server's authoritative set.
func (s *AppliedSet) Replace(jobIDs []string) {
	next := make(map[string]struct{}, len(jobIDs))
	for _, id := range jobIDs {
		next[id] = struct{}{}
	}
	s.mu.Lock()
	s.ids = next
	s.mu.Unlock()
}

// List returns the ids sorted.
func (s *AppliedSet) List() []string {
	s.mu.RLock()
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	s.mu.RUnlock()
	sort.Strings(out)
	return out
}
