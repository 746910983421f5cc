package syncbus

import "sync"

// Subscription receives topic signals until it is closed.
type Subscription struct {
	id     uint64
	bus    *Bus
	topics []Topic

	mu      sync.Mutex
	ch      chan Topic
	pending map[Topic]bool
	closed  bool
}

// C delivers signals. It is closed by Close.
func (s *Subscription) C() <-chan Topic { return s.ch }

// Topics returns the topics this subscription listens on.
func (s *Subscription) Topics() []Topic {
	out := make([]Topic, len(s.topics))
	copy(out, s.topics)
	return out
}

// Ack clears the pending mark for topic so the next publish is delivered.
// Receivers call it right before they start the refresh the signal asked for.
func (s *Subscription) Ack(topic Topic) {
	s.mu.Lock()
	delete(s.pending, topic)
	s.mu.Unlock()
}

// Next blocks for the next signal and acknowledges it. ok is false once the
// subscription is closed or done is closed.
func (s *Subscription) Next(done <-chan struct{}) (topic Topic, ok bool) {
	select {
	case topic, ok = <-s.ch:
		if ok {
			s.Ack(topic)
		}
		return topic, ok
	case <-done:
		return "", false
	}
}

// signal queues topic unless one is already pending. The channel has one slot
// per topic, so with the pending mark the send never blocks.
func (s *Subscription) signal(topic Topic) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.pending[topic] {
		return false
	}
	select {
	case s.ch <- topic:
		s.pending[topic] = true
		return true
	default:
		return false
	}
}

// Close unsubscribes and closes C. Safe to call more than once.
func (s *Subscription) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.ch)
	s.mu.Unlock()

	s.bus.remove(s)
}
