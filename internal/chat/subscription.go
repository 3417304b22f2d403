package chat

import (
	"sync"

	"github.com/PaulBabatuyi/cohortChat-gRPC/internal/data"
)

// Subscription is one subscriber's view of a room feed.
//
// Updates holds at most one pending snapshot: when the reader falls behind
// the pending snapshot is replaced by the newer one. Snapshots are shared
// between subscribers and must not be modified.
type Subscription struct {
	RoomID string

	id   int64
	feed *feed
	sync *Synchronizer

	mu     sync.Mutex
	ch     chan []data.Message
	closed bool
}

// Updates returns the snapshot channel. It is closed by Close.
func (s *Subscription) Updates() <-chan []data.Message {
	return s.ch
}

// Close detaches the subscription. Nothing is delivered after Close returns.
// Safe to call more than once.
func (s *Subscription) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.ch)
	s.mu.Unlock()

	s.sync.detach(s.feed, s.id)
}

// offer replaces any pending snapshot with msgs. Never blocks.
func (s *Subscription) offer(msgs []data.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	select {
	case <-s.ch:
	default:
	}
	s.ch <- msgs
}
