package chat

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/PaulBabatuyi/cohortChat-gRPC/internal/data"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
)

// RoomStore is the slice of the room store used by the Synchronizer.
type RoomStore interface {
	AppendMessage(ctx context.Context, msg *data.Message) error
	ListMessages(ctx context.Context, roomID string) ([]data.Message, error)
	Watch(ctx context.Context, roomID string) (<-chan struct{}, error)
}

// Synchronizer keeps one live feed per room and fans its ordered snapshots
// out to every local subscriber of that room.
type Synchronizer struct {
	rooms        RoomStore
	log          *zap.Logger
	now          func() time.Time
	newID        func() string
	pollInterval time.Duration
	retryDelay   time.Duration
	validate     *validator.Validate
	policy       *bluemonday.Policy

	mu    sync.Mutex
	feeds map[string]*feed
}

// SyncOption configures a Synchronizer.
type SyncOption func(*Synchronizer)

// WithSyncClock overrides the time source used for message timestamps.
func WithSyncClock(now func() time.Time) SyncOption {
	return func(s *Synchronizer) { s.now = now }
}

// WithIDGenerator overrides message id generation.
func WithIDGenerator(newID func() string) SyncOption {
	return func(s *Synchronizer) { s.newID = newID }
}

// WithPollInterval sets how often a feed reloads when the store cannot watch.
func WithPollInterval(d time.Duration) SyncOption {
	return func(s *Synchronizer) { s.pollInterval = d }
}

// WithSendRetryDelay sets the pause before the single send retry.
func WithSendRetryDelay(d time.Duration) SyncOption {
	return func(s *Synchronizer) { s.retryDelay = d }
}

// NewSynchronizer returns a Synchronizer over rooms.
func NewSynchronizer(rooms RoomStore, log *zap.Logger, opts ...SyncOption) *Synchronizer {
	s := &Synchronizer{
		rooms:        rooms,
		log:          log,
		now:          time.Now,
		newID:        uuid.NewString,
		pollInterval: 2 * time.Second,
		retryDelay:   200 * time.Millisecond,
		validate:     validator.New(),
		policy:       bluemonday.StrictPolicy(),
		feeds:        map[string]*feed{},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// feed is the live source of one room.
type feed struct {
	roomID string
	cancel context.CancelFunc
	done   chan struct{}

	mu     sync.Mutex
	subs   map[int64]*Subscription
	nextID int64
	last   []data.Message
	loaded bool
}

// Attach subscribes to roomID. The subscriber receives the current message
// set as soon as it is known and a fresh snapshot after every change, always
// sorted by timestamp ascending. Close the subscription to detach.
func (s *Synchronizer) Attach(roomID string) *Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.feeds[roomID]
	if !ok {
		ctx, cancel := context.WithCancel(context.Background())
		f = &feed{
			roomID: roomID,
			cancel: cancel,
			done:   make(chan struct{}),
			subs:   map[int64]*Subscription{},
		}
		s.feeds[roomID] = f
		go s.run(ctx, f)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextID++
	sub := &Subscription{
		RoomID: roomID,
		id:     f.nextID,
		feed:   f,
		sync:   s,
		ch:     make(chan []data.Message, 1),
	}
	f.subs[sub.id] = sub
	if f.loaded {
		sub.offer(f.last)
	}
	return sub
}

// AttachFunc is the callback form of Attach. fn runs on a dedicated
// goroutine, one snapshot at a time. Once unsubscribe returns fn is not
// called again; unsubscribe must not be called from inside fn.
func (s *Synchronizer) AttachFunc(roomID string, fn func([]data.Message)) (unsubscribe func()) {
	sub := s.Attach(roomID)

	var mu sync.Mutex
	stopped := false
	go func() {
		for msgs := range sub.Updates() {
			mu.Lock()
			if !stopped {
				fn(msgs)
			}
			mu.Unlock()
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			mu.Lock()
			stopped = true
			mu.Unlock()
			sub.Close()
		})
	}
}

// ActiveRooms reports how many rooms currently have a live feed.
func (s *Synchronizer) ActiveRooms() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.feeds)
}

// detach drops a subscriber and stops the feed once nobody listens.
func (s *Synchronizer) detach(f *feed, id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f.mu.Lock()
	delete(f.subs, id)
	empty := len(f.subs) == 0
	f.mu.Unlock()

	if empty && s.feeds[f.roomID] == f {
		delete(s.feeds, f.roomID)
		f.cancel()
	}
}

// run is the only goroutine producing snapshots for f, so subscribers see
// them in production order.
func (s *Synchronizer) run(ctx context.Context, f *feed) {
	defer close(f.done)

	var ticker *time.Ticker
	defer func() {
		if ticker != nil {
			ticker.Stop()
		}
	}()
	var tick <-chan time.Time
	poll := func() {
		if ticker == nil {
			ticker = time.NewTicker(s.pollInterval)
			tick = ticker.C
		}
	}

	changes, err := s.rooms.Watch(ctx, f.roomID)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.log.Warn("room watch unavailable, polling",
			zap.String("room_id", f.roomID),
			zap.Duration("interval", s.pollInterval),
			zap.Error(err))
		poll()
	}

	s.refresh(ctx, f)

	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-changes:
			if !ok {
				if ctx.Err() != nil {
					return
				}
				s.log.Warn("room watch ended, polling", zap.String("room_id", f.roomID))
				changes = nil
				poll()
			}
			s.refresh(ctx, f)
		case <-tick:
			s.refresh(ctx, f)
		}
	}
}

func (s *Synchronizer) refresh(ctx context.Context, f *feed) {
	msgs, err := s.rooms.ListMessages(ctx, f.roomID)
	if err != nil {
		if ctx.Err() == nil {
			s.log.Warn("load room messages", zap.String("room_id", f.roomID), zap.Error(err))
		}
		return
	}
	if msgs == nil {
		msgs = []data.Message{}
	}
	sortMessages(msgs)
	f.publish(msgs)
}

// publish offers msgs to every subscriber unless it equals the last snapshot.
func (f *feed) publish(msgs []data.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.loaded && sameMessages(f.last, msgs) {
		return
	}
	f.last = msgs
	f.loaded = true
	for _, sub := range f.subs {
		sub.offer(msgs)
	}
}

// sortMessages orders by timestamp; equal timestamps fall back to id so the
// order is the same for every subscriber.
func sortMessages(msgs []data.Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		if msgs[i].Timestamp != msgs[j].Timestamp {
			return msgs[i].Timestamp < msgs[j].Timestamp
		}
		return msgs[i].ID < msgs[j].ID
	})
}

// messages are immutable once written, so equal ids mean equal snapshots
func sameMessages(a, b []data.Message) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID {
			return false
		}
	}
	return true
}

// Close stops every feed and closes all subscriptions.
func (s *Synchronizer) Close() {
	s.mu.Lock()
	feeds := s.feeds
	s.feeds = map[string]*feed{}
	s.mu.Unlock()

	for _, f := range feeds {
		f.cancel()
		<-f.done

		f.mu.Lock()
		subs := make([]*Subscription, 0, len(f.subs))
		for _, sub := range f.subs {
			subs = append(subs, sub)
		}
		f.mu.Unlock()

		for _, sub := range subs {
			sub.Close()
		}
	}
}
