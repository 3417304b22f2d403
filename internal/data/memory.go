package data

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/PaulBabatuyi/cohortChat-gRPC/internal/normalize"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// MemoryStore keeps users, messages and room metadata in process memory. It
// mirrors UsersStore and RoomsStore so it can stand in for MongoDB in tests
// and single-node development runs (STORE_DRIVER=memory).
type MemoryStore struct {
	mu       sync.Mutex
	users    map[bson.ObjectID]*User
	messages map[string]map[string]Message // room id -> message id -> message
	metadata map[string]RoomMetadata
	watchers map[string]map[chan struct{}]struct{}
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    map[bson.ObjectID]*User{},
		messages: map[string]map[string]Message{},
		metadata: map[string]RoomMetadata{},
		watchers: map[string]map[chan struct{}]struct{}{},
	}
}

// Ping always succeeds.
func (m *MemoryStore) Ping(ctx context.Context) error { return ctx.Err() }

// CreateUser stores a copy of user under a new ObjectID.
func (m *MemoryStore) CreateUser(ctx context.Context, user *User) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	email := normalize.Email(user.Email)
	for _, u := range m.users {
		if u.Email == email {
			return nil, ErrUserExists
		}
	}

	now := time.Now().UTC()
	user.ID = bson.NewObjectID()
	user.Email = email
	user.CreatedAt = now
	user.UpdatedAt = now
	m.users[user.ID] = cloneUser(user)
	return user, nil
}

// GetUserByEmail finds a user by email.
func (m *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	email = normalize.Email(email)
	for _, u := range m.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, ErrUserNotFound
}

// GetUserByID finds a user by the hex form of its ObjectID.
func (m *MemoryStore) GetUserByID(ctx context.Context, id string) (*User, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrUserNotFound
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[oid]
	if !ok {
		return nil, ErrUserNotFound
	}
	return cloneUser(u), nil
}

// SetAcademicOverride records the level confirmed for one academic year.
func (m *MemoryStore) SetAcademicOverride(ctx context.Context, id, year string, level int) error {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return ErrUserNotFound
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[oid]
	if !ok {
		return ErrUserNotFound
	}
	if u.AcademicOverride == nil {
		u.AcademicOverride = map[string]int{}
	}
	u.AcademicOverride[year] = level
	u.UpdatedAt = time.Now().UTC()
	return nil
}

// AppendMessage stores msg and wakes the room's watchers.
func (m *MemoryStore) AppendMessage(ctx context.Context, msg *Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	room, ok := m.messages[msg.RoomID]
	if !ok {
		room = map[string]Message{}
		m.messages[msg.RoomID] = room
	}
	room[msg.ID] = *msg
	m.notifyLocked(msg.RoomID)
	return nil
}

// ListMessages returns every message of a room ordered by timestamp, then id.
func (m *MemoryStore) ListMessages(ctx context.Context, roomID string) ([]Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Message, 0, len(m.messages[roomID]))
	for _, msg := range m.messages[roomID] {
		out = append(out, msg)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Timestamp != out[j].Timestamp {
			return out[i].Timestamp < out[j].Timestamp
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// DeleteMessages removes the room's messages with timestamp <= upTo.
func (m *MemoryStore) DeleteMessages(ctx context.Context, roomID string, upTo int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for id, msg := range m.messages[roomID] {
		if msg.Timestamp <= upTo {
			delete(m.messages[roomID], id)
			n++
		}
	}
	if n > 0 {
		m.notifyLocked(roomID)
	}
	return n, nil
}

// Watch signals on the returned channel whenever the room changes. Signals
// are coalesced; the channel is closed once ctx ends.
func (m *MemoryStore) Watch(ctx context.Context, roomID string) (<-chan struct{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	wake := make(chan struct{}, 1)
	m.mu.Lock()
	if m.watchers[roomID] == nil {
		m.watchers[roomID] = map[chan struct{}]struct{}{}
	}
	m.watchers[roomID][wake] = struct{}{}
	m.mu.Unlock()

	out := make(chan struct{}, 1)
	go func() {
		defer close(out)
		defer func() {
			m.mu.Lock()
			delete(m.watchers[roomID], wake)
			if len(m.watchers[roomID]) == 0 {
				delete(m.watchers, roomID)
			}
			m.mu.Unlock()
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case <-wake:
				select {
				case out <- struct{}{}:
				default:
				}
			}
		}
	}()
	return out, nil
}

func (m *MemoryStore) notifyLocked(roomID string) {
	for w := range m.watchers[roomID] {
		select {
		case w <- struct{}{}:
		default:
		}
	}
}

// GetMetadata returns the reset metadata of a room, or nil when absent.
func (m *MemoryStore) GetMetadata(ctx context.Context, roomID string) (*RoomMetadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	md, ok := m.metadata[roomID]
	if !ok {
		return nil, nil
	}
	return &md, nil
}

// ClaimReset has the same compare-and-set semantics as RoomsStore.ClaimReset.
func (m *MemoryStore) ClaimReset(ctx context.Context, roomID, target string, cutoff int64) (*RoomMetadata, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	md, ok := m.metadata[roomID]
	if ok && md.LastReset == target {
		return nil, false, nil
	}

	m.metadata[roomID] = RoomMetadata{
		RoomID:      roomID,
		LastReset:   target,
		ResetCutoff: cutoff,
		UpdatedAt:   time.Now().UTC(),
	}
	if !ok {
		return nil, true, nil
	}
	return &md, true, nil
}

// RevertReset restores prev if the claim identified by target/cutoff is
// still in place.
func (m *MemoryStore) RevertReset(ctx context.Context, roomID, target string, cutoff int64, prev *RoomMetadata) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	md, ok := m.metadata[roomID]
	if !ok || md.LastReset != target || md.ResetCutoff != cutoff {
		return nil
	}
	if prev == nil {
		delete(m.metadata, roomID)
		return nil
	}
	m.metadata[roomID] = *prev
	return nil
}

// MarkResetDone flags the claim identified by target/cutoff as wiped.
func (m *MemoryStore) MarkResetDone(ctx context.Context, roomID, target string, cutoff int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	md, ok := m.metadata[roomID]
	if !ok || md.LastReset != target || md.ResetCutoff != cutoff {
		return nil
	}
	md.ResetDone = true
	md.UpdatedAt = time.Now().UTC()
	m.metadata[roomID] = md
	return nil
}

func cloneUser(u *User) *User {
	c := *u
	if u.AcademicOverride != nil {
		c.AcademicOverride = make(map[string]int, len(u.AcademicOverride))
		for k, v := range u.AcademicOverride {
			c.AcademicOverride[k] = v
		}
	}
	return &c
}
