package chat

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/PaulBabatuyi/cohortChat-gRPC/internal/data"
	"go.uber.org/zap"
)

var sept2024 = time.Date(2024, time.September, 3, 10, 0, 0, 0, time.UTC)

func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

func seed(t *testing.T, s *data.MemoryStore, roomID string, timestamps ...int64) {
	t.Helper()
	for i, ts := range timestamps {
		m := &data.Message{ID: string(rune('a' + i)), RoomID: roomID, Text: "old", Timestamp: ts}
		if err := s.AppendMessage(context.Background(), m); err != nil {
			t.Fatalf("AppendMessage failed: %v", err)
		}
	}
}

func count(t *testing.T, s *data.MemoryStore, roomID string) int {
	t.Helper()
	msgs, err := s.ListMessages(context.Background(), roomID)
	if err != nil {
		t.Fatalf("ListMessages failed: %v", err)
	}
	return len(msgs)
}

func TestEnsureFreshRoom_StaleRoomIsWiped(t *testing.T) {
	store := data.NewMemoryStore()
	ctx := context.Background()
	_, _, _ = store.ClaimReset(ctx, "GI_year1", "2023", 0)
	seed(t, store, "GI_year1", 100, 200, 300)

	c := NewCoordinator(store, zap.NewNop(), WithResetClock(fixedClock(sept2024)))
	res, err := c.EnsureFreshRoom(ctx, "GI_year1")
	if err != nil {
		t.Fatalf("EnsureFreshRoom failed: %v", err)
	}
	if res.Outcome != ResetPerformed || res.Target != "2024" || res.Deleted != 3 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if n := count(t, store, "GI_year1"); n != 0 {
		t.Fatalf("expected empty room, got %d messages", n)
	}
	md, _ := store.GetMetadata(ctx, "GI_year1")
	if md == nil || md.LastReset != "2024" || !md.ResetDone {
		t.Fatalf("expected completed reset for 2024, got %+v", md)
	}
}

func TestEnsureFreshRoom_FirstRunWithoutMetadata(t *testing.T) {
	store := data.NewMemoryStore()
	seed(t, store, "GI_year2", 1)

	c := NewCoordinator(store, zap.NewNop(), WithResetClock(fixedClock(sept2024)))
	res, err := c.EnsureFreshRoom(context.Background(), "GI_year2")
	if err != nil || res.Outcome != ResetPerformed {
		t.Fatalf("first run must reset: res=%+v err=%v", res, err)
	}
	if n := count(t, store, "GI_year2"); n != 0 {
		t.Fatalf("expected empty room, got %d", n)
	}
}

func TestEnsureFreshRoom_FreshRoomIsNotTouched(t *testing.T) {
	store := data.NewMemoryStore()
	ctx := context.Background()
	_, _, _ = store.ClaimReset(ctx, "GI_year1", "2024", 0)
	_ = store.MarkResetDone(ctx, "GI_year1", "2024", 0)
	seed(t, store, "GI_year1", 100, 200)

	c := NewCoordinator(store, zap.NewNop(), WithResetClock(fixedClock(sept2024)))
	for i := 0; i < 3; i++ {
		res, err := c.EnsureFreshRoom(ctx, "GI_year1")
		if err != nil {
			t.Fatalf("EnsureFreshRoom failed: %v", err)
		}
		if res.Outcome != ResetSkipped {
			t.Fatalf("expected skip, got %s", res.Outcome)
		}
	}
	if n := count(t, store, "GI_year1"); n != 2 {
		t.Fatalf("messages must survive, got %d", n)
	}
}

func TestEnsureFreshRoom_ConcurrentCallersElectOneWinner(t *testing.T) {
	store := data.NewMemoryStore()
	ctx := context.Background()
	_, _, _ = store.ClaimReset(ctx, "GI_year1", "2023", 0)
	seed(t, store, "GI_year1", 1, 2, 3, 4)

	c := NewCoordinator(store, zap.NewNop(), WithResetClock(fixedClock(sept2024)))

	var wg sync.WaitGroup
	var mu sync.Mutex
	outcomes := map[ResetOutcome]int{}
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := c.EnsureFreshRoom(ctx, "GI_year1")
			if err != nil {
				t.Errorf("EnsureFreshRoom failed: %v", err)
				return
			}
			mu.Lock()
			outcomes[res.Outcome]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	if outcomes[ResetPerformed] != 1 {
		t.Fatalf("expected exactly one wipe, got %v", outcomes)
	}
	if n := count(t, store, "GI_year1"); n != 0 {
		t.Fatalf("expected empty room, got %d", n)
	}
	md, _ := store.GetMetadata(ctx, "GI_year1")
	if md.LastReset != "2024" {
		t.Fatalf("expected lastReset 2024, got %s", md.LastReset)
	}
}

// racingStore appends a message after the claim and before the wipe,
// the window in which an unguarded reset would lose it.
type racingStore struct {
	*data.MemoryStore
	late *data.Message
}

func (r *racingStore) ClaimReset(ctx context.Context, roomID, target string, cutoff int64) (*data.RoomMetadata, bool, error) {
	prev, won, err := r.MemoryStore.ClaimReset(ctx, roomID, target, cutoff)
	if won && r.late != nil {
		_ = r.MemoryStore.AppendMessage(ctx, r.late)
	}
	return prev, won, err
}

func TestEnsureFreshRoom_MessageSentDuringWipeSurvives(t *testing.T) {
	mem := data.NewMemoryStore()
	seed(t, mem, "GI_year1", 10)

	late := &data.Message{ID: "late", RoomID: "GI_year1", Text: "hello", Timestamp: sept2024.UnixMilli() + 1}
	store := &racingStore{MemoryStore: mem, late: late}

	c := NewCoordinator(store, zap.NewNop(), WithResetClock(fixedClock(sept2024)))
	if _, err := c.EnsureFreshRoom(context.Background(), "GI_year1"); err != nil {
		t.Fatalf("EnsureFreshRoom failed: %v", err)
	}

	msgs, _ := mem.ListMessages(context.Background(), "GI_year1")
	if len(msgs) != 1 || msgs[0].ID != "late" {
		t.Fatalf("expected only the late message to survive, got %+v", msgs)
	}
}

// leavingStore cancels the caller's context as soon as a claim is won, the
// way a client that disconnects mid-join does.
type leavingStore struct {
	*data.MemoryStore
	leave context.CancelFunc
}

func (l *leavingStore) ClaimReset(ctx context.Context, roomID, target string, cutoff int64) (*data.RoomMetadata, bool, error) {
	prev, won, err := l.MemoryStore.ClaimReset(ctx, roomID, target, cutoff)
	if won {
		l.leave()
	}
	return prev, won, err
}

func TestEnsureFreshRoom_ClientLeavingAfterClaimStillWipes(t *testing.T) {
	mem := data.NewMemoryStore()
	_, _, _ = mem.ClaimReset(context.Background(), "GI_year1", "2023", 0)
	seed(t, mem, "GI_year1", 1, 2, 3)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store := &leavingStore{MemoryStore: mem, leave: cancel}

	c := NewCoordinator(store, zap.NewNop(), WithResetClock(fixedClock(sept2024)))
	res, err := c.EnsureFreshRoom(ctx, "GI_year1")
	if err != nil || res.Outcome != ResetPerformed || res.Deleted != 3 {
		t.Fatalf("wipe must finish after the caller leaves: res=%+v err=%v", res, err)
	}
	if n := count(t, mem, "GI_year1"); n != 0 {
		t.Fatalf("expected empty room, got %d messages", n)
	}
	md, _ := mem.GetMetadata(context.Background(), "GI_year1")
	if md == nil || !md.ResetDone {
		t.Fatalf("expected reset flagged done, got %+v", md)
	}
}

func TestEnsureFreshRoom_UnfinishedClaimIsCompleted(t *testing.T) {
	ctx := context.Background()
	mem := data.NewMemoryStore()
	cutoff := sept2024.UnixMilli() - 1000

	// a claim whose wipe never ran, as after a crash
	_, _, _ = mem.ClaimReset(ctx, "GI_year1", "2024", cutoff)
	seed(t, mem, "GI_year1", 1, 2, 3)
	after := &data.Message{ID: "after", RoomID: "GI_year1", Text: "hi", Timestamp: cutoff + 1}
	if err := mem.AppendMessage(ctx, after); err != nil {
		t.Fatalf("AppendMessage failed: %v", err)
	}

	c := NewCoordinator(mem, zap.NewNop(), WithResetClock(fixedClock(sept2024)))
	res, err := c.EnsureFreshRoom(ctx, "GI_year1")
	if err != nil || res.Outcome != ResetResumed || res.Deleted != 3 {
		t.Fatalf("unfinished reset must be completed: res=%+v err=%v", res, err)
	}
	msgs, _ := mem.ListMessages(ctx, "GI_year1")
	if len(msgs) != 1 || msgs[0].ID != "after" {
		t.Fatalf("expected only the post-claim message, got %+v", msgs)
	}

	res, err = c.EnsureFreshRoom(ctx, "GI_year1")
	if err != nil || res.Outcome != ResetSkipped {
		t.Fatalf("completed reset must be skipped: res=%+v err=%v", res, err)
	}
}

// flakyStore fails DeleteMessages a configurable number of times.
type flakyStore struct {
	*data.MemoryStore
	mu        sync.Mutex
	failsLeft int
	deletes   int
	readErr   error
	claimErr  error
}

func (f *flakyStore) GetMetadata(ctx context.Context, roomID string) (*data.RoomMetadata, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	return f.MemoryStore.GetMetadata(ctx, roomID)
}

func (f *flakyStore) ClaimReset(ctx context.Context, roomID, target string, cutoff int64) (*data.RoomMetadata, bool, error) {
	if f.claimErr != nil {
		return nil, false, f.claimErr
	}
	return f.MemoryStore.ClaimReset(ctx, roomID, target, cutoff)
}

func (f *flakyStore) DeleteMessages(ctx context.Context, roomID string, upTo int64) (int64, error) {
	f.mu.Lock()
	f.deletes++
	fail := f.failsLeft > 0
	if fail {
		f.failsLeft--
	}
	f.mu.Unlock()
	if fail {
		return 0, errors.New("store unavailable")
	}
	return f.MemoryStore.DeleteMessages(ctx, roomID, upTo)
}

func TestEnsureFreshRoom_WipeRetriesOnce(t *testing.T) {
	mem := data.NewMemoryStore()
	seed(t, mem, "r", 1, 2)
	store := &flakyStore{MemoryStore: mem, failsLeft: 1}

	c := NewCoordinator(store, zap.NewNop(), WithResetClock(fixedClock(sept2024)), WithResetRetryDelay(time.Millisecond))
	res, err := c.EnsureFreshRoom(context.Background(), "r")
	if err != nil || res.Outcome != ResetPerformed {
		t.Fatalf("expected retry to succeed: res=%+v err=%v", res, err)
	}
	if store.deletes != 2 {
		t.Fatalf("expected 2 delete attempts, got %d", store.deletes)
	}
}

func TestEnsureFreshRoom_FailedWipeRevertsClaimAndRetriesLater(t *testing.T) {
	ctx := context.Background()
	mem := data.NewMemoryStore()
	_, _, _ = mem.ClaimReset(ctx, "r", "2023", 0)
	seed(t, mem, "r", 1, 2)
	store := &flakyStore{MemoryStore: mem, failsLeft: 2}

	c := NewCoordinator(store, zap.NewNop(), WithResetClock(fixedClock(sept2024)), WithResetRetryDelay(time.Millisecond))
	_, err := c.EnsureFreshRoom(ctx, "r")

	var rerr *ResetError
	if !errors.As(err, &rerr) || rerr.Kind != ResetWipeFailed {
		t.Fatalf("expected wipe failure, got %v", err)
	}
	md, _ := mem.GetMetadata(ctx, "r")
	if md.LastReset != "2023" {
		t.Fatalf("claim must be reverted, lastReset=%s", md.LastReset)
	}
	if n := count(t, mem, "r"); n != 2 {
		t.Fatalf("stale messages remain until a later attempt, got %d", n)
	}

	// the next visit sees the same stale condition and retries
	res, err := c.EnsureFreshRoom(ctx, "r")
	if err != nil || res.Outcome != ResetPerformed {
		t.Fatalf("second attempt should succeed: res=%+v err=%v", res, err)
	}
	if n := count(t, mem, "r"); n != 0 {
		t.Fatalf("expected empty room after retry, got %d", n)
	}
}

func TestEnsureFreshRoom_ReadAndClaimFailures(t *testing.T) {
	mem := data.NewMemoryStore()
	c := NewCoordinator(&flakyStore{MemoryStore: mem, readErr: errors.New("boom")}, zap.NewNop())

	var rerr *ResetError
	_, err := c.EnsureFreshRoom(context.Background(), "r")
	if !errors.As(err, &rerr) || rerr.Kind != ResetReadFailed {
		t.Fatalf("expected read failure, got %v", err)
	}

	c = NewCoordinator(&flakyStore{MemoryStore: mem, claimErr: errors.New("boom")}, zap.NewNop())
	_, err = c.EnsureFreshRoom(context.Background(), "r")
	if !errors.As(err, &rerr) || rerr.Kind != ResetClaimFailed {
		t.Fatalf("expected claim failure, got %v", err)
	}
}
