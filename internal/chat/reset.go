package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/PaulBabatuyi/cohortChat-gRPC/internal/academic"
	"github.com/PaulBabatuyi/cohortChat-gRPC/internal/data"
	"go.uber.org/zap"
)

// ResetStore is the slice of the room store used by the Coordinator.
type ResetStore interface {
	GetMetadata(ctx context.Context, roomID string) (*data.RoomMetadata, error)
	ClaimReset(ctx context.Context, roomID, target string, cutoff int64) (*data.RoomMetadata, bool, error)
	RevertReset(ctx context.Context, roomID, target string, cutoff int64, prev *data.RoomMetadata) error
	MarkResetDone(ctx context.Context, roomID, target string, cutoff int64) error
	DeleteMessages(ctx context.Context, roomID string, upTo int64) (int64, error)
}

// ResetOutcome says what EnsureFreshRoom did.
type ResetOutcome int

const (
	// ResetSkipped: the room was already reset for the current academic year.
	ResetSkipped ResetOutcome = iota
	// ResetPerformed: this call claimed the reset and wiped the room.
	ResetPerformed
	// ResetClaimedElsewhere: another caller won the claim between our read
	// and our claim; it owns the wipe.
	ResetClaimedElsewhere
	// ResetResumed: the room was claimed for the current year but its wipe
	// never completed; this call finished it.
	ResetResumed
)

func (o ResetOutcome) String() string {
	switch o {
	case ResetSkipped:
		return "skipped"
	case ResetPerformed:
		return "performed"
	case ResetClaimedElsewhere:
		return "claimed_elsewhere"
	case ResetResumed:
		return "resumed"
	default:
		return fmt.Sprintf("ResetOutcome(%d)", int(o))
	}
}

// ResetResult reports a completed EnsureFreshRoom call.
type ResetResult struct {
	Outcome ResetOutcome
	Target  string // academic-year label the room must carry
	Deleted int64  // messages removed (ResetPerformed and ResetResumed)
}

// resetTimeout bounds the wipe that follows a won claim. The wipe runs
// detached from the caller so a client leaving mid-reset does not strand the
// claim.
const resetTimeout = 30 * time.Second

// Coordinator wipes a room's messages once per academic year.
//
// The wipe is guarded by a compare-and-set on the room's last_reset, so among
// concurrent callers exactly one performs it. Only messages written at or
// before the claim are deleted; a message sent while the wipe runs survives.
type Coordinator struct {
	rooms      ResetStore
	now        func() time.Time
	retryDelay time.Duration
	log        *zap.Logger
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithResetClock overrides the time source.
func WithResetClock(now func() time.Time) CoordinatorOption {
	return func(c *Coordinator) { c.now = now }
}

// WithResetRetryDelay sets the pause before the single wipe retry.
func WithResetRetryDelay(d time.Duration) CoordinatorOption {
	return func(c *Coordinator) { c.retryDelay = d }
}

// NewCoordinator returns a Coordinator over rooms.
func NewCoordinator(rooms ResetStore, log *zap.Logger, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		rooms:      rooms,
		now:        time.Now,
		retryDelay: 200 * time.Millisecond,
		log:        log,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// EnsureFreshRoom clears roomID if it has not been reset for the current
// academic year. A *ResetError says which step failed; after a failed wipe
// the claim is reverted so the next call retries. A claim whose wipe never
// finished (crash, timeout) is completed by the next caller.
func (c *Coordinator) EnsureFreshRoom(ctx context.Context, roomID string) (ResetResult, error) {
	now := c.now()
	target := academic.YearLabel(now)
	res := ResetResult{Target: target}

	md, err := c.rooms.GetMetadata(ctx, roomID)
	if err != nil {
		return res, &ResetError{Kind: ResetReadFailed, RoomID: roomID, Err: err}
	}
	if md != nil && md.LastReset == target {
		if md.ResetDone {
			res.Outcome = ResetSkipped
			return res, nil
		}
		return c.resume(ctx, roomID, target, md.ResetCutoff)
	}

	cutoff := now.UnixMilli()
	prev, won, err := c.rooms.ClaimReset(ctx, roomID, target, cutoff)
	if err != nil {
		return res, &ResetError{Kind: ResetClaimFailed, RoomID: roomID, Err: err}
	}
	if !won {
		res.Outcome = ResetClaimedElsewhere
		return res, nil
	}

	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), resetTimeout)
	defer cancel()

	deleted, err := c.wipe(wctx, roomID, target, cutoff)
	if err != nil {
		if rerr := c.rooms.RevertReset(wctx, roomID, target, cutoff, prev); rerr != nil {
			c.log.Error("revert room reset claim",
				zap.String("room_id", roomID),
				zap.String("target", target),
				zap.Error(rerr))
		}
		return res, &ResetError{Kind: ResetWipeFailed, RoomID: roomID, Err: err}
	}

	previous := ""
	if prev != nil {
		previous = prev.LastReset
	}
	c.log.Info("room reset for new academic year",
		zap.String("room_id", roomID),
		zap.String("previous", previous),
		zap.String("target", target),
		zap.Int64("deleted", deleted))

	res.Outcome = ResetPerformed
	res.Deleted = deleted
	return res, nil
}

// resume re-runs the wipe of a claim left unfinished. DeleteMessages up to
// the recorded cutoff is idempotent, so concurrent resumers are harmless.
func (c *Coordinator) resume(ctx context.Context, roomID, target string, cutoff int64) (ResetResult, error) {
	res := ResetResult{Target: target}

	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), resetTimeout)
	defer cancel()

	deleted, err := c.wipe(wctx, roomID, target, cutoff)
	if err != nil {
		return res, &ResetError{Kind: ResetWipeFailed, RoomID: roomID, Err: err}
	}

	c.log.Info("unfinished room reset completed",
		zap.String("room_id", roomID),
		zap.String("target", target),
		zap.Int64("deleted", deleted))

	res.Outcome = ResetResumed
	res.Deleted = deleted
	return res, nil
}

// wipe deletes messages up to cutoff, retrying once, then flags the claim
// as done.
func (c *Coordinator) wipe(ctx context.Context, roomID, target string, cutoff int64) (int64, error) {
	n, err := c.rooms.DeleteMessages(ctx, roomID, cutoff)
	if err != nil {
		c.log.Warn("room wipe failed, retrying", zap.String("room_id", roomID), zap.Error(err))

		select {
		case <-ctx.Done():
			return 0, err
		case <-time.After(c.retryDelay):
		}
		if n, err = c.rooms.DeleteMessages(ctx, roomID, cutoff); err != nil {
			return 0, err
		}
	}
	if err := c.rooms.MarkResetDone(ctx, roomID, target, cutoff); err != nil {
		// the messages are gone; the next visitor re-runs the no-op wipe
		c.log.Warn("mark room reset done", zap.String("room_id", roomID), zap.Error(err))
	}
	return n, nil
}
