package chat

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyMessage      = errors.New("message text is empty")
	ErrInvalidRequest    = errors.New("invalid request")
	ErrLevelNotConfirmed = errors.New("cohort level not confirmed for the current academic year")
)

// ResetErrorKind names the step of EnsureFreshRoom that failed.
type ResetErrorKind int

const (
	ResetReadFailed ResetErrorKind = iota + 1
	ResetClaimFailed
	ResetWipeFailed
)

func (k ResetErrorKind) String() string {
	switch k {
	case ResetReadFailed:
		return "read"
	case ResetClaimFailed:
		return "claim"
	case ResetWipeFailed:
		return "wipe"
	default:
		return fmt.Sprintf("ResetErrorKind(%d)", int(k))
	}
}

// ResetError is returned by Coordinator.EnsureFreshRoom.
type ResetError struct {
	Kind   ResetErrorKind
	RoomID string
	Err    error
}

func (e *ResetError) Error() string {
	return fmt.Sprintf("reset room %s: %s: %v", e.RoomID, e.Kind, e.Err)
}

func (e *ResetError) Unwrap() error { return e.Err }

// SendError is returned when a message could not be written after retrying.
type SendError struct {
	RoomID   string
	Attempts int
	Err      error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("send to room %s failed after %d attempts: %v", e.RoomID, e.Attempts, e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }
