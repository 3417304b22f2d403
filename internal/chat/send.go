package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PaulBabatuyi/cohortChat-gRPC/internal/data"
	"github.com/PaulBabatuyi/cohortChat-gRPC/internal/normalize"
	"go.uber.org/zap"
)

// sendAttempts is the number of writes tried before a send fails.
const sendAttempts = 2

// SendRequest is a message about to be written to a room.
type SendRequest struct {
	RoomID     string `validate:"required"`
	Text       string `validate:"max=4000"`
	SenderID   string `validate:"required"`
	SenderName string `validate:"max=200"`
	IsMentor   bool
}

// Send writes a message to req.RoomID with a fresh id and the server time as
// timestamp. Text is stripped of markup; blank text fails with
// ErrEmptyMessage. A failed write is retried once, then reported as
// *SendError.
func (s *Synchronizer) Send(ctx context.Context, req SendRequest) (*data.Message, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	text := strings.TrimSpace(s.policy.Sanitize(req.Text))
	if text == "" {
		return nil, ErrEmptyMessage
	}

	msg := &data.Message{
		ID:         s.newID(),
		RoomID:     req.RoomID,
		Text:       text,
		SenderID:   req.SenderID,
		SenderName: s.policy.Sanitize(normalize.DisplayName(req.SenderName)),
		Timestamp:  s.now().UnixMilli(),
		IsMentor:   req.IsMentor,
	}

	var err error
	for attempt := 1; attempt <= sendAttempts; attempt++ {
		// same id on retry: a write that landed despite an error is not duplicated
		if err = s.rooms.AppendMessage(ctx, msg); err == nil {
			return msg, nil
		}
		s.log.Warn("append message failed",
			zap.String("room_id", req.RoomID),
			zap.Int("attempt", attempt),
			zap.Error(err))

		if attempt == sendAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, &SendError{RoomID: req.RoomID, Attempts: attempt, Err: ctx.Err()}
		case <-time.After(s.retryDelay):
		}
	}
	return nil, &SendError{RoomID: req.RoomID, Attempts: sendAttempts, Err: err}
}
