package chat

import (
	"context"
	"errors"

	"github.com/PaulBabatuyi/cohortChat-gRPC/internal/academic"
	"github.com/PaulBabatuyi/cohortChat-gRPC/internal/data"
	"github.com/PaulBabatuyi/cohortChat-gRPC/internal/gate"
	"github.com/PaulBabatuyi/cohortChat-gRPC/internal/normalize"
	"go.uber.org/zap"
)

// Service runs the room session flow shared by the gRPC API and the HTTP
// gateway: gate check, room resolution, yearly reset, then live sync.
type Service struct {
	gate   *gate.Gate
	resets *Coordinator
	sync   *Synchronizer
	log    *zap.Logger
}

// NewService wires the session flow.
func NewService(g *gate.Gate, resets *Coordinator, sync *Synchronizer, log *zap.Logger) *Service {
	return &Service{gate: g, resets: resets, sync: sync, log: log}
}

// Session is an attached room session.
type Session struct {
	RoomID string
	Status *gate.Status
	*Subscription
}

// Gate returns the gate status of uid, with the room it would join.
func (s *Service) Gate(ctx context.Context, uid string) (*gate.Status, string, error) {
	st, err := s.gate.Check(ctx, uid)
	if err != nil {
		return nil, "", err
	}
	return st, roomFor(st), nil
}

// ConfirmLevel records uid's level for the current academic year.
func (s *Service) ConfirmLevel(ctx context.Context, uid string, level academic.Level) (*gate.Status, string, error) {
	st, err := s.gate.Confirm(ctx, uid, level)
	if err != nil {
		return nil, "", err
	}
	return st, roomFor(st), nil
}

// Join attaches uid to their room. It fails with ErrLevelNotConfirmed until
// the gate is passed. A failed reset is logged and the room is attached
// anyway; it is retried on the next join.
func (s *Service) Join(ctx context.Context, uid string) (*Session, error) {
	st, err := s.gate.Check(ctx, uid)
	if err != nil {
		return nil, err
	}
	if !st.Confirmed {
		return nil, ErrLevelNotConfirmed
	}
	roomID := roomFor(st)

	s.ensureFresh(ctx, roomID)

	return &Session{
		RoomID:       roomID,
		Status:       st,
		Subscription: s.sync.Attach(roomID),
	}, nil
}

// Send posts text to uid's room as uid. The room is reset first if nobody
// has joined it since the academic year turned over, so a new-year message
// is never wiped by a later join.
func (s *Service) Send(ctx context.Context, uid, text string) (*data.Message, error) {
	st, err := s.gate.Check(ctx, uid)
	if err != nil {
		return nil, err
	}
	if !st.Confirmed {
		return nil, ErrLevelNotConfirmed
	}

	roomID := roomFor(st)
	s.ensureFresh(ctx, roomID)

	name := st.Profile.DisplayName
	if name == "" {
		name = st.Profile.Email
	}
	return s.sync.Send(ctx, SendRequest{
		RoomID:     roomID,
		Text:       text,
		SenderID:   uid,
		SenderName: name,
		IsMentor:   st.Profile.IsMentor,
	})
}

// ensureFresh runs the yearly reset check for roomID. Failures are logged and
// retried by the next join or send.
func (s *Service) ensureFresh(ctx context.Context, roomID string) {
	res, err := s.resets.EnsureFreshRoom(ctx, roomID)
	if err != nil {
		var rerr *ResetError
		kind := ""
		if errors.As(err, &rerr) {
			kind = rerr.Kind.String()
		}
		s.log.Error("room reset failed; continuing with possibly stale messages",
			zap.String("room_id", roomID),
			zap.String("kind", kind),
			zap.Error(err))
	} else if res.Outcome != ResetSkipped {
		s.log.Debug("room reset check",
			zap.String("room_id", roomID),
			zap.Stringer("outcome", res.Outcome))
	}
}

func roomFor(st *gate.Status) string {
	return RoomID(normalize.Filiere(st.Profile.Filiere), st.Level)
}

// ActiveRooms reports how many rooms have at least one attached session.
func (s *Service) ActiveRooms() int {
	return s.sync.ActiveRooms()
}
