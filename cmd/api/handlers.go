package main

import (
	"context"
	"errors"

	"github.com/PaulBabatuyi/cohortChat-gRPC/internal/academic"
	"github.com/PaulBabatuyi/cohortChat-gRPC/internal/auth"
	"github.com/PaulBabatuyi/cohortChat-gRPC/internal/chat"
	"github.com/PaulBabatuyi/cohortChat-gRPC/internal/data"
	"github.com/PaulBabatuyi/cohortChat-gRPC/internal/gate"
	"github.com/PaulBabatuyi/cohortChat-gRPC/internal/normalize"
	v1 "github.com/PaulBabatuyi/cohortChat-gRPC/proto/chat/v1"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/timestamppb"
)

type registerInput struct {
	Email       string `validate:"required,email"`
	Password    string `validate:"required,min=8,max=72"`
	DisplayName string `validate:"max=200"`
	Filiere     string `validate:"required,max=64"`
	StartYear   int32  `validate:"omitempty,gte=1990,lte=2100"`
}

// Register handles user registration: hashes password, stores the profile, returns JWT token
func (s *Server) Register(ctx context.Context, req *v1.RegisterRequest) (*v1.RegisterResponse, error) {
	in := registerInput{
		Email:       normalize.Email(req.GetEmail()),
		Password:    req.GetPassword(),
		DisplayName: normalize.DisplayName(req.DisplayName),
		Filiere:     normalize.Filiere(req.Filiere),
		StartYear:   req.StartYear,
	}
	if err := s.validate.Struct(in); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid registration: %v", err)
	}

	hashed, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to hash password: %v", err)
	}

	user, err := s.users.CreateUser(ctx, &data.User{
		Email:       in.Email,
		Password:    hashed,
		DisplayName: in.DisplayName,
		Filiere:     in.Filiere,
		StartYear:   int(in.StartYear),
	})
	if err != nil {
		if errors.Is(err, data.ErrUserExists) {
			return nil, status.Errorf(codes.AlreadyExists, "email already registered")
		}
		s.log.Error("create user failed", zap.Error(err))
		return nil, status.Errorf(codes.Internal, "failed to create user")
	}

	token, expiresAt, err := s.auth.GenerateToken(user.ID.Hex(), user.Email)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to generate token: %v", err)
	}

	return &v1.RegisterResponse{
		Token:     token,
		UserId:    user.ID.Hex(),
		ExpiresAt: timestamppb.New(expiresAt),
	}, nil
}

// Login authenticates a user and returns a JWT token
func (s *Server) Login(ctx context.Context, req *v1.LoginRequest) (*v1.LoginResponse, error) {
	user, err := s.users.GetUserByEmail(ctx, req.GetEmail())
	if err != nil {
		if errors.Is(err, data.ErrUserNotFound) {
			return nil, status.Errorf(codes.NotFound, "user not found")
		}
		s.log.Error("lookup user failed", zap.Error(err))
		return nil, status.Errorf(codes.Internal, "failed to look up user")
	}

	if err := auth.CheckPassword(user.Password, req.GetPassword()); err != nil {
		return nil, status.Errorf(codes.PermissionDenied, "invalid credentials")
	}

	token, expiresAt, err := s.auth.GenerateToken(user.ID.Hex(), user.Email)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to generate token: %v", err)
	}

	return &v1.LoginResponse{
		Token:     token,
		UserId:    user.ID.Hex(),
		ExpiresAt: timestamppb.New(expiresAt),
	}, nil
}

// GetGate reports whether the caller must confirm a cohort level first.
func (s *Server) GetGate(ctx context.Context, _ *emptypb.Empty) (*v1.GateStatus, error) {
	claims, ok := auth.FromContext(ctx)
	if !ok {
		return nil, status.Errorf(codes.Unauthenticated, "missing auth claims")
	}
	st, room, err := s.rooms.Gate(ctx, claims.UserID)
	if err != nil {
		return nil, s.toStatus(err)
	}
	return v1.FromStatus(st, room), nil
}

// ConfirmLevel records the caller's cohort level for the current academic year.
func (s *Server) ConfirmLevel(ctx context.Context, req *v1.ConfirmLevelRequest) (*v1.GateStatus, error) {
	claims, ok := auth.FromContext(ctx)
	if !ok {
		return nil, status.Errorf(codes.Unauthenticated, "missing auth claims")
	}
	st, room, err := s.rooms.ConfirmLevel(ctx, claims.UserID, academic.Level(req.GetLevel()))
	if err != nil {
		return nil, s.toStatus(err)
	}
	return v1.FromStatus(st, room), nil
}

// SendMessage posts to the caller's room.
func (s *Server) SendMessage(ctx context.Context, req *v1.SendMessageRequest) (*v1.SendMessageResponse, error) {
	claims, ok := auth.FromContext(ctx)
	if !ok {
		return nil, status.Errorf(codes.Unauthenticated, "missing auth claims")
	}
	msg, err := s.rooms.Send(ctx, claims.UserID, req.GetText())
	if err != nil {
		return nil, s.toStatus(err)
	}
	return &v1.SendMessageResponse{Message: v1.FromMessage(msg)}, nil
}

// JoinRoom attaches the caller to their room and streams a snapshot on every
// change until the client goes away or the server shuts down.
func (s *Server) JoinRoom(_ *v1.JoinRoomRequest, stream grpc.ServerStreamingServer[v1.RoomSnapshot]) error {
	ctx := stream.Context()
	claims, ok := auth.FromContext(ctx)
	if !ok {
		return status.Errorf(codes.Unauthenticated, "missing auth claims")
	}

	sess, err := s.rooms.Join(ctx, claims.UserID)
	if err != nil {
		return s.toStatus(err)
	}
	defer sess.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case msgs, ok := <-sess.Updates():
			if !ok {
				return status.Errorf(codes.Unavailable, "room closed")
			}
			if err := stream.Send(v1.FromSnapshot(sess.RoomID, msgs)); err != nil {
				return status.Errorf(codes.Internal, "failed to send snapshot: %v", err)
			}
		}
	}
}

// toStatus maps room and gate errors to gRPC status codes.
func (s *Server) toStatus(err error) error {
	var serr *chat.SendError
	switch {
	case errors.Is(err, gate.ErrProfileNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, gate.ErrInvalidLevel),
		errors.Is(err, chat.ErrEmptyMessage),
		errors.Is(err, chat.ErrInvalidRequest):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, chat.ErrLevelNotConfirmed):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.As(err, &serr):
		return status.Error(codes.Unavailable, "message could not be sent, try again")
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		s.log.Error("request failed", zap.Error(err))
		return status.Error(codes.Internal, "internal error")
	}
}
