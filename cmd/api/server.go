package main

import (
	"context"

	"github.com/PaulBabatuyi/cohortChat-gRPC/internal/auth"
	"github.com/PaulBabatuyi/cohortChat-gRPC/internal/chat"
	"github.com/PaulBabatuyi/cohortChat-gRPC/internal/data"
	v1 "github.com/PaulBabatuyi/cohortChat-gRPC/proto/chat/v1"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

// UserStore is the slice of the profile store used by Register and Login.
type UserStore interface {
	CreateUser(ctx context.Context, user *data.User) (*data.User, error)
	GetUserByEmail(ctx context.Context, email string) (*data.User, error)
}

// Server implements the room service and contains references to stores and auth logic.
type Server struct {
	v1.UnimplementedRoomServiceServer

	users    UserStore
	rooms    *chat.Service
	auth     *auth.JWTManager
	validate *validator.Validate
	log      *zap.Logger
}

// newServer returns a ready-to-use Server wired with stores, the room service and auth manager.
func newServer(users UserStore, rooms *chat.Service, authMgr *auth.JWTManager, log *zap.Logger) *Server {
	return &Server{
		users:    users,
		rooms:    rooms,
		auth:     authMgr,
		validate: validator.New(),
		log:      log,
	}
}

// registerService registers the RoomService on the given gRPC server.
func registerService(s *grpc.Server, srv *Server) {
	v1.RegisterRoomServiceServer(s, srv)
}
