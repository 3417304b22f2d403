package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/PaulBabatuyi/cohortChat-gRPC/internal/auth"
	"github.com/PaulBabatuyi/cohortChat-gRPC/internal/chat"
	"github.com/PaulBabatuyi/cohortChat-gRPC/internal/config"
	"github.com/PaulBabatuyi/cohortChat-gRPC/internal/data"
	"github.com/PaulBabatuyi/cohortChat-gRPC/internal/db"
	"github.com/PaulBabatuyi/cohortChat-gRPC/internal/gate"
	"github.com/PaulBabatuyi/cohortChat-gRPC/internal/gateway"
	"github.com/PaulBabatuyi/cohortChat-gRPC/internal/logging"
	"github.com/PaulBabatuyi/cohortChat-gRPC/internal/middleware"
	v1 "github.com/PaulBabatuyi/cohortChat-gRPC/proto/chat/v1"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.Debug)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("server exit", zap.Error(err))
	}
}

type profileStore interface {
	UserStore
	gate.Profiles
}

type roomStore interface {
	chat.ResetStore
	chat.RoomStore
}

// backend is the storage selected by STORE_DRIVER.
type backend struct {
	profiles profileStore
	rooms    roomStore
	health   gateway.Pinger
	close    func(context.Context) error
}

func openBackend(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*backend, error) {
	if cfg.StoreDriver == config.DriverMemory {
		logger.Warn("using in-memory store; data is lost on restart")
		mem := data.NewMemoryStore()
		return &backend{
			profiles: mem,
			rooms:    mem,
			health:   mem,
			close:    func(context.Context) error { return nil },
		}, nil
	}

	dbClient, err := db.New(ctx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		return nil, fmt.Errorf("connect to DB: %w", err)
	}
	if err := dbClient.CreateIndexes(ctx); err != nil {
		_ = dbClient.Close(ctx)
		return nil, fmt.Errorf("create indexes: %w", err)
	}
	return &backend{
		profiles: data.NewUsersStore(dbClient.UsersCollection()),
		rooms:    data.NewRoomsStore(dbClient.MessagesCollection(), dbClient.MetadataCollection()),
		health:   dbClient,
		close:    dbClient.Close,
	}, nil
}

func newJWTManager(cfg *config.Config) *auth.JWTManager {
	// JWT_KEYS enables key rotation; JWT_SECRET is the single-key fallback
	if len(cfg.JWTKeys) > 0 {
		return auth.NewJWTManagerFromKeys(cfg.JWTKeys, cfg.JWTActiveKid, cfg.JWTTTL)
	}
	return auth.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL)
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	store, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.close(closeCtx); err != nil {
			logger.Warn("close store", zap.Error(err))
		}
	}()

	jwtMgr := newJWTManager(cfg)

	sync := chat.NewSynchronizer(store.rooms, logger.Named("sync"),
		chat.WithPollInterval(cfg.SyncPollInterval),
		chat.WithSendRetryDelay(cfg.SendRetryDelay))
	rooms := chat.NewService(
		gate.New(store.profiles, logger.Named("gate")),
		chat.NewCoordinator(store.rooms, logger.Named("reset")),
		sync,
		logger,
	)

	// small burst allows a couple of quick retries on the auth endpoints
	authLimiter := middleware.NewLimiterStore(cfg.RateLimitRPM, 3, time.Minute)
	defer authLimiter.Stop()
	sendLimiter := middleware.NewLimiterStore(cfg.SendRateLimitRPM, 5, time.Minute)
	defer sendLimiter.Stop()

	grpcServer, err := newGRPCServer(cfg, logger, jwtMgr, authLimiter, sendLimiter)
	if err != nil {
		return err
	}
	registerService(grpcServer, newServer(store.profiles, rooms, jwtMgr, logger))
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthSrv)
	healthSrv.SetServingStatus(v1.RoomService_ServiceDesc.ServiceName, healthpb.HealthCheckResponse_SERVING)

	listenAddr := fmt.Sprintf(":%s", cfg.Port)
	lis, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", listenAddr, err)
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("gRPC server listening", zap.String("addr", listenAddr))
		if err := grpcServer.Serve(lis); err != nil {
			errCh <- fmt.Errorf("gRPC server: %w", err)
		}
	}()

	var httpServer *http.Server
	if cfg.HTTPPort != "" {
		httpServer = &http.Server{
			Addr:              fmt.Sprintf(":%s", cfg.HTTPPort),
			Handler:           gateway.New(rooms, jwtMgr, store.health, sendLimiter, logger.Named("gateway"),
				gateway.WithAllowedOrigins(cfg.AllowedOrigins...)),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			logger.Info("HTTP gateway listening", zap.String("addr", httpServer.Addr))
			var err error
			if cfg.TLSCert != "" && cfg.TLSKey != "" {
				err = httpServer.ListenAndServeTLS(cfg.TLSCert, cfg.TLSKey)
			} else {
				err = httpServer.ListenAndServe()
			}
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("HTTP gateway: %w", err)
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case runErr = <-errCh:
	}

	healthSrv.Shutdown()
	if httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("HTTP gateway shutdown", zap.Error(err))
		}
		cancel()
	}
	// closing the feeds ends every JoinRoom stream so GracefulStop can return
	sync.Close()
	grpcServer.GracefulStop()
	return runErr
}

func newGRPCServer(cfg *config.Config, logger *zap.Logger, jwtMgr *auth.JWTManager, authLimiter, sendLimiter *middleware.LimiterStore) (*grpc.Server, error) {
	var serverOpts []grpc.ServerOption

	// If TLS certs are configured, create server credentials and require TLS
	if cfg.TLSCert != "" && cfg.TLSKey != "" {
		creds, err := credentials.NewServerTLSFromFile(cfg.TLSCert, cfg.TLSKey)
		if err != nil {
			return nil, fmt.Errorf("load TLS certs: %w", err)
		}
		serverOpts = append(serverOpts, grpc.Creds(creds))
	}

	// logging -> auth -> rate limits; auth runs first so sends are limited per user
	serverOpts = append(serverOpts, grpc.ChainUnaryInterceptor(
		logging.UnaryServerInterceptor(logger.Named("grpc")),
		authUnaryInterceptor(jwtMgr),
		middleware.RateLimitUnaryInterceptor(authLimiter, map[string]bool{
			v1.RoomService_Register_FullMethodName: true,
			v1.RoomService_Login_FullMethodName:    true,
		}),
		middleware.RateLimitUnaryInterceptor(sendLimiter, map[string]bool{
			v1.RoomService_SendMessage_FullMethodName: true,
		}),
	))
	serverOpts = append(serverOpts, grpc.ChainStreamInterceptor(
		logging.StreamServerInterceptor(logger.Named("grpc")),
		authStreamInterceptor(jwtMgr),
	))

	return grpc.NewServer(serverOpts...), nil
}
