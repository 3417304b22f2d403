package main

import (
	"context"
	"net"
	"os"
	"testing"
	"time"

	"github.com/PaulBabatuyi/cohortChat-gRPC/internal/auth"
	"github.com/PaulBabatuyi/cohortChat-gRPC/internal/chat"
	"github.com/PaulBabatuyi/cohortChat-gRPC/internal/config"
	"github.com/PaulBabatuyi/cohortChat-gRPC/internal/data"
	"github.com/PaulBabatuyi/cohortChat-gRPC/internal/db"
	"github.com/PaulBabatuyi/cohortChat-gRPC/internal/gate"
	"github.com/PaulBabatuyi/cohortChat-gRPC/internal/middleware"
	v1 "github.com/PaulBabatuyi/cohortChat-gRPC/proto/chat/v1"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/emptypb"
)

const bufSize = 1024 * 1024

type storeSet struct {
	profiles profileStore
	rooms    roomStore
}

// startBufServer serves the full interceptor chain over bufconn and returns a client.
func startBufServer(t *testing.T, stores storeSet) v1.RoomServiceClient {
	t.Helper()
	log := zap.NewNop()
	jwtMgr := auth.NewJWTManager("test-secret", time.Hour)

	sync := chat.NewSynchronizer(stores.rooms, log, chat.WithPollInterval(50*time.Millisecond))
	rooms := chat.NewService(gate.New(stores.profiles, log), chat.NewCoordinator(stores.rooms, log), sync, log)

	authLimiter := middleware.NewLimiterStore(600, 10, time.Minute)
	sendLimiter := middleware.NewLimiterStore(600, 10, time.Minute)
	t.Cleanup(authLimiter.Stop)
	t.Cleanup(sendLimiter.Stop)

	s := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			authUnaryInterceptor(jwtMgr),
			middleware.RateLimitUnaryInterceptor(authLimiter, publicMethods),
			middleware.RateLimitUnaryInterceptor(sendLimiter, map[string]bool{v1.RoomService_SendMessage_FullMethodName: true}),
		),
		grpc.ChainStreamInterceptor(authStreamInterceptor(jwtMgr)),
	)
	registerService(s, newServer(stores.profiles, rooms, jwtMgr, log))

	lis := bufconn.Listen(bufSize)
	go func() {
		_ = s.Serve(lis)
	}()
	t.Cleanup(func() {
		sync.Close()
		s.GracefulStop()
	})

	dialer := func(ctx context.Context, _ string) (net.Conn, error) { return lis.Dial() }
	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(dialer),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("failed to dial bufnet: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	return v1.NewRoomServiceClient(conn)
}

func withToken(ctx context.Context, token string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+token)
}

// exerciseRoomFlow runs Register -> Login -> GetGate -> ConfirmLevel -> JoinRoom -> SendMessage.
func exerciseRoomFlow(t *testing.T, client v1.RoomServiceClient) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	email := time.Now().UTC().Format("20060102-150405.000") + "-it@example.com"
	pwd := "testPass123"

	regResp, err := client.Register(ctx, &v1.RegisterRequest{
		Email:       email,
		Password:    pwd,
		DisplayName: "Integration",
		Filiere:     "GI",
		StartYear:   int32(time.Now().Year()),
	})
	if err != nil {
		t.Fatalf("Register RPC failed: %v", err)
	}
	if regResp.GetToken() == "" || regResp.GetUserId() == "" {
		t.Fatalf("Register response missing token or user_id")
	}

	loginResp, err := client.Login(ctx, &v1.LoginRequest{Email: email, Password: pwd})
	if err != nil {
		t.Fatalf("Login RPC failed: %v", err)
	}
	if loginResp.GetToken() == "" {
		t.Fatalf("Login response missing token")
	}
	authed := withToken(ctx, loginResp.GetToken())

	if _, err := client.GetGate(ctx, &emptypb.Empty{}); status.Code(err) != codes.Unauthenticated {
		t.Fatalf("expected Unauthenticated without token, got %v", err)
	}

	st, err := client.GetGate(authed, &emptypb.Empty{})
	if err != nil {
		t.Fatalf("GetGate RPC failed: %v", err)
	}
	if st.GetConfirmed() {
		t.Fatalf("new user must be unconfirmed")
	}

	st, err = client.ConfirmLevel(authed, &v1.ConfirmLevelRequest{Level: 1})
	if err != nil {
		t.Fatalf("ConfirmLevel RPC failed: %v", err)
	}
	if st.GetRoomId() != "GI_year1" {
		t.Fatalf("unexpected room: %s", st.GetRoomId())
	}

	stream, err := client.JoinRoom(authed, &v1.JoinRoomRequest{})
	if err != nil {
		t.Fatalf("JoinRoom RPC failed: %v", err)
	}
	snap, err := stream.Recv()
	if err != nil {
		t.Fatalf("first snapshot: %v", err)
	}
	if snap.GetRoomId() != "GI_year1" {
		t.Fatalf("unexpected snapshot room: %s", snap.GetRoomId())
	}
	before := len(snap.GetMessages())

	if _, err := client.SendMessage(authed, &v1.SendMessageRequest{Text: "hello cohort"}); err != nil {
		t.Fatalf("SendMessage RPC failed: %v", err)
	}

	for len(snap.GetMessages()) == before {
		if snap, err = stream.Recv(); err != nil {
			t.Fatalf("update snapshot: %v", err)
		}
	}
	last := snap.GetMessages()[len(snap.GetMessages())-1]
	if last.Text != "hello cohort" || last.SenderName != "Integration" {
		t.Fatalf("unexpected message: %+v", last)
	}
}

func TestRoomFlow_MemoryStore(t *testing.T) {
	mem := data.NewMemoryStore()
	exerciseRoomFlow(t, startBufServer(t, storeSet{profiles: mem, rooms: mem}))
}

func TestRoomFlow_MongoStore(t *testing.T) {
	uri := os.Getenv("MONGODB_URI")
	if uri == "" {
		t.Skip("MONGODB_URI not set; skipping integration test")
	}

	ctx := context.Background()
	dbClient, err := db.New(ctx, uri, "chat_db_test")
	if err != nil {
		t.Fatalf("db.New failed: %v", err)
	}
	// registered first so it runs after the server has stopped
	t.Cleanup(func() {
		_ = dbClient.UsersCollection().Drop(context.Background())
		_ = dbClient.MessagesCollection().Drop(context.Background())
		_ = dbClient.MetadataCollection().Drop(context.Background())
		_ = dbClient.Close(context.Background())
	})
	if err := dbClient.CreateIndexes(ctx); err != nil {
		t.Fatalf("CreateIndexes failed: %v", err)
	}

	exerciseRoomFlow(t, startBufServer(t, storeSet{
		profiles: data.NewUsersStore(dbClient.UsersCollection()),
		rooms:    data.NewRoomsStore(dbClient.MessagesCollection(), dbClient.MetadataCollection()),
	}))
}

func TestHealthCheck_WithoutToken(t *testing.T) {
	authLimiter := middleware.NewLimiterStore(600, 10, time.Minute)
	sendLimiter := middleware.NewLimiterStore(600, 10, time.Minute)
	t.Cleanup(authLimiter.Stop)
	t.Cleanup(sendLimiter.Stop)

	s, err := newGRPCServer(&config.Config{}, zap.NewNop(), auth.NewJWTManager("test-secret", time.Hour), authLimiter, sendLimiter)
	if err != nil {
		t.Fatalf("newGRPCServer failed: %v", err)
	}
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(s, healthSrv)
	healthSrv.SetServingStatus(v1.RoomService_ServiceDesc.ServiceName, healthpb.HealthCheckResponse_SERVING)

	lis := bufconn.Listen(bufSize)
	go func() {
		_ = s.Serve(lis)
	}()
	t.Cleanup(s.Stop)

	dialer := func(ctx context.Context, _ string) (net.Conn, error) { return lis.Dial() }
	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(dialer),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("failed to dial bufnet: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: v1.RoomService_ServiceDesc.ServiceName})
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("expected SERVING, got %s", resp.GetStatus())
	}
}
