package server_test

import (
	"context"
	"log/slog"
	"net"
	"testing"
	"time"
	"tutor-realtime/infrastructure/grpc/server"
	"tutor-realtime/runtime/workers"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
)

func startHealthServer(t *testing.T) (*server.HealthServer, healthpb.HealthClient) {
	t.Helper()
	lis := bufconn.Listen(1024 * 1024)
	h := server.NewHealthServer(logs.GetLoggerFromLevel(slog.LevelDebug))
	go func() { _ = h.Serve(lis) }()
	t.Cleanup(h.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return h, healthpb.NewHealthClient(conn)
}

func check(t *testing.T, client healthpb.HealthClient) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: server.BridgeService})
	require.NoError(t, err)
	return resp.Status
}

func TestHealthServer_NotServingUntilListening(t *testing.T) {
	req := require.New(t)

	// Given a health server with no bridge activity yet
	h, client := startHealthServer(t)

	// Then the bridge service is not serving
	req.Equal(healthpb.HealthCheckResponse_NOT_SERVING, check(t, client))

	// When the bridge connects but doesn't listen yet
	h.BridgeStateChanged(workers.StateConnected)
	req.Equal(healthpb.HealthCheckResponse_NOT_SERVING, check(t, client))

	// When the bridge starts listening
	h.BridgeStateChanged(workers.StateListening)
	req.Equal(healthpb.HealthCheckResponse_SERVING, check(t, client))
}

func TestHealthServer_LostSessionFlipsBack(t *testing.T) {
	req := require.New(t)

	// Given a listening bridge
	h, client := startHealthServer(t)
	h.BridgeStateChanged(workers.StateListening)
	req.Equal(healthpb.HealthCheckResponse_SERVING, check(t, client))

	// When the session is lost
	h.BridgeStateChanged(workers.StateDisconnected)

	// Then the service is reported as not serving
	req.Equal(healthpb.HealthCheckResponse_NOT_SERVING, check(t, client))
}
