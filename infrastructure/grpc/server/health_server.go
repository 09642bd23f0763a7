package server

import (
	"errors"
	"log/slog"
	"net"
	"tutor-realtime/runtime/workers"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// BridgeService is the health service name load balancers probe.
// It reports SERVING only while the notification bridge is listening.
const BridgeService = "realtime.bridge"

type HealthServer struct {
	log    *slog.Logger
	server *grpc.Server
	health *health.Server
}

func NewHealthServer(log *slog.Logger) *HealthServer {
	s := grpc.NewServer()
	h := health.NewServer()
	h.SetServingStatus(BridgeService, healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(s, h)
	return &HealthServer{log: log, server: s, health: h}
}

// BridgeStateChanged is plugged as the bridge's state callback.
func (h *HealthServer) BridgeStateChanged(state workers.BridgeState) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if state == workers.StateListening {
		status = healthpb.HealthCheckResponse_SERVING
	}
	h.health.SetServingStatus(BridgeService, status)
	h.log.Debug("Health status updated", "service", BridgeService, "status", status.String())
}

// Serve blocks until Stop is called.
func (h *HealthServer) Serve(lis net.Listener) error {
	if err := h.server.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}

func (h *HealthServer) Stop() {
	h.health.Shutdown()
	h.server.GracefulStop()
}
