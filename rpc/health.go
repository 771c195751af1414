package rpc

import (
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/wfunc/boardserver/logger"
)

// ServiceName is the name reported to gRPC health checks.
const ServiceName = "board.GameServer"

// HealthServer answers the standard gRPC health protocol.
type HealthServer struct {
	listener net.Listener
	server   *grpc.Server
	health   *health.Server
}

func NewHealthServer(addr string) (*HealthServer, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	hs := health.NewServer()
	srv := grpc.NewServer()
	healthpb.RegisterHealthServer(srv, hs)

	h := &HealthServer{listener: listener, server: srv, health: hs}
	h.SetServing(false)
	return h, nil
}

func (h *HealthServer) Addr() string {
	return h.listener.Addr().String()
}

func (h *HealthServer) Start() {
	logger.Log.Infof("Health server listening on %s", h.Addr())
	if err := h.server.Serve(h.listener); err != nil {
		logger.Log.Errorf("Health server stopped: %v", err)
	}
}

// SetServing flips both the overall and the game service status.
func (h *HealthServer) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	h.health.SetServingStatus("", status)
	h.health.SetServingStatus(ServiceName, status)
}

func (h *HealthServer) Stop() {
	h.health.Shutdown()
	h.server.GracefulStop()
}
