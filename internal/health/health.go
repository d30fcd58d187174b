// Package health publishes supervisor readiness over the gRPC health protocol.
package health

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/wagiedev/cgsdk-relay/internal/channel"
	"github.com/wagiedev/cgsdk-relay/internal/config"
)

// ServiceName is the health service name probes should check. The empty
// service name reports the same status.
const ServiceName = "cgrelay.Relay"

// Server reports SERVING while a worker is ready and NOT_SERVING otherwise.
type Server struct {
	log    *slog.Logger
	health *health.Server
	grpc   *grpc.Server
}

// NewServer creates a health server in the NOT_SERVING state.
func NewServer(log *slog.Logger) *Server {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	s := &Server{
		log:    log.With("component", "health"),
		health: health.NewServer(),
		grpc:   grpc.NewServer(),
	}

	healthpb.RegisterHealthServer(s.grpc, s.health)
	s.setStatus(healthpb.HealthCheckResponse_NOT_SERVING)

	return s
}

// SetState maps a supervisor state to a serving status.
func (s *Server) SetState(state config.State) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if state == config.StateReady {
		status = healthpb.HealthCheckResponse_SERVING
	}

	s.setStatus(status)
}

func (s *Server) setStatus(status healthpb.HealthCheckResponse_ServingStatus) {
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}

// Serve listens on the unix socket at path and serves health checks until
// ctx ends.
func (s *Server) Serve(ctx context.Context, path string) error {
	ln, err := channel.ListenUnix(ctx, path)
	if err != nil {
		return fmt.Errorf("listen health socket: %w", err)
	}

	stop := context.AfterFunc(ctx, func() {
		s.health.Shutdown()
		s.grpc.GracefulStop()
	})
	defer stop()

	s.log.Info("Serving health checks", "socket", path)

	if err := s.grpc.Serve(ln); err != nil && !stderrors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("serve health: %w", err)
	}

	return nil
}
