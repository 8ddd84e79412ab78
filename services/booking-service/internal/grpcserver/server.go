package grpcserver

import (
	"context"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/md-rashed-zaman/salonbook/libs/grpcx"
	"github.com/md-rashed-zaman/salonbook/libs/runtime"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func New(logger *slog.Logger) *grpc.Server {
	return grpc.NewServer(grpcx.ServerOptions(grpcx.UnaryServerAccessLog(logger))...)
}

// Health publishes the readiness checks through grpc.health.v1 for both the
// overall server ("") and the named service.
type Health struct {
	srv     *health.Server
	service string
	checks  []runtime.ReadyCheck
	logger  *slog.Logger
}

func RegisterHealth(s *grpc.Server, service string, logger *slog.Logger, checks ...runtime.ReadyCheck) *Health {
	h := &Health{srv: health.NewServer(), service: service, checks: checks, logger: logger}
	healthpb.RegisterHealthServer(s, h.srv)
	return h
}

// Refresh runs the checks once and updates the served status.
func (h *Health) Refresh(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_SERVING
	if failures := runtime.RunChecks(ctx, h.checks); len(failures) > 0 {
		status = healthpb.HealthCheckResponse_NOT_SERVING
		h.logger.Warn("readiness checks failing", "failures", strings.Join(failures, "; "))
	}
	h.srv.SetServingStatus("", status)
	h.srv.SetServingStatus(h.service, status)
	return status
}

// Run refreshes every interval until ctx ends, then reports NOT_SERVING.
func (h *Health) Run(ctx context.Context, every time.Duration) {
	if every <= 0 {
		every = 10 * time.Second
	}
	h.Refresh(ctx)
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			h.srv.Shutdown()
			return
		case <-ticker.C:
			h.Refresh(ctx)
		}
	}
}

// Serve blocks serving on lis until ctx is cancelled, then stops gracefully.
func Serve(ctx context.Context, logger *slog.Logger, s *grpc.Server, lis net.Listener) {
	go func() {
		logger.Info("grpc server starting", "addr", lis.Addr().String())
		if err := s.Serve(lis); err != nil && err != grpc.ErrServerStopped {
			logger.Error("grpc server error", "err", err)
		}
	}()
	<-ctx.Done()
	s.GracefulStop()
	logger.Info("grpc server stopped")
}
