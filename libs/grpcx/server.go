package grpcx

import (
	"context"
	"net"
	"strings"
	"time"

	"github.com/fracto-health/fracto/libs/runtime"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Server is a gRPC server exposing the standard health service. The serving
// status follows the readiness checks it is given.
type Server struct {
	srv     *grpc.Server
	health  *health.Server
	logger  *zap.Logger
	service string
	checks  []runtime.ReadyCheck
}

func NewServer(logger *zap.Logger, service string, checks ...runtime.ReadyCheck) *Server {
	srv := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			UnaryServerRequestIDInterceptor(),
			UnaryServerLoggingInterceptor(logger),
		),
	)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	hs.SetServingStatus(service, healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)

	return &Server{srv: srv, health: hs, logger: logger, service: service, checks: checks}
}

// Serve blocks until ctx is done, then stops gracefully.
func (s *Server) Serve(ctx context.Context, lis net.Listener, pollEvery time.Duration) error {
	if pollEvery <= 0 {
		pollEvery = 5 * time.Second
	}
	go s.pollReadiness(ctx, pollEvery)

	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.Serve(lis) }()

	select {
	case <-ctx.Done():
		s.health.Shutdown()
		s.srv.GracefulStop()
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) pollReadiness(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	last := healthpb.HealthCheckResponse_UNKNOWN
	for {
		status := healthpb.HealthCheckResponse_SERVING
		if failures := runtime.RunChecks(ctx, 2*time.Second, s.checks...); len(failures) > 0 {
			status = healthpb.HealthCheckResponse_NOT_SERVING
			if status != last {
				s.logger.Warn("grpc health not serving", zap.String("failures", strings.Join(failures, "; ")))
			}
		}
		if status != last {
			s.health.SetServingStatus(s.service, status)
			s.health.SetServingStatus("", status)
			last = status
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// CheckHealth asks a remote health service for service's status.
func CheckHealth(ctx context.Context, addr, service string) (healthpb.HealthCheckResponse_ServingStatus, error) {
	conn, err := Dial(addr, DialOptions{})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, err
	}
	defer conn.Close()

	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, err
	}
	return resp.GetStatus(), nil
}
