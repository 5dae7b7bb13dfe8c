package grpcx

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/fracto-health/fracto/libs/runtime"
	"go.uber.org/zap"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func TestHealthFollowsReadiness(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	ready := make(chan bool, 1)
	ready <- false
	healthy := false
	check := runtime.ReadyCheck{Name: "db", Check: func(context.Context) error {
		select {
		case healthy = <-ready:
		default:
		}
		if healthy {
			return nil
		}
		return errors.New("down")
	}}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	srv := NewServer(zap.NewNop(), "booking-service", check)
	go func() { _ = srv.Serve(ctx, lis, 20*time.Millisecond) }()

	waitFor := func(want healthpb.HealthCheckResponse_ServingStatus) {
		t.Helper()
		deadline := time.Now().Add(3 * time.Second)
		for time.Now().Before(deadline) {
			callCtx, callCancel := context.WithTimeout(context.Background(), time.Second)
			got, err := CheckHealth(callCtx, lis.Addr().String(), "booking-service")
			callCancel()
			if err == nil && got == want {
				return
			}
			time.Sleep(20 * time.Millisecond)
		}
		t.Fatalf("health never reached %s", want)
	}

	waitFor(healthpb.HealthCheckResponse_NOT_SERVING)
	ready <- true
	waitFor(healthpb.HealthCheckResponse_SERVING)
}
