package main

import (
	"context"
	"fmt"
	"time"

	"github.com/fracto-health/fracto/libs/grpcx"
	"github.com/spf13/cobra"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// newHealthcheckCmd probes the gRPC health endpoint; used by container
// health checks.
func newHealthcheckCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "healthcheck",
		Short: "Exit non-zero unless the running service reports SERVING",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr == "" {
				addr = "127.0.0.1:" + a.cfg.GRPCPort
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 3*time.Second)
			defer cancel()
			status, err := grpcx.CheckHealth(ctx, addr, a.cfg.ServiceName)
			if err != nil {
				return fmt.Errorf("health check %s: %w", addr, err)
			}
			if status != healthpb.HealthCheckResponse_SERVING {
				return fmt.Errorf("service %s is %s", a.cfg.ServiceName, status)
			}
			fmt.Fprintln(cmd.OutOrStdout(), status)
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "gRPC address (default 127.0.0.1:$GRPC_PORT)")
	return cmd
}
