package main

import (
	"fmt"
	"time"

	"github.com/md-rashed-zaman/staybook/libs/grpcx"
	"github.com/spf13/cobra"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func newHealthCmd() *cobra.Command {
	var addr, service string
	var timeout time.Duration

	c := &cobra.Command{
		Use:   "health",
		Short: "Query the gRPC health service of a running booking service",
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := grpcx.Dial(cmd.Context(), addr, grpcx.DialOptions{Timeout: timeout})
			if err != nil {
				return fmt.Errorf("dial %s: %w", addr, err)
			}
			defer conn.Close()

			status, err := grpcx.CheckHealth(cmd.Context(), conn, service)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), status.String())
			if status != healthpb.HealthCheckResponse_SERVING {
				return fmt.Errorf("%s is %s", service, status)
			}
			return nil
		},
	}

	c.Flags().StringVar(&addr, "addr", "localhost:9083", "gRPC address")
	c.Flags().StringVar(&service, "service", "booking-service", "health service name")
	c.Flags().DurationVar(&timeout, "timeout", 3*time.Second, "dial timeout")
	return c
}
