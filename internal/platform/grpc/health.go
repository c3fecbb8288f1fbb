package grpc

import (
	"context"
	"fmt"
	"time"

	"github.com/louisbranch/viewscore/internal/platform/timeouts"
	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

const (
	initialHealthBackoff = 200 * time.Millisecond
	maxHealthBackoff     = time.Second
)

// RegisterHealth attaches a health service to server and marks the overall
// server and each named service as SERVING.
func RegisterHealth(server *gogrpc.Server, services ...string) *health.Server {
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(server, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	for _, service := range services {
		healthServer.SetServingStatus(service, grpc_health_v1.HealthCheckResponse_SERVING)
	}
	return healthServer
}

// WaitForHealth polls the health service until it reports SERVING for service
// or ctx ends.
func WaitForHealth(ctx context.Context, conn *gogrpc.ClientConn, service string, logf func(string, ...any)) error {
	if conn == nil {
		return fmt.Errorf("gRPC connection is not configured")
	}
	if logf == nil {
		logf = func(string, ...any) {}
	}

	client := grpc_health_v1.NewHealthClient(conn)
	backoff := initialHealthBackoff
	for {
		probeCtx, cancel := context.WithTimeout(ctx, timeouts.HealthProbe)
		resp, err := client.Check(probeCtx, &grpc_health_v1.HealthCheckRequest{Service: service})
		cancel()
		switch {
		case err != nil:
			logf("waiting for renderer health: %v", err)
		case resp.GetStatus() == grpc_health_v1.HealthCheckResponse_SERVING:
			logf("renderer health check is SERVING")
			return nil
		default:
			logf("waiting for renderer health: status %s", resp.GetStatus())
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("wait for gRPC health: %w", ctx.Err())
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxHealthBackoff)
	}
}
