package grpc

import (
	"context"
	"net"
	"testing"
	"time"

	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

func TestWaitForHealthServing(t *testing.T) {
	addr, _ := startHealthServer(t, grpc_health_v1.HealthCheckResponse_SERVING)
	conn := dialHealthServer(t, addr)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := WaitForHealth(ctx, conn, "", nil); err != nil {
		t.Fatalf("wait for health: %v", err)
	}
}

func TestWaitForHealthTransitionsToServing(t *testing.T) {
	addr, healthServer := startHealthServer(t, grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	conn := dialHealthServer(t, addr)

	go func() {
		time.Sleep(200 * time.Millisecond)
		healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	var logged int
	logf := func(string, ...any) { logged++ }
	if err := WaitForHealth(ctx, conn, "", logf); err != nil {
		t.Fatalf("wait for health after transition: %v", err)
	}
	if logged == 0 {
		t.Fatal("expected progress to be logged")
	}
}

func TestWaitForHealthRespectsContext(t *testing.T) {
	addr, _ := startHealthServer(t, grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	conn := dialHealthServer(t, addr)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	if err := WaitForHealth(ctx, conn, "", nil); err == nil {
		t.Fatal("expected context error, got nil")
	}
}

func TestWaitForHealthRequiresConn(t *testing.T) {
	if err := WaitForHealth(context.Background(), nil, "", nil); err == nil {
		t.Fatal("expected missing connection error")
	}
}

func TestRegisterHealthMarksServicesServing(t *testing.T) {
	server := gogrpc.NewServer()
	healthServer := RegisterHealth(server, "viewscore.renderer.v1.RendererService")

	resp, err := healthServer.Check(context.Background(), &grpc_health_v1.HealthCheckRequest{
		Service: "viewscore.renderer.v1.RendererService",
	})
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if resp.GetStatus() != grpc_health_v1.HealthCheckResponse_SERVING {
		t.Fatalf("status = %v, want SERVING", resp.GetStatus())
	}
}

func startHealthServer(t *testing.T, status grpc_health_v1.HealthCheckResponse_ServingStatus) (string, *health.Server) {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	grpcServer := gogrpc.NewServer()
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", status)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- grpcServer.Serve(listener)
	}()

	t.Cleanup(func() {
		grpcServer.GracefulStop()
		_ = listener.Close()
		select {
		case <-serveErr:
		case <-time.After(2 * time.Second):
		}
	})

	return listener.Addr().String(), healthServer
}

func dialHealthServer(t *testing.T, addr string) *gogrpc.ClientConn {
	t.Helper()

	conn, err := gogrpc.NewClient(addr, gogrpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("dial health server: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}
