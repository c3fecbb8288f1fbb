// Package grpc holds connection helpers shared by the renderer client and the
// renderer host.
package grpc

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// ConnectFunc creates a client connection. gogrpc.NewClient satisfies it.
type ConnectFunc func(addr string, opts ...gogrpc.DialOption) (*gogrpc.ClientConn, error)

// DialStage describes where a connection attempt failed.
type DialStage string

const (
	// DialStageConnect indicates the client connection could not be created.
	DialStageConnect DialStage = "connect"
	// DialStageHealth indicates the peer never reported SERVING.
	DialStageHealth DialStage = "health"
)

// DialError wraps connection and health failures with a stage indicator.
type DialError struct {
	Addr  string
	Stage DialStage
	Err   error
}

// Error implements the error interface.
func (e *DialError) Error() string {
	if e == nil {
		return "gRPC dial error"
	}
	return fmt.Sprintf("gRPC %s error for %s: %v", e.Stage, e.Addr, e.Err)
}

// Unwrap returns the underlying error.
func (e *DialError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ClientOptions returns the dial options used for renderer connections.
// The OTel stats handler propagates trace context on every call.
func ClientOptions() []gogrpc.DialOption {
	return []gogrpc.DialOption{
		gogrpc.WithTransportCredentials(insecure.NewCredentials()),
		gogrpc.WithStatsHandler(otelgrpc.NewClientHandler()),
	}
}

// ServerOptions returns the server options used by the renderer host.
func ServerOptions() []gogrpc.ServerOption {
	return []gogrpc.ServerOption{
		gogrpc.StatsHandler(otelgrpc.NewServerHandler()),
	}
}

// Connect creates a client for addr and blocks until its health service
// reports SERVING for service, or timeout elapses. The connection is closed
// when the health wait fails. A nil connect uses gogrpc.NewClient.
func Connect(ctx context.Context, connect ConnectFunc, addr, service string, timeout time.Duration, logf func(string, ...any), opts ...gogrpc.DialOption) (*gogrpc.ClientConn, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, &DialError{Stage: DialStageConnect, Err: errors.New("address is required")}
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if connect == nil {
		connect = gogrpc.NewClient
	}

	conn, err := connect(addr, opts...)
	if err != nil {
		return nil, &DialError{Addr: addr, Stage: DialStageConnect, Err: err}
	}

	waitCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := WaitForHealth(waitCtx, conn, service, logf); err != nil {
		_ = conn.Close()
		return nil, &DialError{Addr: addr, Stage: DialStageHealth, Err: err}
	}
	return conn, nil
}
