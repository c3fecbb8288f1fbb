// Package server wires a renderer engine into the gRPC lifecycle.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"

	platformgrpc "github.com/louisbranch/viewscore/internal/platform/grpc"
	rendererservice "github.com/louisbranch/viewscore/internal/services/renderer/api/grpc/renderer"
	"github.com/louisbranch/viewscore/internal/services/renderer/engine"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
)

// Server hosts the renderer gRPC API and owns its engine.
type Server struct {
	listener   net.Listener
	grpcServer *grpc.Server
	health     *health.Server
	engine     engine.Engine
	logger     *log.Logger
}

// NewWithAddr creates a renderer server for the provided address. The server
// closes eng when it shuts down.
func NewWithAddr(addr string, eng engine.Engine, logger *log.Logger) (*Server, error) {
	if eng == nil {
		return nil, errors.New("renderer engine is required")
	}
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}
	return newServer(listener, eng, logger), nil
}

func newServer(listener net.Listener, eng engine.Engine, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	grpcServer := grpc.NewServer(platformgrpc.ServerOptions()...)
	rendererservice.RegisterRendererServiceServer(grpcServer, rendererservice.NewService(eng))
	healthServer := platformgrpc.RegisterHealth(grpcServer, rendererservice.ServiceName)

	return &Server{
		listener:   listener,
		grpcServer: grpcServer,
		health:     healthServer,
		engine:     eng,
		logger:     logger,
	}
}

// Addr returns the listener address for the server.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Serve starts the gRPC server until context cancellation.
func (s *Server) Serve(ctx context.Context) error {
	if s == nil {
		return errors.New("server is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	defer s.Close()

	s.logger.Printf("renderer server listening at %v", s.listener.Addr())
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.grpcServer.Serve(s.listener)
	}()

	select {
	case <-ctx.Done():
		if s.health != nil {
			s.health.Shutdown()
		}
		s.grpcServer.GracefulStop()
		err := <-serveErr
		if err == nil || errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return fmt.Errorf("serve gRPC: %w", err)
	case err := <-serveErr:
		if err == nil || errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return fmt.Errorf("serve gRPC: %w", err)
	}
}

// Close releases renderer server resources.
func (s *Server) Close() {
	if s == nil {
		return
	}
	if s.health != nil {
		s.health.Shutdown()
	}
	if s.grpcServer != nil {
		s.grpcServer.Stop()
	}
	if s.listener != nil {
		_ = s.listener.Close()
	}
	if s.engine != nil {
		if err := s.engine.Close(); err != nil {
			s.logger.Printf("close renderer engine: %v", err)
		}
	}
}
