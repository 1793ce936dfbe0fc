// Package server provides gRPC server lifecycle management.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/solatis/dialkeeper/internal/core/api"
	"github.com/solatis/dialkeeper/internal/core/auth"
	"github.com/solatis/dialkeeper/internal/core/config"
	"github.com/solatis/dialkeeper/internal/core/metrics"
)

// shutdownTimeout bounds graceful stop before connections are cut.
const shutdownTimeout = 30 * time.Second

// GRPCServer manages gRPC server lifecycle.
type GRPCServer struct {
	server   *grpc.Server
	health   *health.Server
	listener net.Listener
	config   *config.ServiceConfig
	logger   *slog.Logger
}

// NewGRPCServer creates a gRPC server with metrics and auth interceptors,
// the rewrite service and the health service. m may be nil.
func NewGRPCServer(cfg *config.ServiceConfig, service api.RewriteServer, authenticator *auth.Authenticator, m *metrics.Metrics, logger *slog.Logger) (*GRPCServer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("cfg cannot be nil")
	}
	if service == nil {
		return nil, fmt.Errorf("service cannot be nil")
	}
	if authenticator == nil {
		return nil, fmt.Errorf("authenticator cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	// Metrics run first so rejected authentications are counted too.
	opts := []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(
			m.UnaryInterceptor(),
			authenticator.UnaryInterceptor(),
		),
	}
	if cfg.MaxConnections > 0 {
		opts = append(opts, grpc.MaxConcurrentStreams(uint32(cfg.MaxConnections)))
	}

	server := grpc.NewServer(opts...)
	api.Register(server, service)

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(server, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(api.ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)

	return &GRPCServer{
		server: server,
		health: healthServer,
		config: cfg,
		logger: logger,
	}, nil
}

// Addr returns the configured listen address.
func (s *GRPCServer) Addr() string {
	return net.JoinHostPort(s.config.Host, fmt.Sprint(s.config.Port))
}

// Start binds the configured address and serves until Shutdown.
func (s *GRPCServer) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.Addr())
	if err != nil {
		return fmt.Errorf("failed to bind %s: %w", s.Addr(), err)
	}
	return s.Serve(listener)
}

// Serve serves on an existing listener until Shutdown.
func (s *GRPCServer) Serve(listener net.Listener) error {
	s.listener = listener
	s.logger.Info("grpc server listening", "addr", listener.Addr().String())
	return s.server.Serve(listener)
}

// Shutdown marks the server not serving and stops gracefully, forcing the
// stop when ctx ends or the shutdown timeout passes.
func (s *GRPCServer) Shutdown(ctx context.Context) error {
	s.health.Shutdown()

	stopped := make(chan struct{})
	go func() {
		s.server.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
		s.logger.Info("grpc server stopped")
		return nil
	case <-ctx.Done():
		s.server.Stop()
		return fmt.Errorf("shutdown cancelled by context: %w", ctx.Err())
	case <-time.After(shutdownTimeout):
		s.server.Stop()
		return fmt.Errorf("graceful shutdown timeout, forced stop")
	}
}
