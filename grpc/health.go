package grpc

import (
	"context"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"
	grpc "google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
)

// ServiceName is the health service name reported next to the overall ("") status.
const ServiceName = "archiver"

// Health serves grpc.health.v1 and server reflection. A nil *Health is a disabled
// server; every method is a no-op on it.
type Health struct {
	server   *grpc.Server
	health   *health.Server
	listener net.Listener
	logger   *zap.Logger
}

// NewHealth listens on addr. An empty addr disables the server and returns nil.
func NewHealth(addr string, logger *zap.Logger) (*Health, error) {
	if addr == "" {
		return nil, nil
	}
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return newHealth(lis, logger), nil
}

func newHealth(lis net.Listener, logger *zap.Logger) *Health {
	h := &Health{
		health:   health.NewServer(),
		listener: lis,
		logger:   logger,
	}
	h.server = grpc.NewServer(grpc.UnaryInterceptor(h.unaryLoggingInterceptor))
	healthpb.RegisterHealthServer(h.server, h.health)
	reflection.Register(h.server)
	h.SetServing(false)
	return h
}

// Start serves in the background.
func (h *Health) Start() {
	if h == nil {
		return
	}
	h.logger.Info("Starting gRPC health server", zap.String("addr", h.listener.Addr().String()))
	go func() {
		if err := h.server.Serve(h.listener); err != nil {
			h.logger.Warn("gRPC health server stopped", zap.Error(err))
		}
	}()
}

// SetServing reports SERVING while the gateway connection is up.
func (h *Health) SetServing(up bool) {
	if h == nil {
		return
	}
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if up {
		st = healthpb.HealthCheckResponse_SERVING
	}
	h.health.SetServingStatus("", st)
	h.health.SetServingStatus(ServiceName, st)
}

// Stop marks every service NOT_SERVING and stops the server.
func (h *Health) Stop() {
	if h == nil {
		return
	}
	h.logger.Info("Stopping gRPC health server")
	h.health.Shutdown()
	h.server.GracefulStop()
}

func (h *Health) unaryLoggingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	h.logger.Debug("gRPC call",
		zap.String("method", info.FullMethod),
		zap.Duration("duration", time.Since(start)),
		zap.Stringer("code", status.Code(err)))
	return resp, err
}
