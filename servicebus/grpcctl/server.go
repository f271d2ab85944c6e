// Package grpcctl is the Service Bus node's external control plane,
// grounded on the teacher's coreengine/grpc bootstrap shape
// (cmd/main.go / coreengine/grpc/server.go build a *grpc.Server,
// register services, Serve on a net.Listener, and expose a graceful
// Stop). The teacher's own coreengine/grpc imports a generated
// coreengine/proto package that the retrieval pack never shipped a
// .proto or *_pb.go for (see DESIGN.md), so this package can't port
// that exact IPC surface byte-for-byte; it keeps the same dependency
// stack — google.golang.org/grpc, otelgrpc, and the stock
// grpc.health.v1 service the grpc module ships pre-generated — wired
// to a surface the bus core can actually back: liveness/readiness for
// a node. PortPool utilization is available only through the Go
// method FreePorts; it is not exposed as an RPC.
package grpcctl

import (
	"context"
	"fmt"
	"net"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// PortPool is the narrow slice of servicebus.PortPool this package's
// health check depends on, kept as a local interface so grpcctl never
// imports servicebus directly (the control plane is deliberately a
// peer package, not a dependent of the core).
type PortPool interface {
	Len() int
	Range() (lo, hi int)
}

// Server wraps a *grpc.Server exposing grpc.health.v1.Health for a
// single Service Bus node, plus a MarkServing/MarkNotServing toggle the
// node calls around RegisterProcessor and graceful shutdown (spec.md
// §6 "Exit code 0 on graceful shutdown").
type Server struct {
	grpcServer *grpc.Server
	health     *health.Server
	ports      PortPool
}

// New builds the control-plane gRPC server. serviceName is the health
// service name this node reports status under (conventionally the bus
// command it serves, e.g. "PATTERN_MATCHING_QUERY").
func New(serviceName string, ports PortPool) *Server {
	hs := health.NewServer()
	hs.SetServingStatus(serviceName, healthpb.HealthCheckResponse_NOT_SERVING)

	gs := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
	)
	healthpb.RegisterHealthServer(gs, hs)

	return &Server{grpcServer: gs, health: hs, ports: ports}
}

// MarkServing flips serviceName to SERVING; called once the node has
// registered its processor and joined the bus.
func (s *Server) MarkServing(serviceName string) {
	s.health.SetServingStatus(serviceName, healthpb.HealthCheckResponse_SERVING)
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
}

// MarkNotServing flips serviceName to NOT_SERVING, signalling to load
// balancers / orchestrators that this node should stop receiving new
// commands (spec.md §6 "graceful shutdown").
func (s *Server) MarkNotServing(serviceName string) {
	s.health.SetServingStatus(serviceName, healthpb.HealthCheckResponse_NOT_SERVING)
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
}

// Serve blocks accepting connections on addr until ctx is cancelled or
// GracefulStop is called.
func (s *Server) Serve(ctx context.Context, addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("grpcctl: listen on %s: %w", addr, err)
	}
	go func() {
		<-ctx.Done()
		s.grpcServer.GracefulStop()
	}()
	return s.grpcServer.Serve(lis)
}

// GracefulStop stops accepting new RPCs and waits for in-flight ones
// to finish.
func (s *Server) GracefulStop() { s.grpcServer.GracefulStop() }

// FreePorts reports the bus node's current PortPool utilization —
// free count and the configured [lo, hi] range — for status logging
// around the control plane (spec.md §4.1 "Port Pool").
func (s *Server) FreePorts() (free, lo, hi int) {
	free = s.ports.Len()
	lo, hi = s.ports.Range()
	return
}
