package grpcctl

import (
	"context"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type fakePortPool struct{ free, lo, hi int }

func (f fakePortPool) Len() int          { return f.free }
func (f fakePortPool) Range() (int, int) { return f.lo, f.hi }

func TestHealthTogglesWithMarkServingAndNotServing(t *testing.T) {
	srv := New("PATTERN_MATCHING_QUERY", fakePortPool{free: 42, lo: 30000, hi: 30100})

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go srv.grpcServer.Serve(lis)
	defer srv.GracefulStop()

	conn, err := grpc.NewClient(lis.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	client := healthpb.NewHealthClient(conn)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: "PATTERN_MATCHING_QUERY"})
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if resp.Status != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("expected NOT_SERVING before MarkServing, got %v", resp.Status)
	}

	srv.MarkServing("PATTERN_MATCHING_QUERY")
	resp, err = client.Check(ctx, &healthpb.HealthCheckRequest{Service: "PATTERN_MATCHING_QUERY"})
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if resp.Status != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("expected SERVING after MarkServing, got %v", resp.Status)
	}

	free, lo, hi := srv.FreePorts()
	if free != 42 || lo != 30000 || hi != 30100 {
		t.Fatalf("unexpected FreePorts: %d %d %d", free, lo, hi)
	}
}
