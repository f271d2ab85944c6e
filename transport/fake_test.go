package transport

import (
	"context"
	"testing"
	"time"
)

func TestFakeNodeBroadcastReachesSubscribers(t *testing.T) {
	hub := NewHub()
	a := hub.Node("a")
	b := hub.Node("b")

	received := make(chan []string, 1)
	b.Subscribe("PING", func(args []string) { received <- args })

	if err := a.Broadcast(context.Background(), "PING", []string{"hello"}); err != nil {
		t.Fatalf("Broadcast: %v", err)
	}

	select {
	case args := <-received:
		if len(args) != 1 || args[0] != "hello" {
			t.Fatalf("unexpected args %v", args)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for broadcast")
	}
}

func TestFakeEndpointSendRecvAfterBindPeer(t *testing.T) {
	hub := NewHub()
	a := hub.Node("a")
	b := hub.Node("b")

	ctx := context.Background()
	epA, err := a.NewEndpoint(ctx, "endpoint-a")
	if err != nil {
		t.Fatalf("NewEndpoint: %v", err)
	}
	epB, err := b.NewEndpoint(ctx, "endpoint-b")
	if err != nil {
		t.Fatalf("NewEndpoint: %v", err)
	}
	epA.(*FakeEndpoint).BindPeer("endpoint-b")

	if err := epA.Send(ctx, "HELLO", []string{"x"}); err != nil {
		t.Fatalf("Send: %v", err)
	}

	recvCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	cmd, args, err := epB.Recv(recvCtx)
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if cmd != "HELLO" || len(args) != 1 || args[0] != "x" {
		t.Fatalf("unexpected recv: %v %v", cmd, args)
	}
}
