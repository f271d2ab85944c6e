package transport

import (
	"context"
	"sync"

	"github.com/singnet/das-servicebus/servicebus"
)

// Hub is a single-process stand-in for a NATS server: every FakeNode
// sharing a Hub sees the same broadcast/subscribe bus and endpoint
// namespace, grounded on casualjim-bubo's internal/broker/local.go
// channel-per-subscriber topic. Used by unit tests across the module
// so the suite never requires a live NATS server.
type Hub struct {
	mu        sync.Mutex
	subs      map[string][]func(args []string)
	endpoints map[string]*FakeEndpoint
}

// NewHub creates an empty in-memory bus.
func NewHub() *Hub {
	return &Hub{
		subs:      make(map[string][]func(args []string)),
		endpoints: make(map[string]*FakeEndpoint),
	}
}

// Node returns a BusTransport for id backed by this Hub.
func (h *Hub) Node(id string) *FakeNode {
	return &FakeNode{id: id, hub: h}
}

// FakeNode implements servicebus.BusTransport over a Hub.
type FakeNode struct {
	id  string
	hub *Hub
}

func (n *FakeNode) ID() string { return n.id }

func (n *FakeNode) Broadcast(ctx context.Context, cmd string, args []string) error {
	n.hub.mu.Lock()
	handlers := append([]func(args []string){}, n.hub.subs[cmd]...)
	n.hub.mu.Unlock()
	for _, h := range handlers {
		if h != nil {
			h(args)
		}
	}
	return nil
}

func (n *FakeNode) Subscribe(cmd string, handler func(args []string)) func() {
	n.hub.mu.Lock()
	n.hub.subs[cmd] = append(n.hub.subs[cmd], handler)
	idx := len(n.hub.subs[cmd]) - 1
	n.hub.mu.Unlock()
	return func() {
		n.hub.mu.Lock()
		defer n.hub.mu.Unlock()
		if idx < len(n.hub.subs[cmd]) {
			n.hub.subs[cmd][idx] = nil
		}
	}
}

func (n *FakeNode) NewEndpoint(ctx context.Context, id string) (servicebus.Endpoint, error) {
	ep := &FakeEndpoint{id: id, hub: n.hub, inbox: make(chan fakeMsg, 64)}
	n.hub.mu.Lock()
	n.hub.endpoints[id] = ep
	n.hub.mu.Unlock()
	return ep, nil
}

func (n *FakeNode) OnPeerJoin(handler func(peerID string)) func() { return func() {} }

func (n *FakeNode) Close() error { return nil }

type fakeMsg struct {
	cmd  string
	args []string
}

// FakeEndpoint is an in-memory servicebus.Endpoint that resolves its
// peer lazily via servicebus.PeerBinder, routing through its owning
// Hub by destination endpoint id.
type FakeEndpoint struct {
	id     string
	hub    *Hub
	peerID string
	inbox  chan fakeMsg
	mu     sync.Mutex
}

func (e *FakeEndpoint) ID() string { return e.id }

func (e *FakeEndpoint) BindPeer(peerID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.peerID = peerID
}

func (e *FakeEndpoint) Send(ctx context.Context, cmd string, args []string) error {
	e.mu.Lock()
	peerID := e.peerID
	e.mu.Unlock()
	if peerID == "" {
		return nil
	}
	e.hub.mu.Lock()
	peer := e.hub.endpoints[peerID]
	e.hub.mu.Unlock()
	if peer == nil {
		return nil
	}
	select {
	case peer.inbox <- fakeMsg{cmd: cmd, args: args}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *FakeEndpoint) Recv(ctx context.Context) (string, []string, error) {
	select {
	case m := <-e.inbox:
		return m.cmd, m.args, nil
	case <-ctx.Done():
		return "", nil, ctx.Err()
	}
}

func (e *FakeEndpoint) Close() error {
	e.hub.mu.Lock()
	defer e.hub.mu.Unlock()
	delete(e.hub.endpoints, e.id)
	return nil
}
