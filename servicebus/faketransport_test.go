package servicebus

import (
	"context"
	"sync"
)

// fakeEndpoint is an in-memory Endpoint that delivers through its
// owning hub by destination id, enough to exercise Proxy/Bus wiring
// without a real transport. Unlike a real star-topology endpoint it
// is not pre-paired: the hub looks up the current peer id's registered
// endpoint at send time, mirroring how the caller/processor endpoint
// pair is only known once both proxies have bound (spec.md §4.8).
type fakeEndpoint struct {
	id     string
	hub    *fakeTransportHub
	peerID string
	inbox  chan inboundMsg
	mu     sync.Mutex
	closed bool
}

type inboundMsg struct {
	cmd  string
	args []string
}

func (e *fakeEndpoint) ID() string { return e.id }

// BindPeer records which endpoint id this one talks to. Tests call this
// once both sides of a pair exist.
func (e *fakeEndpoint) BindPeer(peerID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.peerID = peerID
}

func (e *fakeEndpoint) Send(ctx context.Context, cmd string, args []string) error {
	e.mu.Lock()
	peerID := e.peerID
	e.mu.Unlock()
	if peerID == "" {
		return nil
	}
	peer := e.hub.lookup(peerID)
	if peer == nil {
		return nil
	}
	select {
	case peer.inbox <- inboundMsg{cmd: cmd, args: args}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *fakeEndpoint) Recv(ctx context.Context) (string, []string, error) {
	select {
	case m := <-e.inbox:
		return m.cmd, m.args, nil
	case <-ctx.Done():
		return "", nil, ctx.Err()
	}
}

func (e *fakeEndpoint) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	e.hub.unregister(e.id)
	return nil
}

// fakeTransport is a single-process BusTransport fake: every node
// sharing one *fakeTransportHub sees the same broadcast/subscribe bus
// and endpoint namespace.
type fakeTransport struct {
	id  string
	bus *fakeTransportHub
}

type fakeTransportHub struct {
	mu        sync.Mutex
	subs      map[string][]func(args []string)
	endpoints map[string]*fakeEndpoint
}

func newFakeTransportHub() *fakeTransportHub {
	return &fakeTransportHub{
		subs:      make(map[string][]func(args []string)),
		endpoints: make(map[string]*fakeEndpoint),
	}
}

func (h *fakeTransportHub) node(id string) *fakeTransport {
	return &fakeTransport{id: id, bus: h}
}

func (h *fakeTransportHub) lookup(id string) *fakeEndpoint {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.endpoints[id]
}

func (h *fakeTransportHub) unregister(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.endpoints, id)
}

func (t *fakeTransport) ID() string { return t.id }

func (t *fakeTransport) Broadcast(ctx context.Context, cmd string, args []string) error {
	t.bus.mu.Lock()
	handlers := append([]func(args []string){}, t.bus.subs[cmd]...)
	t.bus.mu.Unlock()
	for _, h := range handlers {
		if h != nil {
			h(args)
		}
	}
	return nil
}

func (t *fakeTransport) Subscribe(cmd string, handler func(args []string)) func() {
	t.bus.mu.Lock()
	t.bus.subs[cmd] = append(t.bus.subs[cmd], handler)
	idx := len(t.bus.subs[cmd]) - 1
	t.bus.mu.Unlock()
	return func() {
		t.bus.mu.Lock()
		defer t.bus.mu.Unlock()
		if idx < len(t.bus.subs[cmd]) {
			t.bus.subs[cmd][idx] = nil
		}
	}
}

func (t *fakeTransport) NewEndpoint(ctx context.Context, id string) (Endpoint, error) {
	ep := &fakeEndpoint{id: id, hub: t.bus, inbox: make(chan inboundMsg, 64)}
	t.bus.mu.Lock()
	t.bus.endpoints[id] = ep
	t.bus.mu.Unlock()
	return ep, nil
}

func (t *fakeTransport) OnPeerJoin(handler func(peerID string)) func() {
	return func() {}
}

func (t *fakeTransport) Close() error { return nil }
