package servicebus

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// internalEndpointBound is a transport-level handshake message, not one
// of the proxy-level reserved commands of spec.md §6: once the
// processor-side endpoint learns its peer (the caller's endpoint id,
// read directly off the inbound bus message), it tells the caller its
// own endpoint id so the caller's endpoint can bind its peer in turn.
const internalEndpointBound = "__endpoint_bound__"

// registryAnnounceSubject is the transport-level subject a node
// broadcasts on after a successful local registration, so every other
// node's replica of the Bus Registry learns the new owner (spec.md §1:
// "the distributed registry of command ownership"; §4.5 notes each
// node's registry is mutated locally, but ownership still has to
// propagate for AlreadyOwned to be detectable bus-wide).
const registryAnnounceSubject = "__bus_registry__"

// BusTransport is the Transport Endpoint collaborator's bus-wide slice:
// a star-topology node that can broadcast a named bus command to
// whichever peer owns it, subscribe to inbound bus commands the local
// node owns, mint dedicated per-proxy Endpoints, and notify on peer
// join (spec.md §4.4, consumed here as the Service Bus's transport
// dependency). The transport package's NATS-backed implementation
// satisfies this; tests use an in-memory fake.
type BusTransport interface {
	ID() string
	Broadcast(ctx context.Context, cmd string, args []string) error
	Subscribe(cmd string, handler func(args []string)) (unsubscribe func())
	NewEndpoint(ctx context.Context, id string) (Endpoint, error)
	OnPeerJoin(handler func(peerID string)) (unsubscribe func())
	Close() error
}

// Bus is the Service Bus node of spec.md §4.8: it joins the overlay,
// routes incoming command invocations to the local processor, and
// issues outgoing ones.
type Bus struct {
	nodeID    string
	transport BusTransport
	ports     *PortPool
	registry  *Registry
	taskKeys  *taskKeys

	serial uint32

	mu         sync.RWMutex
	processors map[Command]CommandProcessor

	unsubs []func()
}

// NewBus joins the overlay via transport, using ports as the bounded
// endpoint-number pool shared across every proxy this node issues or
// serves.
func NewBus(nodeID string, transport BusTransport, ports *PortPool) *Bus {
	b := &Bus{
		nodeID:     nodeID,
		transport:  transport,
		ports:      ports,
		registry:   NewRegistry(),
		taskKeys:   newTaskKeys(),
		processors: make(map[Command]CommandProcessor),
	}
	unsub := transport.Subscribe(registryAnnounceSubject, b.handleRegistryAnnounce)
	b.unsubs = append(b.unsubs, unsub)
	return b
}

// handleRegistryAnnounce absorbs another node's ownership announcement
// into this node's local registry replica. A conflicting announcement
// (this node already believes it owns the command, or a third node does)
// is dropped rather than propagated as an error — registration errors
// are only meaningful to the node attempting a fresh Register call.
func (b *Bus) handleRegistryAnnounce(args []string) {
	if len(args) < 2 {
		return
	}
	owner := args[0]
	for _, cmd := range args[1:] {
		_ = b.registry.Register(Command(cmd), owner)
	}
}

// RegisterProcessor takes ownership of every command in
// proc.OwnedCommands(); double-ownership anywhere on the bus is
// rejected (spec.md §4.8 "register_processor").
func (b *Bus) RegisterProcessor(proc CommandProcessor) error {
	for _, cmd := range proc.OwnedCommands() {
		if err := b.registry.Register(cmd, b.nodeID); err != nil {
			return err
		}
	}
	b.mu.Lock()
	for _, cmd := range proc.OwnedCommands() {
		b.processors[cmd] = proc
	}
	b.mu.Unlock()

	for _, cmd := range proc.OwnedCommands() {
		cmd := cmd
		unsub := b.transport.Subscribe(string(cmd), func(args []string) {
			b.handleInbound(cmd, args)
		})
		b.unsubs = append(b.unsubs, unsub)
	}

	announce := []string{b.nodeID}
	for _, cmd := range proc.OwnedCommands() {
		announce = append(announce, string(cmd))
	}
	return b.transport.Broadcast(context.Background(), registryAnnounceSubject, announce)
}

// IssueBusCommand assigns a monotonically increasing serial, reserves a
// port, constructs the caller's side of the endpoint pair, and
// broadcasts the bus message for proxy.Command() (spec.md §4.8
// "issue_bus_command").
func (b *Bus) IssueBusCommand(ctx context.Context, proxy Proxy) error {
	base, ok := extractBaseProxy(proxy)
	if !ok {
		return fmt.Errorf("servicebus: proxy does not embed BaseProxy")
	}

	ctx, span := startSpan(ctx, "IssueBusCommand", proxy.Command())
	defer span.End()
	tagCorrelationID(span, base.CorrelationID())

	serial := atomic.AddUint32(&b.serial, 1)
	base.mu.Lock()
	base.serial = serial
	base.requestorID = b.nodeID
	base.mu.Unlock()

	port, err := b.ports.Acquire(ctx)
	if err != nil {
		RecordCommandIssued(proxy.Command(), "error")
		return err
	}

	endpointID := fmt.Sprintf("%s-%d", b.nodeID, port)
	ep, err := b.transport.NewEndpoint(ctx, endpointID)
	if err != nil {
		b.ports.Release(port)
		RecordCommandIssued(proxy.Command(), "error")
		return err
	}
	base.BindEndpoint(ep, port)
	go b.pumpProxy(context.Background(), proxy, ep)

	args := []string{b.nodeID, uint32ToString(serial), endpointID}
	args = append(args, proxy.PackCommandLineArgs()...)
	if err := b.transport.Broadcast(ctx, string(proxy.Command()), args); err != nil {
		RecordCommandIssued(proxy.Command(), "error")
		return err
	}
	RecordCommandIssued(proxy.Command(), "ok")
	return nil
}

// pumpProxy drains ep, unwraps the envelope, and feeds every inbound
// RPC to proxy.FromRemotePeer, until ep.Recv errors (context
// cancellation or a closed endpoint) — the receive-side counterpart of
// ToRemotePeer's envelope pack (spec.md §6 "Envelope wire format").
func (b *Bus) pumpProxy(ctx context.Context, proxy Proxy, ep Endpoint) {
	for {
		cmd, args, err := ep.Recv(ctx)
		if err != nil {
			return
		}
		switch cmd {
		case internalEndpointBound:
			if len(args) > 0 {
				if pb, ok := ep.(PeerBinder); ok {
					pb.BindPeer(args[0])
				}
			}
		case EnvelopeCommand:
			if len(args) == 0 {
				continue
			}
			real := args[len(args)-1]
			inner := args[:len(args)-1]
			_, _ = proxy.FromRemotePeer(ctx, real, inner)
		}
	}
}

// handleInbound is the local node's message_factory dispatch: looks up
// the registered processor, verifies ownership, reserves a port,
// constructs the processor-side endpoint pair bound to the caller's
// endpoint id, populates proxy.args, and invokes RunCommand — on a
// freshly spawned StoppableTask so the transport's receive path never
// blocks (spec.md §4.8, §4.7).
func (b *Bus) handleInbound(cmd Command, args []string) {
	if !b.registry.IsLocal(cmd, b.nodeID) {
		return
	}
	if len(args) < 3 {
		return
	}
	callerID, serialStr, callerEndpointID := args[0], args[1], args[2]
	serial := stringToUint32(serialStr)
	trailing := append([]string(nil), args[3:]...)

	b.mu.RLock()
	proc, ok := b.processors[cmd]
	b.mu.RUnlock()
	if !ok {
		return
	}

	ctx, span := startSpan(context.Background(), "HandleInboundCommand", cmd)
	port, err := b.ports.Acquire(ctx)
	if err != nil {
		span.End()
		return
	}

	proxy := proc.FactoryEmptyProxy(cmd, serial, callerID)
	base, ok := extractBaseProxy(proxy)
	if !ok {
		b.ports.Release(port)
		span.End()
		return
	}
	base.SetRawArgs(trailing)
	tagCorrelationID(span, base.CorrelationID())

	endpointID := fmt.Sprintf("%s-%d", b.nodeID, port)
	ep, err := b.transport.NewEndpoint(ctx, endpointID)
	if err != nil {
		b.ports.Release(port)
		span.End()
		return
	}
	base.BindEndpoint(ep, port)
	if pb, ok := ep.(PeerBinder); ok {
		pb.BindPeer(callerEndpointID)
	}
	_ = ep.Send(ctx, internalEndpointBound, []string{endpointID})
	go b.pumpProxy(context.Background(), proxy, ep)

	key := taskKeyFor(b.nodeID, serial)
	if err := b.taskKeys.claim(key); err != nil {
		span.End()
		return
	}

	task := NewStoppableTask(key)
	task.Attach(func(taskCtx context.Context) {
		defer span.End()
		defer b.taskKeys.release(key)
		defer func() {
			_ = base.Close()
			b.ports.Release(port)
		}()
		proc.RunCommand(taskCtx, proxy)
	})
}

// ReleaseProxy closes the caller-side proxy's dedicated endpoint and
// returns its reserved port to the pool, the caller-side counterpart
// of the processor-side release handleInbound's spawned task already
// performs on completion (spec.md §3 invariant 4: "on drop the port
// returns to the pool"). Callers invoke this once they have observed
// proxy.Finished() (after draining every answer) or after a confirmed
// Abort(); Go has no destructor to run this implicitly, unlike the
// original's RAII proxies.
func (b *Bus) ReleaseProxy(proxy Proxy) error {
	base, ok := extractBaseProxy(proxy)
	if !ok {
		return fmt.Errorf("servicebus: proxy does not embed BaseProxy")
	}
	port := proxy.Port()
	err := base.Close()
	b.ports.Release(port)
	return err
}

// Close unsubscribes from every owned command and closes the
// transport.
func (b *Bus) Close() error {
	for _, unsub := range b.unsubs {
		unsub()
	}
	return b.transport.Close()
}

// extractBaseProxy reaches through a variant to its embedded BaseProxy,
// the shared state the Bus manipulates directly (serial, requestor id,
// endpoint binding) without going through the Proxy interface.
func extractBaseProxy(p Proxy) (*BaseProxy, bool) {
	switch v := p.(type) {
	case *BaseProxy:
		return v, true
	case *BaseQueryProxy:
		return v.BaseProxy, true
	case *PatternMatchingQueryProxy:
		return v.BaseQueryProxy.BaseProxy, true
	case *QueryEvolutionProxy:
		return v.BaseQueryProxy.BaseProxy, true
	case *LinkCreationRequestProxy:
		return v.BaseQueryProxy.BaseProxy, true
	case *InferenceProxy:
		return v.BaseQueryProxy.BaseProxy, true
	case *ContextBrokerProxy:
		return v.BaseProxy, true
	case *AtomDBBrokerProxy:
		return v.BaseProxy, true
	default:
		return nil, false
	}
}
