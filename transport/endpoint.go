// Package transport implements the star-topology Transport Endpoint
// collaborator (spec.md §4.4): a node that can send/receive
// (command, args[]) tuples, plus peer-join notifications, over a
// shared bus. servicebus depends only on the narrow servicebus.Endpoint
// / servicebus.BusTransport interfaces; this package provides the two
// concrete backings — a NATS-backed node for real deployments and an
// in-memory fake for tests that don't want a live NATS server.
package transport

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/alphadose/haxmap"
	"github.com/nats-io/nats.go"
	"github.com/singnet/das-servicebus/servicebus"
)

// envelope is the wire shape published on every NATS subject this
// package uses: a single (cmd, args) tuple, JSON-encoded. NATS itself
// is payload-format agnostic; JSON keeps the wire format legible for
// the bus's otherwise-text-token protocol (spec.md §6 token grammar).
type envelope struct {
	Cmd  string   `json:"cmd"`
	Args []string `json:"args,omitempty"`
}

// NatsNode is the star-topology node backing servicebus.BusTransport,
// grounded on casualjim-bubo's internal/broker/nats.go: each bus
// command and each per-proxy endpoint id becomes its own NATS subject,
// so point-to-point delivery and fan-out broadcast both reduce to
// ordinary NATS publish/subscribe.
type NatsNode struct {
	id   string
	conn *nats.Conn

	subs *haxmap.Map[string, *nats.Subscription]
}

// NewNatsNode connects to a NATS server at url and names this node id
// (used both as the bus node id and as the subject prefix for
// per-proxy endpoints).
func NewNatsNode(id, url string) (*NatsNode, error) {
	conn, err := nats.Connect(url, nats.Name(id))
	if err != nil {
		return nil, fmt.Errorf("transport: connect to nats at %q: %w", url, err)
	}
	return &NatsNode{id: id, conn: conn, subs: haxmap.New[string, *nats.Subscription]()}, nil
}

func (n *NatsNode) ID() string { return n.id }

// Broadcast publishes (cmd, args) on the subject named cmd; every node
// subscribed to that bus command receives it (spec.md §4.8
// "broadcasts the bus message for proxy.command").
func (n *NatsNode) Broadcast(ctx context.Context, cmd string, args []string) error {
	return n.publish(cmd, cmd, args)
}

func (n *NatsNode) publish(subject, cmd string, args []string) error {
	payload, err := json.Marshal(envelope{Cmd: cmd, Args: args})
	if err != nil {
		return fmt.Errorf("transport: marshal envelope: %w", err)
	}
	return n.conn.Publish(subject, payload)
}

// Subscribe registers handler for inbound messages on the subject
// named cmd.
func (n *NatsNode) Subscribe(cmd string, handler func(args []string)) func() {
	sub, err := n.conn.Subscribe(cmd, func(msg *nats.Msg) {
		var e envelope
		if err := json.Unmarshal(msg.Data, &e); err != nil {
			return
		}
		handler(e.Args)
	})
	if err != nil {
		return func() {}
	}
	n.subs.Set(cmd, sub)
	return func() {
		_ = sub.Unsubscribe()
		n.subs.Del(cmd)
	}
}

// NewEndpoint mints a dedicated per-proxy Endpoint addressed by id —
// its own NATS subject, distinct from the bus-command subjects
// (spec.md §4.1/§4.4: the Port Pool hands out the numbers these ids
// are built from).
func (n *NatsNode) NewEndpoint(ctx context.Context, id string) (servicebus.Endpoint, error) {
	ep := &natsEndpoint{id: id, node: n, inbox: make(chan envelope, 256)}
	sub, err := n.conn.Subscribe(id, func(msg *nats.Msg) {
		var e envelope
		if err := json.Unmarshal(msg.Data, &e); err != nil {
			return
		}
		select {
		case ep.inbox <- e:
		default:
		}
	})
	if err != nil {
		return nil, fmt.Errorf("transport: subscribe endpoint %q: %w", id, err)
	}
	ep.sub = sub
	return ep, nil
}

// OnPeerJoin subscribes to the well-known join-announce subject every
// NatsNode publishes to once on connect (spec.md §4.4 "peer-join
// notifications").
func (n *NatsNode) OnPeerJoin(handler func(peerID string)) func() {
	sub, err := n.conn.Subscribe(peerJoinSubject, func(msg *nats.Msg) {
		handler(string(msg.Data))
	})
	if err != nil {
		return func() {}
	}
	return func() { _ = sub.Unsubscribe() }
}

// AnnounceJoin publishes this node's id on the join-announce subject;
// callers invoke this once after the node is fully wired up.
func (n *NatsNode) AnnounceJoin() error {
	return n.conn.Publish(peerJoinSubject, []byte(n.id))
}

const peerJoinSubject = "__peer_join__"

func (n *NatsNode) Close() error {
	n.subs.ForEach(func(_ string, sub *nats.Subscription) bool {
		_ = sub.Unsubscribe()
		return true
	})
	n.conn.Close()
	return nil
}

// natsEndpoint is the Endpoint side of a per-proxy NATS subject pair.
// Unlike the bus-command subjects, an endpoint's peer is resolved
// lazily (servicebus.PeerBinder): the processor learns the caller's
// endpoint id from the inbound bus message, and the caller learns the
// processor's endpoint id from the processor's first reply.
type natsEndpoint struct {
	id     string
	node   *NatsNode
	sub    *nats.Subscription
	peerID string
	inbox  chan envelope
}

func (e *natsEndpoint) ID() string { return e.id }

func (e *natsEndpoint) BindPeer(peerID string) { e.peerID = peerID }

func (e *natsEndpoint) Send(ctx context.Context, cmd string, args []string) error {
	if e.peerID == "" {
		return nil
	}
	return e.node.publish(e.peerID, cmd, args)
}

func (e *natsEndpoint) Recv(ctx context.Context) (string, []string, error) {
	select {
	case env := <-e.inbox:
		return env.Cmd, env.Args, nil
	case <-ctx.Done():
		return "", nil, ctx.Err()
	}
}

func (e *natsEndpoint) Close() error {
	if e.sub != nil {
		return e.sub.Unsubscribe()
	}
	return nil
}
