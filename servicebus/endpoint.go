package servicebus

import "context"

// Endpoint is the slice of the Transport Endpoint collaborator a Proxy
// needs: send a (command, args) tuple to the peer bound to this
// endpoint, and receive inbound ones (spec.md §4.4 "Transport
// Endpoint"). The concrete star-topology implementation lives in the
// transport package; servicebus depends only on this interface so the
// proxy hierarchy stays transport-agnostic, matching the collaborator
// boundary spec.md §1 draws around the messaging layer.
type Endpoint interface {
	// ID is the stable name other peers use to address this endpoint.
	ID() string
	// Send delivers (cmd, args) to the peer endpoint this one is paired
	// with. Delivery failures are retried by the transport
	// implementation; Send only reports unretryable failures.
	Send(ctx context.Context, cmd string, args []string) error
	// Recv blocks until an inbound (cmd, args) tuple arrives or ctx is
	// done.
	Recv(ctx context.Context) (cmd string, args []string, err error)
	// Close releases the endpoint's transport resources. Idempotent.
	Close() error
}

// PeerBinder is implemented by Endpoints whose paired peer is resolved
// lazily rather than supplied at construction. A caller's endpoint
// learns the processor's endpoint id only after the processor replies
// once; the processor's endpoint learns the caller's endpoint id
// directly from the inbound bus message (spec.md §4.8).
type PeerBinder interface {
	BindPeer(peerID string)
}
