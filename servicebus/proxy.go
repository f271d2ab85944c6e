package servicebus

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// EnvelopeCommand is the single outer bus command name every proxy RPC
// travels under; the real command is packed as the trailing argument
// (spec.md §6 "Envelope wire format").
const EnvelopeCommand = "bus_command_proxy"

// Reserved proxy-level commands carried inside the envelope (spec.md
// §6 "Bus commands (the fixed set)").
const (
	ReservedAbort                            = "ABORT"
	ReservedFinished                         = "FINISHED"
	ReservedAnswerBundle                     = "ANSWER_BUNDLE"
	ReservedCount                            = "COUNT"
	ReservedContextCreated                   = "CONTEXT_CREATED"
	ReservedAttentionBrokerSetParameters     = "ATTENTION_BROKER_SET_PARAMETERS"
	ReservedAttentionBrokerSetParamsFinished = "ATTENTION_BROKER_SET_PARAMETERS_FINISHED"
	ReservedPeerError                        = "PEER_ERROR"
)

// ProxyState is the BaseQueryProxy state machine of spec.md §4.6.
type ProxyState int

const (
	StateInitial ProxyState = iota
	StateRunning
	StateAborting
	StateFinished
	StateErrorRaised
	StateClosed
)

func (s ProxyState) String() string {
	switch s {
	case StateInitial:
		return "Initial"
	case StateRunning:
		return "Running"
	case StateAborting:
		return "Aborting"
	case StateFinished:
		return "Finished"
	case StateErrorRaised:
		return "ErrorRaised"
	case StateClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// Proxy is the two-sided long-lived command object of spec.md §4.6. One
// instance lives at the requester, one at the processor, each owning a
// dedicated Endpoint from the paired transport connection.
type Proxy interface {
	Command() Command
	Serial() uint32
	RequestorID() string
	Port() int

	// ToRemotePeer sends an RPC to the paired proxy, envelope-packed.
	ToRemotePeer(ctx context.Context, cmd string, args []string) error
	// FromRemotePeer handles an inbound RPC. Returns handled=false to
	// let a wrapping variant try its own commands first.
	FromRemotePeer(ctx context.Context, cmd string, args []string) (handled bool, err error)

	Abort()
	IsAborting() bool
	Finished() bool
	State() ProxyState

	// PackCommandLineArgs / Tokenize / Untokenize are the symmetric
	// serialisers of spec.md §4.6: each variant contributes a fixed
	// prefix of tokens in reverse insertion order so a single
	// left-to-right consumer reconstructs the object.
	PackCommandLineArgs() []string
	Tokenize(out *[]string)
	Untokenize(args *[]string)
}

// BaseProxy implements the abort/finished/error-handling slice of the
// Proxy contract shared by every variant (spec.md §4.6 "BaseProxy"),
// grounded on the cooperative-cancel + mutex-guarded-state idiom of
// original_source/src/commons/StoppableThread.{h,cc} carried over into
// this process's proxy objects.
type BaseProxy struct {
	mu sync.Mutex

	command       Command
	args          []string
	serial        uint32
	requestorID   string
	port          int
	correlationID string

	state   ProxyState
	errCode uint32
	errMsg  string

	endpoint Endpoint
}

// NewBaseProxy constructs a BaseProxy bound to a command, serial, and
// requestor id. The endpoint is supplied once the bus reserves a port
// and constructs the dedicated endpoint pair (spec.md §4.8).
//
// correlationID is minted from uuid.New() rather than derived from
// (requestorID, serial): those two are node-scoped (serial resets per
// node, requestorID is a reused host:port), so they cannot tag a
// single in-flight command uniquely across a trace that spans both
// the caller and the processor node. The DOMAIN STACK wiring of
// github.com/google/uuid (SPEC_FULL.md §4.12) is this correlation id,
// attached to the IssueBusCommand/HandleInboundCommand span of the
// side that owns this proxy (servicebus/tracing.go). The id is not part
// of the bus message: the processor-side proxy built by
// FactoryEmptyProxy mints its own, so the two sides of one command
// carry different correlation ids.
func NewBaseProxy(cmd Command, serial uint32, requestorID string) *BaseProxy {
	return &BaseProxy{
		command:       cmd,
		serial:        serial,
		requestorID:   requestorID,
		state:         StateInitial,
		correlationID: uuid.New().String(),
	}
}

// CorrelationID is this proxy's process-independent identifier,
// stable for its whole lifetime, used to tag this side's tracing spans.
func (p *BaseProxy) CorrelationID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.correlationID
}

// BindEndpoint attaches the dedicated transport endpoint and port
// reserved for this proxy, and transitions Initial -> Running (spec.md
// §4.6 state machine: "Initial -> Running: proxy registered with a
// bus").
func (p *BaseProxy) BindEndpoint(ep Endpoint, port int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.endpoint = ep
	p.port = port
	if p.state == StateInitial {
		p.state = StateRunning
	}
}

func (p *BaseProxy) Command() Command     { return p.command }
func (p *BaseProxy) Serial() uint32       { return p.serial }
func (p *BaseProxy) RequestorID() string  { return p.requestorID }
func (p *BaseProxy) Port() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.port
}

// ToRemotePeer envelope-packs cmd/args behind EnvelopeCommand and sends
// them over the dedicated endpoint (spec.md §4.6 "to_remote_peer").
// Once aborting or finished, no new outbound messages are accepted.
func (p *BaseProxy) ToRemotePeer(ctx context.Context, cmd string, args []string) error {
	p.mu.Lock()
	if p.state == StateAborting || p.state == StateFinished || p.state == StateErrorRaised || p.state == StateClosed {
		p.mu.Unlock()
		return nil
	}
	ep := p.endpoint
	p.mu.Unlock()
	if ep == nil {
		return &BusError{Kind: ErrTransportFailure, Message: "proxy has no bound endpoint"}
	}
	envelopeArgs := append(append([]string(nil), args...), cmd)
	return ep.Send(ctx, EnvelopeCommand, envelopeArgs)
}

// FromRemotePeer handles the reserved commands every proxy understands
// regardless of variant: ABORT, FINISHED and PEER_ERROR. Variants call this last,
// after failing to recognise their own commands, per spec.md §4.6's
// "returning false to delegate up the variant hierarchy" contract run
// in reverse (base handles what nothing more specific claimed).
func (p *BaseProxy) FromRemotePeer(ctx context.Context, cmd string, args []string) (bool, error) {
	switch cmd {
	case ReservedAbort:
		if !p.Finished() {
			_ = p.ToRemotePeer(ctx, ReservedAbort, nil)
		}
		p.setAborting()
		return true, nil
	case ReservedFinished:
		p.MarkFinished()
		return true, nil
	case ReservedPeerError:
		var code uint32
		msg := ""
		if len(args) > 0 {
			msg = args[0]
		}
		p.raiseError(code, msg)
		return true, nil
	default:
		return false, nil
	}
}

// Abort is the caller-initiated, idempotent cancellation entry point
// (spec.md §4.6 "abort()"; §5 "Cancellation semantics"): sends ABORT to
// the peer, then flips the local flag. Later calls send nothing, since
// ToRemotePeer refuses once the proxy is aborting.
func (p *BaseProxy) Abort() {
	_ = p.ToRemotePeer(context.Background(), ReservedAbort, nil)
	p.setAborting()
}

func (p *BaseProxy) setAborting() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == StateInitial || p.state == StateRunning {
		p.state = StateAborting
	}
}

func (p *BaseProxy) IsAborting() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state == StateAborting
}

// Finished reports whether the command has reached a terminal state.
// ErrorRaised counts as finished, per spec.md §4.6 state machine note.
func (p *BaseProxy) Finished() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state == StateFinished || p.state == StateErrorRaised || p.state == StateClosed
}

func (p *BaseProxy) State() ProxyState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// MarkFinished transitions Running -> Finished on inbound FINISHED with
// no prior abort (spec.md §4.6 state machine).
func (p *BaseProxy) MarkFinished() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StateAborting {
		p.state = StateFinished
	} else {
		p.state = StateClosed
	}
}

// Close moves the proxy to Closed from whatever state it is in and
// releases the bound endpoint. Idempotent.
func (p *BaseProxy) Close() error {
	p.mu.Lock()
	ep := p.endpoint
	p.endpoint = nil
	p.state = StateClosed
	p.mu.Unlock()
	if ep != nil {
		return ep.Close()
	}
	return nil
}

// raiseError sets ErrorRaised, per spec.md §7 PeerError handling.
func (p *BaseProxy) raiseError(code uint32, msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.errCode = code
	p.errMsg = msg
	p.state = StateErrorRaised
}

// RaiseErrorOnPeer sends the reserved PEER_ERROR command to the peer
// (spec.md §4.6 "raise_error_on_peer"): the receiving side's
// FromRemotePeer marks itself ErrorRaised and finished. Only msg is
// sent; code is not carried in the message, so the peer's Error()
// reports code 0.
func (p *BaseProxy) RaiseErrorOnPeer(ctx context.Context, msg string, code uint32) error {
	return p.ToRemotePeer(ctx, ReservedPeerError, []string{msg})
}

// Error returns the last peer-raised error code/message, if any.
func (p *BaseProxy) Error() (code uint32, msg string, raised bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.errCode, p.errMsg, p.state == StateErrorRaised
}

// PackCommandLineArgs returns the base prefix every proxy contributes:
// requestor id and serial, consumed first by issue_bus_command's
// envelope (spec.md §4.8).
func (p *BaseProxy) PackCommandLineArgs() []string {
	return []string{p.requestorID, uint32ToString(p.serial)}
}

// Tokenize appends this proxy's fixed prefix, in the same front-to-back
// order Untokenize consumes it, per spec.md §4.6's tokenize/untokenize
// symmetry contract.
func (p *BaseProxy) Tokenize(out *[]string) {
	*out = append(*out, p.requestorID, uint32ToString(p.serial))
}

// Untokenize consumes this proxy's prefix from the front of args,
// mirroring Tokenize. Malformed input is left for the caller to
// diagnose as MalformedQuery.
func (p *BaseProxy) Untokenize(args *[]string) {
	a := *args
	if len(a) < 2 {
		return
	}
	p.requestorID = a[0]
	p.serial = stringToUint32(a[1])
	*args = a[2:]
}

// RawArgs exposes the proxy's trailing command-specific tokens, set by
// BusCommandMessage.act() before run_command is invoked (spec.md §4.8).
func (p *BaseProxy) RawArgs() []string { return p.args }

// SetRawArgs stores the trailing command-specific tokens.
func (p *BaseProxy) SetRawArgs(args []string) { p.args = args }
