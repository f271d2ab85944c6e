// Package atomdb implements the ATOMDB CommandProcessor (spec.md §4.6
// variant 6): a thin front for a subset of the AtomStore collaborator,
// exposed over the bus for remote callers that only have a bus
// connection, not a direct Store handle. The specification notes the
// original AtomDBBrokerProxy carries TODO markers and half-wired code
// paths whose behavior it does not define (spec.md §9 Open Questions);
// this processor implements only the operations spec.md §6 actually
// names on the Store collaborator, acknowledging via PEER_ERROR for
// anything else.
package atomdb

import (
	"context"

	"github.com/singnet/das-servicebus/atomspace"
	"github.com/singnet/das-servicebus/logging"
	"github.com/singnet/das-servicebus/servicebus"
)

const (
	OpLinkExists = "link_exists"
	OpNodeExists = "node_exists"
	OpDeleteLink = "delete_link"
	OpDeleteNode = "delete_node"
)

type Processor struct {
	Store atomspace.Store
	Log   logging.Logger
}

func New(store atomspace.Store, log logging.Logger) *Processor {
	if log == nil {
		log = logging.NewNoop()
	}
	return &Processor{Store: store, Log: log}
}

func (p *Processor) OwnedCommands() []servicebus.Command {
	return []servicebus.Command{servicebus.CommandAtomDB}
}

func (p *Processor) FactoryEmptyProxy(cmd servicebus.Command, serial uint32, requestorID string) servicebus.Proxy {
	return servicebus.NewAtomDBBrokerProxy(serial, requestorID)
}

func (p *Processor) RunCommand(ctx context.Context, proxy servicebus.Proxy) {
	proc, ok := proxy.(*servicebus.AtomDBBrokerProxy)
	if !ok {
		return
	}
	args := append([]string(nil), proc.RawArgs()...)
	proc.Untokenize(&args)

	op := proc.Params.GetOr(servicebus.ParamAtomDBOperation, "")
	handle := atomspace.Handle(proc.Params.GetOr(servicebus.ParamAtomDBHandle, ""))

	var result bool
	var err error
	switch op {
	case OpLinkExists:
		result, err = p.Store.LinkExists(ctx, handle)
	case OpNodeExists:
		result, err = p.Store.NodeExists(ctx, handle)
	case OpDeleteLink:
		err = p.Store.DeleteLink(ctx, handle, true)
		result = err == nil
	case OpDeleteNode:
		err = p.Store.DeleteNode(ctx, handle, true)
		result = err == nil
	default:
		_ = proc.RaiseErrorOnPeer(ctx, "unsupported atomdb operation: "+op, 0)
		return
	}
	if err != nil {
		_ = proc.RaiseErrorOnPeer(ctx, err.Error(), 0)
		return
	}

	ack := "false"
	if result {
		ack = "true"
	}
	_ = proc.ToRemotePeer(ctx, servicebus.ReservedFinished, []string{ack})
}
