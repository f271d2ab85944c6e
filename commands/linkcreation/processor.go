// Package linkcreation implements the LINK_CREATION CommandProcessor
// (spec.md §4.6 variant 6): it materialises a new Link from a
// link_creation_schema query's matches and streams the created
// handle(s) back as a single-answer bundle, then finishes. Timeout
// enforcement is the owning caller's responsibility (spec.md §5
// "owning agents layer timeouts on top ... calling abort()"); this
// processor only honors an already-aborted proxy.
package linkcreation

import (
	"context"
	"time"

	"github.com/singnet/das-servicebus/atomspace"
	"github.com/singnet/das-servicebus/logging"
	"github.com/singnet/das-servicebus/queryelement"
	"github.com/singnet/das-servicebus/servicebus"
)

// pollInterval is how long resolveTargets' drain loop sleeps when the
// Sink has no answer ready yet but is not finished (spec.md §5
// "Operator worker's yield sleep when no progress is possible").
const pollInterval = time.Millisecond

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
	return []servicebus.Command{servicebus.CommandLinkCreation}
}

func (p *Processor) FactoryEmptyProxy(cmd servicebus.Command, serial uint32, requestorID string) servicebus.Proxy {
	return servicebus.NewLinkCreationRequestProxy(serial, requestorID, queryelement.QueueCapacity)
}

func (p *Processor) RunCommand(ctx context.Context, proxy servicebus.Proxy) {
	proc, ok := proxy.(*servicebus.LinkCreationRequestProxy)
	if !ok {
		return
	}
	args := append([]string(nil), proc.RawArgs()...)
	proc.Untokenize(&args)

	schemaQuery := proc.Params.GetOr(servicebus.ParamLinkCreationSchema, "")
	linkType := proc.Params.GetOr(servicebus.ParamLinkCreationType, "")
	if schemaQuery == "" || linkType == "" {
		_ = proc.RaiseErrorOnPeer(ctx, "link_creation_schema and link_type are required", 0)
		return
	}

	targets := p.resolveTargets(ctx, schemaQuery)
	if proc.IsAborting() {
		return
	}

	link := atomspace.NewLink(linkType, targets, true)
	handle, err := p.Store.AddLink(ctx, link)
	if err != nil {
		_ = proc.RaiseErrorOnPeer(ctx, err.Error(), 0)
		return
	}

	answer := atomspace.NewQueryAnswer([]atomspace.Handle{handle}, atomspace.NewAssignment())
	if err := proc.Push(ctx, answer); err != nil {
		_ = proc.RaiseErrorOnPeer(ctx, err.Error(), 0)
		return
	}
	_ = proc.QueryProcessingFinished(ctx)
}

// resolveTargets compiles schemaQuery and collects one target handle
// per match's first handle, in match order.
func (p *Processor) resolveTargets(ctx context.Context, schemaQuery string) []atomspace.Handle {
	tokens := queryelement.ParseTokens(schemaQuery)
	root, err := queryelement.Compile(tokens, p.Store, false)
	if err != nil {
		return nil
	}
	sink := queryelement.NewSink(ctx, "linkcreation_"+schemaQuery, root)
	defer sink.GracefulShutdown()

	var targets []atomspace.Handle
	for {
		answer, ok := sink.Pop()
		if !ok {
			if sink.Finished() {
				return targets
			}
			select {
			case <-ctx.Done():
				return targets
			case <-time.After(pollInterval):
			}
			continue
		}
		if len(answer.Handles) > 0 {
			targets = append(targets, answer.Handles[0])
		}
	}
}
