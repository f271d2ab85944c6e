// Package patternmatching implements the PATTERN_MATCHING_QUERY
// CommandProcessor (spec.md §4.10): it untokenizes the inbound proxy,
// compiles its query into a Query Element Graph, and drains the
// resulting Sink into the proxy's answer push loop, grounded on
// original_source/src/agents/query_engine/PatternMatchingQueryProcessor.cc.
package patternmatching

import (
	"context"
	"fmt"
	"time"

	"github.com/singnet/das-servicebus/atomspace"
	"github.com/singnet/das-servicebus/logging"
	"github.com/singnet/das-servicebus/queryelement"
	"github.com/singnet/das-servicebus/querycompiler"
	"github.com/singnet/das-servicebus/servicebus"
)

// Processor owns CommandPatternMatchingQuery. Broker may be nil, in
// which case attention_update_flag is accepted but silently a no-op
// (no AttentionBroker collaborator configured for this node).
type Processor struct {
	Store  atomspace.Store
	Broker atomspace.AttentionBroker
	Log    logging.Logger

	// PollInterval is how long the drain loop sleeps when the Sink has
	// no answer ready yet but is not finished (spec.md §5 "Operator
	// worker's yield sleep when no progress is possible").
	PollInterval time.Duration
}

// New builds a Processor. A nil broker is replaced with
// atomspace.NoopAttentionBroker so attention_update_flag handling never
// needs a nil check at the call site.
func New(store atomspace.Store, broker atomspace.AttentionBroker, log logging.Logger) *Processor {
	if broker == nil {
		broker = atomspace.NoopAttentionBroker{}
	}
	if log == nil {
		log = logging.NewNoop()
	}
	return &Processor{Store: store, Broker: broker, Log: log, PollInterval: time.Millisecond}
}

func (p *Processor) OwnedCommands() []servicebus.Command {
	return []servicebus.Command{servicebus.CommandPatternMatchingQuery}
}

func (p *Processor) FactoryEmptyProxy(cmd servicebus.Command, serial uint32, requestorID string) servicebus.Proxy {
	return servicebus.NewPatternMatchingQueryProxy(serial, requestorID, queryelement.QueueCapacity)
}

// RunCommand is the command's worker body, invoked on its own
// StoppableTask by the Bus (spec.md §4.7: "run_command must not block
// the bus's receive thread").
func (p *Processor) RunCommand(ctx context.Context, proxy servicebus.Proxy) {
	proc, ok := proxy.(*servicebus.PatternMatchingQueryProxy)
	if !ok {
		return
	}

	args := append([]string(nil), proc.RawArgs()...)
	proc.Untokenize(&args)

	uniqueAssignmentFlag := proc.Params.Flag(servicebus.ParamUniqueAssignmentFlag)
	compiler := querycompiler.Select(proc.UseMettaSyntax)
	root, err := compiler.Compile(proc.Query, p.Store, uniqueAssignmentFlag)
	if err != nil {
		_ = proc.RaiseErrorOnPeer(ctx, err.Error(), 0)
		return
	}

	sinkID := fmt.Sprintf("Sink_%s_%d", proc.RequestorID(), proc.Serial())
	sink := queryelement.NewSink(ctx, sinkID, root)
	defer sink.GracefulShutdown()

	attentionUpdate := proc.Params.Flag(servicebus.ParamAttentionUpdateFlag)
	countFlag := proc.Params.Flag(servicebus.ParamCountFlag)
	maxAnswers := proc.Params.GetOr(servicebus.ParamMaxAnswers, "0")
	budget := parseBudget(maxAnswers)

	qctx := atomspace.NewContext(sinkID, atomspace.Handle(proc.RequestorID()))

	var total uint64
	for {
		if proc.IsAborting() {
			root.GracefulShutdown()
			return
		}
		answer, ok := sink.Pop()
		if !ok {
			if sink.Finished() {
				break
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(p.PollInterval):
			}
			continue
		}

		total++
		if attentionUpdate {
			for _, h := range answer.Handles {
				qctx.AddStimulus(h)
			}
			_ = p.Broker.Correlate(ctx, answer.Handles, qctx.Key)
		}
		if !countFlag {
			if err := proc.Push(ctx, answer); err != nil {
				_ = proc.RaiseErrorOnPeer(ctx, err.Error(), 0)
				return
			}
		}
		if budget > 0 && total >= budget {
			root.GracefulShutdown()
			break
		}
	}

	if attentionUpdate && len(qctx.ToStimulate) > 0 {
		_ = p.Broker.Stimulate(ctx, qctx.ToStimulate, qctx.Key)
	}
	if countFlag {
		_ = proc.SendCount(ctx, total)
	}
	_ = proc.QueryProcessingFinished(ctx)
}

func parseBudget(s string) uint64 {
	var n uint64
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0
		}
		n = n*10 + uint64(c-'0')
	}
	return n
}
