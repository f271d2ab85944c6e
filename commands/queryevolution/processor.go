// Package queryevolution implements the QUERY_EVOLUTION
// CommandProcessor (spec.md §4.6 variant 4): same streaming-answer
// shape as PATTERN_MATCHING_QUERY, but candidates are drawn from
// correlation_query and ranked by the attention broker's importance
// score before the selection_rate cutoff is applied.
// The specification is silent on the exact genetic-search algorithm
// (spec.md §9 Open Questions only resolves the And/Or join semantics
// and AtomDBBrokerProxy's TODOs); this processor implements the
// observable contract — a parameter-driven ranked subset of matches —
// without inventing a specific crossover/mutation scheme.
package queryevolution

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/singnet/das-servicebus/atomspace"
	"github.com/singnet/das-servicebus/logging"
	"github.com/singnet/das-servicebus/queryelement"
	"github.com/singnet/das-servicebus/servicebus"
)

// pollInterval is how long collect's drain loop sleeps when the Sink
// has no answer ready yet but is not finished (spec.md §5 "Operator
// worker's yield sleep when no progress is possible").
const pollInterval = time.Millisecond

type Processor struct {
	Store  atomspace.Store
	Broker atomspace.AttentionBroker
	Log    logging.Logger
}

func New(store atomspace.Store, broker atomspace.AttentionBroker, log logging.Logger) *Processor {
	if broker == nil {
		broker = atomspace.NoopAttentionBroker{}
	}
	if log == nil {
		log = logging.NewNoop()
	}
	return &Processor{Store: store, Broker: broker, Log: log}
}

func (p *Processor) OwnedCommands() []servicebus.Command {
	return []servicebus.Command{servicebus.CommandQueryEvolution}
}

func (p *Processor) FactoryEmptyProxy(cmd servicebus.Command, serial uint32, requestorID string) servicebus.Proxy {
	return servicebus.NewQueryEvolutionProxy(serial, requestorID, queryelement.QueueCapacity)
}

func (p *Processor) RunCommand(ctx context.Context, proxy servicebus.Proxy) {
	proc, ok := proxy.(*servicebus.QueryEvolutionProxy)
	if !ok {
		return
	}
	args := append([]string(nil), proc.RawArgs()...)
	proc.Untokenize(&args)

	query := proc.Params.GetOr(servicebus.ParamCorrelationQuery, "")
	candidates := p.collect(ctx, query)

	contextKey := proc.RequestorID()
	if len(candidates) > 0 {
		handles := candidatesHandles(candidates)
		if importances, err := p.Broker.GetImportance(ctx, handles, contextKey); err == nil {
			for i := range candidates {
				if i < len(importances) {
					candidates[i].Importance = importances[i]
				}
			}
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Importance > candidates[j].Importance
	})

	keep := selectionCount(len(candidates), proc.Params.GetOr(servicebus.ParamSelectionRate, "1.0"))
	for i, answer := range candidates {
		if i >= keep {
			break
		}
		if err := proc.Push(ctx, answer); err != nil {
			_ = proc.RaiseErrorOnPeer(ctx, err.Error(), 0)
			return
		}
	}
	_ = proc.QueryProcessingFinished(ctx)
}

func (p *Processor) collect(ctx context.Context, query string) []*atomspace.QueryAnswer {
	if query == "" {
		return nil
	}
	tokens := queryelement.ParseTokens(query)
	root, err := queryelement.Compile(tokens, p.Store, false)
	if err != nil {
		return nil
	}
	sink := queryelement.NewSink(ctx, "evo_"+query, root)
	defer sink.GracefulShutdown()

	var out []*atomspace.QueryAnswer
	for {
		answer, ok := sink.Pop()
		if !ok {
			if sink.Finished() {
				return out
			}
			select {
			case <-ctx.Done():
				return out
			case <-time.After(pollInterval):
			}
			continue
		}
		out = append(out, answer)
	}
}

func candidatesHandles(candidates []*atomspace.QueryAnswer) []atomspace.Handle {
	var handles []atomspace.Handle
	for _, c := range candidates {
		if len(c.Handles) > 0 {
			handles = append(handles, c.Handles[0])
		}
	}
	return handles
}

// selectionCount applies rate (0, 1] to total, keeping at least one
// candidate when total > 0.
func selectionCount(total int, rateStr string) int {
	rate, err := strconv.ParseFloat(rateStr, 64)
	if err != nil || rate <= 0 || rate > 1 {
		rate = 1.0
	}
	n := int(float64(total) * rate)
	if n < 1 && total > 0 {
		n = 1
	}
	return n
}
