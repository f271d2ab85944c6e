// Package inference implements the INFERENCE CommandProcessor (spec.md
// §4.6 variant 6): it runs inference_query as an ordinary pattern
// match, re-running the same query for up to inference_depth rounds
// and stopping early after a round with no answers, streaming every
// round's answers as they are produced. Timeout enforcement is the owning caller's
// responsibility (spec.md §5); this processor only honors an
// already-aborted proxy between rounds.
package inference

import (
	"context"
	"strconv"
	"time"

	"github.com/singnet/das-servicebus/atomspace"
	"github.com/singnet/das-servicebus/logging"
	"github.com/singnet/das-servicebus/queryelement"
	"github.com/singnet/das-servicebus/servicebus"
)

// pollInterval is how long runRound's drain loop sleeps when the Sink
// has no answer ready yet but is not finished (spec.md §5 "Operator
// worker's yield sleep when no progress is possible").
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
	return []servicebus.Command{servicebus.CommandInference}
}

func (p *Processor) FactoryEmptyProxy(cmd servicebus.Command, serial uint32, requestorID string) servicebus.Proxy {
	return servicebus.NewInferenceProxy(serial, requestorID, queryelement.QueueCapacity)
}

func (p *Processor) RunCommand(ctx context.Context, proxy servicebus.Proxy) {
	proc, ok := proxy.(*servicebus.InferenceProxy)
	if !ok {
		return
	}
	args := append([]string(nil), proc.RawArgs()...)
	proc.Untokenize(&args)

	query := proc.Params.GetOr(servicebus.ParamInferenceQuery, "")
	depth := 1
	if v, err := strconv.Atoi(proc.Params.GetOr(servicebus.ParamInferenceDepth, "1")); err == nil && v > 0 {
		depth = v
	}

	for round := 0; round < depth; round++ {
		if proc.IsAborting() {
			return
		}
		if query == "" {
			break
		}
		produced := p.runRound(ctx, proc, query, round)
		if produced == 0 {
			break
		}
	}
	_ = proc.QueryProcessingFinished(ctx)
}

// runRound compiles query, streams every match to proc, and returns
// how many answers were produced this round.
func (p *Processor) runRound(ctx context.Context, proc *servicebus.InferenceProxy, query string, round int) int {
	tokens := queryelement.ParseTokens(query)
	root, err := queryelement.Compile(tokens, p.Store, false)
	if err != nil {
		return 0
	}
	sink := queryelement.NewSink(ctx, "inference_"+strconv.Itoa(round)+"_"+query, root)
	defer sink.GracefulShutdown()

	produced := 0
	for {
		answer, ok := sink.Pop()
		if !ok {
			if sink.Finished() {
				return produced
			}
			select {
			case <-ctx.Done():
				return produced
			case <-time.After(pollInterval):
			}
			continue
		}
		produced++
		if err := proc.Push(ctx, answer); err != nil {
			_ = proc.RaiseErrorOnPeer(ctx, err.Error(), 0)
			return produced
		}
	}
}
