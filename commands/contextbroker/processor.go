// Package contextbroker implements the CONTEXT CommandProcessor
// (spec.md §4.6 variant 5, §6 "Persisted state"): it compiles the
// context's determiner/stimulus schemas into handle groups, registers
// them with the AttentionBroker collaborator, optionally persists the
// deterministic cache file, and acknowledges CONTEXT_CREATED, grounded
// on original_source/src/atom_space/Context.{h,cc}.
package contextbroker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/singnet/das-servicebus/atomspace"
	"github.com/singnet/das-servicebus/logging"
	"github.com/singnet/das-servicebus/queryelement"
	"github.com/singnet/das-servicebus/servicebus"
)

// pollInterval is how long collectGroup's drain loop sleeps when the
// Sink has no answer ready yet but is not finished (spec.md §5
// "Operator worker's yield sleep when no progress is possible"),
// matching commands/patternmatching's drain loop.
const pollInterval = time.Millisecond

// Processor owns CommandContext.
type Processor struct {
	Store    atomspace.Store
	Broker   atomspace.AttentionBroker
	Log      logging.Logger
	CacheDir string
}

func New(store atomspace.Store, broker atomspace.AttentionBroker, log logging.Logger, cacheDir string) *Processor {
	if broker == nil {
		broker = atomspace.NoopAttentionBroker{}
	}
	if log == nil {
		log = logging.NewNoop()
	}
	if cacheDir == "" {
		cacheDir = "."
	}
	return &Processor{Store: store, Broker: broker, Log: log, CacheDir: cacheDir}
}

func (p *Processor) OwnedCommands() []servicebus.Command {
	return []servicebus.Command{servicebus.CommandContext}
}

func (p *Processor) FactoryEmptyProxy(cmd servicebus.Command, serial uint32, requestorID string) servicebus.Proxy {
	return servicebus.NewContextBrokerProxy(serial, requestorID)
}

// RunCommand resolves the determiner and stimulus schemas against the
// store, registers them with the attention broker, optionally writes
// the cache file, then acknowledges the context was created.
func (p *Processor) RunCommand(ctx context.Context, proxy servicebus.Proxy) {
	proc, ok := proxy.(*servicebus.ContextBrokerProxy)
	if !ok {
		return
	}

	args := append([]string(nil), proc.RawArgs()...)
	proc.Untokenize(&args)

	qctx := atomspace.NewContext(string(proc.Command()), atomspace.Handle(proc.RequestorID()))

	if stimulusQuery, ok := proc.Params.Get(servicebus.ParamStimulusSchema); ok && stimulusQuery != "" {
		p.collectGroup(ctx, stimulusQuery, func(handles []atomspace.Handle) {
			for _, h := range handles {
				qctx.AddStimulus(h)
			}
		})
	}
	if determinerQuery, ok := proc.Params.Get(servicebus.ParamDeterminerSchema); ok && determinerQuery != "" {
		p.collectGroup(ctx, determinerQuery, qctx.AddDeterminerGroup)
	}

	if len(qctx.DeterminerGroups) > 0 {
		_ = p.Broker.SetDeterminers(ctx, qctx.DeterminerGroups, qctx.Key)
	}
	if len(qctx.ToStimulate) > 0 {
		_ = p.Broker.Stimulate(ctx, qctx.ToStimulate, qctx.Key)
	}

	if proc.Params.Flag(servicebus.ParamCacheFlag) {
		if err := p.writeCacheFile(qctx); err != nil {
			p.Log.Warn("context cache write failed", "key", qctx.Key, "error", err)
		}
	}

	_ = proc.AcknowledgeContextCreated(ctx)
}

// collectGroup compiles query against the store, drains every answer's
// handle set, and calls collect once with the flattened group.
func (p *Processor) collectGroup(ctx context.Context, query string, collect func([]atomspace.Handle)) {
	tokens := queryelement.ParseTokens(query)
	root, err := queryelement.Compile(tokens, p.Store, false)
	if err != nil {
		return
	}
	sink := queryelement.NewSink(ctx, "ctx_"+query, root)
	defer sink.GracefulShutdown()

	var group []atomspace.Handle
	for {
		answer, ok := sink.Pop()
		if !ok {
			if sink.Finished() {
				break
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(pollInterval):
			}
			continue
		}
		group = append(group, answer.Handles...)
	}
	if len(group) > 0 {
		collect(group)
	}
}

// writeCacheFile persists the deterministic per-context cache file
// (spec.md §6 "Persisted state"): stimulus handle count, handles one
// per line, determiner group count, then per group its size and
// handles one per line.
func (p *Processor) writeCacheFile(qctx *atomspace.Context) error {
	path := filepath.Join(p.CacheDir, qctx.CacheFileName())
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	stimulusHandles := make([]atomspace.Handle, 0, len(qctx.ToStimulate))
	for h := range qctx.ToStimulate {
		stimulusHandles = append(stimulusHandles, h)
	}
	stimulusHandles = atomspace.SortHandles(stimulusHandles)

	w := bufio.NewWriter(f)
	fmt.Fprintln(w, len(stimulusHandles))
	for _, h := range stimulusHandles {
		fmt.Fprintln(w, h)
	}
	fmt.Fprintln(w, len(qctx.DeterminerGroups))
	for _, group := range qctx.DeterminerGroups {
		fmt.Fprintln(w, len(group))
		for _, h := range group {
			fmt.Fprintln(w, h)
		}
	}
	return w.Flush()
}
