package servicebus

import (
	"context"
	"strconv"
)

// PatternMatchingQueryProxy extends BaseQueryProxy with the
// count-only mode and answer-budget flags of spec.md §4.6 variant 3.
type PatternMatchingQueryProxy struct {
	*BaseQueryProxy

	// Query is the whitespace-separated token-stream (or MeTTa
	// surface, when UseMettaSyntax is set) query this command
	// compiles into a Query Element Graph (spec.md §4.9/§4.10).
	Query          string
	UseMettaSyntax bool

	total uint64
}

// NewPatternMatchingQueryProxy builds a proxy for CommandPatternMatchingQuery.
func NewPatternMatchingQueryProxy(serial uint32, requestorID string, queueCapacity int) *PatternMatchingQueryProxy {
	return &PatternMatchingQueryProxy{
		BaseQueryProxy: NewBaseQueryProxy(NewBaseProxy(CommandPatternMatchingQuery, serial, requestorID), queueCapacity),
	}
}

// Tokenize appends this variant's fixed prefix — the UseMettaSyntax
// flag, the query string, then the five PatternMatchingQueryProxy
// parameters —
// ahead of BaseQueryProxy's own prefix, per spec.md §4.6's
// reverse-insertion-order tokenize/untokenize symmetry.
func (p *PatternMatchingQueryProxy) Tokenize(out *[]string) {
	*out = append(*out,
		strconv.FormatBool(p.UseMettaSyntax),
		p.Query,
		strconv.FormatBool(p.Params.Flag(ParamPositiveImportanceFlag)),
		strconv.FormatBool(p.Params.Flag(ParamCountFlag)),
		strconv.FormatBool(p.Params.Flag(ParamUniqueValueFlag)),
		p.Params.GetOr(ParamMaxAnswers, "0"),
		strconv.FormatBool(p.Params.Flag(ParamPopulateMettaMapping)),
	)
	p.BaseQueryProxy.Tokenize(out)
}

// Untokenize consumes this variant's prefix, mirroring Tokenize, then
// delegates to BaseQueryProxy for the shared fields.
func (p *PatternMatchingQueryProxy) Untokenize(args *[]string) {
	a := *args
	if len(a) < 7 {
		return
	}
	p.UseMettaSyntax = a[0] == "true"
	p.Query = a[1]
	p.Params.Set(ParamPositiveImportanceFlag, a[2])
	p.Params.Set(ParamCountFlag, a[3])
	p.Params.Set(ParamUniqueValueFlag, a[4])
	p.Params.Set(ParamMaxAnswers, a[5])
	p.Params.Set(ParamPopulateMettaMapping, a[6])
	*args = a[7:]
	p.BaseQueryProxy.Untokenize(args)
}

// PackCommandLineArgs returns the full token stream IssueBusCommand
// broadcasts for this command (spec.md §4.8), in exactly the order
// Untokenize consumes it: this variant's own fields first, then
// BaseQueryProxy's, then BaseProxy's requestor/serial.
func (p *PatternMatchingQueryProxy) PackCommandLineArgs() []string {
	var out []string
	p.Tokenize(&out)
	return out
}

// SendCount sends the single COUNT(total) message required when
// count_flag is set, before FINISHED (spec.md §4.10).
func (p *PatternMatchingQueryProxy) SendCount(ctx context.Context, total uint64) error {
	p.total = total
	return p.ToRemotePeer(ctx, ReservedCount, []string{strconv.FormatUint(total, 10)})
}

func (p *PatternMatchingQueryProxy) FromRemotePeer(ctx context.Context, cmd string, args []string) (bool, error) {
	if cmd == ReservedCount {
		if len(args) > 0 {
			if v, err := strconv.ParseUint(args[0], 10, 64); err == nil {
				p.total = v
			}
		}
		return true, nil
	}
	return p.BaseQueryProxy.FromRemotePeer(ctx, cmd, args)
}

// Total returns the last COUNT value received, for count_flag queries.
func (p *PatternMatchingQueryProxy) Total() uint64 { return p.total }

// QueryEvolutionProxy carries the genetic-search parameter bag of
// spec.md §4.6 variant 4; the streaming-answer mechanics are identical
// to BaseQueryProxy, so this variant contributes parameters only.
// Tokenize sends only correlation_query and selection_rate; the other
// keys of the bag stay on the side that set them.
type QueryEvolutionProxy struct {
	*BaseQueryProxy
}

func NewQueryEvolutionProxy(serial uint32, requestorID string, queueCapacity int) *QueryEvolutionProxy {
	return &QueryEvolutionProxy{
		BaseQueryProxy: NewBaseQueryProxy(NewBaseProxy(CommandQueryEvolution, serial, requestorID), queueCapacity),
	}
}

func (p *QueryEvolutionProxy) Tokenize(out *[]string) {
	*out = append(*out, p.Params.GetOr(ParamCorrelationQuery, ""), p.Params.GetOr(ParamSelectionRate, "1.0"))
	p.BaseQueryProxy.Tokenize(out)
}

func (p *QueryEvolutionProxy) Untokenize(args *[]string) {
	a := *args
	if len(a) < 2 {
		return
	}
	p.Params.Set(ParamCorrelationQuery, a[0])
	p.Params.Set(ParamSelectionRate, a[1])
	*args = a[2:]
	p.BaseQueryProxy.Untokenize(args)
}

func (p *QueryEvolutionProxy) PackCommandLineArgs() []string {
	var out []string
	p.Tokenize(&out)
	return out
}

// ContextBrokerProxy streams a single CONTEXT_CREATED acknowledgement
// and supports the re-entrant ATTENTION_BROKER_SET_PARAMETERS
// sub-command (spec.md §4.6 variant 5). It wraps BaseProxy directly —
// context creation is a one-shot acknowledgement, not a bundled answer
// stream.
type ContextBrokerProxy struct {
	*BaseProxy

	Params *Parameters

	created     bool
	createdCh   chan struct{}
	createdOnce bool
}

func NewContextBrokerProxy(serial uint32, requestorID string) *ContextBrokerProxy {
	return &ContextBrokerProxy{
		BaseProxy: NewBaseProxy(CommandContext, serial, requestorID),
		Params:    NewParameters(),
		createdCh: make(chan struct{}),
	}
}

// AcknowledgeContextCreated sends CONTEXT_CREATED exactly once.
func (c *ContextBrokerProxy) AcknowledgeContextCreated(ctx context.Context) error {
	if c.createdOnce {
		return nil
	}
	c.createdOnce = true
	return c.ToRemotePeer(ctx, ReservedContextCreated, nil)
}

// WaitCreated blocks until CONTEXT_CREATED is observed or ctx is done.
func (c *ContextBrokerProxy) WaitCreated(ctx context.Context) error {
	select {
	case <-c.createdCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Tokenize/Untokenize/PackCommandLineArgs carry the context/stimulus/
// determiner schema queries and the cache flag over the wire, since
// ContextBrokerProxy wraps BaseProxy directly rather than
// BaseQueryProxy.
func (c *ContextBrokerProxy) Tokenize(out *[]string) {
	*out = append(*out,
		c.Params.GetOr(ParamContextQuery, ""),
		c.Params.GetOr(ParamStimulusSchema, ""),
		c.Params.GetOr(ParamDeterminerSchema, ""),
		strconv.FormatBool(c.Params.Flag(ParamCacheFlag)),
	)
	c.BaseProxy.Tokenize(out)
}

func (c *ContextBrokerProxy) Untokenize(args *[]string) {
	a := *args
	if len(a) < 4 {
		return
	}
	c.Params.Set(ParamContextQuery, a[0])
	c.Params.Set(ParamStimulusSchema, a[1])
	c.Params.Set(ParamDeterminerSchema, a[2])
	c.Params.Set(ParamCacheFlag, a[3])
	*args = a[4:]
	c.BaseProxy.Untokenize(args)
}

func (c *ContextBrokerProxy) PackCommandLineArgs() []string {
	var out []string
	c.Tokenize(&out)
	return out
}

func (c *ContextBrokerProxy) FromRemotePeer(ctx context.Context, cmd string, args []string) (bool, error) {
	switch cmd {
	case ReservedContextCreated:
		if !c.created {
			c.created = true
			close(c.createdCh)
		}
		return true, nil
	case ReservedAttentionBrokerSetParameters:
		// Re-entrant sub-command: acknowledge completion on the same
		// endpoint pair without affecting the proxy's own state machine.
		return true, c.ToRemotePeer(ctx, ReservedAttentionBrokerSetParamsFinished, nil)
	default:
		return c.BaseProxy.FromRemotePeer(ctx, cmd, args)
	}
}

// LinkCreationRequestProxy is a BaseQueryProxy variant for the
// LINK_CREATION orchestration command (spec.md §4.6 variant 6):
// contributes no new protocol mechanics.
type LinkCreationRequestProxy struct {
	*BaseQueryProxy
}

func NewLinkCreationRequestProxy(serial uint32, requestorID string, queueCapacity int) *LinkCreationRequestProxy {
	return &LinkCreationRequestProxy{
		BaseQueryProxy: NewBaseQueryProxy(NewBaseProxy(CommandLinkCreation, serial, requestorID), queueCapacity),
	}
}

func (p *LinkCreationRequestProxy) Tokenize(out *[]string) {
	*out = append(*out, p.Params.GetOr(ParamLinkCreationSchema, ""), p.Params.GetOr(ParamLinkCreationType, ""))
	p.BaseQueryProxy.Tokenize(out)
}

func (p *LinkCreationRequestProxy) Untokenize(args *[]string) {
	a := *args
	if len(a) < 2 {
		return
	}
	p.Params.Set(ParamLinkCreationSchema, a[0])
	p.Params.Set(ParamLinkCreationType, a[1])
	*args = a[2:]
	p.BaseQueryProxy.Untokenize(args)
}

func (p *LinkCreationRequestProxy) PackCommandLineArgs() []string {
	var out []string
	p.Tokenize(&out)
	return out
}

// InferenceProxy is a BaseQueryProxy variant for the INFERENCE
// orchestration command (spec.md §4.6 variant 6).
type InferenceProxy struct {
	*BaseQueryProxy
}

func NewInferenceProxy(serial uint32, requestorID string, queueCapacity int) *InferenceProxy {
	return &InferenceProxy{
		BaseQueryProxy: NewBaseQueryProxy(NewBaseProxy(CommandInference, serial, requestorID), queueCapacity),
	}
}

func (p *InferenceProxy) Tokenize(out *[]string) {
	*out = append(*out, p.Params.GetOr(ParamInferenceQuery, ""), p.Params.GetOr(ParamInferenceDepth, "1"))
	p.BaseQueryProxy.Tokenize(out)
}

func (p *InferenceProxy) Untokenize(args *[]string) {
	a := *args
	if len(a) < 2 {
		return
	}
	p.Params.Set(ParamInferenceQuery, a[0])
	p.Params.Set(ParamInferenceDepth, a[1])
	*args = a[2:]
	p.BaseQueryProxy.Untokenize(args)
}

func (p *InferenceProxy) PackCommandLineArgs() []string {
	var out []string
	p.Tokenize(&out)
	return out
}

// AtomDBBrokerProxy is a BaseProxy variant for the ATOMDB command
// (spec.md §4.6 variant 6): a thin orchestration proxy with no
// streaming-answer mechanics of its own.
type AtomDBBrokerProxy struct {
	*BaseProxy
	Params *Parameters

	result bool
}

func NewAtomDBBrokerProxy(serial uint32, requestorID string) *AtomDBBrokerProxy {
	return &AtomDBBrokerProxy{
		BaseProxy: NewBaseProxy(CommandAtomDB, serial, requestorID),
		Params:    NewParameters(),
	}
}

// FromRemotePeer captures the boolean result carried on FINISHED ahead
// of delegating to BaseProxy for the state transition.
func (a *AtomDBBrokerProxy) FromRemotePeer(ctx context.Context, cmd string, args []string) (bool, error) {
	if cmd == ReservedFinished && len(args) > 0 {
		a.result = args[0] == "true"
	}
	return a.BaseProxy.FromRemotePeer(ctx, cmd, args)
}

// Result returns the last boolean ack received on FINISHED.
func (a *AtomDBBrokerProxy) Result() bool { return a.result }

func (a *AtomDBBrokerProxy) Tokenize(out *[]string) {
	*out = append(*out, a.Params.GetOr(ParamAtomDBOperation, ""), a.Params.GetOr(ParamAtomDBHandle, ""))
	a.BaseProxy.Tokenize(out)
}

func (a *AtomDBBrokerProxy) Untokenize(args *[]string) {
	s := *args
	if len(s) < 2 {
		return
	}
	a.Params.Set(ParamAtomDBOperation, s[0])
	a.Params.Set(ParamAtomDBHandle, s[1])
	*args = s[2:]
	a.BaseProxy.Untokenize(args)
}

func (a *AtomDBBrokerProxy) PackCommandLineArgs() []string {
	var out []string
	a.Tokenize(&out)
	return out
}
