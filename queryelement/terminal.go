package queryelement

import (
	"context"

	"github.com/singnet/das-servicebus/atomspace"
	"github.com/singnet/das-servicebus/servicebus"
)

// WildcardHandle marks a LinkTemplate target position bound to a
// query variable rather than a concrete atom (spec.md §6
// "query_for_pattern(link_schema)" takes "a link schema whose targets
// may be wildcards").
const WildcardHandle = atomspace.Handle("*")

// Term is one position of a LinkTemplate's target list: a concrete
// Node, a concrete already-hashed Atom, or a Variable to bind on match
// (spec.md §4.9 build-phase tokens NODE/VARIABLE/ATOM).
type Term interface {
	resolve() (handle atomspace.Handle, variable string)
}

// NodeTerm matches a concrete Node target.
type NodeTerm struct {
	Type string
	Name string
}

func (t NodeTerm) resolve() (atomspace.Handle, string) {
	return atomspace.NewNode(t.Type, t.Name).Handle(), ""
}

// AtomTerm matches a target by its already-known handle.
type AtomTerm struct {
	Handle atomspace.Handle
}

func (t AtomTerm) resolve() (atomspace.Handle, string) { return t.Handle, "" }

// VariableTerm matches any target at this position, binding it to Name
// in the resulting Assignment.
type VariableTerm struct {
	Name string
}

func (t VariableTerm) resolve() (atomspace.Handle, string) { return WildcardHandle, t.Name }

// Node builds a standalone atomspace.Node directly — used when
// a query clause is a fully concrete Node rather than part of a
// LinkTemplate's target list.
func Node(atomType, name string) *atomspace.Node { return atomspace.NewNode(atomType, name) }

// LinkTemplate is the graph's pattern-matching source element: it
// queries the AtomStore collaborator once for every link matching its
// schema, derives one Assignment per match by binding each Variable
// target against the matched link's actual targets, and streams the
// resulting QueryAnswers to its subscribers before declaring itself
// finished (spec.md §4.9 "LINK_TEMPLATE <type> <arity>").
//
// Binding is single-level: a Variable in one of the immediate
// Targets is bound directly; a nested LINK/LINK_TEMPLATE used as a
// target is not supported, and the compiler rejects it as a malformed
// query (spec.md Open Questions are silent on deeper pattern
// nesting, so this keeps the matcher to what §8's seed scenarios
// require).
type LinkTemplate struct {
	id       string
	linkType string
	targets  []Term
	toplevel bool
	store    atomspace.Store

	consumers []*Queue
	task      *servicebus.StoppableTask
}

// NewLinkTemplate builds a template over linkType with the given
// targets, to be matched against store.
func NewLinkTemplate(id, linkType string, targets []Term, toplevel bool, store atomspace.Store) *LinkTemplate {
	return &LinkTemplate{id: id, linkType: linkType, targets: targets, toplevel: toplevel, store: store}
}

func (lt *LinkTemplate) ID() string { return lt.id }

func (lt *LinkTemplate) Subscribe(q *Queue) { lt.consumers = append(lt.consumers, q) }

// SetupBuffers starts the matching worker; LinkTemplate is a leaf, so
// there is no precedent to recurse into (spec.md §4.9 "Wiring").
func (lt *LinkTemplate) SetupBuffers(ctx context.Context) {
	lt.task = servicebus.NewStoppableTask(lt.id)
	lt.task.Attach(func(taskCtx context.Context) { lt.run(taskCtx) })
}

func (lt *LinkTemplate) GracefulShutdown() {
	if lt.task != nil {
		lt.task.Stop()
	}
	for _, c := range lt.consumers {
		c.MarkFinished()
	}
}

func (lt *LinkTemplate) schema() *atomspace.Link {
	handles := make([]atomspace.Handle, len(lt.targets))
	for i, t := range lt.targets {
		h, _ := t.resolve()
		handles[i] = h
	}
	return atomspace.NewLink(lt.linkType, handles, lt.toplevel)
}

func (lt *LinkTemplate) run(ctx context.Context) {
	matches, err := lt.store.QueryForPattern(ctx, lt.schema())
	if err != nil {
		for _, c := range lt.consumers {
			c.MarkFinished()
		}
		return
	}
	for _, handle := range matches {
		if lt.task.Stopped() {
			break
		}
		answer, ok := lt.bind(ctx, handle)
		if !ok {
			continue
		}
		for _, c := range lt.consumers {
			c.Push(ctx, answer.Clone())
		}
	}
	for _, c := range lt.consumers {
		c.MarkFinished()
	}
}

func (lt *LinkTemplate) bind(ctx context.Context, handle atomspace.Handle) (*atomspace.QueryAnswer, bool) {
	targets, err := lt.store.QueryForTargets(ctx, handle)
	if err != nil || len(targets) != len(lt.targets) {
		return nil, false
	}
	assignment := atomspace.NewAssignment()
	for i, term := range lt.targets {
		if _, variable := term.resolve(); variable != "" {
			assignment.Assign(variable, targets[i])
		}
	}
	answer := atomspace.NewQueryAnswer([]atomspace.Handle{handle}, assignment)
	return answer, true
}

// atomSource wraps an already-resolved Atom (a concrete Node or fully
// hashed Link, spec.md §4.9 "NODE/ATOM -> push Terminal") as a
// single-answer Element: it is a degenerate clause, e.g. inside an
// And/Or alongside pattern-matched clauses, always producing exactly
// one no-binding match then finishing.
type atomSource struct {
	id        string
	handle    atomspace.Handle
	consumers []*Queue
}

// NewAtomSource builds a source element that emits its one concrete
// handle exactly once.
func NewAtomSource(id string, handle atomspace.Handle) Element {
	return &atomSource{id: id, handle: handle}
}

func (a *atomSource) ID() string           { return a.id }
func (a *atomSource) Subscribe(q *Queue)   { a.consumers = append(a.consumers, q) }
func (a *atomSource) GracefulShutdown()     {}

func (a *atomSource) SetupBuffers(ctx context.Context) {
	answer := atomspace.NewQueryAnswer([]atomspace.Handle{a.handle}, atomspace.NewAssignment())
	for _, c := range a.consumers {
		c.Push(ctx, answer.Clone())
		c.MarkFinished()
	}
}
