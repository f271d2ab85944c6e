package queryelement

import (
	"context"

	"github.com/singnet/das-servicebus/atomspace"
	"github.com/singnet/das-servicebus/servicebus"
)

// And is the cartesian-join-under-assignment-consistency operator
// (spec.md §4.9 "And<N>"): it caches every answer seen so far on each
// input and, as new answers arrive on any input, cross-joins them
// against the cached answers of every other input, emitting each pair
// whose Assignments are merge-compatible.
type And struct {
	*operatorBase

	seen [][]*atomspace.QueryAnswer
}

// NewAnd builds an And over 2..MaxFanIn clauses.
func NewAnd(id string, clauses []Element, inputCapacity int) (*And, error) {
	if len(clauses) < 2 || len(clauses) > MaxFanIn {
		return nil, &servicebus.BusError{Kind: servicebus.ErrMalformedQuery, Message: "AND arity out of range"}
	}
	a := &And{operatorBase: newOperatorBase(id, clauses, inputCapacity)}
	a.seen = make([][]*atomspace.QueryAnswer, len(clauses))
	return a, nil
}

func (a *And) SetupBuffers(ctx context.Context) {
	a.setupPrecedents(ctx)
	a.task = servicebus.NewStoppableTask(a.id)
	a.task.Attach(a.run)
}

func (a *And) GracefulShutdown() { a.gracefulShutdown() }

func (a *And) run(ctx context.Context) {
	for {
		if a.task.Stopped() {
			return
		}
		progressed := a.ingest(ctx)
		if a.allInputsFinished() {
			a.finishConsumers()
			return
		}
		if !progressed {
			idle(ctx)
		}
	}
}

// ingest drains every ready input, cross-joining each newly arrived
// answer against the cached answers of every other input and emitting
// merge-compatible pairs (spec.md §4.9: "Emission order: deterministic
// with respect to arrival order on each input").
func (a *And) ingest(ctx context.Context) bool {
	progressed := false
	for i, in := range a.inputs {
		for {
			answer, ok := in.TryPop()
			if !ok {
				break
			}
			progressed = true
			a.crossJoin(ctx, i, answer)
			a.seen[i] = append(a.seen[i], answer)
		}
	}
	return progressed
}

func (a *And) crossJoin(ctx context.Context, arrivedOn int, answer *atomspace.QueryAnswer) {
	if len(a.inputs) == 1 {
		a.emit(ctx, answer)
		return
	}
	pairs := []*atomspace.QueryAnswer{answer}
	for j := range a.inputs {
		if j == arrivedOn {
			continue
		}
		var next []*atomspace.QueryAnswer
		for _, partial := range pairs {
			for _, other := range a.seen[j] {
				if merged, ok := atomspace.Merge2(partial, other); ok {
					next = append(next, merged)
				}
			}
		}
		pairs = next
		if len(pairs) == 0 {
			return
		}
	}
	for _, p := range pairs {
		a.emit(ctx, p)
	}
}

func idle(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-timeAfterIdle():
	}
}
