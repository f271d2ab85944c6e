package queryelement

import (
	"context"

	"github.com/singnet/das-servicebus/atomspace"
	"github.com/singnet/das-servicebus/servicebus"
)

// Or waits, at each tick, until every input either has an answer queued
// or is finished, then selects the highest-importance head among the
// non-empty inputs, ties broken by input index (spec.md §4.9 "Or<N>"),
// grounded directly on
// original_source/src/agents/query_engine/query_element/Or.h.
type Or struct {
	*operatorBase

	buffered      [][]*atomspace.QueryAnswer
	nextToProcess []int
	inputArrived  []bool
}

// NewOr builds an Or over 2..MaxFanIn clauses.
func NewOr(id string, clauses []Element, inputCapacity int) (*Or, error) {
	if len(clauses) < 2 || len(clauses) > MaxFanIn {
		return nil, &servicebus.BusError{Kind: servicebus.ErrMalformedQuery, Message: "OR arity out of range"}
	}
	o := &Or{operatorBase: newOperatorBase(id, clauses, inputCapacity)}
	o.buffered = make([][]*atomspace.QueryAnswer, len(clauses))
	o.nextToProcess = make([]int, len(clauses))
	o.inputArrived = make([]bool, len(clauses))
	return o, nil
}

func (o *Or) SetupBuffers(ctx context.Context) {
	o.setupPrecedents(ctx)
	o.task = servicebus.NewStoppableTask(o.id)
	o.task.Attach(o.run)
}

func (o *Or) GracefulShutdown() { o.gracefulShutdown() }

func (o *Or) run(ctx context.Context) {
	for {
		if o.task.Stopped() {
			return
		}

		drained := o.drainInputs()

		if !o.readyToSelect() {
			if !drained {
				idle(ctx)
			}
			continue
		}

		if o.processedAllInput() {
			if o.allInputsFinished() {
				o.finishConsumers()
				return
			}
			idle(ctx)
			continue
		}

		i := o.selectHead()
		answer := o.buffered[i][o.nextToProcess[i]]
		o.nextToProcess[i]++
		o.emit(ctx, answer)
	}
}

func (o *Or) drainInputs() bool {
	drained := false
	for i, in := range o.inputs {
		for {
			answer, ok := in.TryPop()
			if !ok {
				break
			}
			drained = true
			o.buffered[i] = append(o.buffered[i], answer)
		}
		if in.IsEmpty() && in.IsFinished() {
			o.inputArrived[i] = true
		}
	}
	return drained
}

// readyToSelect mirrors Or.h's ready_to_process_candidate(): every
// input must either be finished or hold at least one unconsumed
// buffered answer before a selection round can run.
func (o *Or) readyToSelect() bool {
	for i := range o.inputs {
		if !o.inputArrived[i] && len(o.buffered[i]) <= o.nextToProcess[i] {
			return false
		}
	}
	return true
}

func (o *Or) processedAllInput() bool {
	for i := range o.inputs {
		if o.nextToProcess[i] < len(o.buffered[i]) {
			return false
		}
	}
	return true
}

func (o *Or) allInputsFinished() bool {
	for i := range o.inputs {
		if !o.inputArrived[i] {
			return false
		}
	}
	return true
}

// selectHead picks the highest-importance unconsumed head across
// non-empty inputs, ties broken by input index.
func (o *Or) selectHead() int {
	best := -1
	bestImportance := -1.0
	for i := range o.inputs {
		if o.nextToProcess[i] >= len(o.buffered[i]) {
			continue
		}
		imp := o.buffered[i][o.nextToProcess[i]].Importance
		if imp > bestImportance {
			bestImportance = imp
			best = i
		}
	}
	return best
}
