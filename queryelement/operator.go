package queryelement

import (
	"context"
	"time"

	"github.com/singnet/das-servicebus/atomspace"
	"github.com/singnet/das-servicebus/servicebus"
)

// MaxFanIn is the maximum number of clauses And/Or may combine,
// spec.md §4.9's "language-neutral fan-in limit" (rationale:
// compile-time specialisation and bounded per-operator queue count in
// the original; here it bounds the size of the fixed input-queue
// slice instead of a template parameter N).
const MaxFanIn = 10

// idleBackoff is the operator worker's yield sleep when no input is
// ready and none is finished (spec.md §4.9 "Back-pressure and
// cancellation": "the worker yields (short sleep) rather than blocking
// on a condvar — this is the stated design trade-off").
const idleBackoff = time.Millisecond

// operatorBase is the shared machinery every Operator embeds: N input
// queues wired to precedents, fan-out to consumers, and a Stoppable
// Task running the operator's own loop (spec.md §4.9 "Operator
// semantics"), grounded on
// original_source/src/query_engine/query_element/Operator.h.
type operatorBase struct {
	id         string
	precedents []Element
	inputs     []*Queue
	consumers  []*Queue
	task       *servicebus.StoppableTask
}

func newOperatorBase(id string, precedents []Element, inputCapacity int) *operatorBase {
	inputs := make([]*Queue, len(precedents))
	for i := range inputs {
		inputs[i] = NewQueue(inputCapacity)
	}
	return &operatorBase{id: id, precedents: precedents, inputs: inputs}
}

func (o *operatorBase) ID() string { return o.id }

func (o *operatorBase) Subscribe(q *Queue) { o.consumers = append(o.consumers, q) }

// setupPrecedents subscribes each input queue to its precedent and
// recurses setup_buffers, per spec.md §4.9 "Wiring".
func (o *operatorBase) setupPrecedents(ctx context.Context) {
	for i, p := range o.precedents {
		p.Subscribe(o.inputs[i])
		p.SetupBuffers(ctx)
	}
}

// gracefulShutdown cascades depth-first through precedents, then
// declares this element's consumers finished (spec.md §4.9
// "Termination order").
func (o *operatorBase) gracefulShutdown() {
	if o.task != nil {
		o.task.Stop()
	}
	for _, p := range o.precedents {
		p.GracefulShutdown()
	}
	for _, c := range o.consumers {
		c.MarkFinished()
	}
}

func (o *operatorBase) emit(ctx context.Context, answer *atomspace.QueryAnswer) {
	for _, c := range o.consumers {
		c.Push(ctx, answer.Clone())
	}
}

func (o *operatorBase) finishConsumers() {
	for _, c := range o.consumers {
		c.MarkFinished()
	}
}

// allInputsFinished reports whether every precedent has drained and
// declared itself finished.
func (o *operatorBase) allInputsFinished() bool {
	for _, in := range o.inputs {
		if !in.IsFinished() || !in.IsEmpty() {
			return false
		}
	}
	return true
}

// timeAfterIdle returns the channel idle() selects on for the
// documented empty/not-finished backoff sleep.
func timeAfterIdle() <-chan time.Time {
	return time.After(idleBackoff)
}
