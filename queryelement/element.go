// Package queryelement implements the Query Element Graph (spec.md
// §4.9): a dataflow graph of Operators (And/Or/UniqueAssignmentFilter)
// over Terminals (Node/Link/LinkTemplate/Variable/Atom), each node
// owning bounded queues and a worker goroutine, grounded on
// original_source/src/query_engine/query_element/* and
// src/agents/query_engine/query_element/Or.h.
package queryelement

import (
	"context"

	"github.com/singnet/das-servicebus/atomspace"
)

// Element is the common interface every node in the graph satisfies:
// Terminals produce QueryAnswers from the AtomStore, Operators combine
// their precedents' output streams (spec.md §4.9 "Build phase").
type Element interface {
	// ID is this element's stable identifier, used to name its queues
	// (e.g. "Sink_<my_id>_<serial>", spec.md §4.10).
	ID() string

	// SetupBuffers wires this element's output to every consumer
	// registered via Subscribe, and recursively wires its precedents
	// (spec.md §4.9 "Wiring": "the Sink calls setup_buffers() on its
	// precedent, which recursively wires each operator's N input
	// queues to its clauses' outputs").
	SetupBuffers(ctx context.Context)

	// Subscribe registers a downstream consumer's output queue; Output
	// fans out a cheap clone of each QueryAnswer to every subscriber
	// (spec.md §4.9 "Wiring").
	Subscribe(q *Queue)

	// GracefulShutdown cascades depth-first through precedents: each
	// node stops its worker and marks its consumers' queues finished
	// (spec.md §4.9 "Termination order").
	GracefulShutdown()
}

// Queue is the bounded inter-element FIFO every Operator/Terminal
// output fans out through. It doubles as the "producer finished"
// sticky marker spec.md §2 names for the Bounded Answer Queue, reused
// here for inter-operator queues since both need the same shape.
type Queue struct {
	items    chan *atomspace.QueryAnswer
	finished chan struct{}
	closeFn  func()
}

// NewQueue creates a queue with the given buffer capacity.
func NewQueue(capacity int) *Queue {
	return &Queue{
		items:    make(chan *atomspace.QueryAnswer, capacity),
		finished: make(chan struct{}),
	}
}

// Push enqueues an answer, blocking if the queue is full.
func (q *Queue) Push(ctx context.Context, a *atomspace.QueryAnswer) {
	select {
	case q.items <- a:
	case <-ctx.Done():
	}
}

// TryPop attempts a non-blocking dequeue.
func (q *Queue) TryPop() (*atomspace.QueryAnswer, bool) {
	select {
	case a := <-q.items:
		return a, true
	default:
		return nil, false
	}
}

// IsEmpty reports whether the queue currently has no buffered items.
func (q *Queue) IsEmpty() bool {
	return len(q.items) == 0
}

// MarkFinished declares that no more items will ever be pushed. Once
// IsEmpty() and IsFinished() both hold, downstream consumers treat the
// stream as exhausted (spec.md §4.9 "flow_finished").
func (q *Queue) MarkFinished() {
	select {
	case <-q.finished:
	default:
		close(q.finished)
	}
}

// IsFinished reports whether MarkFinished has been called.
func (q *Queue) IsFinished() bool {
	select {
	case <-q.finished:
		return true
	default:
		return false
	}
}
