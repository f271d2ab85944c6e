package queryelement

import (
	"context"

	"github.com/singnet/das-servicebus/atomspace"
)

// Sink is the root of every Query Element Graph: it subscribes a
// single input queue to its precedent, calling SetupBuffers on it —
// which recursively wires the whole graph — and is drained by the
// pattern-matching processor into the proxy's answer push (spec.md
// §4.9 "Wiring"; §4.10), grounded on
// original_source/src/agents/query_engine/query_element/Sink.cc.
type Sink struct {
	id        string
	precedent Element
	input     *Queue

	queryAnswerCount int
}

// NewSink wires a Sink named id on top of precedent, immediately
// calling SetupBuffers (mirroring Sink's constructor's
// setup_buffers_flag default of true).
func NewSink(ctx context.Context, id string, precedent Element) *Sink {
	s := &Sink{id: id, precedent: precedent, input: NewQueue(QueueCapacity)}
	precedent.Subscribe(s.input)
	precedent.SetupBuffers(ctx)
	return s
}

func (s *Sink) ID() string { return s.id }

// Pop returns the next answer, non-blocking. ok is false when nothing
// is currently buffered; callers distinguish "more coming" from
// "finished" via Finished().
func (s *Sink) Pop() (*atomspace.QueryAnswer, bool) {
	a, ok := s.input.TryPop()
	if ok {
		s.queryAnswerCount++
	}
	return a, ok
}

// Finished reports whether the Sink's input is empty and its
// precedent has declared the flow finished (spec.md §4.9 "Termination
// order": "When the Sink observes empty ∧ finished").
func (s *Sink) Finished() bool {
	return s.input.IsEmpty() && s.input.IsFinished()
}

// QueryAnswerCount returns the number of answers drained so far.
func (s *Sink) QueryAnswerCount() int { return s.queryAnswerCount }

// GracefulShutdown cascades depth-first through the precedent chain.
func (s *Sink) GracefulShutdown() {
	s.precedent.GracefulShutdown()
}
