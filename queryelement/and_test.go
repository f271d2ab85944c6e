package queryelement

import (
	"context"
	"testing"
	"time"

	"github.com/singnet/das-servicebus/atomspace"
)

func answerWith(handle atomspace.Handle, vars map[string]atomspace.Handle) *atomspace.QueryAnswer {
	a := atomspace.NewAssignment()
	for k, v := range vars {
		a.Assign(k, v)
	}
	return atomspace.NewQueryAnswer([]atomspace.Handle{handle}, a)
}

// stubSource is a package-internal Element double that pushes a fixed
// set of answers then finishes, used to test Operators in isolation.
type stubSource struct {
	id        string
	answers   []*atomspace.QueryAnswer
	consumers []*Queue
}

func (s *stubSource) ID() string         { return s.id }
func (s *stubSource) Subscribe(q *Queue) { s.consumers = append(s.consumers, q) }
func (s *stubSource) GracefulShutdown()  {}
func (s *stubSource) SetupBuffers(ctx context.Context) {
	for _, a := range s.answers {
		for _, c := range s.consumers {
			c.Push(ctx, a.Clone())
		}
	}
	for _, c := range s.consumers {
		c.MarkFinished()
	}
}

func TestAndEmitsMergeCompatiblePairs(t *testing.T) {
	left := &stubSource{id: "left", answers: []*atomspace.QueryAnswer{
		answerWith("h1", map[string]atomspace.Handle{"$x": "a"}),
	}}
	right := &stubSource{id: "right", answers: []*atomspace.QueryAnswer{
		answerWith("h2", map[string]atomspace.Handle{"$x": "a"}),
		answerWith("h3", map[string]atomspace.Handle{"$x": "b"}),
	}}

	and, err := NewAnd("and1", []Element{left, right}, 10)
	if err != nil {
		t.Fatalf("NewAnd: %v", err)
	}
	sink := NewSink(context.Background(), "sink1", and)

	deadline := time.Now().Add(time.Second)
	for !sink.Finished() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	var got []*atomspace.QueryAnswer
	for {
		a, ok := sink.Pop()
		if !ok {
			break
		}
		got = append(got, a)
	}
	if len(got) != 1 {
		t.Fatalf("expected exactly 1 merged answer, got %d", len(got))
	}
}

func TestNewAndRejectsBadArity(t *testing.T) {
	if _, err := NewAnd("and1", []Element{&stubSource{id: "a"}}, 10); err == nil {
		t.Fatal("expected error for arity 1")
	}
	clauses := make([]Element, MaxFanIn+1)
	for i := range clauses {
		clauses[i] = &stubSource{id: "x"}
	}
	if _, err := NewAnd("and1", clauses, 10); err == nil {
		t.Fatal("expected error for arity above MaxFanIn")
	}
}
