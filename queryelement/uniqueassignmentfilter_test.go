package queryelement

import (
	"context"
	"testing"
	"time"

	"github.com/singnet/das-servicebus/atomspace"
)

func TestUniqueAssignmentFilterDropsDuplicates(t *testing.T) {
	dup := answerWith("h1", map[string]atomspace.Handle{"$x": "a"})
	source := &stubSource{id: "src", answers: []*atomspace.QueryAnswer{
		dup.Clone(),
		dup.Clone(),
		answerWith("h2", map[string]atomspace.Handle{"$x": "b"}),
	}}

	filter := NewUniqueAssignmentFilter("f1", source, 10)
	sink := NewSink(context.Background(), "sink1", filter)

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
	if len(got) != 2 {
		t.Fatalf("expected 2 unique answers, got %d", len(got))
	}
}
