package queryelement

import (
	"context"
	"testing"
	"time"

	"github.com/singnet/das-servicebus/atomspace"
)

func TestSinkPopsAnswersThenFinishes(t *testing.T) {
	source := &stubSource{id: "src", answers: []*atomspace.QueryAnswer{
		answerWith("h1", nil),
		answerWith("h2", nil),
	}}

	sink := NewSink(context.Background(), "sink1", source)

	deadline := time.Now().Add(time.Second)
	for !sink.Finished() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if !sink.Finished() {
		t.Fatal("sink never finished")
	}

	count := 0
	for {
		if _, ok := sink.Pop(); !ok {
			break
		}
		count++
	}
	if count != 2 {
		t.Fatalf("expected 2 answers, got %d", count)
	}
	if sink.QueryAnswerCount() != 2 {
		t.Fatalf("expected QueryAnswerCount 2, got %d", sink.QueryAnswerCount())
	}
}
