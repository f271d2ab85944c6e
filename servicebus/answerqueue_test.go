package servicebus

import (
	"testing"
	"time"

	"github.com/singnet/das-servicebus/atomspace"
)

func answer(h atomspace.Handle) *atomspace.QueryAnswer {
	return atomspace.NewQueryAnswer([]atomspace.Handle{h}, atomspace.NewAssignment())
}

func TestAnswerQueuePushPop(t *testing.T) {
	q := NewAnswerQueue(0)
	q.Push(answer("h1"))
	a, finished, ok := q.Pop()
	if !ok || finished {
		t.Fatalf("expected an item, got finished=%v ok=%v", finished, ok)
	}
	if a.Handles[0] != "h1" {
		t.Fatalf("unexpected handle %v", a.Handles)
	}
}

func TestAnswerQueueFinishedAfterDrain(t *testing.T) {
	q := NewAnswerQueue(0)
	q.Push(answer("h1"))
	q.MarkFinished()

	if _, finished, ok := q.Pop(); finished || !ok {
		t.Fatalf("queue should still yield its buffered item before reporting finished")
	}
	if _, finished, ok := q.Pop(); !finished || ok {
		t.Fatalf("drained + finished queue must report finished with no item")
	}
}

func TestAnswerQueueAbortDiscardsBuffer(t *testing.T) {
	q := NewAnswerQueue(0)
	q.Push(answer("h1"))
	q.Abort()

	if _, finished, ok := q.Pop(); !finished || ok {
		t.Fatalf("aborted queue must discard buffered items immediately")
	}
	if !q.IsAborted() {
		t.Fatalf("expected IsAborted")
	}
}

func TestAnswerQueueCapacityBlocksProducer(t *testing.T) {
	q := NewAnswerQueue(1)
	q.Push(answer("h1"))

	done := make(chan struct{})
	go func() {
		q.Push(answer("h2"))
		close(done)
	}()

	select {
	case <-done:
		t.Fatalf("Push should have blocked at capacity")
	case <-time.After(20 * time.Millisecond):
	}

	if _, _, ok := q.Pop(); !ok {
		t.Fatalf("expected to pop the first item")
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Push should have unblocked once capacity freed up")
	}
}
