package servicebus

import (
	"sync"

	"github.com/singnet/das-servicebus/atomspace"
)

// AnswerQueue is a bounded FIFO of query answers with a sticky "finished"
// flag, used by query proxies to buffer answers flowing from a remote
// peer towards the local caller (spec.md §4.3 "Bounded Answer Queue"),
// grounded on original_source/src/query_engine/query_element/OutputBuffers.h.
// Unlike a plain channel, the finished flag must be observable even after
// every buffered item has been drained, so a channel close is not enough:
// callers need to distinguish "empty but more is coming" from "empty and
// done".
type AnswerQueue struct {
	mu       sync.Mutex
	cond     *sync.Cond
	items    []*atomspace.QueryAnswer
	capacity int
	finished bool
	aborted  bool
}

// NewAnswerQueue creates a queue that blocks producers once it holds
// capacity items. capacity <= 0 means unbounded.
func NewAnswerQueue(capacity int) *AnswerQueue {
	q := &AnswerQueue{capacity: capacity}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push appends an answer, blocking while the queue is at capacity. Push
// is a no-op once the queue has been marked finished or aborted.
func (q *AnswerQueue) Push(a *atomspace.QueryAnswer) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.capacity > 0 && len(q.items) >= q.capacity && !q.finished && !q.aborted {
		q.cond.Wait()
	}
	if q.finished || q.aborted {
		return
	}
	q.items = append(q.items, a)
	q.cond.Broadcast()
}

// Pop removes and returns the oldest answer. ok is false when the queue
// is empty; ok=false together with a nil answer and finished=true tells
// the caller no further answers will ever arrive.
func (q *AnswerQueue) Pop() (a *atomspace.QueryAnswer, finished bool, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil, q.finished || q.aborted, false
	}
	a, q.items = q.items[0], q.items[1:]
	q.cond.Broadcast()
	return a, false, true
}

// MarkFinished marks the queue finished: no more items will be pushed,
// and once drained, Pop reports finished=true. Idempotent.
func (q *AnswerQueue) MarkFinished() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.finished = true
	q.cond.Broadcast()
}

// Abort marks the queue aborted, discarding any buffered answers
// immediately (spec.md §4.1 invariant: an aborted proxy's queue must not
// continue to yield stale answers).
func (q *AnswerQueue) Abort() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.aborted = true
	q.items = nil
	q.cond.Broadcast()
}

// IsFinished reports whether the queue has been marked finished or
// aborted, regardless of whether it has been fully drained.
func (q *AnswerQueue) IsFinished() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.finished || q.aborted
}

// IsAborted reports whether Abort was called.
func (q *AnswerQueue) IsAborted() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.aborted
}

// Len returns the number of buffered-but-undelivered answers.
func (q *AnswerQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
