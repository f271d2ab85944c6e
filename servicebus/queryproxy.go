package servicebus

import (
	"context"
	"strconv"
	"sync"

	"github.com/singnet/das-servicebus/atomspace"
)

// BaseQueryProxy adds the streaming-answer protocol on top of BaseProxy
// (spec.md §4.6 variant 2): a Bounded Answer Queue on the caller side,
// an in-memory bundle on the processor side flushed at max_bundle_size
// or on explicit flush, and a sticky FINISHED terminal message.
type BaseQueryProxy struct {
	*BaseProxy

	Params *Parameters

	queue *AnswerQueue

	bmu         sync.Mutex
	bundle      []string
	answerCount uint64
}

// NewBaseQueryProxy wraps a BaseProxy with the query streaming machinery.
func NewBaseQueryProxy(base *BaseProxy, queueCapacity int) *BaseQueryProxy {
	return &BaseQueryProxy{
		BaseProxy: base,
		Params:    NewParameters(),
		queue:     NewAnswerQueue(queueCapacity),
	}
}

// Push serialises answer and appends it to the processor-side bundle;
// when the bundle reaches max_bundle_size it is flushed immediately
// (spec.md §4.6 "push(answer)").
func (q *BaseQueryProxy) Push(ctx context.Context, answer *atomspace.QueryAnswer) error {
	q.bmu.Lock()
	q.bundle = append(q.bundle, encodeAnswer(answer))
	full := len(q.bundle) >= q.Params.MaxBundleSize()
	q.bmu.Unlock()
	RecordAnswerPushed(q.Command())
	if full {
		return q.FlushBundle(ctx)
	}
	return nil
}

// FlushBundle sends the accumulated bundle as a single ANSWER_BUNDLE
// message, if non-empty (spec.md §4.6 "flush_bundle()").
func (q *BaseQueryProxy) FlushBundle(ctx context.Context) error {
	q.bmu.Lock()
	if len(q.bundle) == 0 {
		q.bmu.Unlock()
		return nil
	}
	batch := q.bundle
	q.bundle = nil
	q.bmu.Unlock()
	RecordBundleFlush(q.Command(), len(batch))
	return q.ToRemotePeer(ctx, ReservedAnswerBundle, batch)
}

// QueryProcessingFinished flushes any remaining bundle then sends the
// sticky FINISHED message (spec.md §4.6 "query_processing_finished()").
func (q *BaseQueryProxy) QueryProcessingFinished(ctx context.Context) error {
	if err := q.FlushBundle(ctx); err != nil {
		return err
	}
	return q.ToRemotePeer(ctx, ReservedFinished, nil)
}

// Pop returns the next answer without blocking. ok is false when the
// queue is empty; if the proxy is aborting, Pop always reports no
// answer, per spec.md §4.6 "pop(): returns None if aborting".
func (q *BaseQueryProxy) Pop() (answer *atomspace.QueryAnswer, ok bool) {
	if q.IsAborting() {
		return nil, false
	}
	a, _, ok := q.queue.Pop()
	if ok {
		RecordAnswerPopped(q.Command())
	}
	return a, ok
}

// AnswerCount returns the number of answers enqueued so far.
func (q *BaseQueryProxy) AnswerCount() uint64 {
	q.bmu.Lock()
	defer q.bmu.Unlock()
	return q.answerCount
}

// FromRemotePeer recognises ANSWER_BUNDLE and FINISHED on top of
// BaseProxy's ABORT/PEER_ERROR handling, then delegates.
func (q *BaseQueryProxy) FromRemotePeer(ctx context.Context, cmd string, args []string) (bool, error) {
	switch cmd {
	case ReservedAnswerBundle:
		if q.IsAborting() {
			return true, nil
		}
		for _, elem := range args {
			answer, err := decodeAnswer(elem)
			if err != nil {
				return true, err
			}
			q.queue.Push(answer)
			q.bmu.Lock()
			q.answerCount++
			q.bmu.Unlock()
		}
		return true, nil
	case ReservedFinished:
		q.BaseProxy.MarkFinished()
		q.queue.MarkFinished()
		return true, nil
	default:
		return q.BaseProxy.FromRemotePeer(ctx, cmd, args)
	}
}

// Abort marks the proxy aborting and discards any buffered answers, on
// top of the base notify-peer behaviour.
func (q *BaseQueryProxy) Abort() {
	q.BaseProxy.Abort()
	q.queue.Abort()
}

// Tokenize/Untokenize extend BaseProxy's with the shared query
// parameters (spec.md §4.6 variant 2 parameter bag).
func (q *BaseQueryProxy) Tokenize(out *[]string) {
	*out = append(*out,
		strconv.FormatBool(q.Params.Flag(ParamUniqueAssignmentFlag)),
		strconv.FormatBool(q.Params.Flag(ParamAttentionUpdateFlag)),
		strconv.Itoa(q.Params.MaxBundleSize()),
	)
	q.BaseProxy.Tokenize(out)
}

func (q *BaseQueryProxy) Untokenize(args *[]string) {
	a := *args
	if len(a) < 3 {
		return
	}
	q.Params.Set(ParamUniqueAssignmentFlag, a[0])
	q.Params.Set(ParamAttentionUpdateFlag, a[1])
	q.Params.Set(ParamMaxBundleSize, a[2])
	*args = a[3:]
	q.BaseProxy.Untokenize(args)
}
