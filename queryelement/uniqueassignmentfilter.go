package queryelement

import (
	"context"

	"github.com/singnet/das-servicebus/atomspace"
	"github.com/singnet/das-servicebus/servicebus"
)

// UniqueAssignmentFilter keeps a hash set of seen Assignments and drops
// duplicates, emitting surviving answers in arrival order (spec.md
// §4.9 "UniqueAssignmentFilter<1>"), grounded on
// original_source/src/query_engine/query_element/UniqueAssignmentFilter.{h,cc}.
// Wraps any single-precedent Operator when the query's
// unique_assignment_flag is set (spec.md §4.9 "Build phase": "If the
// query's unique_assignment_flag is set, wrap the Operator in a
// UniqueAssignmentFilter").
type UniqueAssignmentFilter struct {
	*operatorBase

	seen map[uint64][]*atomspace.Assignment
}

// NewUniqueAssignmentFilter wraps precedent.
func NewUniqueAssignmentFilter(id string, precedent Element, inputCapacity int) *UniqueAssignmentFilter {
	return &UniqueAssignmentFilter{
		operatorBase: newOperatorBase(id, []Element{precedent}, inputCapacity),
		seen:         make(map[uint64][]*atomspace.Assignment),
	}
}

func (f *UniqueAssignmentFilter) SetupBuffers(ctx context.Context) {
	f.setupPrecedents(ctx)
	f.task = servicebus.NewStoppableTask(f.id)
	f.task.Attach(f.run)
}

func (f *UniqueAssignmentFilter) GracefulShutdown() { f.gracefulShutdown() }

func (f *UniqueAssignmentFilter) run(ctx context.Context) {
	in := f.inputs[0]
	for {
		if f.task.Stopped() {
			return
		}
		answer, ok := in.TryPop()
		if !ok {
			if in.IsEmpty() && in.IsFinished() {
				f.finishConsumers()
				return
			}
			idle(ctx)
			continue
		}
		if f.isNew(answer.Assignment) {
			f.emit(ctx, answer)
		}
	}
}

func (f *UniqueAssignmentFilter) isNew(a *atomspace.Assignment) bool {
	h := a.Hash()
	for _, seen := range f.seen[h] {
		if seen.Equal(a) {
			return false
		}
	}
	f.seen[h] = append(f.seen[h], a)
	return true
}
