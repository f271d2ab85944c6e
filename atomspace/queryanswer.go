package atomspace

// QueryAnswer is one match produced by the query element graph: the
// ordered handles bound by the match, the Assignment that produced them,
// a strength in [0, 1], and optional per-handle rendered text (spec.md
// §3). QueryAnswer passes by move through Operators; each Operator may
// mutate Strength.
type QueryAnswer struct {
	Handles     []Handle
	Assignment  *Assignment
	Strength    float64
	Rendered    map[Handle]string
	// Importance is the per-candidate ranking value Or<N> selects on
	// (spec.md §4.9); distinct from Strength, which is the caller-facing
	// fitness value.
	Importance float64
}

// NewQueryAnswer builds a QueryAnswer with the given handles and
// assignment; Strength defaults to 1.0 (a fully-confident match) per the
// original's un-weighted default.
func NewQueryAnswer(handles []Handle, assignment *Assignment) *QueryAnswer {
	return &QueryAnswer{
		Handles:    append([]Handle(nil), handles...),
		Assignment: assignment,
		Strength:   1.0,
		Importance: 0,
	}
}

// Clone returns an independent copy suitable for fan-out to multiple
// downstream subscribers: a shallow clone of Assignment plus a fresh
// handle slice, per spec.md §4.9 ("a cheap clone of the QueryAnswer
// including a shallow clone of Assignment").
func (qa *QueryAnswer) Clone() *QueryAnswer {
	clone := &QueryAnswer{
		Handles:    append([]Handle(nil), qa.Handles...),
		Assignment: qa.Assignment.Clone(),
		Strength:   qa.Strength,
		Importance: qa.Importance,
	}
	if qa.Rendered != nil {
		clone.Rendered = make(map[Handle]string, len(qa.Rendered))
		for k, v := range qa.Rendered {
			clone.Rendered[k] = v
		}
	}
	return clone
}

// Merge2 joins two QueryAnswers under assignment-consistency, combining
// their handle lists and taking the product of strengths. Returns
// ok=false if the underlying assignments conflict (spec.md §4.9 And<N>).
func Merge2(a, b *QueryAnswer) (*QueryAnswer, bool) {
	merged, ok := Merge(a.Assignment, b.Assignment)
	if !ok {
		return nil, false
	}
	handles := make([]Handle, 0, len(a.Handles)+len(b.Handles))
	handles = append(handles, a.Handles...)
	handles = append(handles, b.Handles...)
	return &QueryAnswer{
		Handles:    handles,
		Assignment: merged,
		Strength:   a.Strength * b.Strength,
		Importance: a.Importance,
	}, true
}
