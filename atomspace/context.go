package atomspace

import "fmt"

// ContextCacheFilePrefix is the filename prefix for the deterministic
// per-context cache file (spec.md §6 "Persisted state").
const ContextCacheFilePrefix = "_CONTEXT_CACHE_"

// Context is a named scope under which attention/importance values are
// tracked and queries are evaluated, grounded on
// original_source/src/atom_space/Context.{h,cc}.
type Context struct {
	Name string
	Key  string

	// ToStimulate accumulates the joint set of handles to stimulate in
	// the AttentionBroker on completion of a context-bound query.
	ToStimulate map[Handle]uint

	// DeterminerGroups holds the per-group handle lists written to the
	// cache file; each group's size and members are serialized verbatim.
	DeterminerGroups [][]Handle
}

// NewContext builds a Context bound to a single atom key (the simple
// constructor form of the original).
func NewContext(name string, key Handle) *Context {
	return &Context{Name: name, Key: string(key), ToStimulate: make(map[Handle]uint)}
}

// CacheFileName returns the deterministic cache filename for this
// context's key.
func (c *Context) CacheFileName() string {
	return fmt.Sprintf("%s%s.txt", ContextCacheFilePrefix, c.Key)
}

// AddStimulus increments the stimulus count for handle, used to
// accumulate a joint set across many QueryAnswers before a single
// end-of-query Stimulate call (spec.md §4.10).
func (c *Context) AddStimulus(handle Handle) {
	c.ToStimulate[handle]++
}

// AddDeterminerGroup records one determiner group (a set of handles that
// should be correlated together by the attention broker).
func (c *Context) AddDeterminerGroup(handles []Handle) {
	c.DeterminerGroups = append(c.DeterminerGroups, append([]Handle(nil), handles...))
}
