package atomspace

import (
	"sort"

	"github.com/cespare/xxhash/v2"
)

// Assignment maps variable names to atom handles. Equality and hashing
// are defined over the full multiset of (name, handle) pairs, independent
// of insertion order (spec.md §3).
type Assignment struct {
	bindings map[string]Handle
	hash     uint64
	hashSet  bool
}

// NewAssignment builds an empty Assignment.
func NewAssignment() *Assignment {
	return &Assignment{bindings: make(map[string]Handle)}
}

// Clone returns a shallow, independent copy — used when an Assignment is
// passed by move along the dataflow but a caller still holds a reference
// to the original (e.g. Or's per-input cache), mirroring
// QueryAnswer's "shallow clone of Assignment" fan-out contract.
func (a *Assignment) Clone() *Assignment {
	c := &Assignment{bindings: make(map[string]Handle, len(a.bindings)), hash: a.hash, hashSet: a.hashSet}
	for k, v := range a.bindings {
		c.bindings[k] = v
	}
	return c
}

// Assign binds a variable to a handle, invalidating the memoized hash. A
// conflicting re-assignment to a different handle is a programmer error
// at the call site (Merge is the safe, conflict-checked path).
func (a *Assignment) Assign(variable string, handle Handle) {
	a.bindings[variable] = handle
	a.hashSet = false
}

// Get returns the handle bound to variable, if any.
func (a *Assignment) Get(variable string) (Handle, bool) {
	h, ok := a.bindings[variable]
	return h, ok
}

// Len returns the number of bindings.
func (a *Assignment) Len() int { return len(a.bindings) }

// Variables returns the sorted list of bound variable names.
func (a *Assignment) Variables() []string {
	vars := make([]string, 0, len(a.bindings))
	for v := range a.bindings {
		vars = append(vars, v)
	}
	sort.Strings(vars)
	return vars
}

// Equal reports whether two Assignments bind exactly the same set of
// (name, handle) pairs, independent of order (spec.md invariant for
// UniqueAssignmentFilter dedup).
func (a *Assignment) Equal(other *Assignment) bool {
	if a == other {
		return true
	}
	if other == nil || len(a.bindings) != len(other.bindings) {
		return false
	}
	for k, v := range a.bindings {
		if ov, ok := other.bindings[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

// Hash returns an order-independent digest of the binding multiset,
// memoized after first computation so repeated dedup lookups are O(1)
// amortised (spec.md §3: "Carries a hash cache").
func (a *Assignment) Hash() uint64 {
	if a.hashSet {
		return a.hash
	}
	// XOR-fold per-pair hashes so the total is independent of iteration
	// order; each pair is hashed with both fields to avoid "name"+"handle"
	// swap collisions.
	var total uint64
	for k, v := range a.bindings {
		d := xxhash.New()
		_, _ = d.Write([]byte(k))
		_, _ = d.Write([]byte{0})
		_, _ = d.Write([]byte(v))
		total ^= d.Sum64()
	}
	a.hash = total
	a.hashSet = true
	return total
}

// Merge attempts to combine a and other into a new Assignment. It fails
// (ok=false) if any variable is bound to conflicting handles in the two
// inputs — the consistency check And<N> relies on (spec.md §4.9).
func Merge(a, other *Assignment) (*Assignment, bool) {
	out := a.Clone()
	for k, v := range other.bindings {
		if existing, ok := out.bindings[k]; ok && existing != v {
			return nil, false
		}
		out.bindings[k] = v
	}
	out.hashSet = false
	return out, true
}
