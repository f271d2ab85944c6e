// Package atomspace provides the hypergraph data model — Atoms (Nodes and
// Links), content-addressed Handles, Properties, Assignments and
// QueryAnswers — shared by every reasoning agent in das-servicebus.
package atomspace

import (
	"encoding/binary"
	"fmt"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// HandleSize is the fixed width of a content-addressed handle, expressed
// as hex characters (spec.md §6: "32-byte hex strings").
const HandleSize = 32

// Handle is a deterministic, content-derived identifier for an Atom. Two
// atoms with identical type+contents always hash to the same Handle.
type Handle string

// String returns the handle's hex representation.
func (h Handle) String() string { return string(h) }

// IsZero reports whether h is the empty handle.
func (h Handle) IsZero() bool { return h == "" }

// Atom is the common interface implemented by Node and Link.
type Atom interface {
	// Handle returns the atom's content-addressed identifier.
	Handle() Handle
	// Type returns the atom's type name.
	Type() string
	// IsLink reports whether this atom is a Link (as opposed to a Node).
	IsLink() bool
}

// Node is a leaf atom: a type and a name.
type Node struct {
	AtomType string
	Name     string
}

// NewNode builds a Node; its handle is computed on each Handle() call.
func NewNode(atomType, name string) *Node {
	return &Node{AtomType: atomType, Name: name}
}

// Handle implements Atom.
func (n *Node) Handle() Handle { return hashNode(n.AtomType, n.Name) }

// Type implements Atom.
func (n *Node) Type() string { return n.AtomType }

// IsLink implements Atom.
func (n *Node) IsLink() bool { return false }

func (n *Node) String() string { return fmt.Sprintf("%s(%q)", n.AtomType, n.Name) }

// Link is a composite atom: a type and an ordered list of target handles.
// Links may carry a Toplevel flag and a Properties bag.
type Link struct {
	AtomType  string
	Targets   []Handle
	Toplevel  bool
	Props     *Properties
}

// NewLink builds a Link; Handle() computes its handle from type+targets. The
// Properties bag, if any, is attached but does not participate in the
// handle digest — two links with the same type/targets but different
// metadata are the same atom, per spec.md §3 ("handle derived from type +
// contents").
func NewLink(atomType string, targets []Handle, toplevel bool) *Link {
	return &Link{AtomType: atomType, Targets: append([]Handle(nil), targets...), Toplevel: toplevel}
}

// Handle implements Atom.
func (l *Link) Handle() Handle { return hashLink(l.AtomType, l.Targets) }

// Type implements Atom.
func (l *Link) Type() string { return l.AtomType }

// IsLink implements Atom.
func (l *Link) IsLink() bool { return true }

// WithProperties attaches a Properties bag and returns the link for
// chaining.
func (l *Link) WithProperties(p *Properties) *Link {
	l.Props = p
	return l
}

func (l *Link) String() string {
	parts := make([]string, len(l.Targets))
	for i, t := range l.Targets {
		parts[i] = string(t)
	}
	return fmt.Sprintf("%s(%s)", l.AtomType, strings.Join(parts, " "))
}

// hashNode and hashLink implement the content-addressed digest: xxhash64
// over a canonical byte encoding of type+contents, rendered as a
// HandleSize-character hex string (left-zero-padded/truncated to stay a
// fixed width regardless of input length, matching spec.md's "fixed-width
// hash derived from type + contents").
func hashNode(atomType, name string) Handle {
	d := xxhash.New()
	writeTagged(d, "node", atomType, name)
	return digestToHandle(d.Sum64())
}

func hashLink(atomType string, targets []Handle) Handle {
	d := xxhash.New()
	_, _ = d.Write([]byte("link\x00"))
	_, _ = d.Write([]byte(atomType))
	_, _ = d.Write([]byte{0})
	for _, t := range targets {
		_, _ = d.Write([]byte(t))
		_, _ = d.Write([]byte{0})
	}
	return digestToHandle(d.Sum64())
}

func writeTagged(d *xxhash.Digest, kind, atomType, name string) {
	_, _ = d.Write([]byte(kind))
	_, _ = d.Write([]byte{0})
	_, _ = d.Write([]byte(atomType))
	_, _ = d.Write([]byte{0})
	_, _ = d.Write([]byte(name))
}

func digestToHandle(sum uint64) Handle {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], sum)
	hex := fmt.Sprintf("%x", buf)
	// Stretch the 16 hex chars of a 64-bit digest out to the spec's
	// 32-char handle width with a second xxhash pass over the first hex;
	// this keeps handles stable across processes while matching the
	// width the wire grammar expects.
	var buf2 [8]byte
	binary.BigEndian.PutUint64(buf2[:], xxhash.Sum64String(hex))
	return Handle(hex + fmt.Sprintf("%x", buf2))
}

// SortHandles returns a new, ascending-sorted copy of handles. Used only
// for stable stringification (spec.md §3: Properties total order), never
// for semantic comparisons.
func SortHandles(handles []Handle) []Handle {
	out := append([]Handle(nil), handles...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
