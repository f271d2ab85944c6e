// Package buntstore is a reference AtomStore implementation (spec.md
// §6) backed by an embedded ordered key/value store. The core
// specification treats AtomStore as an external collaborator whose
// storage format is explicitly out of scope (spec.md §1), but the
// commands/* processors and queryelement terminals need a concrete
// Store to run their tests against, so this package fills that role
// the way the retrieval pack's aistore examples fill theirs: an
// embedded KV (buntdb) with a secondary index for the one access
// pattern the core actually drives — looking up links by type.
package buntstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/tidwall/buntdb"

	"github.com/singnet/das-servicebus/atomspace"
)

const linkTypeIndex = "link_type"

// record is the on-disk JSON shape of one atom, covering both Node and
// Link variants (spec.md §3 "Atom ... Two concrete variants").
type record struct {
	Kind     string              `json:"kind"` // "node" or "link"
	AtomType string              `json:"atom_type"`
	Name     string              `json:"name,omitempty"`
	Targets  []atomspace.Handle  `json:"targets,omitempty"`
	Toplevel bool                `json:"toplevel,omitempty"`
	Props    map[string]propJSON `json:"props,omitempty"`
}

type propJSON struct {
	Kind    atomspace.ValueKind `json:"kind"`
	Text    string              `json:"text,omitempty"`
	Integer int64               `json:"integer,omitempty"`
	Real    float64             `json:"real,omitempty"`
	Boolean bool                `json:"boolean,omitempty"`
}

// Store is a buntdb-backed atomspace.Store. Safe for concurrent use —
// buntdb serialises all writes through its own internal lock and
// mu guards the pattern-index-schema registry, which buntdb has no
// native concept of.
type Store struct {
	db *buntdb.DB

	mu       sync.Mutex
	indexed  map[string][]string // token-stream pattern key -> entries, for introspection only
}

// Open creates or reopens a Store at path. Pass ":memory:" for a
// process-local store that never touches disk, matching buntdb's own
// convention.
func Open(path string) (*Store, error) {
	db, err := buntdb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("buntstore: open %s: %w", path, err)
	}
	if err := db.CreateIndex(linkTypeIndex, "atom:*", buntdb.IndexJSON("atom_type")); err != nil && err != buntdb.ErrIndexExists {
		_ = db.Close()
		return nil, fmt.Errorf("buntstore: create index: %w", err)
	}
	return &Store{db: db, indexed: make(map[string][]string)}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func atomKey(h atomspace.Handle) string { return "atom:" + string(h) }

func toRecord(a atomspace.Atom) record {
	switch v := a.(type) {
	case *atomspace.Node:
		return record{Kind: "node", AtomType: v.AtomType, Name: v.Name}
	case *atomspace.Link:
		r := record{Kind: "link", AtomType: v.AtomType, Targets: v.Targets, Toplevel: v.Toplevel}
		if v.Props != nil {
			r.Props = make(map[string]propJSON, v.Props.Len())
			for _, k := range v.Props.Keys() {
				pv, _ := v.Props.Get(k)
				r.Props[k] = propJSON{Kind: pv.Kind, Text: pv.Text, Integer: pv.Integer, Real: pv.Real, Boolean: pv.Boolean}
			}
		}
		return r
	default:
		return record{}
	}
}

func (r record) toAtom() atomspace.Atom {
	if r.Kind == "node" {
		return atomspace.NewNode(r.AtomType, r.Name)
	}
	link := atomspace.NewLink(r.AtomType, r.Targets, r.Toplevel)
	if len(r.Props) > 0 {
		props := atomspace.NewProperties()
		for k, pv := range r.Props {
			props.Set(k, atomspace.PropertyValue{Kind: pv.Kind, Text: pv.Text, Integer: pv.Integer, Real: pv.Real, Boolean: pv.Boolean})
		}
		link.WithProperties(props)
	}
	return link
}

func (s *Store) putAtom(a atomspace.Atom) (atomspace.Handle, error) {
	h := a.Handle()
	r := toRecord(a)
	data, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("buntstore: marshal atom: %w", err)
	}
	err = s.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(atomKey(h), string(data), nil)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("buntstore: write atom: %w", err)
	}
	return h, nil
}

func (s *Store) getRecord(handle atomspace.Handle) (record, bool, error) {
	var raw string
	err := s.db.View(func(tx *buntdb.Tx) error {
		v, err := tx.Get(atomKey(handle))
		if err != nil {
			return err
		}
		raw = v
		return nil
	})
	if err == buntdb.ErrNotFound {
		return record{}, false, nil
	}
	if err != nil {
		return record{}, false, fmt.Errorf("buntstore: read atom: %w", err)
	}
	var r record
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return record{}, false, fmt.Errorf("buntstore: unmarshal atom: %w", err)
	}
	return r, true, nil
}

func (s *Store) GetAtom(ctx context.Context, handle atomspace.Handle) (atomspace.Atom, bool, error) {
	r, ok, err := s.getRecord(handle)
	if err != nil || !ok {
		return nil, ok, err
	}
	return r.toAtom(), true, nil
}

// docView is the Document collaborator over a decoded record, exposing
// the fields QueryAnswer rendering and AtomDB clients read (spec.md §6
// "a Document is a key-indexed view ... strings or indexed string
// arrays").
type docView struct{ r record }

func (d docView) GetString(key string) (string, bool) {
	switch key {
	case "atom_type":
		return d.r.AtomType, true
	case "name":
		return d.r.Name, d.r.Kind == "node"
	case "kind":
		return d.r.Kind, true
	default:
		if pv, ok := d.r.Props[key]; ok {
			v := atomspace.PropertyValue{Kind: pv.Kind, Text: pv.Text, Integer: pv.Integer, Real: pv.Real, Boolean: pv.Boolean}
			if v.Kind == atomspace.KindText {
				return v.Text, true
			}
			return v.String(), true
		}
		return "", false
	}
}

func (d docView) GetStringList(key string) ([]string, bool) {
	if key != "targets" || d.r.Kind != "link" {
		return nil, false
	}
	out := make([]string, len(d.r.Targets))
	for i, t := range d.r.Targets {
		out[i] = string(t)
	}
	return out, true
}

func (s *Store) GetAtomDocument(ctx context.Context, handle atomspace.Handle) (atomspace.Document, bool, error) {
	r, ok, err := s.getRecord(handle)
	if err != nil || !ok {
		return nil, ok, err
	}
	return docView{r: r}, true, nil
}

func (s *Store) LinkExists(ctx context.Context, handle atomspace.Handle) (bool, error) {
	r, ok, err := s.getRecord(handle)
	return ok && r.Kind == "link", err
}

func (s *Store) NodeExists(ctx context.Context, handle atomspace.Handle) (bool, error) {
	r, ok, err := s.getRecord(handle)
	return ok && r.Kind == "node", err
}

func (s *Store) AddNode(ctx context.Context, node *atomspace.Node) (atomspace.Handle, error) {
	return s.putAtom(node)
}

func (s *Store) AddLink(ctx context.Context, link *atomspace.Link) (atomspace.Handle, error) {
	return s.putAtom(link)
}

func (s *Store) AddAtoms(ctx context.Context, atoms []atomspace.Atom, toplevelFlag, reindexFlag bool) error {
	for _, a := range atoms {
		if link, ok := a.(*atomspace.Link); ok && toplevelFlag {
			link.Toplevel = true
		}
		if _, err := s.putAtom(a); err != nil {
			return err
		}
	}
	if reindexFlag {
		return s.db.ReIndex(linkTypeIndex)
	}
	return nil
}

func (s *Store) DeleteLink(ctx context.Context, handle atomspace.Handle, cascadeFlag bool) error {
	return s.delete(ctx, handle, "link", cascadeFlag)
}

func (s *Store) DeleteNode(ctx context.Context, handle atomspace.Handle, cascadeFlag bool) error {
	return s.delete(ctx, handle, "node", cascadeFlag)
}

func (s *Store) delete(ctx context.Context, handle atomspace.Handle, wantKind string, cascadeFlag bool) error {
	r, ok, err := s.getRecord(handle)
	if err != nil {
		return err
	}
	if !ok || r.Kind != wantKind {
		return fmt.Errorf("buntstore: no %s %s", wantKind, handle)
	}
	if cascadeFlag && wantKind == "node" {
		dependents, err := s.linksReferencing(handle)
		if err != nil {
			return err
		}
		for _, dh := range dependents {
			if err := s.delete(ctx, dh, "link", true); err != nil {
				return err
			}
		}
	}
	return s.db.Update(func(tx *buntdb.Tx) error {
		_, err := tx.Delete(atomKey(handle))
		return err
	})
}

func (s *Store) linksReferencing(target atomspace.Handle) ([]atomspace.Handle, error) {
	var out []atomspace.Handle
	err := s.db.View(func(tx *buntdb.Tx) error {
		return tx.Ascend(linkTypeIndex, func(key, value string) bool {
			var r record
			if json.Unmarshal([]byte(value), &r) == nil {
				for _, t := range r.Targets {
					if t == target {
						out = append(out, atomspace.Handle(strings.TrimPrefix(key, "atom:")))
						break
					}
				}
			}
			return true
		})
	})
	return out, err
}

// QueryForPattern returns every link handle matching schema: same
// type, same arity, and every non-wildcard target position matching
// exactly (spec.md §6 "a link schema whose targets may be wildcards").
func (s *Store) QueryForPattern(ctx context.Context, schema *atomspace.Link) ([]atomspace.Handle, error) {
	var out []atomspace.Handle
	err := s.db.View(func(tx *buntdb.Tx) error {
		return tx.AscendEqual(linkTypeIndex, fmt.Sprintf(`{"atom_type":%q}`, schema.AtomType), func(key, value string) bool {
			var r record
			if json.Unmarshal([]byte(value), &r) != nil || r.Kind != "link" || r.AtomType != schema.AtomType {
				return true
			}
			if len(r.Targets) != len(schema.Targets) {
				return true
			}
			for i, want := range schema.Targets {
				if want == "*" {
					continue
				}
				if r.Targets[i] != want {
					return true
				}
			}
			out = append(out, atomspace.Handle(strings.TrimPrefix(key, "atom:")))
			return true
		})
	})
	return out, err
}

func (s *Store) QueryForTargets(ctx context.Context, handle atomspace.Handle) ([]atomspace.Handle, error) {
	r, ok, err := s.getRecord(handle)
	if err != nil {
		return nil, err
	}
	if !ok || r.Kind != "link" {
		return nil, fmt.Errorf("buntstore: no link %s", handle)
	}
	return r.Targets, nil
}

// AddPatternIndexSchema records a precomputed pattern index for a
// token-stream query (spec.md §6); buntdb's single link_type index
// already covers the one access pattern the core drives, so this is
// bookkeeping for introspection rather than a distinct physical index.
func (s *Store) AddPatternIndexSchema(ctx context.Context, tokens []string, entries []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.indexed[strings.Join(tokens, " ")] = entries
	return nil
}
