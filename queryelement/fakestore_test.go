package queryelement

import (
	"context"

	"github.com/singnet/das-servicebus/atomspace"
)

// fakeStore is a minimal in-memory atomspace.Store double: enough to
// exercise LinkTemplate matching without a real backend.
type fakeStore struct {
	links map[atomspace.Handle]*atomspace.Link
}

func newFakeStore() *fakeStore {
	return &fakeStore{links: make(map[atomspace.Handle]*atomspace.Link)}
}

func (s *fakeStore) addLink(atomType string, targets []atomspace.Handle) atomspace.Handle {
	l := atomspace.NewLink(atomType, targets, true)
	s.links[l.Handle()] = l
	return l.Handle()
}

func (s *fakeStore) GetAtom(ctx context.Context, handle atomspace.Handle) (atomspace.Atom, bool, error) {
	l, ok := s.links[handle]
	return l, ok, nil
}

func (s *fakeStore) GetAtomDocument(ctx context.Context, handle atomspace.Handle) (atomspace.Document, bool, error) {
	return nil, false, nil
}

func (s *fakeStore) LinkExists(ctx context.Context, handle atomspace.Handle) (bool, error) {
	_, ok := s.links[handle]
	return ok, nil
}

func (s *fakeStore) NodeExists(ctx context.Context, handle atomspace.Handle) (bool, error) {
	return false, nil
}

func (s *fakeStore) AddNode(ctx context.Context, node *atomspace.Node) (atomspace.Handle, error) {
	return node.Handle(), nil
}

func (s *fakeStore) AddLink(ctx context.Context, link *atomspace.Link) (atomspace.Handle, error) {
	s.links[link.Handle()] = link
	return link.Handle(), nil
}

func (s *fakeStore) AddAtoms(ctx context.Context, atoms []atomspace.Atom, toplevelFlag, reindexFlag bool) error {
	return nil
}

func (s *fakeStore) DeleteLink(ctx context.Context, handle atomspace.Handle, cascadeFlag bool) error {
	delete(s.links, handle)
	return nil
}

func (s *fakeStore) DeleteNode(ctx context.Context, handle atomspace.Handle, cascadeFlag bool) error {
	return nil
}

// QueryForPattern returns every link matching schema's type and arity,
// treating schema targets equal to WildcardHandle as unconstrained.
func (s *fakeStore) QueryForPattern(ctx context.Context, schema *atomspace.Link) ([]atomspace.Handle, error) {
	var out []atomspace.Handle
	for h, l := range s.links {
		if l.AtomType != schema.AtomType || len(l.Targets) != len(schema.Targets) {
			continue
		}
		match := true
		for i, want := range schema.Targets {
			if want != WildcardHandle && want != l.Targets[i] {
				match = false
				break
			}
		}
		if match {
			out = append(out, h)
		}
	}
	return out, nil
}

func (s *fakeStore) QueryForTargets(ctx context.Context, handle atomspace.Handle) ([]atomspace.Handle, error) {
	l, ok := s.links[handle]
	if !ok {
		return nil, nil
	}
	return l.Targets, nil
}

func (s *fakeStore) AddPatternIndexSchema(ctx context.Context, tokens []string, entries []string) error {
	return nil
}
