package buntstore

import (
	"context"
	"testing"

	"github.com/singnet/das-servicebus/atomspace"
)

func open(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestAddAndGetNode(t *testing.T) {
	ctx := context.Background()
	s := open(t)

	n := atomspace.NewNode("Symbol", "human")
	h, err := s.AddNode(ctx, n)
	if err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	if h != n.Handle() {
		t.Fatalf("expected stored handle to equal content hash")
	}

	got, ok, err := s.GetAtom(ctx, h)
	if err != nil || !ok {
		t.Fatalf("GetAtom: ok=%v err=%v", ok, err)
	}
	if got.Type() != "Symbol" || got.IsLink() {
		t.Fatalf("unexpected atom %#v", got)
	}

	exists, err := s.NodeExists(ctx, h)
	if err != nil || !exists {
		t.Fatalf("NodeExists: %v %v", exists, err)
	}
}

func TestQueryForPatternMatchesWildcards(t *testing.T) {
	ctx := context.Background()
	s := open(t)

	human := atomspace.NewNode("Symbol", "human")
	similarity := atomspace.NewNode("Symbol", "Similarity")
	if _, err := s.AddNode(ctx, human); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddNode(ctx, similarity); err != nil {
		t.Fatal(err)
	}

	for _, other := range []string{"snake", "plant", "mammal"} {
		o := atomspace.NewNode("Symbol", other)
		if _, err := s.AddNode(ctx, o); err != nil {
			t.Fatal(err)
		}
		l := atomspace.NewLink("Expression", []atomspace.Handle{similarity.Handle(), human.Handle(), o.Handle()}, true)
		if _, err := s.AddLink(ctx, l); err != nil {
			t.Fatal(err)
		}
	}
	// An unrelated link of a different type must never match.
	unrelated := atomspace.NewLink("Inheritance", []atomspace.Handle{human.Handle(), similarity.Handle()}, true)
	if _, err := s.AddLink(ctx, unrelated); err != nil {
		t.Fatal(err)
	}

	schema := atomspace.NewLink("Expression", []atomspace.Handle{similarity.Handle(), human.Handle(), "*"}, true)
	matches, err := s.QueryForPattern(ctx, schema)
	if err != nil {
		t.Fatalf("QueryForPattern: %v", err)
	}
	if len(matches) != 3 {
		t.Fatalf("expected 3 matches, got %d", len(matches))
	}
}

func TestDeleteNodeCascade(t *testing.T) {
	ctx := context.Background()
	s := open(t)

	a := atomspace.NewNode("Symbol", "a")
	b := atomspace.NewNode("Symbol", "b")
	s.AddNode(ctx, a)
	s.AddNode(ctx, b)
	l := atomspace.NewLink("Expression", []atomspace.Handle{a.Handle(), b.Handle()}, true)
	lh, _ := s.AddLink(ctx, l)

	if err := s.DeleteNode(ctx, a.Handle(), true); err != nil {
		t.Fatalf("DeleteNode cascade: %v", err)
	}
	if exists, _ := s.NodeExists(ctx, a.Handle()); exists {
		t.Fatalf("expected node deleted")
	}
	if exists, _ := s.LinkExists(ctx, lh); exists {
		t.Fatalf("expected dependent link cascade-deleted")
	}
}

func TestQueryForTargets(t *testing.T) {
	ctx := context.Background()
	s := open(t)

	a := atomspace.NewNode("Symbol", "a")
	b := atomspace.NewNode("Symbol", "b")
	s.AddNode(ctx, a)
	s.AddNode(ctx, b)
	l := atomspace.NewLink("Expression", []atomspace.Handle{a.Handle(), b.Handle()}, true)
	lh, _ := s.AddLink(ctx, l)

	targets, err := s.QueryForTargets(ctx, lh)
	if err != nil {
		t.Fatalf("QueryForTargets: %v", err)
	}
	if len(targets) != 2 || targets[0] != a.Handle() || targets[1] != b.Handle() {
		t.Fatalf("unexpected targets %v", targets)
	}
}

func TestAddAtomsBatch(t *testing.T) {
	ctx := context.Background()
	s := open(t)

	a := atomspace.NewNode("Symbol", "a")
	l := atomspace.NewLink("Expression", []atomspace.Handle{a.Handle()}, false)
	if err := s.AddAtoms(ctx, []atomspace.Atom{a, l}, true, true); err != nil {
		t.Fatalf("AddAtoms: %v", err)
	}
	if !l.Toplevel {
		t.Fatalf("expected toplevelFlag to mark link toplevel")
	}
	exists, err := s.LinkExists(ctx, l.Handle())
	if err != nil || !exists {
		t.Fatalf("expected batch-added link to exist")
	}
}
