package atomspace

import "testing"

func TestNodeHandleDeterministic(t *testing.T) {
	a := NewNode("Symbol", "human")
	b := NewNode("Symbol", "human")
	if a.Handle() != b.Handle() {
		t.Fatalf("expected identical handles for identical nodes, got %s vs %s", a.Handle(), b.Handle())
	}
	c := NewNode("Symbol", "snake")
	if a.Handle() == c.Handle() {
		t.Fatalf("expected distinct handles for distinct names")
	}
}

func TestNodeHandleTypeSensitive(t *testing.T) {
	a := NewNode("Symbol", "x")
	b := NewNode("Variable", "x")
	if a.Handle() == b.Handle() {
		t.Fatalf("expected handle to depend on type as well as name")
	}
}

func TestNodeHandleWidth(t *testing.T) {
	h := NewNode("Symbol", "human").Handle()
	if len(h.String()) != HandleSize {
		t.Fatalf("expected handle width %d, got %d (%s)", HandleSize, len(h.String()), h)
	}
}

func TestLinkHandleOrderSensitive(t *testing.T) {
	h1 := NewHandle(t, "Symbol", "a")
	h2 := NewHandle(t, "Symbol", "b")

	l1 := NewLink("Expression", []Handle{h1, h2}, true)
	l2 := NewLink("Expression", []Handle{h2, h1}, true)
	if l1.Handle() == l2.Handle() {
		t.Fatalf("link handle must depend on target order")
	}
}

func TestLinkHandleIgnoresProperties(t *testing.T) {
	h1 := NewHandle(t, "Symbol", "a")
	l1 := NewLink("Expression", []Handle{h1}, true)
	before := l1.Handle()
	l1.WithProperties(NewProperties())
	if l1.Handle() != before {
		t.Fatalf("properties must not affect the content-addressed handle")
	}
}

func NewHandle(t *testing.T, atomType, name string) Handle {
	t.Helper()
	return NewNode(atomType, name).Handle()
}
