package patternmatching

import (
	"context"
	"testing"
	"time"

	"github.com/singnet/das-servicebus/atomspace"
	"github.com/singnet/das-servicebus/servicebus"
	"github.com/singnet/das-servicebus/transport"
)

// fakeStore is a minimal in-memory atomspace.Store stub: one
// LINK_TEMPLATE always matches a fixed set of handles.
type fakeStore struct {
	matches []atomspace.Handle
	targets map[atomspace.Handle][]atomspace.Handle
}

func newFakeStore() *fakeStore {
	h1, h2, h3 := atomspace.Handle("link-1"), atomspace.Handle("a1"), atomspace.Handle("b1")
	return &fakeStore{
		matches: []atomspace.Handle{h1},
		targets: map[atomspace.Handle][]atomspace.Handle{h1: {h2, h3}},
	}
}

func (s *fakeStore) GetAtom(context.Context, atomspace.Handle) (atomspace.Atom, bool, error) {
	return nil, false, nil
}
func (s *fakeStore) GetAtomDocument(context.Context, atomspace.Handle) (atomspace.Document, bool, error) {
	return nil, false, nil
}
func (s *fakeStore) LinkExists(context.Context, atomspace.Handle) (bool, error) { return true, nil }
func (s *fakeStore) NodeExists(context.Context, atomspace.Handle) (bool, error) { return true, nil }
func (s *fakeStore) AddNode(context.Context, *atomspace.Node) (atomspace.Handle, error) {
	return "", nil
}
func (s *fakeStore) AddLink(context.Context, *atomspace.Link) (atomspace.Handle, error) {
	return "", nil
}
func (s *fakeStore) AddAtoms(context.Context, []atomspace.Atom, bool, bool) error { return nil }
func (s *fakeStore) DeleteLink(context.Context, atomspace.Handle, bool) error     { return nil }
func (s *fakeStore) DeleteNode(context.Context, atomspace.Handle, bool) error     { return nil }
func (s *fakeStore) QueryForPattern(context.Context, *atomspace.Link) ([]atomspace.Handle, error) {
	return s.matches, nil
}
func (s *fakeStore) QueryForTargets(_ context.Context, handle atomspace.Handle) ([]atomspace.Handle, error) {
	return s.targets[handle], nil
}
func (s *fakeStore) AddPatternIndexSchema(context.Context, []string, []string) error { return nil }

func TestPatternMatchingQueryRoundTrip(t *testing.T) {
	hub := transport.NewHub()
	node := hub.Node("node-1")
	bus := servicebus.NewBus("node-1", node, mustPool(t))

	proc := New(newFakeStore(), nil, nil)
	if err := bus.RegisterProcessor(proc); err != nil {
		t.Fatalf("RegisterProcessor: %v", err)
	}

	caller := servicebus.NewPatternMatchingQueryProxy(0, "caller", 16)
	caller.Query = "LINK_TEMPLATE Similarity 2 VARIABLE X VARIABLE Y"
	caller.Params.Set(servicebus.ParamMaxAnswers, "0")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := bus.IssueBusCommand(ctx, caller); err != nil {
		t.Fatalf("IssueBusCommand: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	var got *atomspace.QueryAnswer
	for time.Now().Before(deadline) {
		if a, ok := caller.Pop(); ok {
			got = a
			break
		}
		if caller.Finished() {
			break
		}
		time.Sleep(time.Millisecond)
	}
	if got == nil {
		t.Fatalf("expected one answer, got none (finished=%v)", caller.Finished())
	}
	if len(got.Handles) != 1 || got.Handles[0] != "link-1" {
		t.Fatalf("unexpected answer handles: %+v", got.Handles)
	}
}

func TestPatternMatchingQueryMettaSyntaxRaisesUnsupported(t *testing.T) {
	hub := transport.NewHub()
	node := hub.Node("node-2")
	bus := servicebus.NewBus("node-2", node, mustPool(t))

	proc := New(newFakeStore(), nil, nil)
	if err := bus.RegisterProcessor(proc); err != nil {
		t.Fatalf("RegisterProcessor: %v", err)
	}

	caller := servicebus.NewPatternMatchingQueryProxy(0, "caller", 16)
	caller.Query = "(Similarity human chimp)"
	caller.UseMettaSyntax = true

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := bus.IssueBusCommand(ctx, caller); err != nil {
		t.Fatalf("IssueBusCommand: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) && !caller.Finished() {
		time.Sleep(time.Millisecond)
	}
	if !caller.Finished() {
		t.Fatal("expected proxy to finish (via PEER_ERROR) once the MeTTa compiler rejects the query")
	}
	if _, _, raised := caller.Error(); !raised {
		t.Fatal("expected an error to be raised for an unsupported MeTTa-syntax query")
	}
}

func mustPool(t *testing.T) *servicebus.PortPool {
	t.Helper()
	pool, err := servicebus.NewPortPool(20000, 20010)
	if err != nil {
		t.Fatalf("NewPortPool: %v", err)
	}
	return pool
}
