package linkcreation

import (
	"context"
	"testing"
	"time"

	"github.com/singnet/das-servicebus/atomspace"
	"github.com/singnet/das-servicebus/servicebus"
	"github.com/singnet/das-servicebus/transport"
)

type fakeStore struct{}

func (fakeStore) GetAtom(context.Context, atomspace.Handle) (atomspace.Atom, bool, error) {
	return nil, false, nil
}
func (fakeStore) GetAtomDocument(context.Context, atomspace.Handle) (atomspace.Document, bool, error) {
	return nil, false, nil
}
func (fakeStore) LinkExists(context.Context, atomspace.Handle) (bool, error) { return false, nil }
func (fakeStore) NodeExists(context.Context, atomspace.Handle) (bool, error) { return false, nil }
func (fakeStore) AddNode(context.Context, *atomspace.Node) (atomspace.Handle, error) {
	return "", nil
}
func (fakeStore) AddLink(_ context.Context, link *atomspace.Link) (atomspace.Handle, error) {
	return link.Handle(), nil
}
func (fakeStore) AddAtoms(context.Context, []atomspace.Atom, bool, bool) error { return nil }
func (fakeStore) DeleteLink(context.Context, atomspace.Handle, bool) error     { return nil }
func (fakeStore) DeleteNode(context.Context, atomspace.Handle, bool) error     { return nil }
func (fakeStore) QueryForPattern(context.Context, *atomspace.Link) ([]atomspace.Handle, error) {
	return []atomspace.Handle{"match-1"}, nil
}
func (fakeStore) QueryForTargets(context.Context, atomspace.Handle) ([]atomspace.Handle, error) {
	return []atomspace.Handle{"t1", "t2"}, nil
}
func (fakeStore) AddPatternIndexSchema(context.Context, []string, []string) error { return nil }

func TestLinkCreationProducesLink(t *testing.T) {
	hub := transport.NewHub()
	node := hub.Node("lc-node")
	pool, err := servicebus.NewPortPool(23000, 23010)
	if err != nil {
		t.Fatalf("NewPortPool: %v", err)
	}
	bus := servicebus.NewBus("lc-node", node, pool)

	proc := New(fakeStore{}, nil)
	if err := bus.RegisterProcessor(proc); err != nil {
		t.Fatalf("RegisterProcessor: %v", err)
	}

	caller := servicebus.NewLinkCreationRequestProxy(0, "caller", 8)
	caller.Params.Set(servicebus.ParamLinkCreationSchema, "LINK_TEMPLATE Similarity 2 VARIABLE X VARIABLE Y")
	caller.Params.Set(servicebus.ParamLinkCreationType, "Derived")

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
		t.Fatalf("expected a created-link answer, got none (finished=%v)", caller.Finished())
	}
}
