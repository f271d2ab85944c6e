package contextbroker

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/singnet/das-servicebus/atomspace"
	"github.com/singnet/das-servicebus/servicebus"
	"github.com/singnet/das-servicebus/transport"
)

type emptyStore struct{}

func (emptyStore) GetAtom(context.Context, atomspace.Handle) (atomspace.Atom, bool, error) {
	return nil, false, nil
}
func (emptyStore) GetAtomDocument(context.Context, atomspace.Handle) (atomspace.Document, bool, error) {
	return nil, false, nil
}
func (emptyStore) LinkExists(context.Context, atomspace.Handle) (bool, error) { return false, nil }
func (emptyStore) NodeExists(context.Context, atomspace.Handle) (bool, error) { return false, nil }
func (emptyStore) AddNode(context.Context, *atomspace.Node) (atomspace.Handle, error) {
	return "", nil
}
func (emptyStore) AddLink(context.Context, *atomspace.Link) (atomspace.Handle, error) {
	return "", nil
}
func (emptyStore) AddAtoms(context.Context, []atomspace.Atom, bool, bool) error { return nil }
func (emptyStore) DeleteLink(context.Context, atomspace.Handle, bool) error     { return nil }
func (emptyStore) DeleteNode(context.Context, atomspace.Handle, bool) error     { return nil }
func (emptyStore) QueryForPattern(context.Context, *atomspace.Link) ([]atomspace.Handle, error) {
	return nil, nil
}
func (emptyStore) QueryForTargets(context.Context, atomspace.Handle) ([]atomspace.Handle, error) {
	return nil, nil
}
func (emptyStore) AddPatternIndexSchema(context.Context, []string, []string) error { return nil }

func TestContextBrokerAcknowledgesCreation(t *testing.T) {
	dir := t.TempDir()
	hub := transport.NewHub()
	node := hub.Node("ctx-node")
	pool, err := servicebus.NewPortPool(21000, 21010)
	if err != nil {
		t.Fatalf("NewPortPool: %v", err)
	}
	bus := servicebus.NewBus("ctx-node", node, pool)

	proc := New(emptyStore{}, nil, nil, dir)
	if err := bus.RegisterProcessor(proc); err != nil {
		t.Fatalf("RegisterProcessor: %v", err)
	}

	caller := servicebus.NewContextBrokerProxy(0, "caller")
	caller.Params.Set(servicebus.ParamCacheFlag, "true")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := bus.IssueBusCommand(ctx, caller); err != nil {
		t.Fatalf("IssueBusCommand: %v", err)
	}

	if err := caller.WaitCreated(ctx); err != nil {
		t.Fatalf("WaitCreated: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected exactly one cache file, got %d", len(entries))
	}
}
