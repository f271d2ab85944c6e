package atomdb

import (
	"context"
	"testing"
	"time"

	"github.com/singnet/das-servicebus/atomspace"
	"github.com/singnet/das-servicebus/servicebus"
	"github.com/singnet/das-servicebus/transport"
)

type existsStore struct{ present bool }

func (s existsStore) GetAtom(context.Context, atomspace.Handle) (atomspace.Atom, bool, error) {
	return nil, false, nil
}
func (s existsStore) GetAtomDocument(context.Context, atomspace.Handle) (atomspace.Document, bool, error) {
	return nil, false, nil
}
func (s existsStore) LinkExists(context.Context, atomspace.Handle) (bool, error) { return s.present, nil }
func (s existsStore) NodeExists(context.Context, atomspace.Handle) (bool, error) { return s.present, nil }
func (s existsStore) AddNode(context.Context, *atomspace.Node) (atomspace.Handle, error) {
	return "", nil
}
func (s existsStore) AddLink(context.Context, *atomspace.Link) (atomspace.Handle, error) {
	return "", nil
}
func (s existsStore) AddAtoms(context.Context, []atomspace.Atom, bool, bool) error { return nil }
func (s existsStore) DeleteLink(context.Context, atomspace.Handle, bool) error     { return nil }
func (s existsStore) DeleteNode(context.Context, atomspace.Handle, bool) error     { return nil }
func (s existsStore) QueryForPattern(context.Context, *atomspace.Link) ([]atomspace.Handle, error) {
	return nil, nil
}
func (s existsStore) QueryForTargets(context.Context, atomspace.Handle) ([]atomspace.Handle, error) {
	return nil, nil
}
func (s existsStore) AddPatternIndexSchema(context.Context, []string, []string) error { return nil }

func TestAtomDBLinkExists(t *testing.T) {
	hub := transport.NewHub()
	node := hub.Node("atomdb-node")
	pool, err := servicebus.NewPortPool(22000, 22010)
	if err != nil {
		t.Fatalf("NewPortPool: %v", err)
	}
	bus := servicebus.NewBus("atomdb-node", node, pool)

	proc := New(existsStore{present: true}, nil)
	if err := bus.RegisterProcessor(proc); err != nil {
		t.Fatalf("RegisterProcessor: %v", err)
	}

	caller := servicebus.NewAtomDBBrokerProxy(0, "caller")
	caller.Params.Set(servicebus.ParamAtomDBOperation, OpLinkExists)
	caller.Params.Set(servicebus.ParamAtomDBHandle, "some-handle")

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
		t.Fatal("expected proxy to finish")
	}
	if !caller.Result() {
		t.Fatal("expected result=true")
	}
}
