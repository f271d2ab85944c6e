package queryevolution

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
func (fakeStore) AddLink(context.Context, *atomspace.Link) (atomspace.Handle, error) {
	return "", nil
}
func (fakeStore) AddAtoms(context.Context, []atomspace.Atom, bool, bool) error { return nil }
func (fakeStore) DeleteLink(context.Context, atomspace.Handle, bool) error     { return nil }
func (fakeStore) DeleteNode(context.Context, atomspace.Handle, bool) error     { return nil }
func (fakeStore) QueryForPattern(context.Context, *atomspace.Link) ([]atomspace.Handle, error) {
	return []atomspace.Handle{"h1", "h2", "h3", "h4"}, nil
}
func (fakeStore) QueryForTargets(context.Context, atomspace.Handle) ([]atomspace.Handle, error) {
	return []atomspace.Handle{"a", "b"}, nil
}
func (fakeStore) AddPatternIndexSchema(context.Context, []string, []string) error { return nil }

type rankingBroker struct{ atomspace.NoopAttentionBroker }

func (rankingBroker) GetImportance(_ context.Context, handles []atomspace.Handle, _ string) ([]float64, error) {
	out := make([]float64, len(handles))
	for i := range handles {
		out[i] = float64(len(handles) - i)
	}
	return out, nil
}

func TestQueryEvolutionSelectsSubset(t *testing.T) {
	hub := transport.NewHub()
	node := hub.Node("evo-node")
	pool, err := servicebus.NewPortPool(25000, 25010)
	if err != nil {
		t.Fatalf("NewPortPool: %v", err)
	}
	bus := servicebus.NewBus("evo-node", node, pool)

	proc := New(fakeStore{}, rankingBroker{}, nil)
	if err := bus.RegisterProcessor(proc); err != nil {
		t.Fatalf("RegisterProcessor: %v", err)
	}

	caller := servicebus.NewQueryEvolutionProxy(0, "caller", 8)
	caller.Params.Set(servicebus.ParamCorrelationQuery, "LINK_TEMPLATE Similarity 2 VARIABLE X VARIABLE Y")
	caller.Params.Set(servicebus.ParamSelectionRate, "0.5")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := bus.IssueBusCommand(ctx, caller); err != nil {
		t.Fatalf("IssueBusCommand: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	count := 0
	for time.Now().Before(deadline) {
		if _, ok := caller.Pop(); ok {
			count++
			continue
		}
		if caller.Finished() {
			break
		}
		time.Sleep(time.Millisecond)
	}
	if count == 0 || count >= 4 {
		t.Fatalf("expected a selected subset of the 4 candidates, got %d", count)
	}
}
