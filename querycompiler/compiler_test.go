package querycompiler

import (
	"context"
	"errors"
	"testing"

	"github.com/singnet/das-servicebus/atomspace"
	"github.com/singnet/das-servicebus/atomspace/buntstore"
)

func openStore(t *testing.T) *buntstore.Store {
	t.Helper()
	s, err := buntstore.Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestTokenStreamCompilerCompilesQuery(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	if _, err := store.AddLink(ctx, atomspace.NewLink("Similarity", []atomspace.Handle{
		atomspace.NewNode("Concept", "human").Handle(),
		atomspace.NewNode("Concept", "chimp").Handle(),
	}, true)); err != nil {
		t.Fatalf("AddLink: %v", err)
	}

	root, err := TokenStreamCompiler{}.Compile(
		"LINK_TEMPLATE Similarity 2 NODE Concept human VARIABLE $x", store, false)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if root == nil {
		t.Fatal("expected a non-nil root element")
	}
}

func TestMettaCompilerReturnsUnsupportedSyntax(t *testing.T) {
	store := openStore(t)
	_, err := MettaCompiler{}.Compile("(Similarity human chimp)", store, false)
	if !errors.Is(err, ErrUnsupportedSyntax) {
		t.Fatalf("expected ErrUnsupportedSyntax, got %v", err)
	}
}

func TestSelectDispatchesOnUseMettaSyntax(t *testing.T) {
	if _, ok := Select(false).(TokenStreamCompiler); !ok {
		t.Fatal("expected TokenStreamCompiler when UseMettaSyntax is false")
	}
	if _, ok := Select(true).(MettaCompiler); !ok {
		t.Fatal("expected MettaCompiler when UseMettaSyntax is true")
	}
}
