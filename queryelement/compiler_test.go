package queryelement

import (
	"context"
	"testing"
	"time"

	"github.com/singnet/das-servicebus/atomspace"
)

func drain(t *testing.T, root Element) []*atomspace.QueryAnswer {
	t.Helper()
	sink := NewSink(context.Background(), "sink", root)
	deadline := time.Now().Add(2 * time.Second)
	for !sink.Finished() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if !sink.Finished() {
		t.Fatal("graph never finished")
	}
	var out []*atomspace.QueryAnswer
	for {
		a, ok := sink.Pop()
		if !ok {
			break
		}
		out = append(out, a)
	}
	return out
}

func TestCompileSingleLinkTemplateNoAnswers(t *testing.T) {
	store := newFakeStore()
	tokens := ParseTokens("LINK_TEMPLATE Similarity 2 NODE Concept human VARIABLE $x")
	root, err := Compile(tokens, store, false)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	got := drain(t, root)
	if len(got) != 0 {
		t.Fatalf("expected no answers, got %d", len(got))
	}
}

func TestCompileSingleLinkTemplateManyAnswers(t *testing.T) {
	store := newFakeStore()
	human := atomspace.NewNode("Concept", "human").Handle()
	store.addLink("Similarity", []atomspace.Handle{human, "monkey"})
	store.addLink("Similarity", []atomspace.Handle{human, "chimp"})

	tokens := ParseTokens("LINK_TEMPLATE Similarity 2 NODE Concept human VARIABLE $x")
	root, err := Compile(tokens, store, false)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	got := drain(t, root)
	if len(got) != 2 {
		t.Fatalf("expected 2 answers, got %d", len(got))
	}
}

func TestCompileAndOfTwoTemplates(t *testing.T) {
	store := newFakeStore()
	human := atomspace.NewNode("Concept", "human").Handle()
	monkey := atomspace.NewNode("Concept", "monkey").Handle()
	store.addLink("Similarity", []atomspace.Handle{human, monkey})
	store.addLink("Inheritance", []atomspace.Handle{monkey, "mammal"})

	tokens := ParseTokens(
		"AND 2 " +
			"LINK_TEMPLATE Similarity 2 NODE Concept human VARIABLE $x " +
			"LINK_TEMPLATE Inheritance 2 VARIABLE $x ATOM mammal")
	root, err := Compile(tokens, store, false)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	got := drain(t, root)
	if len(got) != 1 {
		t.Fatalf("expected 1 joined answer, got %d", len(got))
	}
}

func TestCompileOrOfTwoTemplates(t *testing.T) {
	store := newFakeStore()
	human := atomspace.NewNode("Concept", "human").Handle()
	store.addLink("Similarity", []atomspace.Handle{human, "monkey"})
	store.addLink("Similarity", []atomspace.Handle{human, "chimp"})

	tokens := ParseTokens(
		"OR 2 " +
			"LINK_TEMPLATE Similarity 2 NODE Concept human VARIABLE $x " +
			"LINK_TEMPLATE Similarity 2 NODE Concept human VARIABLE $y")
	root, err := Compile(tokens, store, false)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	got := drain(t, root)
	if len(got) != 4 {
		t.Fatalf("expected 4 answers (2+2), got %d", len(got))
	}
}

func TestCompileUniqueAssignmentFlagDedups(t *testing.T) {
	store := newFakeStore()
	human := atomspace.NewNode("Concept", "human").Handle()
	store.addLink("Similarity", []atomspace.Handle{human, "monkey"})

	tokens := ParseTokens(
		"OR 2 " +
			"LINK_TEMPLATE Similarity 2 NODE Concept human VARIABLE $x " +
			"LINK_TEMPLATE Similarity 2 NODE Concept human VARIABLE $x")
	root, err := Compile(tokens, store, true)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if _, ok := root.(*UniqueAssignmentFilter); !ok {
		t.Fatalf("expected root wrapped in UniqueAssignmentFilter, got %T", root)
	}
	got := drain(t, root)
	if len(got) != 1 {
		t.Fatalf("expected 1 deduped answer, got %d", len(got))
	}
}

func TestCompileMalformedQueryTooFewClauses(t *testing.T) {
	tokens := ParseTokens("AND 2 NODE Concept human")
	if _, err := Compile(tokens, newFakeStore(), false); err == nil {
		t.Fatal("expected malformed query error")
	}
}

func TestCompileMalformedQueryTrailingElements(t *testing.T) {
	tokens := ParseTokens("NODE Concept human NODE Concept monkey")
	if _, err := Compile(tokens, newFakeStore(), false); err == nil {
		t.Fatal("expected malformed query error for leftover elements")
	}
}
