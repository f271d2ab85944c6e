// Package querycompiler provides the pluggable query-front-end seam
// SPEC_FULL.md §6.2 names: a Compiler interface with two
// implementations, TokenStreamCompiler (the fully specified grammar of
// spec.md §4.9) and MettaCompiler (a stub returning ErrUnsupportedSyntax),
// so PatternMatchingQueryProxy's UseMettaSyntax flag has somewhere to
// dispatch, mirroring PatternMatchingQueryProcessor.cc's compiler
// selection between its token-stream and MeTTa-surface front ends.
package querycompiler

import (
	"errors"

	"github.com/singnet/das-servicebus/atomspace"
	"github.com/singnet/das-servicebus/queryelement"
)

// ErrUnsupportedSyntax is returned by MettaCompiler: the MeTTa
// surface-syntax parser is an external collaborator out of scope per
// spec.md §1 ("the MeTTa surface-syntax parser"), so this seam only
// proves the dispatch point exists.
var ErrUnsupportedSyntax = errors.New("querycompiler: MeTTa surface syntax is not supported by this build")

// Compiler turns a raw query string into a compiled Query Element
// Graph, rooted at the Element Compile returns.
type Compiler interface {
	Compile(query string, store atomspace.Store, uniqueAssignmentFlag bool) (queryelement.Element, error)
}

// TokenStreamCompiler is the default front end: the whitespace-separated
// prefix grammar of spec.md §4.9, delegating directly to
// queryelement.ParseTokens/Compile.
type TokenStreamCompiler struct{}

func (TokenStreamCompiler) Compile(query string, store atomspace.Store, uniqueAssignmentFlag bool) (queryelement.Element, error) {
	tokens := queryelement.ParseTokens(query)
	return queryelement.Compile(tokens, store, uniqueAssignmentFlag)
}

// MettaCompiler is the dispatch target for PatternMatchingQueryProxy's
// UseMettaSyntax flag. The MeTTa surface-syntax parser itself is an
// external collaborator (spec.md §1 Non-goals); this stub exists so
// that flag is observably honored rather than silently ignored.
type MettaCompiler struct{}

func (MettaCompiler) Compile(query string, store atomspace.Store, uniqueAssignmentFlag bool) (queryelement.Element, error) {
	return nil, ErrUnsupportedSyntax
}

// Select returns the Compiler a PatternMatchingQueryProxy's
// UseMettaSyntax flag names.
func Select(useMettaSyntax bool) Compiler {
	if useMettaSyntax {
		return MettaCompiler{}
	}
	return TokenStreamCompiler{}
}
