package atomspace

import "context"

// Document is a key-indexed view over an atom's stored representation,
// returning either single strings or indexed string arrays — the shape
// original_source/src/db_adapter/DataMapper.cc builds from a database row.
type Document interface {
	// GetString returns the string stored at key.
	GetString(key string) (string, bool)
	// GetStringList returns the string array stored at key.
	GetStringList(key string) ([]string, bool)
}

// Store is the AtomStore collaborator (spec.md §6): the persistent
// key/value + document backend reachable from the core. It is deliberately
// an interface only — the specification explicitly treats the atom store's
// storage format as out of scope (spec.md §1). atomspace/buntstore
// provides one concrete implementation.
type Store interface {
	GetAtom(ctx context.Context, handle Handle) (Atom, bool, error)
	GetAtomDocument(ctx context.Context, handle Handle) (Document, bool, error)

	LinkExists(ctx context.Context, handle Handle) (bool, error)
	NodeExists(ctx context.Context, handle Handle) (bool, error)

	AddNode(ctx context.Context, node *Node) (Handle, error)
	AddLink(ctx context.Context, link *Link) (Handle, error)
	// AddAtoms is a batch insert; reindexFlag asks the store to rebuild
	// any pattern indices touched by the batch.
	AddAtoms(ctx context.Context, atoms []Atom, toplevelFlag, reindexFlag bool) error

	DeleteLink(ctx context.Context, handle Handle, cascadeFlag bool) error
	DeleteNode(ctx context.Context, handle Handle, cascadeFlag bool) error

	// QueryForPattern returns every link handle matching a link schema —
	// a template link whose targets may be wildcards.
	QueryForPattern(ctx context.Context, schema *Link) ([]Handle, error)
	// QueryForTargets returns the ordered target handles of a link.
	QueryForTargets(ctx context.Context, handle Handle) ([]Handle, error)

	// AddPatternIndexSchema precomputes an index for a token-stream query
	// pattern, keyed by the supplied entries.
	AddPatternIndexSchema(ctx context.Context, tokens []string, entries []string) error
}
