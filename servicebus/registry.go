package servicebus

import "github.com/alphadose/haxmap"

// Command is one of the fixed, bus-wide enumerated command names
// (spec.md §7: "Bus commands (the fixed set)").
type Command string

const (
	CommandPatternMatchingQuery Command = "PATTERN_MATCHING_QUERY"
	CommandQueryEvolution       Command = "QUERY_EVOLUTION"
	CommandLinkCreation         Command = "LINK_CREATION"
	CommandInference            Command = "INFERENCE"
	CommandContext              Command = "CONTEXT"
	CommandAtomDB               Command = "ATOMDB"
)

// FixedCommandSet lists every bus-wide command name, in the order
// spec.md §7 presents them.
var FixedCommandSet = []Command{
	CommandPatternMatchingQuery,
	CommandQueryEvolution,
	CommandLinkCreation,
	CommandInference,
	CommandContext,
	CommandAtomDB,
}

func isFixedCommand(cmd Command) bool {
	for _, c := range FixedCommandSet {
		if c == cmd {
			return true
		}
	}
	return false
}

// Registry maps each bus command to the node id of the processor that
// currently owns it (spec.md §4.5 "Bus Registry"), grounded on
// casualjim-bubo's internal/registry package — a haxmap-backed map gives
// the lock-free concurrent Get/Set the bus's dispatch hot path needs
// without a package-wide mutex.
type Registry struct {
	owners *haxmap.Map[Command, string]
}

// NewRegistry builds an empty registry; every fixed command starts
// unowned.
func NewRegistry() *Registry {
	return &Registry{owners: haxmap.New[Command, string]()}
}

// Register claims cmd for nodeID. Registration is idempotent when the
// same node re-registers the same command, and fails with AlreadyOwned
// when a different node already owns it (spec.md §4.5).
func (r *Registry) Register(cmd Command, nodeID string) error {
	if !isFixedCommand(cmd) {
		return &BusError{Kind: ErrUnknownCommand, Message: string(cmd)}
	}
	owner, loaded := r.owners.GetOrCompute(cmd, func() string { return nodeID })
	if loaded && owner != nodeID {
		return &BusError{Kind: ErrAlreadyOwned, Message: string(cmd) + " owned by " + owner}
	}
	return nil
}

// Unregister releases cmd, leaving it unowned. A no-op if nodeID does
// not currently own cmd.
func (r *Registry) Unregister(cmd Command, nodeID string) {
	if owner, ok := r.owners.Get(cmd); ok && owner == nodeID {
		r.owners.Del(cmd)
	}
}

// Owner returns the node id currently owning cmd, if any.
func (r *Registry) Owner(cmd Command) (string, bool) {
	return r.owners.Get(cmd)
}

// IsLocal reports whether nodeID is the registered owner of cmd.
func (r *Registry) IsLocal(cmd Command, nodeID string) bool {
	owner, ok := r.owners.Get(cmd)
	return ok && owner == nodeID
}
