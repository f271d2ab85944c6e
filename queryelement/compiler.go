package queryelement

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/singnet/das-servicebus/atomspace"
	"github.com/singnet/das-servicebus/servicebus"
)

// QueueCapacity is the default bounded-queue size for every Operator
// input and Terminal output in a compiled graph.
const QueueCapacity = 1000

// Compile walks a whitespace-separated token stream and builds a
// Query Element Graph, returning its single root Element (spec.md
// §4.9 "Build phase"). uniqueAssignmentFlag wraps the root Operator in
// a UniqueAssignmentFilter, per the proxy parameter of the same name.
func Compile(tokens []string, store atomspace.Store, uniqueAssignmentFlag bool) (Element, error) {
	c := &compiler{tokens: tokens, store: store}
	root, err := c.parseElement()
	if err != nil {
		return nil, err
	}
	if c.pos != len(c.tokens) {
		return nil, &servicebus.BusError{Kind: servicebus.ErrMalformedQuery, Message: "trailing tokens after a complete query"}
	}
	switch root.(type) {
	case *And, *Or:
		if uniqueAssignmentFlag {
			root = NewUniqueAssignmentFilter(c.nextID(), root, QueueCapacity)
		}
	}
	return root, nil
}

// compiler is a one-shot recursive-descent parser over a prefix token
// stream: every multi-arg token (LINK, LINK_TEMPLATE, AND, OR) is
// immediately followed by its own parameters and then, recursively,
// exactly that many sub-expressions (spec.md §4.9 "Build phase").
type compiler struct {
	tokens []string
	pos    int
	store  atomspace.Store

	counter int
}

func (c *compiler) nextID() string {
	c.counter++
	return fmt.Sprintf("qe%d", c.counter)
}

func (c *compiler) next() (string, error) {
	if c.pos >= len(c.tokens) {
		return "", &servicebus.BusError{Kind: servicebus.ErrMalformedQuery, Message: "unexpected end of token stream"}
	}
	t := c.tokens[c.pos]
	c.pos++
	return t, nil
}

func (c *compiler) nextInt() (int, error) {
	tok, err := c.next()
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(tok)
	if err != nil {
		return 0, &servicebus.BusError{Kind: servicebus.ErrMalformedQuery, Message: "expected integer, got " + tok, Cause: err}
	}
	return n, nil
}

// parseElement consumes one full Query Element: a Terminal
// (NODE/ATOM/LINK/LINK_TEMPLATE) or an Operator (AND/OR) applied to
// that many recursively-parsed sub-elements.
func (c *compiler) parseElement() (Element, error) {
	tok, err := c.next()
	if err != nil {
		return nil, err
	}
	switch tok {
	case "NODE":
		atomType, err := c.next()
		if err != nil {
			return nil, err
		}
		name, err := c.next()
		if err != nil {
			return nil, err
		}
		handle := atomspace.NewNode(atomType, name).Handle()
		return NewAtomSource(c.nextID(), handle), nil

	case "ATOM":
		handle, err := c.next()
		if err != nil {
			return nil, err
		}
		return NewAtomSource(c.nextID(), atomspace.Handle(handle)), nil

	case "LINK":
		return c.parseLink(false)

	case "LINK_TEMPLATE":
		return c.parseLink(true)

	case "AND", "OR":
		k, err := c.nextInt()
		if err != nil {
			return nil, err
		}
		if k > MaxFanIn {
			return nil, &servicebus.BusError{Kind: servicebus.ErrMalformedQuery, Message: "operator exceeds max fan-in"}
		}
		clauses := make([]Element, k)
		for i := 0; i < k; i++ {
			clauses[i], err = c.parseElement()
			if err != nil {
				return nil, err
			}
		}
		if tok == "OR" {
			return NewOr(c.nextID(), clauses, QueueCapacity)
		}
		return NewAnd(c.nextID(), clauses, QueueCapacity)

	default:
		return nil, &servicebus.BusError{Kind: servicebus.ErrMalformedQuery, Message: "unknown token " + tok}
	}
}

// parseLink consumes a LINK/LINK_TEMPLATE's type, arity, and that many
// flat targets (NODE/VARIABLE/ATOM only; a nested LINK/LINK_TEMPLATE as
// a target is not supported, see terminal.go's LinkTemplate doc
// comment).
func (c *compiler) parseLink(template bool) (Element, error) {
	atomType, err := c.next()
	if err != nil {
		return nil, err
	}
	arity, err := c.nextInt()
	if err != nil {
		return nil, err
	}
	targets := make([]Term, arity)
	for i := 0; i < arity; i++ {
		targets[i], err = c.parseTarget()
		if err != nil {
			return nil, err
		}
	}
	if template {
		return NewLinkTemplate(c.nextID(), atomType, targets, true, c.store), nil
	}
	handles := make([]atomspace.Handle, arity)
	for i, t := range targets {
		h, variable := t.resolve()
		if variable != "" {
			return nil, &servicebus.BusError{Kind: servicebus.ErrMalformedQuery, Message: "LINK targets must be concrete, not variables"}
		}
		handles[i] = h
	}
	link := atomspace.NewLink(atomType, handles, false)
	return NewAtomSource(c.nextID(), link.Handle()), nil
}

// parseTarget consumes one NODE/VARIABLE/ATOM target within a
// LINK/LINK_TEMPLATE's flat target list.
func (c *compiler) parseTarget() (Term, error) {
	tok, err := c.next()
	if err != nil {
		return nil, err
	}
	switch tok {
	case "NODE":
		atomType, err := c.next()
		if err != nil {
			return nil, err
		}
		name, err := c.next()
		if err != nil {
			return nil, err
		}
		return NodeTerm{Type: atomType, Name: name}, nil
	case "VARIABLE":
		name, err := c.next()
		if err != nil {
			return nil, err
		}
		return VariableTerm{Name: name}, nil
	case "ATOM":
		handle, err := c.next()
		if err != nil {
			return nil, err
		}
		return AtomTerm{Handle: atomspace.Handle(handle)}, nil
	default:
		return nil, &servicebus.BusError{Kind: servicebus.ErrMalformedQuery, Message: "expected a target (NODE/VARIABLE/ATOM), got " + tok}
	}
}

// ParseTokens splits a whitespace-separated token-stream query.
func ParseTokens(query string) []string {
	return strings.Fields(query)
}
