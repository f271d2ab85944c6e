package servicebus

import (
	"strconv"
	"strings"

	"github.com/singnet/das-servicebus/atomspace"
)

// Wire encoding for one QueryAnswer inside an ANSWER_BUNDLE argument:
// a single arg string whose fields are joined by bundleFieldSep. The
// envelope carries args as a string list, so the encoding only
// relies on handles/variable names never containing the separator.
const bundleFieldSep = "\x1f"

// encodeAnswer serialises a QueryAnswer into one ANSWER_BUNDLE element
// (spec.md §4.6 "push(answer) serialises, appends to bundle").
func encodeAnswer(a *atomspace.QueryAnswer) string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(len(a.Handles)))
	for _, h := range a.Handles {
		b.WriteString(bundleFieldSep)
		b.WriteString(string(h))
	}
	vars := a.Assignment.Variables()
	b.WriteString(bundleFieldSep)
	b.WriteString(strconv.Itoa(len(vars)))
	for _, v := range vars {
		h, _ := a.Assignment.Get(v)
		b.WriteString(bundleFieldSep)
		b.WriteString(v)
		b.WriteString(bundleFieldSep)
		b.WriteString(string(h))
	}
	b.WriteString(bundleFieldSep)
	b.WriteString(strconv.FormatFloat(a.Strength, 'g', -1, 64))
	return b.String()
}

// decodeAnswer is the inverse of encodeAnswer. A malformed element is
// reported so the caller can raise MalformedMessage on the peer (spec.md
// §7).
func decodeAnswer(s string) (*atomspace.QueryAnswer, error) {
	fields := strings.Split(s, bundleFieldSep)
	if len(fields) < 1 {
		return nil, &BusError{Kind: ErrMalformedMessage, Message: "empty answer bundle element"}
	}
	i := 0
	nHandles, err := strconv.Atoi(fields[i])
	if err != nil {
		return nil, &BusError{Kind: ErrMalformedMessage, Message: "bad handle count", Cause: err}
	}
	i++
	if i+nHandles > len(fields) {
		return nil, &BusError{Kind: ErrMalformedMessage, Message: "truncated handle list"}
	}
	handles := make([]atomspace.Handle, nHandles)
	for j := 0; j < nHandles; j++ {
		handles[j] = atomspace.Handle(fields[i])
		i++
	}
	if i >= len(fields) {
		return nil, &BusError{Kind: ErrMalformedMessage, Message: "missing binding count"}
	}
	nBindings, err := strconv.Atoi(fields[i])
	if err != nil {
		return nil, &BusError{Kind: ErrMalformedMessage, Message: "bad binding count", Cause: err}
	}
	i++
	assignment := atomspace.NewAssignment()
	for j := 0; j < nBindings; j++ {
		if i+1 >= len(fields) {
			return nil, &BusError{Kind: ErrMalformedMessage, Message: "truncated bindings"}
		}
		assignment.Assign(fields[i], atomspace.Handle(fields[i+1]))
		i += 2
	}
	strength := 1.0
	if i < len(fields) {
		if v, err := strconv.ParseFloat(fields[i], 64); err == nil {
			strength = v
		}
	}
	qa := atomspace.NewQueryAnswer(handles, assignment)
	qa.Strength = strength
	return qa, nil
}
