package servicebus

import "fmt"

// ErrorKind enumerates the language-neutral error kinds of spec.md §7.
type ErrorKind int

const (
	ErrPortExhausted ErrorKind = iota
	ErrAlreadyOwned
	ErrUnknownCommand
	ErrMalformedQuery
	ErrMalformedMessage
	ErrPeerError
	ErrAborted
	ErrTransportFailure
)

func (k ErrorKind) String() string {
	switch k {
	case ErrPortExhausted:
		return "PortExhausted"
	case ErrAlreadyOwned:
		return "AlreadyOwned"
	case ErrUnknownCommand:
		return "UnknownCommand"
	case ErrMalformedQuery:
		return "MalformedQuery"
	case ErrMalformedMessage:
		return "MalformedMessage"
	case ErrPeerError:
		return "PeerError"
	case ErrAborted:
		return "Aborted"
	case ErrTransportFailure:
		return "TransportFailure"
	default:
		return "Unknown"
	}
}

// BusError is the core's single error type, carrying one of the
// ErrorKind values plus an optional peer error code (spec.md §7
// PeerError(code, message)).
type BusError struct {
	Kind    ErrorKind
	Code    uint32
	Message string
	Cause   error
}

func (e *BusError) Error() string {
	if e.Message == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *BusError) Unwrap() error { return e.Cause }

// IsKind reports whether err is a *BusError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	be, ok := err.(*BusError)
	return ok && be.Kind == kind
}
