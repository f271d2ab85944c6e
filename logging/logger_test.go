package logging

import "testing"

func TestNoopLoggerBindReturnsLogger(t *testing.T) {
	l := NewNoop()
	bound := l.Bind("node", "n1")
	bound.Info("hello", "k", "v")
}

func TestStdLoggerBindAccumulatesFields(t *testing.T) {
	l := NewStd()
	bound := l.Bind("node", "n1").Bind("serial", 1)
	if bound == nil {
		t.Fatal("expected non-nil bound logger")
	}
	bound.Debug("test message")
}
