package servicebus

import "testing"

func TestMetricsRecordersDoNotPanic(t *testing.T) {
	RecordPortPoolFree("node-1", 4)
	RecordAnswerPushed(CommandPatternMatchingQuery)
	RecordAnswerPopped(CommandPatternMatchingQuery)
	RecordBundleFlush(CommandPatternMatchingQuery, 7)
	RecordCommandIssued(CommandPatternMatchingQuery, "ok")
}

func TestNamedPortPoolEmitsGauge(t *testing.T) {
	pool, err := NewNamedPortPool("node-1", 9000, 9003)
	if err != nil {
		t.Fatalf("NewNamedPortPool: %v", err)
	}
	if pool.Len() != 4 {
		t.Fatalf("expected 4 free ports, got %d", pool.Len())
	}
}
