package servicebus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus instrumentation for the Service Bus core, grounded on the
// teacher's coreengine/observability/metrics.go promauto vector shape
// (counter/histogram per concern, a package-level Record* entry point
// per metric family) repurposed for the port pool, the answer
// protocol, and command dispatch instead of the teacher's
// pipeline/agent/LLM domain.
var (
	portPoolFree = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "das_servicebus_port_pool_free",
			Help: "Number of free ports currently available in a node's PortPool.",
		},
		[]string{"node"},
	)

	answersPushedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "das_servicebus_answers_pushed_total",
			Help: "Total QueryAnswers pushed into a processor-side bundle.",
		},
		[]string{"command"},
	)

	answersPoppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "das_servicebus_answers_popped_total",
			Help: "Total QueryAnswers popped by a caller from a BaseQueryProxy.",
		},
		[]string{"command"},
	)

	bundleFlushSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "das_servicebus_bundle_flush_size",
			Help:    "Number of answers contained in each flushed ANSWER_BUNDLE message.",
			Buckets: []float64{1, 5, 10, 50, 100, 500, 1000},
		},
		[]string{"command"},
	)

	commandsIssuedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "das_servicebus_commands_issued_total",
			Help: "Total bus commands issued via IssueBusCommand, by command and outcome.",
		},
		[]string{"command", "status"},
	)
)

// RecordPortPoolFree reports the current number of free ports for
// node — called after every Acquire/Release pair.
func RecordPortPoolFree(node string, free int) {
	portPoolFree.WithLabelValues(node).Set(float64(free))
}

// RecordAnswerPushed increments the pushed-answer counter for command.
func RecordAnswerPushed(command Command) {
	answersPushedTotal.WithLabelValues(string(command)).Inc()
}

// RecordAnswerPopped increments the popped-answer counter for command.
func RecordAnswerPopped(command Command) {
	answersPoppedTotal.WithLabelValues(string(command)).Inc()
}

// RecordBundleFlush observes the size of a flushed bundle for command.
func RecordBundleFlush(command Command, size int) {
	bundleFlushSize.WithLabelValues(string(command)).Observe(float64(size))
}

// RecordCommandIssued records the outcome ("ok" or "error") of an
// IssueBusCommand call for command.
func RecordCommandIssued(command Command, status string) {
	commandsIssuedTotal.WithLabelValues(string(command), status).Inc()
}
