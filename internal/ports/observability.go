package ports

// Metric names shared by the hub, router, engine, runtime gauges and
// the CLI stats poller. They live next to the interface so the app
// layer never has to import a concrete observability adapter.
const (
	MetricEnvelopesRelayed  = "relay_envelopes_relayed_total"
	MetricBroadcastSends    = "relay_broadcast_sends_total"
	MetricBroadcastFailures = "relay_broadcast_failures_total"
	MetricRequests          = "relay_requests_total"
	MetricDroppedMessages   = "relay_dropped_messages_total"
	MetricQueueLength       = "relay_queue_length"
	MetricClientsConnected  = "relay_clients_connected"
	MetricJournalSizeBytes  = "relay_journal_size_bytes"
	MetricRequestLatency    = "relay_request_latency_seconds"
)

// Observability collects the logging and metrics surface used across
// the relay so adapters can swap in their own backend.
type Observability interface {
	LogInfo(msg string, fields ...Field)
	LogWarn(msg string, fields ...Field)
	LogError(msg string, err error, fields ...Field)

	IncCounter(name string, v float64)
	ObserveLatency(name string, seconds float64)
	SetGauge(name string, v float64)

	// RecordDrop notes a broker message that was journaled and dropped.
	RecordDrop(m *DroppedMessage, err error)
}

// Field is a structured log field.
type Field struct {
	Key   string
	Value any
}
