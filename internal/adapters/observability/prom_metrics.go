package observability

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Poltergeis/api-local-websockets/internal/ports"
)

// PromObs backs ports.Observability with Prometheus collectors and
// slog structured logging.
type PromObs struct {
	logger   *slog.Logger
	counters map[string]prometheus.Counter
	gauges   map[string]prometheus.Gauge
	histos   map[string]prometheus.Observer
}

func NewPromObs() *PromObs {
	relayed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: ports.MetricEnvelopesRelayed,
		Help: "Broker envelopes drained from the relay queue.",
	})
	sends := prometheus.NewCounter(prometheus.CounterOpts{
		Name: ports.MetricBroadcastSends,
		Help: "Envelope deliveries to connected clients.",
	})
	failures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: ports.MetricBroadcastFailures,
		Help: "Client deliveries that failed and caused a disconnect.",
	})
	requests := prometheus.NewCounter(prometheus.CounterOpts{
		Name: ports.MetricRequests,
		Help: "Client requests routed, successful or not.",
	})
	dropped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: ports.MetricDroppedMessages,
		Help: "Broker messages journaled and dropped as undecodable.",
	})
	queueGauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: ports.MetricQueueLength,
		Help: "Envelopes currently buffered in the relay queue.",
	})
	clientsGauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: ports.MetricClientsConnected,
		Help: "Currently connected WebSocket clients.",
	})
	journalGauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: ports.MetricJournalSizeBytes,
		Help: "Size of the dead-letter journal on disk.",
	})
	latency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    ports.MetricRequestLatency,
		Help:    "Latency of routed client requests.",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	})

	prometheus.MustRegister(relayed, sends, failures, requests, dropped,
		queueGauge, clientsGauge, journalGauge, latency)

	return &PromObs{
		logger: slog.Default(),
		counters: map[string]prometheus.Counter{
			ports.MetricEnvelopesRelayed:  relayed,
			ports.MetricBroadcastSends:    sends,
			ports.MetricBroadcastFailures: failures,
			ports.MetricRequests:          requests,
			ports.MetricDroppedMessages:   dropped,
		},
		gauges: map[string]prometheus.Gauge{
			ports.MetricQueueLength:      queueGauge,
			ports.MetricClientsConnected: clientsGauge,
			ports.MetricJournalSizeBytes: journalGauge,
		},
		histos: map[string]prometheus.Observer{
			ports.MetricRequestLatency: latency,
		},
	}
}

func (p *PromObs) LogInfo(msg string, fields ...ports.Field) {
	p.logger.Info(msg, slogArgs(fields)...)
}

func (p *PromObs) LogWarn(msg string, fields ...ports.Field) {
	p.logger.Warn(msg, slogArgs(fields)...)
}

func (p *PromObs) LogError(msg string, err error, fields ...ports.Field) {
	args := slogArgs(fields)
	if err != nil {
		args = append(args, "error", err)
	}
	p.logger.Error(msg, args...)
}

func (p *PromObs) IncCounter(name string, v float64) {
	if c, ok := p.counters[name]; ok {
		c.Add(v)
	}
}

func (p *PromObs) ObserveLatency(name string, seconds float64) {
	if h, ok := p.histos[name]; ok {
		h.Observe(seconds)
	}
}

func (p *PromObs) SetGauge(name string, v float64) {
	if g, ok := p.gauges[name]; ok {
		g.Set(v)
	}
}

func (p *PromObs) RecordDrop(m *ports.DroppedMessage, err error) {
	p.IncCounter(ports.MetricDroppedMessages, 1)
	if m != nil {
		p.LogWarn("dropped undecodable message",
			ports.Field{Key: "topic", Value: m.Topic},
			ports.Field{Key: "reason", Value: m.Reason})
	} else if err != nil {
		p.LogError("dropped message", err)
	}
}

func slogArgs(fields []ports.Field) []any {
	if len(fields) == 0 {
		return nil
	}
	args := make([]any, 0, len(fields)*2)
	for _, f := range fields {
		args = append(args, f.Key, f.Value)
	}
	return args
}

var _ ports.Observability = (*PromObs)(nil)
