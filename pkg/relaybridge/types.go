package relaybridge

import (
	"github.com/Poltergeis/api-local-websockets/internal/domain"
	"github.com/Poltergeis/api-local-websockets/internal/ports"
)

// Envelope is the broadcast unit that flows from the broker through the
// relay queue out to every connected client. It is exported so custom
// subscribers and taps can reference it.
type Envelope = domain.Envelope

// Metric identifies the kind of sensor reading stored and queried.
type Metric = domain.Metric

// Granularity selects the comparison window for statistics queries.
type Granularity = domain.Granularity

// SensorRecord is a persisted sensor reading.
type SensorRecord = domain.SensorRecord

// AggregationResult compares the current period against the previous one.
type AggregationResult = domain.AggregationResult

// InsertResult is the reply for insert requests.
type InsertResult = domain.InsertResult

const (
	MetricHeartRate   = domain.MetricHeartRate
	MetricTemperature = domain.MetricTemperature

	GranularityDay   = domain.GranularityDay
	GranularityWeek  = domain.GranularityWeek
	GranularityMonth = domain.GranularityMonth
)

// Subscriber streams envelopes from any device-facing source into the relay.
type Subscriber = ports.Subscriber

// EnvelopeSink receives envelopes; Push is non-blocking and goroutine-safe.
type EnvelopeSink = ports.EnvelopeSink

// RelayQueue buffers envelopes between broker callbacks and the serving goroutine.
type RelayQueue = ports.RelayQueue

// RecordStore abstracts the persistence gateway for sensor records.
type RecordStore = ports.RecordStore

// BroadcastTap receives every broadcast envelope alongside the WebSocket clients.
type BroadcastTap = ports.BroadcastTap

// DropJournal records broker messages that could not be relayed.
type DropJournal = ports.DropJournal

// ErrJournalFull reports that the journal reached its configured size
// cap and the entry was skipped.
var ErrJournalFull = ports.ErrJournalFull

// JournalStats exposes journal metadata for observability.
type JournalStats = ports.JournalStats

// JournalEntryID uniquely identifies a journal entry.
type JournalEntryID = ports.JournalEntryID

// DroppedMessage is one journaled broker message.
type DroppedMessage = ports.DroppedMessage

// Observability emits metrics/logs about relay throughput and drops.
type Observability = ports.Observability

// Field is a structured log field used by Observability implementations.
type Field = ports.Field
