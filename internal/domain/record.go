package domain

import (
	"encoding/json"
	"time"
)

// Metric identifies the kind of sensor reading stored and queried.
type Metric string

const (
	MetricHeartRate   Metric = "bpm"
	MetricTemperature Metric = "temperatura"
)

// Granularity selects the comparison window for statistics queries.
type Granularity string

const (
	GranularityDay   Granularity = "dia"
	GranularityWeek  Granularity = "semana"
	GranularityMonth Granularity = "mes"
)

// SensorRecord is a persisted sensor reading. The ID is assigned by the
// store on insert; records are immutable afterwards.
type SensorRecord struct {
	ID         int64     `json:"id"`
	Metric     Metric    `json:"metric"`
	Value      float64   `json:"value"`
	RecordedAt time.Time `json:"recordedAt"`
}

// Envelope is one normalized broker message queued for broadcast.
// The payload schema depends on the topic and is opaque to the bridge.
type Envelope struct {
	Topic   string          `json:"topic"`
	Payload json.RawMessage `json:"parsedData"`
}

// PeriodWindow is a labeled calendar range. Start is inclusive, End is
// exclusive (the first instant after the window), so every moment of
// the final day falls inside regardless of timestamp precision.
type PeriodWindow struct {
	Start time.Time
	End   time.Time
	Label string
}

// Contains reports whether ts falls inside the window.
func (w PeriodWindow) Contains(ts time.Time) bool {
	return !ts.Before(w.Start) && ts.Before(w.End)
}

// AggregationResult compares the current period against the previous
// one. On failure only Message is set.
type AggregationResult struct {
	Success       bool    `json:"success"`
	Message       string  `json:"message,omitempty"`
	CurrentLabel  string  `json:"currentLabel,omitempty"`
	PreviousLabel string  `json:"previousLabel,omitempty"`
	CurrentMean   float64 `json:"currentMean"`
	PreviousMean  float64 `json:"previousMean"`
}

// InsertResult is the reply for insert requests.
type InsertResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
