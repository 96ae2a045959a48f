package relaybridge

import (
	"context"
	"sync"
	"time"
)

type stubSubscriber struct {
	mu      sync.Mutex
	sink    EnvelopeSink
	stopCnt int
}

func (s *stubSubscriber) Start(out EnvelopeSink) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sink = out
	return nil
}

func (s *stubSubscriber) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopCnt++
	return nil
}

func (s *stubSubscriber) stopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopCnt > 0
}

type stubStore struct{}

func (s *stubStore) Insert(ctx context.Context, metric Metric, value float64, at time.Time) (*SensorRecord, error) {
	return &SensorRecord{ID: 1, Metric: metric, Value: value, RecordedAt: at}, nil
}

func (s *stubStore) Latest(ctx context.Context, metric Metric) (*SensorRecord, error) {
	return nil, nil
}

func (s *stubStore) QueryRange(ctx context.Context, metric Metric, start, end time.Time) ([]SensorRecord, error) {
	return nil, nil
}

type stubQueue struct {
	wake chan struct{}
}

func (q *stubQueue) Push(Envelope) {}

func (q *stubQueue) DrainAll() []Envelope { return nil }

func (q *stubQueue) Wake() <-chan struct{} {
	if q.wake == nil {
		q.wake = make(chan struct{}, 1)
	}
	return q.wake
}

func (q *stubQueue) Len() int { return 0 }

type stubJournal struct{}

func (j *stubJournal) Append(m *DroppedMessage) (JournalEntryID, error) { return 1, nil }
func (j *stubJournal) Iterate(from JournalEntryID, fn func(JournalEntryID, *DroppedMessage) error) error {
	return nil
}
func (j *stubJournal) Stats() JournalStats { return JournalStats{} }

type stubObservability struct{}

func (s *stubObservability) LogInfo(string, ...Field)            {}
func (s *stubObservability) LogWarn(string, ...Field)            {}
func (s *stubObservability) LogError(string, error, ...Field)    {}
func (s *stubObservability) IncCounter(string, float64)          {}
func (s *stubObservability) ObserveLatency(string, float64)      {}
func (s *stubObservability) SetGauge(string, float64)            {}
func (s *stubObservability) RecordDrop(*DroppedMessage, error)   {}
