package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/Poltergeis/api-local-websockets/internal/app/stats"
	"github.com/Poltergeis/api-local-websockets/internal/domain"
)

type routerStore struct {
	mu        sync.Mutex
	latest    *domain.SensorRecord
	records   []domain.SensorRecord
	inserted  []domain.SensorRecord
	insertErr error
}

func (s *routerStore) Insert(ctx context.Context, metric domain.Metric, value float64, at time.Time) (*domain.SensorRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return nil, s.insertErr
	}
	rec := domain.SensorRecord{ID: int64(len(s.inserted) + 1), Metric: metric, Value: value, RecordedAt: at}
	s.inserted = append(s.inserted, rec)
	return &rec, nil
}

func (s *routerStore) insertedRecords() []domain.SensorRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.SensorRecord, len(s.inserted))
	copy(out, s.inserted)
	return out
}

func (s *routerStore) Latest(ctx context.Context, metric domain.Metric) (*domain.SensorRecord, error) {
	return s.latest, nil
}

func (s *routerStore) QueryRange(ctx context.Context, metric domain.Metric, start, end time.Time) ([]domain.SensorRecord, error) {
	var out []domain.SensorRecord
	for _, r := range s.records {
		if r.Metric == metric && !r.RecordedAt.Before(start) && r.RecordedAt.Before(end) {
			out = append(out, r)
		}
	}
	return out, nil
}

func newTestRouter(store *routerStore) *Router {
	obs := newObsSpy()
	return NewRouter(stats.NewEngine(store, obs), store, obs)
}

func handleJSON(t *testing.T, r *Router, frame string) map[string]any {
	t.Helper()
	reply := r.Handle(context.Background(), []byte(frame))
	if reply == nil {
		t.Fatal("expected a reply frame")
	}
	var out map[string]any
	if err := json.Unmarshal(reply, &out); err != nil {
		t.Fatalf("unmarshal reply %q: %v", reply, err)
	}
	return out
}

func TestRouterQueryDay(t *testing.T) {
	anchor := time.Date(2024, time.May, 10, 9, 0, 0, 0, time.UTC)
	store := &routerStore{
		latest: &domain.SensorRecord{Metric: domain.MetricHeartRate, Value: 80, RecordedAt: anchor},
		records: []domain.SensorRecord{
			{Metric: domain.MetricHeartRate, Value: 80, RecordedAt: anchor},
			{Metric: domain.MetricHeartRate, Value: 60, RecordedAt: anchor.AddDate(0, 0, -1)},
		},
	}
	router := newTestRouter(store)

	out := handleJSON(t, router, `{"event":"getBPMRecords","tiempo":"dia"}`)
	if out["success"] != true {
		t.Fatalf("expected success, got %v", out)
	}
	if out["currentLabel"] != "10-05-2024" || out["previousLabel"] != "09-05-2024" {
		t.Fatalf("unexpected labels %v / %v", out["currentLabel"], out["previousLabel"])
	}
	if out["currentMean"] != 80.0 || out["previousMean"] != 60.0 {
		t.Fatalf("unexpected means %v / %v", out["currentMean"], out["previousMean"])
	}
}

func TestRouterQueryNoData(t *testing.T) {
	router := newTestRouter(&routerStore{})

	out := handleJSON(t, router, `{"event":"getTempRecords","tiempo":"mes"}`)
	if out["success"] != false {
		t.Fatalf("expected failure, got %v", out)
	}
	if out["message"] != "no data found" {
		t.Fatalf("unexpected message %v", out["message"])
	}
}

func TestRouterQueryNonFiniteMean(t *testing.T) {
	// Legacy rows written before value validation can hold NaN. The
	// reply must degrade to a failure frame, not kill the pump
	// goroutine with a marshal panic.
	anchor := time.Date(2024, time.May, 10, 9, 0, 0, 0, time.UTC)
	store := &routerStore{
		latest: &domain.SensorRecord{Metric: domain.MetricHeartRate, Value: math.NaN(), RecordedAt: anchor},
		records: []domain.SensorRecord{
			{Metric: domain.MetricHeartRate, Value: math.NaN(), RecordedAt: anchor},
		},
	}
	router := newTestRouter(store)

	out := handleJSON(t, router, `{"event":"getBPMRecords","tiempo":"dia"}`)
	if out["success"] != false || out["message"] != "internal error" {
		t.Fatalf("unexpected reply %v", out)
	}
}

func TestRouterUnsupportedTiempo(t *testing.T) {
	router := newTestRouter(&routerStore{})

	out := handleJSON(t, router, `{"event":"getBPMRecords","tiempo":"siglo"}`)
	if out["success"] != false || out["message"] != "unsupported tiempo" {
		t.Fatalf("unexpected reply %v", out)
	}
}

func TestRouterUnknownEvent(t *testing.T) {
	router := newTestRouter(&routerStore{})

	out := handleJSON(t, router, `{"event":"selfDestruct"}`)
	if out["success"] != false || out["message"] != "unsupported event" {
		t.Fatalf("unexpected reply %v", out)
	}
}

func TestRouterMalformedFrame(t *testing.T) {
	router := newTestRouter(&routerStore{})

	out := handleJSON(t, router, `{not json`)
	if out["success"] != false {
		t.Fatalf("expected failure, got %v", out)
	}
}

func TestRouterInsert(t *testing.T) {
	cases := []struct {
		name    string
		frame   string
		success bool
		count   int
	}{
		{"number", `{"event":"insertBPMRecords","body":{"valor":72}}`, true, 1},
		{"numeric string", `{"event":"insertTempRecords","body":{"valor":"36.5"}}`, true, 1},
		{"non-numeric string", `{"event":"insertBPMRecords","body":{"valor":"abc"}}`, false, 0},
		{"missing body", `{"event":"insertBPMRecords"}`, false, 0},
		{"null valor", `{"event":"insertTempRecords","body":{"valor":null}}`, false, 0},
		{"NaN string", `{"event":"insertBPMRecords","body":{"valor":"NaN"}}`, false, 0},
		{"Inf string", `{"event":"insertBPMRecords","body":{"valor":"Inf"}}`, false, 0},
		{"negative infinity string", `{"event":"insertTempRecords","body":{"valor":"-Infinity"}}`, false, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := &routerStore{}
			router := newTestRouter(store)

			out := handleJSON(t, router, tc.frame)
			if out["success"] != tc.success {
				t.Fatalf("expected success=%v, got %v", tc.success, out)
			}
			if len(store.insertedRecords()) != tc.count {
				t.Fatalf("expected %d inserted records, got %d", tc.count, len(store.insertedRecords()))
			}
		})
	}
}

func TestRouterInsertStoreError(t *testing.T) {
	store := &routerStore{insertErr: errors.New("connection refused")}
	router := newTestRouter(store)

	out := handleJSON(t, router, `{"event":"insertBPMRecords","body":{"valor":70}}`)
	if out["success"] != false || out["message"] != "insert failed" {
		t.Fatalf("unexpected reply %v", out)
	}
}

func TestRouterInsertUsesMetricForEvent(t *testing.T) {
	store := &routerStore{}
	router := newTestRouter(store)

	handleJSON(t, router, `{"event":"insertTempRecords","body":{"valor":37}}`)
	if len(store.insertedRecords()) != 1 || store.insertedRecords()[0].Metric != domain.MetricTemperature {
		t.Fatalf("unexpected inserted records %v", store.insertedRecords())
	}
}
