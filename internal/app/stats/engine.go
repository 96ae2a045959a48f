package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/Poltergeis/api-local-websockets/internal/domain"
	"github.com/Poltergeis/api-local-websockets/internal/ports"
)

// Engine computes current-versus-previous period summaries. The window
// pair is anchored on the most recent stored record of the metric, so a
// feed that went quiet yesterday still reports on its own last active
// day rather than an empty today.
type Engine struct {
	store ports.RecordStore
	obs   ports.Observability
}

func NewEngine(store ports.RecordStore, obs ports.Observability) *Engine {
	return &Engine{store: store, obs: obs}
}

// Search resolves the current and previous windows for the metric and
// returns the mean value inside each. A window with no records yields
// mean 0; only a metric with no records at all is a failure.
func (e *Engine) Search(ctx context.Context, metric domain.Metric, g domain.Granularity) domain.AggregationResult {
	started := time.Now()
	defer func() {
		e.obs.ObserveLatency(ports.MetricRequestLatency, time.Since(started).Seconds())
	}()

	latest, err := e.store.Latest(ctx, metric)
	if err != nil {
		e.obs.LogError("stats latest lookup failed", err,
			ports.Field{Key: "metric", Value: string(metric)})
		return domain.AggregationResult{Success: false, Message: "internal error"}
	}
	if latest == nil {
		return domain.AggregationResult{Success: false, Message: "no data found"}
	}

	current, err := CurrentWindow(latest.RecordedAt, g)
	if err != nil {
		return domain.AggregationResult{Success: false, Message: err.Error()}
	}
	previous, err := PreviousWindow(current, g)
	if err != nil {
		return domain.AggregationResult{Success: false, Message: err.Error()}
	}

	currentMean, err := e.windowMean(ctx, metric, current)
	if err != nil {
		e.obs.LogError("stats window query failed", err,
			ports.Field{Key: "metric", Value: string(metric)},
			ports.Field{Key: "window", Value: current.Label})
		return domain.AggregationResult{Success: false, Message: "internal error"}
	}
	previousMean, err := e.windowMean(ctx, metric, previous)
	if err != nil {
		e.obs.LogError("stats window query failed", err,
			ports.Field{Key: "metric", Value: string(metric)},
			ports.Field{Key: "window", Value: previous.Label})
		return domain.AggregationResult{Success: false, Message: "internal error"}
	}

	return domain.AggregationResult{
		Success:       true,
		CurrentLabel:  current.Label,
		PreviousLabel: previous.Label,
		CurrentMean:   currentMean,
		PreviousMean:  previousMean,
	}
}

func (e *Engine) windowMean(ctx context.Context, metric domain.Metric, w domain.PeriodWindow) (float64, error) {
	records, err := e.store.QueryRange(ctx, metric, w.Start, w.End)
	if err != nil {
		return 0, fmt.Errorf("query %s window %s: %w", metric, w.Label, err)
	}
	return mean(records), nil
}

func mean(records []domain.SensorRecord) float64 {
	if len(records) == 0 {
		return 0
	}
	var sum float64
	for _, r := range records {
		sum += r.Value
	}
	return sum / float64(len(records))
}
