package ports

import (
	"context"
	"time"

	"github.com/Poltergeis/api-local-websockets/internal/domain"
)

// RecordStore is the persistence gateway for sensor records.
type RecordStore interface {
	// Insert persists a new record and returns it with the
	// store-assigned ID.
	Insert(ctx context.Context, metric domain.Metric, value float64, ts time.Time) (*domain.SensorRecord, error)

	// Latest returns the most recently timestamped record for the
	// metric, or nil when the metric has no records.
	Latest(ctx context.Context, metric domain.Metric) (*domain.SensorRecord, error)

	// QueryRange returns every record of the metric with
	// start <= recorded_at < end, in ascending timestamp order.
	QueryRange(ctx context.Context, metric domain.Metric, start, end time.Time) ([]domain.SensorRecord, error)
}
