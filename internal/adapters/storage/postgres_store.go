package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Poltergeis/api-local-websockets/internal/domain"
	"github.com/Poltergeis/api-local-websockets/internal/ports"
)

// PostgresStore persists sensor records in a single table with a
// metric discriminator column.
type PostgresStore struct {
	db        *sql.DB
	tableName string
}

func NewPostgresStore(db *sql.DB, table string) *PostgresStore {
	if table == "" {
		table = "sensor_records"
	}
	return &PostgresStore{db: db, tableName: table}
}

// EnsureSchema creates the records table and its query index when they
// do not exist yet.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id BIGSERIAL PRIMARY KEY,
		metric TEXT NOT NULL,
		value DOUBLE PRECISION NOT NULL,
		recorded_at TIMESTAMPTZ NOT NULL
	)`, s.tableName)
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	idx := fmt.Sprintf(
		"CREATE INDEX IF NOT EXISTS %s_metric_recorded_at_idx ON %s (metric, recorded_at)",
		s.tableName, s.tableName,
	)
	if _, err := s.db.ExecContext(ctx, idx); err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	return nil
}

func (s *PostgresStore) Insert(ctx context.Context, metric domain.Metric, value float64, ts time.Time) (*domain.SensorRecord, error) {
	query := fmt.Sprintf(
		"INSERT INTO %s (metric, value, recorded_at) VALUES ($1,$2,$3) RETURNING id",
		s.tableName,
	)

	var id int64
	if err := s.db.QueryRowContext(ctx, query, string(metric), value, ts).Scan(&id); err != nil {
		return nil, fmt.Errorf("insert record: %w", err)
	}

	return &domain.SensorRecord{
		ID:         id,
		Metric:     metric,
		Value:      value,
		RecordedAt: ts,
	}, nil
}

func (s *PostgresStore) Latest(ctx context.Context, metric domain.Metric) (*domain.SensorRecord, error) {
	query := fmt.Sprintf(
		"SELECT id, value, recorded_at FROM %s WHERE metric = $1 ORDER BY recorded_at DESC LIMIT 1",
		s.tableName,
	)

	rec := domain.SensorRecord{Metric: metric}
	err := s.db.QueryRowContext(ctx, query, string(metric)).Scan(&rec.ID, &rec.Value, &rec.RecordedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest record: %w", err)
	}
	return &rec, nil
}

func (s *PostgresStore) QueryRange(ctx context.Context, metric domain.Metric, start, end time.Time) ([]domain.SensorRecord, error) {
	query := fmt.Sprintf(
		"SELECT id, value, recorded_at FROM %s WHERE metric = $1 AND recorded_at >= $2 AND recorded_at < $3 ORDER BY recorded_at ASC",
		s.tableName,
	)

	rows, err := s.db.QueryContext(ctx, query, string(metric), start, end)
	if err != nil {
		return nil, fmt.Errorf("query range: %w", err)
	}
	defer rows.Close()

	var out []domain.SensorRecord
	for rows.Next() {
		rec := domain.SensorRecord{Metric: metric}
		if err := rows.Scan(&rec.ID, &rec.Value, &rec.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return out, nil
}

var _ ports.RecordStore = (*PostgresStore)(nil)
