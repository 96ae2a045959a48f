package storage

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/Poltergeis/api-local-websockets/internal/domain"
)

func TestPostgresStoreInsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	store := NewPostgresStore(db, "sensor_records")
	ts := time.Date(2024, 2, 3, 10, 30, 0, 0, time.UTC)

	expectedQuery := regexp.QuoteMeta(
		"INSERT INTO sensor_records (metric, value, recorded_at) VALUES ($1,$2,$3) RETURNING id")
	mock.ExpectQuery(expectedQuery).
		WithArgs("bpm", 72.0, ts).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

	rec, err := store.Insert(context.Background(), domain.MetricHeartRate, 72.0, ts)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if rec.ID != 7 || rec.Metric != domain.MetricHeartRate || rec.Value != 72.0 {
		t.Fatalf("unexpected record: %+v", rec)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresStoreLatestNoRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	store := NewPostgresStore(db, "sensor_records")

	expectedQuery := regexp.QuoteMeta(
		"SELECT id, value, recorded_at FROM sensor_records WHERE metric = $1 ORDER BY recorded_at DESC LIMIT 1")
	mock.ExpectQuery(expectedQuery).
		WithArgs("temperatura").
		WillReturnRows(sqlmock.NewRows([]string{"id", "value", "recorded_at"}))

	rec, err := store.Latest(context.Background(), domain.MetricTemperature)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if rec != nil {
		t.Fatalf("expected nil record for empty metric, got %+v", rec)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresStoreQueryRange(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	store := NewPostgresStore(db, "sensor_records")
	start := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	expectedQuery := regexp.QuoteMeta(
		"SELECT id, value, recorded_at FROM sensor_records WHERE metric = $1 AND recorded_at >= $2 AND recorded_at < $3 ORDER BY recorded_at ASC")
	mock.ExpectQuery(expectedQuery).
		WithArgs("bpm", start, end).
		WillReturnRows(sqlmock.NewRows([]string{"id", "value", "recorded_at"}).
			AddRow(int64(1), 60.0, start.Add(24*time.Hour)).
			AddRow(int64(2), 80.0, start.Add(48*time.Hour)))

	recs, err := store.QueryRange(context.Background(), domain.MetricHeartRate, start, end)
	if err != nil {
		t.Fatalf("query range: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	if recs[0].Value != 60.0 || recs[1].Value != 80.0 {
		t.Fatalf("unexpected values: %+v", recs)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
