package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/purplexionist/gardenmon/internal/telemetry"
)

//go:embed sql/insert-reading.sql
var insertReadingSQL string

//go:embed sql/latest-readings.sql
var latestReadingsSQL string

//go:embed sql/readings-range.sql
var readingsRangeSQL string

// ErrInvalidReading marks readings rejected before touching the database.
// Inserts failing with it are not retryable and must not be spooled.
var ErrInvalidReading = errors.New("invalid reading")

type Repository interface {
	InsertReading(ctx context.Context, r telemetry.Reading) error
	LatestReadings(ctx context.Context, limit int) ([]telemetry.Reading, error)
	ReadingsRange(ctx context.Context, from, to time.Time, limit int) ([]telemetry.Reading, error)
}

type repositoryImpl struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repositoryImpl{db: db}
}

// InsertReading appends one environmental_data row. insert_time is assigned
// by the database, nil fields store as NULL.
func (r *repositoryImpl) InsertReading(ctx context.Context, rec telemetry.Reading) error {
	if rec.Empty() {
		return fmt.Errorf("%w: no sensor values", ErrInvalidReading)
	}
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidReading, err)
	}

	_, err := r.db.ExecContext(ctx, insertReadingSQL,
		rec.CPUTempF,
		rec.AmbientLightLux,
		rec.SoilMoistureVal,
		rec.SoilMoistureLevel,
		rec.SoilTempF,
		rec.AmbientTempF,
		rec.AmbientHumidity,
	)
	if err != nil {
		return fmt.Errorf("insert reading: %w", err)
	}
	return nil
}

// LatestReadings returns up to limit rows, newest first.
func (r *repositoryImpl) LatestReadings(ctx context.Context, limit int) ([]telemetry.Reading, error) {
	rows, err := r.db.QueryContext(ctx, latestReadingsSQL, limit)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close latest readings rows", "error", err)
		}
	}()
	return scanReadings(rows)
}

// ReadingsRange returns up to limit rows with from <= insert_time <= to, in
// chronological order.
func (r *repositoryImpl) ReadingsRange(ctx context.Context, from, to time.Time, limit int) ([]telemetry.Reading, error) {
	rows, err := r.db.QueryContext(ctx, readingsRangeSQL, from.UTC(), to.UTC(), limit)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close readings range rows", "error", err)
		}
	}()
	return scanReadings(rows)
}

func scanReadings(rows *sql.Rows) ([]telemetry.Reading, error) {
	var out []telemetry.Reading
	for rows.Next() {
		var rec telemetry.Reading
		if err := rows.Scan(
			&rec.CPUTempF,
			&rec.AmbientLightLux,
			&rec.SoilMoistureVal,
			&rec.SoilMoistureLevel,
			&rec.SoilTempF,
			&rec.AmbientTempF,
			&rec.AmbientHumidity,
			&rec.InsertTime,
		); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
