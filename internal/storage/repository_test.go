package storage

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/purplexionist/gardenmon/internal/telemetry"
)

// Minimal schema matching migrate/sql/0001 and 0002 for in-memory tests.
const testSchema = `
CREATE TABLE IF NOT EXISTS environmental_data (
  cpu_temp_f          FLOAT,
  ambient_light_lx    FLOAT,
  soil_moisture_val   INT,
  soil_moisture_level INT,
  soil_temp_f         FLOAT,
  ambient_temp_f      FLOAT,
  ambient_humidity    FLOAT,
  insert_time         TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_environmental_data_insert_time ON environmental_data (insert_time);
`

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if _, err := db.Exec(testSchema); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			t.Fatalf("close db: %v", closeErr)
		}
		t.Fatalf("exec schema: %v", err)
	}
	return db
}

func fptr(v float64) *float64 { return &v }
func iptr(v int) *int         { return &v }

func insertAt(t *testing.T, db *sql.DB, insertTime string, cpuTempF float64) {
	t.Helper()
	_, err := db.Exec(`
		INSERT INTO environmental_data (cpu_temp_f, insert_time) VALUES (?, ?)
	`, cpuTempF, insertTime)
	if err != nil {
		t.Fatalf("insert row at %s: %v", insertTime, err)
	}
}

func TestInsertReading_AllFields(t *testing.T) {
	db := setupTestDB(t)
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			t.Fatalf("close db: %v", closeErr)
		}
	}()
	repo := NewRepository(db)

	rec := telemetry.Reading{
		CPUTempF:          fptr(110.5),
		AmbientLightLux:   fptr(320.0),
		SoilMoistureVal:   iptr(18000),
		SoilMoistureLevel: iptr(6),
		SoilTempF:         fptr(65.1),
		AmbientTempF:      fptr(71.2),
		AmbientHumidity:   fptr(55.0),
		CollectedAt:       time.Now().UTC(),
	}
	if err := repo.InsertReading(context.Background(), rec); err != nil {
		t.Fatalf("InsertReading: %v", err)
	}

	readings, err := repo.LatestReadings(context.Background(), 1)
	if err != nil {
		t.Fatalf("LatestReadings: %v", err)
	}
	if len(readings) != 1 {
		t.Fatalf("LatestReadings: got %d readings, want 1", len(readings))
	}
	got := readings[0]
	if got.CPUTempF == nil || *got.CPUTempF != 110.5 {
		t.Errorf("CPUTempF = %v, want 110.5", got.CPUTempF)
	}
	if got.AmbientLightLux == nil || *got.AmbientLightLux != 320.0 {
		t.Errorf("AmbientLightLux = %v, want 320", got.AmbientLightLux)
	}
	if got.SoilMoistureVal == nil || *got.SoilMoistureVal != 18000 {
		t.Errorf("SoilMoistureVal = %v, want 18000", got.SoilMoistureVal)
	}
	if got.SoilMoistureLevel == nil || *got.SoilMoistureLevel != 6 {
		t.Errorf("SoilMoistureLevel = %v, want 6", got.SoilMoistureLevel)
	}
	if got.SoilTempF == nil || *got.SoilTempF != 65.1 {
		t.Errorf("SoilTempF = %v, want 65.1", got.SoilTempF)
	}
	if got.AmbientTempF == nil || *got.AmbientTempF != 71.2 {
		t.Errorf("AmbientTempF = %v, want 71.2", got.AmbientTempF)
	}
	if got.AmbientHumidity == nil || *got.AmbientHumidity != 55.0 {
		t.Errorf("AmbientHumidity = %v, want 55", got.AmbientHumidity)
	}
	if got.InsertTime.IsZero() {
		t.Error("InsertTime is zero, want server-assigned timestamp")
	}
}

func TestInsertReading_PartialFieldsStoreNull(t *testing.T) {
	db := setupTestDB(t)
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			t.Fatalf("close db: %v", closeErr)
		}
	}()
	repo := NewRepository(db)

	rec := telemetry.Reading{
		CPUTempF:    fptr(102.3),
		CollectedAt: time.Now().UTC(),
	}
	if err := repo.InsertReading(context.Background(), rec); err != nil {
		t.Fatalf("InsertReading: %v", err)
	}

	readings, err := repo.LatestReadings(context.Background(), 1)
	if err != nil {
		t.Fatalf("LatestReadings: %v", err)
	}
	if len(readings) != 1 {
		t.Fatalf("LatestReadings: got %d readings, want 1", len(readings))
	}
	got := readings[0]
	if got.CPUTempF == nil || *got.CPUTempF != 102.3 {
		t.Errorf("CPUTempF = %v, want 102.3", got.CPUTempF)
	}
	if got.AmbientLightLux != nil || got.SoilMoistureVal != nil || got.SoilMoistureLevel != nil ||
		got.SoilTempF != nil || got.AmbientTempF != nil || got.AmbientHumidity != nil {
		t.Errorf("unread sensors not NULL: %+v", got)
	}
}

func TestInsertReading_RejectsEmpty(t *testing.T) {
	db := setupTestDB(t)
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			t.Fatalf("close db: %v", closeErr)
		}
	}()
	repo := NewRepository(db)

	err := repo.InsertReading(context.Background(), telemetry.Reading{CollectedAt: time.Now()})
	if !errors.Is(err, ErrInvalidReading) {
		t.Fatalf("error = %v, want ErrInvalidReading", err)
	}

	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM environmental_data`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Errorf("row count = %d, want 0", n)
	}
}

func TestInsertReading_RejectsOutOfRange(t *testing.T) {
	db := setupTestDB(t)
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			t.Fatalf("close db: %v", closeErr)
		}
	}()
	repo := NewRepository(db)

	t.Run("humidity_above_100", func(t *testing.T) {
		rec := telemetry.Reading{AmbientHumidity: fptr(101.0)}
		err := repo.InsertReading(context.Background(), rec)
		if !errors.Is(err, ErrInvalidReading) {
			t.Fatalf("error = %v, want ErrInvalidReading", err)
		}
		if !strings.Contains(err.Error(), "ambient_humidity") {
			t.Errorf("error message: got %q", err.Error())
		}
	})

	t.Run("level_out_of_scale", func(t *testing.T) {
		rec := telemetry.Reading{SoilMoistureVal: iptr(9000), SoilMoistureLevel: iptr(11)}
		err := repo.InsertReading(context.Background(), rec)
		if !errors.Is(err, ErrInvalidReading) {
			t.Fatalf("error = %v, want ErrInvalidReading", err)
		}
		if !strings.Contains(err.Error(), "soil_moisture_level") {
			t.Errorf("error message: got %q", err.Error())
		}
	})
}

func TestLatestReadings_OrderAndLimit(t *testing.T) {
	db := setupTestDB(t)
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			t.Fatalf("close db: %v", closeErr)
		}
	}()
	insertAt(t, db, "2025-02-01 10:00:00", 100.0)
	insertAt(t, db, "2025-02-01 11:00:00", 101.0)
	insertAt(t, db, "2025-02-01 12:00:00", 102.0)
	repo := NewRepository(db)

	readings, err := repo.LatestReadings(context.Background(), 2)
	if err != nil {
		t.Fatalf("LatestReadings: %v", err)
	}
	if len(readings) != 2 {
		t.Fatalf("LatestReadings(2): got %d readings, want 2", len(readings))
	}
	// Newest first: 12:00, 11:00.
	if *readings[0].CPUTempF != 102.0 || *readings[1].CPUTempF != 101.0 {
		t.Errorf("order: got [%v, %v], want [102, 101]", *readings[0].CPUTempF, *readings[1].CPUTempF)
	}
}

func TestLatestReadings_Empty(t *testing.T) {
	db := setupTestDB(t)
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			t.Fatalf("close db: %v", closeErr)
		}
	}()
	repo := NewRepository(db)

	readings, err := repo.LatestReadings(context.Background(), 10)
	if err != nil {
		t.Fatalf("LatestReadings: %v", err)
	}
	if len(readings) != 0 {
		t.Fatalf("LatestReadings: got %d readings, want 0", len(readings))
	}
}

func TestReadingsRange_FiltersAndOrders(t *testing.T) {
	db := setupTestDB(t)
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			t.Fatalf("close db: %v", closeErr)
		}
	}()
	insertAt(t, db, "2025-02-01 10:00:00", 100.0)
	insertAt(t, db, "2025-02-01 11:00:00", 101.0)
	insertAt(t, db, "2025-02-01 12:00:00", 102.0)
	insertAt(t, db, "2025-02-01 13:00:00", 103.0)
	insertAt(t, db, "2025-02-01 14:00:00", 104.0)
	repo := NewRepository(db)

	from := time.Date(2025, 2, 1, 10, 30, 0, 0, time.UTC)
	to := time.Date(2025, 2, 1, 13, 30, 0, 0, time.UTC)
	readings, err := repo.ReadingsRange(context.Background(), from, to, 100)
	if err != nil {
		t.Fatalf("ReadingsRange: %v", err)
	}
	// 11:00, 12:00, 13:00 in range, chronological order.
	if len(readings) != 3 {
		t.Fatalf("ReadingsRange: got %d readings, want 3", len(readings))
	}
	if *readings[0].CPUTempF != 101.0 || *readings[1].CPUTempF != 102.0 || *readings[2].CPUTempF != 103.0 {
		t.Errorf("order: got [%v, %v, %v], want [101, 102, 103]",
			*readings[0].CPUTempF, *readings[1].CPUTempF, *readings[2].CPUTempF)
	}
}

func TestReadingsRange_RespectsLimit(t *testing.T) {
	db := setupTestDB(t)
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			t.Fatalf("close db: %v", closeErr)
		}
	}()
	insertAt(t, db, "2025-02-01 10:00:00", 100.0)
	insertAt(t, db, "2025-02-01 11:00:00", 101.0)
	insertAt(t, db, "2025-02-01 12:00:00", 102.0)
	repo := NewRepository(db)

	from := time.Date(2025, 2, 1, 9, 30, 0, 0, time.UTC)
	to := time.Date(2025, 2, 1, 12, 30, 0, 0, time.UTC)
	readings, err := repo.ReadingsRange(context.Background(), from, to, 2)
	if err != nil {
		t.Fatalf("ReadingsRange: %v", err)
	}
	if len(readings) != 2 {
		t.Fatalf("ReadingsRange(limit=2): got %d readings, want 2", len(readings))
	}
	// Chronological: earliest two.
	if *readings[0].CPUTempF != 100.0 || *readings[1].CPUTempF != 101.0 {
		t.Errorf("limit: got [%v, %v], want [100, 101]", *readings[0].CPUTempF, *readings[1].CPUTempF)
	}
}

func TestInsertTime_NonDecreasing(t *testing.T) {
	db := setupTestDB(t)
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			t.Fatalf("close db: %v", closeErr)
		}
	}()
	repo := NewRepository(db)

	for i := 0; i < 3; i++ {
		rec := telemetry.Reading{CPUTempF: fptr(100.0 + float64(i))}
		if err := repo.InsertReading(context.Background(), rec); err != nil {
			t.Fatalf("InsertReading %d: %v", i, err)
		}
	}

	readings, err := repo.LatestReadings(context.Background(), 3)
	if err != nil {
		t.Fatalf("LatestReadings: %v", err)
	}
	if len(readings) != 3 {
		t.Fatalf("LatestReadings: got %d readings, want 3", len(readings))
	}
	// Newest first, so each entry must not be older than the next.
	for i := 0; i < len(readings)-1; i++ {
		if readings[i].InsertTime.Before(readings[i+1].InsertTime) {
			t.Errorf("insert_time order violated: [%d]=%v before [%d]=%v",
				i, readings[i].InsertTime, i+1, readings[i+1].InsertTime)
		}
	}
}

// Ensure repo implements the interface.
var _ Repository = (*repositoryImpl)(nil)
