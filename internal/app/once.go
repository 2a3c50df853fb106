package app

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/purplexionist/gardenmon/internal/collector"
	"github.com/purplexionist/gardenmon/internal/config"
)

// RunOnce performs a single collection cycle and prints the reading as JSON
// on stdout. No database, spool or broker is touched; this is the cron and
// bench-debug mode.
func RunOnce(ctx context.Context, cfg config.Config) error {
	sensorList, bus := buildSensors(cfg)
	if bus != nil {
		defer func() {
			if closeErr := bus.Close(); closeErr != nil {
				slog.Error("i2c bus close", "error", closeErr)
			}
		}()
	}

	col := collector.New(cfg.CollectInterval, sensorList, nil, nil, nil, slog.Default())

	cycleCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	reading := col.Collect(cycleCtx)
	if reading.Empty() {
		return errors.New("no sensor produced a value")
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(reading)
}
