// Package app wires the agent together: storage, migrations, spool,
// sensors, MQTT, the HTTP surface and the collector loop.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/purplexionist/gardenmon/internal/collector"
	"github.com/purplexionist/gardenmon/internal/config"
	"github.com/purplexionist/gardenmon/internal/httpapi"
	"github.com/purplexionist/gardenmon/internal/mqtt"
	"github.com/purplexionist/gardenmon/internal/spool"
	"github.com/purplexionist/gardenmon/internal/storage"
	"github.com/purplexionist/gardenmon/internal/storage/migrate"
)

func Run(ctx context.Context, cfg config.Config) error {
	slog.Info("config loaded",
		"appEnv", cfg.AppEnv,
		"logLevel", cfg.LogLevel.String(),
		"collectInterval", cfg.CollectInterval,
		"station", cfg.StationID,
		"dbHost", cfg.DBHost,
		"dbPort", cfg.DBPort,
		"dbName", cfg.DBName,
		"httpAddr", cfg.HTTPAddr,
		"mqttBroker", cfg.MQTTBroker,
		"mqttPort", cfg.MQTTPort,
		"i2cBus", cfg.I2CBus,
		"spoolPath", cfg.SpoolPath,
	)

	dbConn, err := storage.Open(ctx, cfg, slog.Default())
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := storage.Close(dbConn); closeErr != nil {
			slog.Error("db close", "error", closeErr)
		}
	}()

	if err := migrate.Run(ctx, dbConn); err != nil {
		return err
	}
	slog.Info("database connection successful")

	queue, err := spool.Open(cfg.SpoolPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := queue.Close(); closeErr != nil {
			slog.Error("spool close", "error", closeErr)
		}
	}()

	sensorList, bus := buildSensors(cfg)
	if bus != nil {
		defer func() {
			if closeErr := bus.Close(); closeErr != nil {
				slog.Error("i2c bus close", "error", closeErr)
			}
		}()
	}
	if len(sensorList) == 0 {
		return errors.New("no sensors could be initialized")
	}

	// Publisher is optional equipment; a broker outage must never stop
	// collection.
	var pub collector.Publisher
	var mqttClient *mqtt.Client
	if cfg.MQTTBroker != "" {
		mqttClient, err = mqtt.NewClient(cfg, slog.Default())
		if err != nil {
			return fmt.Errorf("mqtt client: %w", err)
		}
		// Short timeout on the initial connect so startup is not blocked
		// when the broker is down; paho keeps retrying in the background.
		connectCtx, connectCancel := context.WithTimeout(ctx, 5*time.Second)
		err = mqttClient.Connect(connectCtx)
		connectCancel()
		if err != nil {
			slog.Warn("mqtt connection failed (continuing without mqtt)", "error", err)
		}
		pub = mqttClient
	}

	repo := storage.NewRepository(dbConn)
	col := collector.New(cfg.CollectInterval, sensorList, repo, queue, pub,
		slog.Default().With("component", "collector"))

	mux := httpapi.NewMux(dbConn, repo, col)
	srv := httpapi.NewServer(cfg, mux)

	httpErrCh := make(chan error, 1)
	go func() {
		slog.Info("http listening", "addr", cfg.HTTPAddr)
		httpErrCh <- srv.ListenAndServe()
	}()

	colCtx, colCancel := context.WithCancel(ctx)
	defer colCancel()
	colDone := make(chan struct{})
	go func() {
		defer close(colDone)
		if err := col.Run(colCtx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("collector stopped unexpectedly", "error", err)
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-httpErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	colCancel()
	select {
	case <-colDone:
	case <-shutdownCtx.Done():
		slog.Warn("collector did not stop in time")
	}

	if mqttClient != nil {
		slog.Info("mqtt disconnecting")
		mqttClient.Disconnect()
	}

	slog.Info("http shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	err = <-httpErrCh
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return ctx.Err()
}
