package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/purplexionist/gardenmon/internal/app"
	"github.com/purplexionist/gardenmon/internal/config"
	"github.com/purplexionist/gardenmon/internal/logging"
)

const appName = "gardenmon"

// Default version is "dev" if not set with -ldflags "-X main.version=..."
var version = "dev"

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <db-password>\n\n", appName)
	fmt.Fprintln(flag.CommandLine.Output(), "The database credential may also be supplied via DB_PASSWORD.")
	flag.PrintDefaults()
}

func main() {
	once := flag.Bool("once", false, "run one collection cycle, print the reading as JSON and exit")
	flag.Usage = usage
	flag.Parse()

	// Optional .env for development; a missing file is not an error.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	switch flag.NArg() {
	case 0:
	case 1:
		cfg.DBPassword = flag.Arg(0)
	default:
		usage()
		os.Exit(2)
	}
	if cfg.DBPassword == "" && !*once {
		fmt.Fprintln(os.Stderr, "missing database credential (positional argument or DB_PASSWORD)")
		usage()
		os.Exit(2)
	}

	logger := logging.New(cfg, version, appName)
	slog.SetDefault(logger)

	slog.Info("starting",
		"app", appName,
		"version", version,
		"env", cfg.AppEnv,
		"log_level", cfg.LogLevel.String(),
		"station", cfg.StationID,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *once {
		if err := app.RunOnce(ctx, cfg); err != nil {
			slog.Error("collection failed", "err", err)
			os.Exit(1)
		}
		return
	}

	if err := app.Run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run failed", "err", err)
		os.Exit(1)
	}

	slog.Info("shutting down")
}
