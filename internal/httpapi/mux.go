// Package httpapi is the agent's observation surface: a health endpoint and
// read-only access to recent environmental_data rows. It never writes.
package httpapi

import (
	"database/sql"
	"net/http"

	"github.com/purplexionist/gardenmon/internal/collector"
	"github.com/purplexionist/gardenmon/internal/config"
	"github.com/purplexionist/gardenmon/internal/storage"
)

// statusSource is the slice of the collector the health endpoint needs.
type statusSource interface {
	Status() collector.Status
}

func NewMux(db *sql.DB, repo storage.Repository, col statusSource) *http.ServeMux {
	mux := http.NewServeMux()
	registerHealthcheck(mux, db, col)
	registerReadings(mux, repo)
	return mux
}

func NewServer(cfg config.Config, mux *http.ServeMux) *http.Server {
	return &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: requestLogger(mux),
	}
}
