package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/purplexionist/gardenmon/internal/storage"
)

type readingsControllerImpl struct {
	repo storage.Repository
}

func (c *readingsControllerImpl) handleLatest(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLatestQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	latest, err := c.repo.LatestReadings(r.Context(), limit)
	if err != nil {
		slog.Error("latest readings query failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load readings")
		return
	}
	writeJSON(w, http.StatusOK, latest)
}

func (c *readingsControllerImpl) handleReadings(w http.ResponseWriter, r *http.Request) {
	from, to, limit, err := parseReadingsQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	readings, err := c.repo.ReadingsRange(r.Context(), from, to, limit)
	if err != nil {
		slog.Error("readings range query failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load readings")
		return
	}
	writeJSON(w, http.StatusOK, readings)
}

func registerReadings(mux *http.ServeMux, repo storage.Repository) {
	c := &readingsControllerImpl{repo: repo}
	mux.HandleFunc("GET /api/readings/latest", c.handleLatest)
	mux.HandleFunc("GET /api/readings", c.handleReadings)
}
