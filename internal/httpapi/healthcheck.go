package httpapi

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/purplexionist/gardenmon/internal/collector"
)

type healthcheckerImpl struct {
	db  *sql.DB
	col statusSource
}

type healthResponse struct {
	Status    string           `json:"status"`
	Collector collector.Status `json:"collector"`
}

func (h *healthcheckerImpl) handleHealthz(w http.ResponseWriter, r *http.Request) {
	var ok int
	if err := h.db.QueryRowContext(r.Context(), `SELECT 1`).Scan(&ok); err != nil {
		slog.Error("failed to check database connectivity", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to check database connectivity")
		return
	}

	resp := healthResponse{Status: "ok"}
	if h.col != nil {
		resp.Collector = h.col.Status()
	}
	writeJSON(w, http.StatusOK, resp)
}

func registerHealthcheck(mux *http.ServeMux, db *sql.DB, col statusSource) {
	h := &healthcheckerImpl{db: db, col: col}
	mux.HandleFunc("GET /healthz", h.handleHealthz)
}
