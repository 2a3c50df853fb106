// Package spool buffers readings on local disk while the database is
// unreachable. Entries drain oldest-first once inserts succeed again, so a
// MariaDB outage costs nothing but latency.
package spool

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/purplexionist/gardenmon/internal/telemetry"
)

const schema = `
CREATE TABLE IF NOT EXISTS spool (
  id        INTEGER PRIMARY KEY AUTOINCREMENT,
  payload   TEXT NOT NULL,
  queued_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
);
`

// Entry is one buffered reading with its queue position.
type Entry struct {
	ID      int64
	Reading telemetry.Reading
}

type Queue struct {
	db *sql.DB
}

// Open creates or reopens the spool database at path.
func Open(path string) (*Queue, error) {
	db, err := sql.Open("sqlite3", buildDSN(path))
	if err != nil {
		return nil, fmt.Errorf("spool open: %w", err)
	}
	// A single connection avoids lock contention on the file.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("spool schema: %w", err)
	}
	return &Queue{db: db}, nil
}

func buildDSN(path string) string {
	// Ensure directory exists for a file-backed spool.
	if dir := filepath.Dir(path); dir != "." {
		_ = os.MkdirAll(dir, 0o755)
	}

	params := []string{
		"_busy_timeout=5000",
		"_journal_mode=WAL",
	}

	if strings.HasPrefix(path, "file:") {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		return path + sep + strings.Join(params, "&")
	}

	return fmt.Sprintf("file:%s?%s", path, strings.Join(params, "&"))
}

func (q *Queue) Close() error {
	if q == nil || q.db == nil {
		return nil
	}
	return q.db.Close()
}

// Enqueue appends a reading to the back of the queue.
func (q *Queue) Enqueue(ctx context.Context, r telemetry.Reading) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("spool encode: %w", err)
	}
	if _, err := q.db.ExecContext(ctx, `INSERT INTO spool (payload) VALUES (?)`, string(payload)); err != nil {
		return fmt.Errorf("spool enqueue: %w", err)
	}
	return nil
}

// Peek returns up to limit entries from the front of the queue without
// removing them. Entries that no longer decode are dropped on the spot so
// they cannot wedge the queue.
func (q *Queue) Peek(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT id, payload FROM spool ORDER BY id ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("spool peek: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close spool rows", "error", err)
		}
	}()

	var out []Entry
	var bad []int64
	for rows.Next() {
		var e Entry
		var payload string
		if err := rows.Scan(&e.ID, &payload); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(payload), &e.Reading); err != nil {
			slog.Warn("spool: dropping undecodable entry", "id", e.ID, "error", err)
			bad = append(bad, e.ID)
			continue
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(bad) > 0 {
		if err := q.Remove(ctx, bad); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Remove deletes drained entries by ID.
func (q *Queue) Remove(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	if _, err := q.db.ExecContext(ctx, `DELETE FROM spool WHERE id IN (`+placeholders+`)`, args...); err != nil {
		return fmt.Errorf("spool remove: %w", err)
	}
	return nil
}

// Len reports how many readings are waiting.
func (q *Queue) Len(ctx context.Context) (int, error) {
	var n int
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM spool`).Scan(&n)
	return n, err
}
