// Package history is the clipboard history store: an ordered in-memory list
// backed by SQLite. The in-memory list is the truth for the running session;
// the database only has to survive restarts.
package history

import (
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/clipmaster/internal/metrics"
)

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS clips (
	id          TEXT PRIMARY KEY,
	kind        TEXT NOT NULL,
	fingerprint TEXT NOT NULL UNIQUE,
	encoding    TEXT NOT NULL DEFAULT '',
	payload     BLOB NOT NULL,
	captured_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_clips_captured_at ON clips(captured_at DESC);
`

// DefaultLimit is the retention limit used when none is configured.
const DefaultLimit = 20

// Option configures a Store.
type Option func(*Store)

// WithLimit sets the retention limit. Non-positive values are ignored.
func WithLimit(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.limit = n
		}
	}
}

// WithLogger sets the logger used for persistence failures.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m metrics.Recorder) Option {
	return func(s *Store) { s.metrics = m }
}

// Open opens (or creates) the SQLite database, applies the schema and loads
// the persisted history into memory.
func Open(dsn string, opts ...Option) (*Store, error) {
	codec, err := newCodec()
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	s := &Store{
		codec:    codec,
		limit:    DefaultLimit,
		logger:   slog.Default(),
		metrics:  metrics.Noop(),
		byFP:     make(map[string]string),
		unsynced: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("history: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("history: ping: %w", err)
	}
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("history: apply core schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("history: apply fts schema: %w", err)
	}
	s.conn = conn

	if err := s.load(); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}
