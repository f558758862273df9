// Package catalog provides SQLite-backed storage for canonical beats and
// measures, ingested songs and their track statistics.
package catalog

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS canon (
	id       TEXT PRIMARY KEY,
	kind     TEXT NOT NULL,
	key_hash TEXT NOT NULL,
	key      TEXT NOT NULL,
	UNIQUE(kind, key_hash)
);

CREATE TABLE IF NOT EXISTS songs (
	id         TEXT PRIMARY KEY,
	hash       TEXT NOT NULL UNIQUE,
	title      TEXT NOT NULL DEFAULT '',
	artist     TEXT NOT NULL DEFAULT '',
	album      TEXT NOT NULL DEFAULT '',
	year       TEXT NOT NULL DEFAULT '',
	tempo      INTEGER NOT NULL DEFAULT 0,
	filename   TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS tracks (
	id             TEXT PRIMARY KEY,
	song_id        TEXT NOT NULL REFERENCES songs(id) ON DELETE CASCADE,
	position       INTEGER NOT NULL,
	name           TEXT NOT NULL DEFAULT '',
	instrument     TEXT NOT NULL DEFAULT '',
	tuning         TEXT NOT NULL,
	measure_count  INTEGER NOT NULL,
	total_duration TEXT NOT NULL,
	rest_duration  TEXT NOT NULL,
	skipped        TEXT NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS track_measures (
	track_id    TEXT NOT NULL REFERENCES tracks(id) ON DELETE CASCADE,
	measure_id  TEXT NOT NULL REFERENCES canon(id),
	indexes     TEXT NOT NULL,
	match       TEXT NOT NULL,
	match_value REAL NOT NULL,
	PRIMARY KEY(track_id, measure_id)
);

CREATE TABLE IF NOT EXISTS track_pitches (
	track_id    TEXT NOT NULL REFERENCES tracks(id) ON DELETE CASCADE,
	pitch       INTEGER NOT NULL,
	duration    TEXT NOT NULL,
	match       TEXT NOT NULL,
	match_value REAL NOT NULL,
	PRIMARY KEY(track_id, pitch)
);

CREATE TABLE IF NOT EXISTS track_keys (
	track_id TEXT NOT NULL REFERENCES tracks(id) ON DELETE CASCADE,
	key      TEXT NOT NULL,
	PRIMARY KEY(track_id, key)
);

CREATE INDEX IF NOT EXISTS idx_tracks_song ON tracks(song_id);
CREATE INDEX IF NOT EXISTS idx_track_measures_measure ON track_measures(measure_id);
`

// DB wraps a sql.DB with catalog operations.
type DB struct {
	conn *sql.DB
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Open opens (or creates) the SQLite database and applies the schema.
// Write transactions take the database lock when they begin, so concurrent
// ingests queue on busy_timeout instead of failing on lock upgrade.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("catalog: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("catalog: ping: %w", err)
	}
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("catalog: apply core schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("catalog: apply fts schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping reports whether the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}
