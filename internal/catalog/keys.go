package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/starford/lickdex/internal/apperr"
)

// AddTrackKey tags a track with a key and returns the track's keys. Adding a
// key twice is a no-op.
func (db *DB) AddTrackKey(ctx context.Context, trackID, key string) ([]string, error) {
	return db.editTrackKeys(ctx, trackID, `INSERT INTO track_keys (track_id, key) VALUES (?, ?) ON CONFLICT DO NOTHING`, key)
}

// RemoveTrackKey removes a key from a track and returns the remaining keys.
// Removing a key the track does not carry is a no-op.
func (db *DB) RemoveTrackKey(ctx context.Context, trackID, key string) ([]string, error) {
	return db.editTrackKeys(ctx, trackID, `DELETE FROM track_keys WHERE track_id = ? AND key = ?`, key)
}

func (db *DB) editTrackKeys(ctx context.Context, trackID, stmt, key string) ([]string, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("catalog: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	var one int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM tracks WHERE id = ?`, trackID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: lookup track: %w", err)
	}

	if _, err := tx.ExecContext(ctx, stmt, trackID, key); err != nil {
		return nil, fmt.Errorf("catalog: edit track keys: %w", err)
	}
	keys, err := trackKeys(ctx, tx, trackID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("catalog: commit: %w", err)
	}
	return keys, nil
}

func trackKeys(ctx context.Context, q querier, trackID string) ([]string, error) {
	rows, err := q.QueryContext(ctx, `SELECT key FROM track_keys WHERE track_id = ? ORDER BY key`, trackID)
	if err != nil {
		return nil, fmt.Errorf("catalog: track keys: %w", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, rows.Err()
}
