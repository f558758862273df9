package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/starford/lickdex/internal/apperr"
	"github.com/starford/lickdex/internal/canon"
	"github.com/starford/lickdex/internal/checksum"
)

// maxConflictRetries bounds how often a lost insert race is re-fetched.
const maxConflictRetries = 3

// ContentStore is a canon.Store backed by the canon table. Uniqueness of
// (kind, key_hash) is enforced by the schema: a racing insert is dropped with
// ON CONFLICT DO NOTHING and the loser reads back the winner's identity.
type ContentStore struct {
	q querier
}

var _ canon.Store = (*ContentStore)(nil)

// ContentStore returns a store that works outside any transaction.
func (db *DB) ContentStore() *ContentStore {
	return &ContentStore{q: db.conn}
}

// GetOrCreate implements canon.Store.
func (s *ContentStore) GetOrCreate(ctx context.Context, kind canon.Kind, key string) (canon.ID, error) {
	h := checksum.Sum([]byte(key))
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		id, err := s.lookup(ctx, kind, h, key)
		if err == nil {
			return id, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return "", err
		}

		id = canon.NewID()
		res, err := s.q.ExecContext(ctx, `
			INSERT INTO canon (id, kind, key_hash, key) VALUES (?, ?, ?, ?)
			ON CONFLICT(kind, key_hash) DO NOTHING
		`, string(id), string(kind), h, key)
		if err != nil {
			return "", fmt.Errorf("catalog: insert %s: %w", kind, err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 1 {
			return id, nil
		}
		// Someone else inserted the key first; read theirs.
	}
	return "", fmt.Errorf("catalog: %s %s: %w", kind, h, apperr.ErrContentStoreConflict)
}

func (s *ContentStore) lookup(ctx context.Context, kind canon.Kind, hash, key string) (canon.ID, error) {
	var id, stored string
	err := s.q.QueryRowContext(ctx,
		`SELECT id, key FROM canon WHERE kind = ? AND key_hash = ?`, string(kind), hash,
	).Scan(&id, &stored)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", err
		}
		return "", fmt.Errorf("catalog: lookup %s: %w", kind, err)
	}
	if stored != key {
		return "", fmt.Errorf("catalog: %s key hash collision on %s: %w", kind, hash, apperr.ErrContentStoreConflict)
	}
	return canon.ID(id), nil
}

// CanonKey returns the key stored for a canonical identity.
func (db *DB) CanonKey(ctx context.Context, kind canon.Kind, id canon.ID) (string, error) {
	var key string
	err := db.conn.QueryRowContext(ctx,
		`SELECT key FROM canon WHERE id = ? AND kind = ?`, string(id), string(kind),
	).Scan(&key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", apperr.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("catalog: canon key: %w", err)
	}
	return key, nil
}

// CanonCount returns the number of canonical identities of a kind.
func (db *DB) CanonCount(ctx context.Context, kind canon.Kind) (int, error) {
	var n int
	if err := db.conn.QueryRowContext(ctx, `SELECT count(*) FROM canon WHERE kind = ?`, string(kind)).Scan(&n); err != nil {
		return 0, fmt.Errorf("catalog: canon count: %w", err)
	}
	return n, nil
}
