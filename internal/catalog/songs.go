package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/starford/lickdex/internal/analysis"
	"github.com/starford/lickdex/internal/apperr"
	"github.com/starford/lickdex/internal/canon"
)

// SongRecord is the song row written at ingest.
type SongRecord struct {
	ID        string
	Hash      string
	Title     string
	Artist    string
	Album     string
	Year      string
	Tempo     int
	Filename  string
	CreatedAt time.Time
}

// TrackRecord is an analyzed track ready to be persisted.
type TrackRecord struct {
	ID         string
	Index      int
	Name       string
	Instrument string
	Analysis   *analysis.TrackAnalysis
}

// Tx is one song ingest. Canonical identities created through Store and the
// song rows written by InsertSong commit or roll back together.
type Tx struct {
	tx *sql.Tx
}

// Begin starts an ingest transaction.
func (db *DB) Begin(ctx context.Context) (*Tx, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("catalog: begin tx: %w", err)
	}
	return &Tx{tx: tx}, nil
}

// Store returns a content store scoped to the transaction.
func (t *Tx) Store() canon.Store {
	return &ContentStore{q: t.tx}
}

// Commit commits the transaction.
func (t *Tx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("catalog: commit: %w", err)
	}
	return nil
}

// Rollback aborts the transaction. It is safe to call after Commit.
func (t *Tx) Rollback() error {
	return t.tx.Rollback()
}

// InsertSong writes the song, its tracks and their statistics. A song whose
// hash is already stored yields apperr.ErrAlreadyExists.
func (t *Tx) InsertSong(ctx context.Context, s SongRecord, tracks []TrackRecord) error {
	res, err := t.tx.ExecContext(ctx, `
		INSERT INTO songs (id, hash, title, artist, album, year, tempo, filename, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(hash) DO NOTHING
	`, s.ID, s.Hash, s.Title, s.Artist, s.Album, s.Year, s.Tempo, s.Filename, s.CreatedAt)
	if err != nil {
		return fmt.Errorf("catalog: insert song: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("catalog: insert song: %w", err)
	}
	if n == 0 {
		return apperr.ErrAlreadyExists
	}
	if err := ftsUpsert(ctx, t.tx, s); err != nil {
		return err
	}

	for _, tr := range tracks {
		if err := t.insertTrack(ctx, s.ID, tr); err != nil {
			return err
		}
	}
	return nil
}

func (t *Tx) insertTrack(ctx context.Context, songID string, tr TrackRecord) error {
	a := tr.Analysis
	skipped, _ := json.Marshal(nonNilSlice(a.Skipped))
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO tracks (id, song_id, position, name, instrument, tuning, measure_count, total_duration, rest_duration, skipped)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, tr.ID, songID, tr.Index, tr.Name, tr.Instrument, a.Tuning.Signature(), a.MeasureCount,
		a.TotalDuration.RatString(), a.RestDuration.RatString(), string(skipped))
	if err != nil {
		return fmt.Errorf("catalog: insert track: %w", err)
	}

	mstmt, err := t.tx.PrepareContext(ctx, `
		INSERT INTO track_measures (track_id, measure_id, indexes, match, match_value) VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("catalog: prepare measure insert: %w", err)
	}
	defer mstmt.Close()
	for _, m := range a.Measures {
		idx, _ := json.Marshal(m.Occurrences)
		if _, err := mstmt.ExecContext(ctx, tr.ID, string(m.ID), string(idx), m.Match.RatString(), analysis.Float(m.Match)); err != nil {
			return fmt.Errorf("catalog: insert track measure: %w", err)
		}
	}

	pstmt, err := t.tx.PrepareContext(ctx, `
		INSERT INTO track_pitches (track_id, pitch, duration, match, match_value) VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("catalog: prepare pitch insert: %w", err)
	}
	defer pstmt.Close()
	for _, p := range a.Pitches {
		if _, err := pstmt.ExecContext(ctx, tr.ID, int(p.Pitch), p.Duration.RatString(), p.Match.RatString(), analysis.Float(p.Match)); err != nil {
			return fmt.Errorf("catalog: insert track pitch: %w", err)
		}
	}
	return nil
}

// DeleteSong removes a song and its tracks. Canonical beats and measures are
// shared with the rest of the corpus and are kept.
func (db *DB) DeleteSong(ctx context.Context, id string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("catalog: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	res, err := tx.ExecContext(ctx, `DELETE FROM songs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("catalog: delete song: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("catalog: delete song: %w", err)
	}
	if n == 0 {
		return apperr.ErrNotFound
	}
	ftsDelete(ctx, tx, id)
	return tx.Commit()
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
