//go:build sqlite_fts5

package catalog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/starford/lickdex/internal/models"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS songs_fts USING fts5(
			song_id UNINDEXED,
			title,
			artist,
			album,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsert(ctx context.Context, q querier, s SongRecord) error {
	_, _ = q.ExecContext(ctx, `DELETE FROM songs_fts WHERE song_id = ?`, s.ID)
	_, err := q.ExecContext(ctx, `INSERT INTO songs_fts (song_id, title, artist, album) VALUES (?, ?, ?, ?)`,
		s.ID, s.Title, s.Artist, s.Album)
	if err != nil {
		return fmt.Errorf("catalog: upsert fts: %w", err)
	}
	return nil
}

func ftsDelete(ctx context.Context, q querier, id string) {
	_, _ = q.ExecContext(ctx, `DELETE FROM songs_fts WHERE song_id = ?`, id)
}

// Search performs an FTS5 full-text search over song titles, artists and albums.
func (db *DB) Search(ctx context.Context, query string, limit int) ([]models.Song, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.QueryContext(ctx, `
		SELECT s.id, s.hash, s.title, s.artist, s.album, s.year, s.tempo, s.filename, s.created_at
		FROM songs_fts f
		JOIN songs s ON s.id = f.song_id
		WHERE songs_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("catalog: search: %w", err)
	}
	defer rows.Close()

	out := []models.Song{}
	for rows.Next() {
		s, err := scanSong(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
