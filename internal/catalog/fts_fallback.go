//go:build !sqlite_fts5

package catalog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/starford/lickdex/internal/models"
)

func initFTS(_ *sql.DB) error {
	// FTS5 not available; search falls back to LIKE on the songs table.
	return nil
}

func ftsUpsert(_ context.Context, _ querier, _ SongRecord) error { return nil }

func ftsDelete(_ context.Context, _ querier, _ string) {}

// Search performs a LIKE-based search over song titles, artists and albums.
func (db *DB) Search(ctx context.Context, query string, limit int) ([]models.Song, error) {
	if limit <= 0 {
		limit = 20
	}
	like := "%" + query + "%"
	rows, err := db.conn.QueryContext(ctx, `
		SELECT `+songColumns+`
		FROM songs
		WHERE title LIKE ? OR artist LIKE ? OR album LIKE ?
		ORDER BY title
		LIMIT ?
	`, like, like, like, limit)
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
