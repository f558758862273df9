package catalog

import (
	"cmp"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/starford/lickdex/internal/apperr"
	"github.com/starford/lickdex/internal/canon"
	"github.com/starford/lickdex/internal/models"
	"github.com/starford/lickdex/internal/music"
)

const songColumns = `id, hash, title, artist, album, year, tempo, filename, created_at`

func scanSong(sc interface{ Scan(...any) error }) (models.Song, error) {
	var s models.Song
	err := sc.Scan(&s.ID, &s.Hash, &s.Title, &s.Artist, &s.Album, &s.Year, &s.Tempo, &s.Filename, &s.CreatedAt)
	return s, err
}

// SongIDByHash returns the ID of the song stored with the given file hash,
// or an empty string when there is none.
func (db *DB) SongIDByHash(ctx context.Context, hash string) (string, error) {
	var id string
	err := db.conn.QueryRowContext(ctx, `SELECT id FROM songs WHERE hash = ?`, hash).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("catalog: song by hash: %w", err)
	}
	return id, nil
}

// AllHashes returns the file hash of every stored song.
func (db *DB) AllHashes(ctx context.Context) (map[string]struct{}, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT hash FROM songs`)
	if err != nil {
		return nil, fmt.Errorf("catalog: all hashes: %w", err)
	}
	defer rows.Close()
	out := make(map[string]struct{})
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, err
		}
		out[h] = struct{}{}
	}
	return out, rows.Err()
}

// ListSongs returns songs ordered by title, and the total count.
func (db *DB) ListSongs(ctx context.Context, limit, offset int) ([]models.Song, int, error) {
	if limit <= 0 {
		limit = 50
	}
	var total int
	if err := db.conn.QueryRowContext(ctx, `SELECT count(*) FROM songs`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("catalog: count songs: %w", err)
	}
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+songColumns+` FROM songs ORDER BY title, id LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("catalog: list songs: %w", err)
	}
	defer rows.Close()

	out := []models.Song{}
	for rows.Next() {
		s, err := scanSong(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, s)
	}
	return out, total, rows.Err()
}

// GetSong returns a song with its track summaries.
func (db *DB) GetSong(ctx context.Context, id string) (*models.Song, error) {
	s, err := scanSong(db.conn.QueryRowContext(ctx, `SELECT `+songColumns+` FROM songs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: get song: %w", err)
	}

	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, song_id, position, name, instrument, tuning, measure_count
		FROM tracks WHERE song_id = ? ORDER BY position
	`, id)
	if err != nil {
		return nil, fmt.Errorf("catalog: song tracks: %w", err)
	}
	defer rows.Close()
	s.Tracks = []models.TrackSummary{}
	for rows.Next() {
		ts, err := scanTrackSummary(rows)
		if err != nil {
			return nil, err
		}
		s.Tracks = append(s.Tracks, ts)
	}
	return &s, rows.Err()
}

func scanTrackSummary(sc interface{ Scan(...any) error }) (models.TrackSummary, error) {
	var ts models.TrackSummary
	var sig string
	if err := sc.Scan(&ts.ID, &ts.SongID, &ts.Index, &ts.Name, &ts.Instrument, &sig, &ts.MeasureCount); err != nil {
		return ts, err
	}
	tuning, err := music.ParseSignature(sig)
	if err != nil {
		return ts, err
	}
	ts.Tuning = tuning.Names()
	return ts, nil
}

// GetTrack returns a track with the measures whose match is at least
// minMatch, ordered by first occurrence, and all of its pitches.
func (db *DB) GetTrack(ctx context.Context, id string, minMatch float64) (*models.Track, error) {
	var t models.Track
	var skipped string
	row := db.conn.QueryRowContext(ctx, `
		SELECT id, song_id, position, name, instrument, tuning, measure_count, total_duration, rest_duration, skipped
		FROM tracks WHERE id = ?
	`, id)
	var sig string
	err := row.Scan(&t.ID, &t.SongID, &t.Index, &t.Name, &t.Instrument, &sig, &t.MeasureCount,
		&t.TotalDuration, &t.RestDuration, &skipped)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: get track: %w", err)
	}
	tuning, err := music.ParseSignature(sig)
	if err != nil {
		return nil, err
	}
	t.Tuning = tuning.Names()
	t.Skipped = []int{}
	if err := json.Unmarshal([]byte(skipped), &t.Skipped); err != nil {
		return nil, fmt.Errorf("catalog: decode skipped: %w", err)
	}

	if t.Measures, err = db.trackMeasures(ctx, id, minMatch); err != nil {
		return nil, err
	}
	if t.Pitches, err = db.trackPitches(ctx, id); err != nil {
		return nil, err
	}
	if t.Keys, err = trackKeys(ctx, db.conn, id); err != nil {
		return nil, err
	}
	return &t, nil
}

func (db *DB) trackMeasures(ctx context.Context, trackID string, minMatch float64) ([]models.TrackMeasure, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT measure_id, indexes, match, match_value
		FROM track_measures WHERE track_id = ? AND match_value >= ?
	`, trackID, minMatch)
	if err != nil {
		return nil, fmt.Errorf("catalog: track measures: %w", err)
	}
	defer rows.Close()

	out := []models.TrackMeasure{}
	for rows.Next() {
		var m models.TrackMeasure
		var idx string
		if err := rows.Scan(&m.MeasureID, &idx, &m.Match, &m.MatchValue); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(idx), &m.Indexes); err != nil {
			return nil, fmt.Errorf("catalog: decode indexes: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sortByFirstIndex(out)
	return out, nil
}

func sortByFirstIndex(ms []models.TrackMeasure) {
	slices.SortFunc(ms, func(a, b models.TrackMeasure) int {
		return cmp.Compare(first(a), first(b))
	})
}

func first(m models.TrackMeasure) int {
	if len(m.Indexes) == 0 {
		return -1
	}
	return m.Indexes[0]
}

func (db *DB) trackPitches(ctx context.Context, trackID string) ([]models.TrackPitch, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT pitch, duration, match, match_value
		FROM track_pitches WHERE track_id = ? ORDER BY pitch
	`, trackID)
	if err != nil {
		return nil, fmt.Errorf("catalog: track pitches: %w", err)
	}
	defer rows.Close()

	out := []models.TrackPitch{}
	for rows.Next() {
		var p models.TrackPitch
		if err := rows.Scan(&p.Pitch, &p.Duration, &p.Match, &p.MatchValue); err != nil {
			return nil, err
		}
		p.Name = music.Pitch(p.Pitch).String()
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetMeasure resolves a canonical measure and its beats.
func (db *DB) GetMeasure(ctx context.Context, id string) (*models.Measure, error) {
	m, beats, err := db.resolveMeasure(ctx, id)
	if err != nil {
		return nil, err
	}
	out := &models.Measure{ID: id, Tuning: m.Tuning.Names(), Beats: make([]models.Beat, len(beats))}
	for i, b := range beats {
		mb := models.Beat{
			ID:       string(m.Beats[i]),
			Duration: b.Duration,
			Pitches:  make([]int, len(b.Pitches)),
			Names:    make([]string, len(b.Pitches)),
			Rest:     b.IsRest(),
		}
		for j, p := range b.Pitches {
			mb.Pitches[j] = int(p)
			mb.Names[j] = p.String()
		}
		out.Beats[i] = mb
	}
	return out, nil
}

// MeasureBeats returns the canonical beats of a measure in order, with the
// measure's tuning.
func (db *DB) MeasureBeats(ctx context.Context, id string) ([]canon.Beat, music.Tuning, error) {
	m, beats, err := db.resolveMeasure(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return beats, m.Tuning, nil
}

func (db *DB) resolveMeasure(ctx context.Context, id string) (canon.Measure, []canon.Beat, error) {
	key, err := db.CanonKey(ctx, canon.KindMeasure, canon.ID(id))
	if err != nil {
		return canon.Measure{}, nil, err
	}
	m, err := canon.ParseMeasureKey(key)
	if err != nil {
		return canon.Measure{}, nil, err
	}
	beats := make([]canon.Beat, len(m.Beats))
	for i, bid := range m.Beats {
		bkey, err := db.CanonKey(ctx, canon.KindBeat, bid)
		if err != nil {
			return canon.Measure{}, nil, fmt.Errorf("catalog: beat %s of measure %s: %w", bid, id, err)
		}
		if beats[i], err = canon.ParseBeatKey(bkey); err != nil {
			return canon.Measure{}, nil, err
		}
	}
	return m, beats, nil
}

// Licks returns every track in the corpus containing the measure, best
// matches first. An unknown measure yields apperr.ErrNotFound; a known one
// that no stored track plays yields an empty list.
func (db *DB) Licks(ctx context.Context, measureID string) ([]models.Lick, error) {
	if _, err := db.CanonKey(ctx, canon.KindMeasure, canon.ID(measureID)); err != nil {
		return nil, err
	}
	rows, err := db.conn.QueryContext(ctx, `
		SELECT tm.measure_id, s.id, s.title, s.artist, t.id, t.name, tm.indexes, tm.match, tm.match_value
		FROM track_measures tm
		JOIN tracks t ON t.id = tm.track_id
		JOIN songs s ON s.id = t.song_id
		WHERE tm.measure_id = ?
		ORDER BY tm.match_value DESC, s.title, t.position
	`, measureID)
	if err != nil {
		return nil, fmt.Errorf("catalog: licks: %w", err)
	}
	defer rows.Close()

	out := []models.Lick{}
	for rows.Next() {
		var l models.Lick
		var idx string
		if err := rows.Scan(&l.MeasureID, &l.SongID, &l.SongTitle, &l.Artist, &l.TrackID, &l.TrackName, &idx, &l.Match, &l.MatchValue); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(idx), &l.Indexes); err != nil {
			return nil, fmt.Errorf("catalog: decode indexes: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
