// Package ingest turns tab files into catalog songs: it parses the document,
// analyzes the selected guitar tracks and persists the result in one
// transaction.
package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/starford/lickdex/internal/analysis"
	"github.com/starford/lickdex/internal/apperr"
	"github.com/starford/lickdex/internal/canon"
	"github.com/starford/lickdex/internal/catalog"
	"github.com/starford/lickdex/internal/checksum"
	"github.com/starford/lickdex/internal/models"
	"github.com/starford/lickdex/internal/music"
	"github.com/starford/lickdex/internal/preview"
	"github.com/starford/lickdex/internal/storage"
	"github.com/starford/lickdex/internal/tab"
)

// Options tunes the ingest pipeline.
type Options struct {
	// Workers bounds how many tracks of one song are analyzed concurrently.
	Workers int
	// SkipMalformed drops measures with beat errors instead of rejecting
	// the whole song.
	SkipMalformed bool
}

// Service coordinates the catalog, the tab library and the analysis core.
type Service struct {
	db      catalog.Catalog
	library storage.Provider
	workers int
	policy  analysis.ErrorPolicy
	logger  *slog.Logger
}

// NewService creates a new ingest service. db and library may be nil for a
// service that only runs Analyze and TabInfo.
func NewService(db catalog.Catalog, library storage.Provider, logger *slog.Logger, opts Options) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = 4
	}
	policy := analysis.Escalate
	if opts.SkipMalformed {
		policy = analysis.SkipMalformed
	}
	return &Service{db: db, library: library, workers: workers, policy: policy, logger: logger}
}

// libraryPath is where the stored copy of a song's tab file lives.
func libraryPath(songID string) string {
	return songID + ".yaml"
}

// Ingest analyzes the selected tracks of a tab file and stores the song.
// With no selection every six-string guitar track is analyzed. A file whose
// hash is already in the catalog yields apperr.ErrAlreadyExists and nothing
// is written.
func (s *Service) Ingest(ctx context.Context, filename string, data []byte, tracks []int) (*models.Song, error) {
	hash := checksum.FileHash(data)
	existing, err := s.db.SongIDByHash(ctx, hash)
	if err != nil {
		return nil, err
	}
	if existing != "" {
		return nil, fmt.Errorf("ingest: %s: %w", filename, apperr.ErrAlreadyExists)
	}

	doc, err := tab.Parse(data)
	if err != nil {
		return nil, err
	}
	selected, err := selectTracks(doc, tracks)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	records, err := s.analyze(ctx, tx.Store(), selected)
	if err != nil {
		return nil, err
	}

	songID := uuid.NewString()
	err = tx.InsertSong(ctx, catalog.SongRecord{
		ID:        songID,
		Hash:      hash,
		Title:     doc.Title,
		Artist:    doc.Artist,
		Album:     doc.Album,
		Year:      doc.Year,
		Tempo:     doc.Tempo,
		Filename:  filename,
		CreatedAt: time.Now().UTC(),
	}, records)
	if err != nil {
		return nil, err
	}

	if err := s.library.Write(libraryPath(songID), data); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		_ = s.library.Delete(libraryPath(songID))
		return nil, err
	}

	s.logger.Info("ingest: song stored",
		slog.String("id", songID),
		slog.String("file", filename),
		slog.Int("tracks", len(records)))
	return s.db.GetSong(ctx, songID)
}

// analyze runs the aggregator over every track concurrently. Results keep
// the order of tracks.
func (s *Service) analyze(ctx context.Context, store canon.Store, tracks []tab.Track) ([]catalog.TrackRecord, error) {
	agg := analysis.NewAggregator(store,
		analysis.WithErrorPolicy(s.policy),
		analysis.WithLogger(s.logger))

	records := make([]catalog.TrackRecord, len(tracks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, tr := range tracks {
		g.Go(func() error {
			a, err := agg.Analyze(gctx, tr)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			records[i] = catalog.TrackRecord{
				ID:         uuid.NewString(),
				Index:      tr.Index,
				Name:       tr.Name,
				Instrument: tr.InstrumentName(),
				Analysis:   a,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return records, nil
}

// selectTracks resolves the requested track indexes. Only six-string guitar
// tracks may be analyzed.
func selectTracks(doc *tab.Document, indexes []int) ([]tab.Track, error) {
	if len(indexes) == 0 {
		out := doc.GuitarTracks()
		if len(out) == 0 {
			return nil, fmt.Errorf("%w: no six-string guitar tracks", apperr.ErrInvalidTab)
		}
		return out, nil
	}
	seen := make(map[int]struct{}, len(indexes))
	out := make([]tab.Track, 0, len(indexes))
	for _, i := range indexes {
		if i < 0 || i >= len(doc.Tracks) {
			return nil, fmt.Errorf("%w: track %d out of range", apperr.ErrInvalidTab, i)
		}
		if _, dup := seen[i]; dup {
			continue
		}
		seen[i] = struct{}{}
		t := doc.Tracks[i]
		if !t.IsGuitar() {
			return nil, fmt.Errorf("%w: track %d is not a six-string guitar track", apperr.ErrInvalidTab, i)
		}
		out = append(out, t)
	}
	return out, nil
}

// ParseTracks parses a comma-separated track selection such as "0,2". An
// empty value selects nothing, which means every guitar track.
func ParseTracks(raw string) ([]int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("%w: invalid track index %q", apperr.ErrInvalidTab, p)
		}
		out = append(out, n)
	}
	return out, nil
}

// TabInfo lists the tracks of a document that can be ingested.
func (s *Service) TabInfo(_ context.Context, data []byte) ([]models.TabInfo, error) {
	doc, err := tab.Parse(data)
	if err != nil {
		return nil, err
	}
	out := []models.TabInfo{}
	for _, t := range doc.GuitarTracks() {
		tuning, err := t.Tuning()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", apperr.ErrInvalidTab, err)
		}
		out = append(out, models.TabInfo{
			Index:      t.Index,
			Name:       t.Name,
			Instrument: t.InstrumentName(),
			Tuning:     tuning.Names(),
			Measures:   len(t.Measures),
		})
	}
	return out, nil
}

// Analyze runs the analysis over a document without persisting anything.
// Identities come from a throwaway in-memory store, so they are only
// comparable within the returned report.
func (s *Service) Analyze(ctx context.Context, data []byte, tracks []int) ([]models.Track, error) {
	doc, err := tab.Parse(data)
	if err != nil {
		return nil, err
	}
	selected, err := selectTracks(doc, tracks)
	if err != nil {
		return nil, err
	}
	records, err := s.analyze(ctx, canon.NewMemoryStore(), selected)
	if err != nil {
		return nil, err
	}
	out := make([]models.Track, len(records))
	for i, r := range records {
		out[i] = TrackModel(r)
	}
	return out, nil
}

// TrackModel converts an analyzed track into its API form.
func TrackModel(r catalog.TrackRecord) models.Track {
	a := r.Analysis
	t := models.Track{
		TrackSummary: models.TrackSummary{
			ID:           r.ID,
			Index:        r.Index,
			Name:         r.Name,
			Instrument:   r.Instrument,
			Tuning:       a.Tuning.Names(),
			MeasureCount: a.MeasureCount,
		},
		Keys:          []string{},
		TotalDuration: a.TotalDuration.RatString(),
		RestDuration:  a.RestDuration.RatString(),
		Skipped:       append([]int{}, a.Skipped...),
		Measures:      make([]models.TrackMeasure, len(a.Measures)),
		Pitches:       make([]models.TrackPitch, len(a.Pitches)),
	}
	for i, m := range a.Measures {
		t.Measures[i] = models.TrackMeasure{
			MeasureID:  string(m.ID),
			Indexes:    m.Occurrences,
			Match:      m.Match.RatString(),
			MatchValue: analysis.Float(m.Match),
		}
	}
	for i, p := range a.Pitches {
		t.Pitches[i] = models.TrackPitch{
			Pitch:      int(p.Pitch),
			Name:       p.Pitch.String(),
			Duration:   p.Duration.RatString(),
			Match:      p.Match.RatString(),
			MatchValue: analysis.Float(p.Match),
		}
	}
	return t
}

// ListSongs returns a page of songs ordered by title.
func (s *Service) ListSongs(ctx context.Context, limit, offset int) ([]models.Song, int, error) {
	return s.db.ListSongs(ctx, limit, offset)
}

// Search delegates full-text song search to the catalog.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]models.Song, error) {
	return s.db.Search(ctx, query, limit)
}

// GetSong returns a song and its track summaries.
func (s *Service) GetSong(ctx context.Context, id string) (*models.Song, error) {
	return s.db.GetSong(ctx, id)
}

// GetTrack returns a track's statistics, keeping measures whose match is at
// least minMatch.
func (s *Service) GetTrack(ctx context.Context, id string, minMatch float64) (*models.Track, error) {
	return s.db.GetTrack(ctx, id, minMatch)
}

// AddTrackKey tags a track with a key such as "Am" or "F#". The key is
// stored in its normalized spelling.
func (s *Service) AddTrackKey(ctx context.Context, trackID, name string) ([]string, error) {
	k, err := music.ParseKey(name)
	if err != nil {
		return nil, err
	}
	keys, err := s.db.AddTrackKey(ctx, trackID, k.String())
	if err != nil {
		return nil, err
	}
	s.logger.Info("ingest: track key added", slog.String("track", trackID), slog.String("key", k.String()))
	return keys, nil
}

// RemoveTrackKey removes a key tag from a track.
func (s *Service) RemoveTrackKey(ctx context.Context, trackID, name string) ([]string, error) {
	k, err := music.ParseKey(name)
	if err != nil {
		return nil, err
	}
	keys, err := s.db.RemoveTrackKey(ctx, trackID, k.String())
	if err != nil {
		return nil, err
	}
	s.logger.Info("ingest: track key removed", slog.String("track", trackID), slog.String("key", k.String()))
	return keys, nil
}

// GetMeasure returns a canonical measure with its beats.
func (s *Service) GetMeasure(ctx context.Context, id string) (*models.Measure, error) {
	return s.db.GetMeasure(ctx, id)
}

// Licks returns every occurrence of a canonical measure in the corpus.
func (s *Service) Licks(ctx context.Context, measureID string) ([]models.Lick, error) {
	return s.db.Licks(ctx, measureID)
}

// SongFile returns the stored tab file of a song.
func (s *Service) SongFile(ctx context.Context, id string) ([]byte, error) {
	if _, err := s.db.GetSong(ctx, id); err != nil {
		return nil, err
	}
	data, err := s.library.Read(libraryPath(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, apperr.ErrNotFound
	}
	return data, err
}

// MeasureMIDI renders a canonical measure as a Standard MIDI File.
func (s *Service) MeasureMIDI(ctx context.Context, id string, tempo int) ([]byte, error) {
	beats, _, err := s.db.MeasureBeats(ctx, id)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := preview.Measure(&buf, beats, tempo); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DeleteSong removes a song from the catalog and its file from the library.
// Canonical beats and measures stay: other songs may share them.
func (s *Service) DeleteSong(ctx context.Context, id string) error {
	if err := s.db.DeleteSong(ctx, id); err != nil {
		return err
	}
	if err := s.library.Delete(libraryPath(id)); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Warn("ingest: library delete failed", slog.String("id", id), slog.String("error", err.Error()))
	}
	s.logger.Info("ingest: song deleted", slog.String("id", id))
	return nil
}
