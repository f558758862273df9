package ingest

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"

	"github.com/starford/lickdex/internal/apperr"
	"github.com/starford/lickdex/internal/models"
	"github.com/starford/lickdex/internal/storage"
)

// Event kinds passed to an EventCallback.
const (
	EventIngested = "ingested"
	EventDeleted  = "deleted"
)

// EventCallback is called after a song is added to or removed from the
// catalog by the inbox sync or watcher.
type EventCallback func(kind string, songID string)

// Sync walks the inbox and ingests every tab file whose hash is not yet in
// the catalog. Files that fail to ingest are logged and left in place. It
// returns the number of songs stored.
func (s *Service) Sync(ctx context.Context, inbox storage.Provider, cb EventCallback) (int, error) {
	metas, err := inbox.List("")
	if err != nil {
		return 0, err
	}
	hashes, err := s.db.AllHashes(ctx)
	if err != nil {
		return 0, err
	}

	stored := 0
	for _, m := range metas {
		if err := ctx.Err(); err != nil {
			return stored, err
		}
		if _, ok := hashes[m.Hash]; ok {
			continue
		}
		song, err := s.ingestFile(ctx, inbox, m.Path)
		if err != nil {
			s.logger.Warn("sync: ingest failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		hashes[m.Hash] = struct{}{}
		if song == nil {
			continue
		}
		stored++
		if cb != nil {
			cb(EventIngested, song.ID)
		}
	}
	s.logger.Info("sync: inbox scanned", slog.Int("files", len(metas)), slog.Int("ingested", stored))
	return stored, nil
}

// ingestFile reads and ingests one inbox file. A file already in the catalog
// yields a nil song and no error.
func (s *Service) ingestFile(ctx context.Context, inbox storage.Provider, rel string) (*models.Song, error) {
	data, err := inbox.Read(rel)
	if err != nil {
		return nil, err
	}
	song, err := s.Ingest(ctx, filepath.Base(rel), data, nil)
	if errors.Is(err, apperr.ErrAlreadyExists) {
		s.logger.Debug("ingest: already stored", slog.String("path", rel))
		return nil, nil
	}
	return song, err
}
