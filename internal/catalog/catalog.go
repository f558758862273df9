package catalog

import (
	"context"

	"github.com/starford/lickdex/internal/canon"
	"github.com/starford/lickdex/internal/models"
	"github.com/starford/lickdex/internal/music"
)

// Catalog defines the read and write operations the services need.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type Catalog interface {
	Begin(ctx context.Context) (*Tx, error)
	SongIDByHash(ctx context.Context, hash string) (string, error)
	AllHashes(ctx context.Context) (map[string]struct{}, error)
	ListSongs(ctx context.Context, limit, offset int) ([]models.Song, int, error)
	Search(ctx context.Context, query string, limit int) ([]models.Song, error)
	GetSong(ctx context.Context, id string) (*models.Song, error)
	GetTrack(ctx context.Context, id string, minMatch float64) (*models.Track, error)
	GetMeasure(ctx context.Context, id string) (*models.Measure, error)
	MeasureBeats(ctx context.Context, id string) ([]canon.Beat, music.Tuning, error)
	Licks(ctx context.Context, measureID string) ([]models.Lick, error)
	AddTrackKey(ctx context.Context, trackID, key string) ([]string, error)
	RemoveTrackKey(ctx context.Context, trackID, key string) ([]string, error)
	DeleteSong(ctx context.Context, id string) error
	Close() error
}

// Verify *DB satisfies Catalog at compile time.
var _ Catalog = (*DB)(nil)
