package api

import "github.com/starford/lickdex/internal/models"

// SongListResponse wraps paginated song listings.
type SongListResponse struct {
	Songs []models.Song `json:"songs" validate:"required"`
	Total int           `json:"total" example:"42" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []models.Song `json:"results" validate:"required"`
}

// LicksResponse lists the tracks a canonical measure occurs in.
type LicksResponse struct {
	MeasureID string        `json:"measure_id" validate:"required"`
	Licks     []models.Lick `json:"licks" validate:"required"`
}

// TabInfoResponse lists the tracks of an uploaded document that can be
// ingested.
type TabInfoResponse struct {
	Tracks []models.TabInfo `json:"tracks" validate:"required"`
}

// AnalyzeResponse carries statistics computed without storing the song.
type AnalyzeResponse struct {
	Tracks []models.Track `json:"tracks" validate:"required"`
}

// TrackKeysResponse lists the keys a track is tagged with.
type TrackKeysResponse struct {
	TrackID string   `json:"track_id" validate:"required"`
	Keys    []string `json:"keys" validate:"required"`
}
