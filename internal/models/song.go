// Package models defines the catalog types served by lickdex.
package models

import "time"

// Song is an ingested tab file.
type Song struct {
	ID        string         `json:"id"`
	Hash      string         `json:"hash"`
	Title     string         `json:"title"`
	Artist    string         `json:"artist"`
	Album     string         `json:"album"`
	Year      string         `json:"year,omitempty"`
	Tempo     int            `json:"tempo"`
	Filename  string         `json:"filename"`
	CreatedAt time.Time      `json:"created_at"`
	Tracks    []TrackSummary `json:"tracks,omitempty"`
}

// TrackSummary is a track without its statistics.
type TrackSummary struct {
	ID           string   `json:"id"`
	SongID       string   `json:"song_id"`
	Index        int      `json:"index"`
	Name         string   `json:"name"`
	Instrument   string   `json:"instrument,omitempty"`
	Tuning       []string `json:"tuning"`
	MeasureCount int      `json:"measure_count"`
}

// Track is a track with its measure and pitch statistics. Durations and
// matches are exact fractions ("2/3"); MatchValue fields are for display.
// Keys are the tonal centers the track was tagged with.
type Track struct {
	TrackSummary
	Keys          []string       `json:"keys"`
	TotalDuration string         `json:"total_duration"`
	RestDuration  string         `json:"rest_duration"`
	Skipped       []int          `json:"skipped"`
	Measures      []TrackMeasure `json:"measures"`
	Pitches       []TrackPitch   `json:"pitches"`
}

// TrackMeasure places a canonical measure inside a track.
type TrackMeasure struct {
	MeasureID  string  `json:"measure_id"`
	Indexes    []int   `json:"indexes"`
	Match      string  `json:"match"`
	MatchValue float64 `json:"match_value"`
}

// TrackPitch is the occupancy of one pitch class in a track.
type TrackPitch struct {
	Pitch      int     `json:"pitch"`
	Name       string  `json:"name"`
	Duration   string  `json:"duration"`
	Match      string  `json:"match"`
	MatchValue float64 `json:"match_value"`
}

// Measure is a canonical measure with its beats resolved.
type Measure struct {
	ID     string   `json:"id"`
	Tuning []string `json:"tuning"`
	Beats  []Beat   `json:"beats"`
}

// Beat is a canonical beat.
type Beat struct {
	ID       string   `json:"id"`
	Duration int      `json:"duration"`
	Pitches  []int    `json:"pitches"`
	Names    []string `json:"names"`
	Rest     bool     `json:"rest"`
}

// Lick is an occurrence of a canonical measure in some track of the corpus.
type Lick struct {
	MeasureID  string  `json:"measure_id"`
	SongID     string  `json:"song_id"`
	SongTitle  string  `json:"song_title"`
	Artist     string  `json:"artist"`
	TrackID    string  `json:"track_id"`
	TrackName  string  `json:"track_name"`
	Indexes    []int   `json:"indexes"`
	Match      string  `json:"match"`
	MatchValue float64 `json:"match_value"`
}

// TabInfo describes a track of a tab document before ingestion.
type TabInfo struct {
	Index      int      `json:"index"`
	Name       string   `json:"name"`
	Instrument string   `json:"instrument,omitempty"`
	Tuning     []string `json:"tuning"`
	Measures   int      `json:"measures"`
}
