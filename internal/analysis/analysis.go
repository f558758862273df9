// Package analysis walks a track, canonicalizes its beats and measures and
// computes exact occupancy statistics.
package analysis

import (
	"math/big"

	"github.com/starford/lickdex/internal/canon"
	"github.com/starford/lickdex/internal/music"
)

// MeasureMatch is one canonical measure of a track with the 0-based indexes
// it occupies and its share of the analyzed measures.
type MeasureMatch struct {
	ID          canon.ID `json:"id"`
	Occurrences []int    `json:"occurrences"`
	Match       *big.Rat `json:"match"`
}

// PitchMatch is a pitch class with its weighted duration and its share of
// the track's total weighted duration.
type PitchMatch struct {
	Pitch    music.Pitch `json:"pitch"`
	Duration *big.Rat    `json:"duration"`
	Match    *big.Rat    `json:"match"`
}

// TrackAnalysis is the result of analyzing one track.
type TrackAnalysis struct {
	Tuning        music.Tuning   `json:"tuning"`
	MeasureCount  int            `json:"measure_count"`
	TotalDuration *big.Rat       `json:"total_duration"`
	RestDuration  *big.Rat       `json:"rest_duration"`
	Measures      []MeasureMatch `json:"measures"`
	Pitches       []PitchMatch   `json:"pitches"`
	// Skipped lists measure indexes dropped by the error policy.
	Skipped []int `json:"skipped,omitempty"`
}

// Float converts an exact fraction for presentation.
func Float(r *big.Rat) float64 {
	if r == nil {
		return 0
	}
	f, _ := r.Float64()
	return f
}
