package analysis

import (
	"math/big"
	"slices"

	"github.com/starford/lickdex/internal/apperr"
	"github.com/starford/lickdex/internal/canon"
	"github.com/starford/lickdex/internal/music"
)

// Accumulator keeps exact running totals of weighted duration for a track,
// overall and per pitch.
//
// A beat of duration 1/d with k sounding notes adds max(1,k)/d to the total
// and 1/d to each of its k pitches. Rests add 1/d to the total only.
type Accumulator struct {
	total   *big.Rat
	rest    *big.Rat
	pitches map[music.Pitch]*big.Rat
}

// NewAccumulator returns an empty Accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{
		total:   new(big.Rat),
		rest:    new(big.Rat),
		pitches: make(map[music.Pitch]*big.Rat),
	}
}

// Add records one beat.
func (a *Accumulator) Add(b canon.Beat) {
	unit := big.NewRat(1, int64(b.Duration))
	if b.IsRest() {
		a.total.Add(a.total, unit)
		a.rest.Add(a.rest, unit)
		return
	}
	for _, p := range b.Pitches {
		a.total.Add(a.total, unit)
		a.credit(p, unit)
	}
}

// Merge adds everything recorded in o to a.
func (a *Accumulator) Merge(o *Accumulator) {
	a.total.Add(a.total, o.total)
	a.rest.Add(a.rest, o.rest)
	for p, d := range o.pitches {
		a.credit(p, d)
	}
}

func (a *Accumulator) credit(p music.Pitch, d *big.Rat) {
	cur, ok := a.pitches[p]
	if !ok {
		cur = new(big.Rat)
		a.pitches[p] = cur
	}
	cur.Add(cur, d)
}

// Total returns the total weighted duration.
func (a *Accumulator) Total() *big.Rat { return new(big.Rat).Set(a.total) }

// RestDuration returns the weighted duration contributed by rests.
func (a *Accumulator) RestDuration() *big.Rat { return new(big.Rat).Set(a.rest) }

// Finalize divides every pitch's weighted duration by the total. Pitches are
// returned in ascending order.
func (a *Accumulator) Finalize() ([]PitchMatch, error) {
	if a.total.Sign() == 0 {
		return nil, apperr.ErrEmptyTrack
	}
	keys := make([]music.Pitch, 0, len(a.pitches))
	for p := range a.pitches {
		keys = append(keys, p)
	}
	slices.Sort(keys)

	out := make([]PitchMatch, len(keys))
	for i, p := range keys {
		d := a.pitches[p]
		out[i] = PitchMatch{
			Pitch:    p,
			Duration: new(big.Rat).Set(d),
			Match:    new(big.Rat).Quo(d, a.total),
		}
	}
	return out, nil
}
