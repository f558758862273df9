// Package preview renders canonical measures as Standard MIDI Files so a lick
// can be auditioned.
package preview

import (
	"fmt"
	"io"
	"math/big"
	"slices"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/starford/lickdex/internal/canon"
)

const (
	ticksPerQuarter = 960
	ticksPerWhole   = 4 * ticksPerQuarter
	// baseKey places pitch class C on middle C.
	baseKey  = 60
	velocity = 100
	// cleanGuitar is GM program 28 (0-based 27).
	cleanGuitar  = 27
	defaultTempo = 120
)

// TickAt converts a position measured in whole notes to the nearest tick.
func TickAt(pos *big.Rat) uint32 {
	num := new(big.Int).Mul(pos.Num(), big.NewInt(2*ticksPerWhole))
	num.Add(num, pos.Denom())
	den := new(big.Int).Mul(pos.Denom(), big.NewInt(2))
	return uint32(num.Quo(num, den).Uint64())
}

// keys returns the distinct MIDI keys of a beat. Pitches an octave apart
// collapse onto one key.
func keys(b canon.Beat) []uint8 {
	out := make([]uint8, len(b.Pitches))
	for i, p := range b.Pitches {
		out[i] = uint8(baseKey + int(p))
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// Measure writes beats as a single-track SMF at the given tempo (bpm).
// Rests advance time; chords start and stop together. Beat boundaries are
// kept as exact fractions and rounded to ticks only when events are written,
// so durations that do not divide the tick grid never drift.
func Measure(w io.Writer, beats []canon.Beat, tempo int) error {
	if tempo <= 0 {
		tempo = defaultTempo
	}
	s := smf.New()
	s.TimeFormat = smf.MetricTicks(ticksPerQuarter)

	var tr smf.Track
	tr.Add(0, smf.MetaTempo(float64(tempo)))
	tr.Add(0, midi.ProgramChange(0, cleanGuitar))

	pos := new(big.Rat)
	var written uint32
	for _, b := range beats {
		if b.Duration <= 0 {
			return fmt.Errorf("preview: invalid duration %d", b.Duration)
		}
		start := TickAt(pos)
		pos.Add(pos, big.NewRat(1, int64(b.Duration)))
		if b.IsRest() {
			continue
		}
		end := TickAt(pos)

		ks := keys(b)
		for i, k := range ks {
			delta := uint32(0)
			if i == 0 {
				delta = start - written
			}
			tr.Add(delta, midi.NoteOn(0, k, velocity))
		}
		for i, k := range ks {
			delta := uint32(0)
			if i == 0 {
				delta = end - start
			}
			tr.Add(delta, midi.NoteOff(0, k))
		}
		written = end
	}
	tr.Close(TickAt(pos) - written)

	if err := s.Add(tr); err != nil {
		return fmt.Errorf("preview: add track: %w", err)
	}
	if _, err := s.WriteTo(w); err != nil {
		return fmt.Errorf("preview: write smf: %w", err)
	}
	return nil
}
