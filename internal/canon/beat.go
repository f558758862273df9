package canon

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/starford/lickdex/internal/apperr"
	"github.com/starford/lickdex/internal/music"
)

// Note is a fretted note as read from a tab: string number (1 = highest
// string) and fret.
type Note struct {
	String int `json:"string" yaml:"string"`
	Fret   int `json:"fret" yaml:"fret"`
}

// Beat is the musical content of one beat. Pitches are sorted and keep
// duplicates; an empty set is a rest.
type Beat struct {
	Duration int
	Tuning   music.Tuning
	Pitches  []music.Pitch
}

// NewBeat resolves notes against tuning and returns the beat in canonical
// form. It does not touch any store.
func NewBeat(duration int, notes []Note, tuning music.Tuning) (Beat, error) {
	if duration <= 0 {
		return Beat{}, fmt.Errorf("%w: %d", apperr.ErrInvalidDuration, duration)
	}
	pitches := make([]music.Pitch, 0, len(notes))
	for _, n := range notes {
		p, err := music.Resolve(n.String, n.Fret, tuning)
		if err != nil {
			return Beat{}, err
		}
		pitches = append(pitches, p)
	}
	slices.Sort(pitches)
	return Beat{Duration: duration, Tuning: tuning, Pitches: pitches}, nil
}

// IsRest reports whether no note sounds in the beat.
func (b Beat) IsRest() bool { return len(b.Pitches) == 0 }

// Key returns the canonical key: duration, tuning signature and sorted pitch
// multiset, e.g. "4|4-9-2-7-11-4|0,4,7".
func (b Beat) Key() string {
	ps := make([]string, len(b.Pitches))
	for i, p := range b.Pitches {
		ps[i] = strconv.Itoa(int(p))
	}
	return strconv.Itoa(b.Duration) + "|" + b.Tuning.Signature() + "|" + strings.Join(ps, ",")
}

// ParseBeatKey rebuilds a Beat from its key.
func ParseBeatKey(key string) (Beat, error) {
	parts := strings.Split(key, "|")
	if len(parts) != 3 {
		return Beat{}, fmt.Errorf("canon: malformed beat key %q", key)
	}
	d, err := strconv.Atoi(parts[0])
	if err != nil || d <= 0 {
		return Beat{}, fmt.Errorf("canon: malformed beat key %q", key)
	}
	tuning, err := music.ParseSignature(parts[1])
	if err != nil {
		return Beat{}, err
	}
	b := Beat{Duration: d, Tuning: tuning, Pitches: []music.Pitch{}}
	if parts[2] == "" {
		return b, nil
	}
	for _, s := range strings.Split(parts[2], ",") {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 || n > 11 {
			return Beat{}, fmt.Errorf("canon: malformed beat key %q", key)
		}
		b.Pitches = append(b.Pitches, music.Pitch(n))
	}
	return b, nil
}

// InternBeat returns the identity of b, creating it on first sight.
func InternBeat(ctx context.Context, s Store, b Beat) (ID, error) {
	return s.GetOrCreate(ctx, KindBeat, b.Key())
}

// CanonicalizeBeat resolves a raw beat and interns it. Two fingerings of the
// same chord with the same duration yield the same identity.
func CanonicalizeBeat(ctx context.Context, s Store, duration int, notes []Note, tuning music.Tuning) (ID, error) {
	b, err := NewBeat(duration, notes, tuning)
	if err != nil {
		return "", err
	}
	return InternBeat(ctx, s, b)
}
