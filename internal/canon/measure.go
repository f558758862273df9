package canon

import (
	"context"
	"fmt"
	"strings"

	"github.com/starford/lickdex/internal/music"
)

// Measure is an ordered sequence of canonical beats under one tuning.
type Measure struct {
	Tuning music.Tuning
	Beats  []ID
}

// Key returns "<tuning signature>|<beat id>,<beat id>,...". Beat order is
// part of the key. A measure with no beats has the key "<signature>|".
func (m Measure) Key() string {
	ids := make([]string, len(m.Beats))
	for i, id := range m.Beats {
		ids[i] = string(id)
	}
	return m.Tuning.Signature() + "|" + strings.Join(ids, ",")
}

// ParseMeasureKey rebuilds a Measure from its key.
func ParseMeasureKey(key string) (Measure, error) {
	sig, rest, ok := strings.Cut(key, "|")
	if !ok {
		return Measure{}, fmt.Errorf("canon: malformed measure key %q", key)
	}
	tuning, err := music.ParseSignature(sig)
	if err != nil {
		return Measure{}, err
	}
	m := Measure{Tuning: tuning, Beats: []ID{}}
	if rest == "" {
		return m, nil
	}
	for _, id := range strings.Split(rest, ",") {
		m.Beats = append(m.Beats, ID(id))
	}
	return m, nil
}

// CanonicalizeMeasure interns the ordered beat sequence of one measure.
func CanonicalizeMeasure(ctx context.Context, s Store, beats []ID, tuning music.Tuning) (ID, error) {
	m := Measure{Tuning: tuning, Beats: beats}
	return s.GetOrCreate(ctx, KindMeasure, m.Key())
}
