package canon

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/starford/lickdex/internal/apperr"
	"github.com/starford/lickdex/internal/music"
)

func TestCanonicalizeBeat_FingeringIndependent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	std := music.StandardTuning()

	// C on the B string 1st fret and on the G string 5th fret, plus an open E.
	a, err := CanonicalizeBeat(ctx, s, 4, []Note{{String: 2, Fret: 1}, {String: 1, Fret: 0}}, std)
	if err != nil {
		t.Fatalf("CanonicalizeBeat: %v", err)
	}
	b, err := CanonicalizeBeat(ctx, s, 4, []Note{{String: 1, Fret: 0}, {String: 3, Fret: 5}}, std)
	if err != nil {
		t.Fatalf("CanonicalizeBeat: %v", err)
	}
	if a != b {
		t.Errorf("same chord gave different ids: %s vs %s", a, b)
	}
	if s.Len() != 1 {
		t.Errorf("store len = %d, want 1", s.Len())
	}
}

func TestCanonicalizeBeat_DistinguishesContent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	std := music.StandardTuning()
	note := []Note{{String: 1, Fret: 0}}

	quarter, _ := CanonicalizeBeat(ctx, s, 4, note, std)
	eighth, _ := CanonicalizeBeat(ctx, s, 8, note, std)
	dropD, _ := CanonicalizeBeat(ctx, s, 4, note, music.Tuning{music.D, music.A, music.D, music.G, music.B, music.E})
	rest, _ := CanonicalizeBeat(ctx, s, 4, nil, std)

	ids := map[ID]bool{quarter: true, eighth: true, dropD: true, rest: true}
	if len(ids) != 4 {
		t.Errorf("expected 4 distinct ids, got %d", len(ids))
	}
}

func TestCanonicalizeBeat_KeepsDuplicatePitches(t *testing.T) {
	std := music.StandardTuning()
	b, err := NewBeat(2, []Note{{String: 1, Fret: 0}, {String: 6, Fret: 0}}, std)
	if err != nil {
		t.Fatal(err)
	}
	if len(b.Pitches) != 2 || b.Pitches[0] != music.E || b.Pitches[1] != music.E {
		t.Errorf("pitches = %v, want [E E]", b.Pitches)
	}
	single, _ := NewBeat(2, []Note{{String: 1, Fret: 0}}, std)
	if b.Key() == single.Key() {
		t.Error("doubled pitch should not collapse into a single note")
	}
}

func TestCanonicalizeBeat_Errors(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	std := music.StandardTuning()

	if _, err := CanonicalizeBeat(ctx, s, 0, nil, std); !errors.Is(err, apperr.ErrInvalidDuration) {
		t.Errorf("zero duration err = %v", err)
	}
	if _, err := CanonicalizeBeat(ctx, s, -4, nil, std); !errors.Is(err, apperr.ErrInvalidDuration) {
		t.Errorf("negative duration err = %v", err)
	}
	if _, err := CanonicalizeBeat(ctx, s, 4, []Note{{String: 7, Fret: 0}}, std); !errors.Is(err, apperr.ErrStringIndexOutOfRange) {
		t.Errorf("bad string err = %v", err)
	}
	if s.Len() != 0 {
		t.Errorf("failed canonicalization must not insert, len = %d", s.Len())
	}
}

func TestBeatKeyRoundTrip(t *testing.T) {
	b, _ := NewBeat(16, []Note{{String: 6, Fret: 3}, {String: 5, Fret: 2}}, music.StandardTuning())
	back, err := ParseBeatKey(b.Key())
	if err != nil {
		t.Fatalf("ParseBeatKey: %v", err)
	}
	if back.Key() != b.Key() {
		t.Errorf("round trip key = %q, want %q", back.Key(), b.Key())
	}
	rest, _ := NewBeat(4, nil, music.StandardTuning())
	back, err = ParseBeatKey(rest.Key())
	if err != nil || !back.IsRest() {
		t.Errorf("rest round trip = %+v, %v", back, err)
	}
	if _, err := ParseBeatKey("nope"); err == nil {
		t.Error("expected error for malformed key")
	}
}

func TestCanonicalizeMeasure_OrderMatters(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	std := music.StandardTuning()

	ab, _ := CanonicalizeMeasure(ctx, s, []ID{"a", "b"}, std)
	ba, _ := CanonicalizeMeasure(ctx, s, []ID{"b", "a"}, std)
	ab2, _ := CanonicalizeMeasure(ctx, s, []ID{"a", "b"}, std)
	if ab == ba {
		t.Error("beat order must be part of the measure identity")
	}
	if ab != ab2 {
		t.Error("same sequence must map to the same identity")
	}
}

func TestCanonicalizeMeasure_Empty(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	std := music.StandardTuning()

	empty, err := CanonicalizeMeasure(ctx, s, nil, std)
	if err != nil {
		t.Fatalf("empty measure: %v", err)
	}
	other, _ := CanonicalizeMeasure(ctx, s, []ID{}, std)
	if empty != other {
		t.Error("nil and empty beat lists should share the empty-measure identity")
	}
	m, err := ParseMeasureKey(Measure{Tuning: std}.Key())
	if err != nil || len(m.Beats) != 0 {
		t.Errorf("ParseMeasureKey(empty) = %+v, %v", m, err)
	}
}

func TestMemoryStore_ConcurrentSameKey(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	const workers = 64
	ids := make([]ID, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := s.GetOrCreate(ctx, KindBeat, "4|4-9-2-7-11-4|0")
			if err != nil {
				t.Error(err)
				return
			}
			ids[i] = id
		}(i)
	}
	wg.Wait()

	for _, id := range ids[1:] {
		if id != ids[0] {
			t.Fatalf("concurrent callers saw different ids: %s vs %s", id, ids[0])
		}
	}
	if s.Len() != 1 {
		t.Errorf("store len = %d, want 1", s.Len())
	}
}

func TestMemoryStore_KindsAreSeparate(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	a, _ := s.GetOrCreate(ctx, KindBeat, "x")
	b, _ := s.GetOrCreate(ctx, KindMeasure, "x")
	if a == b {
		t.Error("beat and measure key spaces must not collide")
	}
}
