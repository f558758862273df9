package preview

import (
	"bytes"
	"math/big"
	"testing"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/starford/lickdex/internal/canon"
	"github.com/starford/lickdex/internal/music"
)

func TestTickAt(t *testing.T) {
	cases := []struct {
		pos  *big.Rat
		want uint32
	}{
		{big.NewRat(0, 1), 0},
		{big.NewRat(1, 1), 3840},
		{big.NewRat(1, 4), 960},
		{big.NewRat(3, 8), 1440},
		{big.NewRat(1, 7), 549},
		{big.NewRat(1, 8192), 0},
	}
	for _, c := range cases {
		if got := TickAt(c.pos); got != c.want {
			t.Errorf("TickAt(%s) = %d, want %d", c.pos.RatString(), got, c.want)
		}
	}
}

// render writes beats and returns note-on count, note-off count and total
// ticks of the resulting track.
func render(t *testing.T, beats []canon.Beat) (ons, offs int, total uint64) {
	t.Helper()
	var buf bytes.Buffer
	if err := Measure(&buf, beats, 0); err != nil {
		t.Fatalf("Measure: %v", err)
	}
	s, err := smf.ReadFrom(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("ReadFrom: %v", err)
	}
	if len(s.Tracks) != 1 {
		t.Fatalf("tracks = %d, want 1", len(s.Tracks))
	}
	for _, ev := range s.Tracks[0] {
		total += uint64(ev.Delta)
		switch {
		case ev.Message.Is(midi.NoteOnMsg):
			ons++
		case ev.Message.Is(midi.NoteOffMsg):
			offs++
		}
	}
	return ons, offs, total
}

func TestMeasureRoundTrip(t *testing.T) {
	std := music.StandardTuning()
	chord, err := canon.NewBeat(4, []canon.Note{{String: 5, Fret: 3}, {String: 4, Fret: 2}}, std)
	if err != nil {
		t.Fatal(err)
	}
	rest, _ := canon.NewBeat(4, nil, std)
	single, _ := canon.NewBeat(2, []canon.Note{{String: 1, Fret: 0}}, std)

	ons, offs, total := render(t, []canon.Beat{chord, rest, single})
	if ons != 3 || offs != 3 {
		t.Errorf("note on/off = %d/%d, want 3/3", ons, offs)
	}
	// quarter + quarter rest + half = one whole note
	if total != ticksPerWhole {
		t.Errorf("total ticks = %d, want %d", total, ticksPerWhole)
	}
}

func TestMeasureIrregularDurations(t *testing.T) {
	std := music.StandardTuning()
	note, _ := canon.NewBeat(7, []canon.Note{{String: 1, Fret: 0}}, std)
	beats := []canon.Beat{note, note, note, note, note, note, note}

	ons, offs, total := render(t, beats)
	if ons != 7 || offs != 7 {
		t.Errorf("note on/off = %d/%d, want 7/7", ons, offs)
	}
	// seven sevenths fill a whole note with no rounding drift
	if total != ticksPerWhole {
		t.Errorf("total ticks = %d, want %d", total, ticksPerWhole)
	}
}

func TestMeasureOctaveChordSingleKey(t *testing.T) {
	std := music.StandardTuning()
	octaves, err := canon.NewBeat(4, []canon.Note{{String: 6, Fret: 0}, {String: 1, Fret: 0}}, std)
	if err != nil {
		t.Fatal(err)
	}
	if len(octaves.Pitches) != 2 {
		t.Fatalf("pitches = %v", octaves.Pitches)
	}

	ons, offs, total := render(t, []canon.Beat{octaves})
	if ons != 1 || offs != 1 {
		t.Errorf("note on/off = %d/%d, want 1/1", ons, offs)
	}
	if total != ticksPerQuarter {
		t.Errorf("total ticks = %d, want %d", total, ticksPerQuarter)
	}
}

func TestMeasureAllRests(t *testing.T) {
	rest, _ := canon.NewBeat(1, nil, music.StandardTuning())
	var buf bytes.Buffer
	if err := Measure(&buf, []canon.Beat{rest}, 90); err != nil {
		t.Fatalf("Measure: %v", err)
	}
	if buf.Len() == 0 {
		t.Error("expected a file even for a silent measure")
	}
}

func TestMeasureRejectsInvalidDuration(t *testing.T) {
	var buf bytes.Buffer
	if err := Measure(&buf, []canon.Beat{{Duration: 0}}, 0); err == nil {
		t.Error("expected error for zero duration")
	}
}
