package music

import (
	"errors"
	"testing"

	"github.com/starford/lickdex/internal/apperr"
)

func TestParsePitch(t *testing.T) {
	cases := map[string]Pitch{
		"C":   C,
		"E":   E,
		"e4":  E,
		"F#":  FSharp,
		"Gb":  FSharp,
		"Bb3": ASharp,
		"Cb":  B,
		"B#":  C,
		"A2":  A,
	}
	for name, want := range cases {
		got, err := ParsePitch(name)
		if err != nil {
			t.Errorf("ParsePitch(%q): %v", name, err)
			continue
		}
		if got != want {
			t.Errorf("ParsePitch(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestParsePitch_Invalid(t *testing.T) {
	for _, name := range []string{"", "H", "E#x", "Z4"} {
		if _, err := ParsePitch(name); err == nil {
			t.Errorf("ParsePitch(%q) should fail", name)
		}
	}
}

func TestTuningFromStrings_ReversesOrder(t *testing.T) {
	tuning, err := TuningFromStrings([]string{"E4", "B3", "G3", "D3", "A2", "E2"})
	if err != nil {
		t.Fatalf("TuningFromStrings: %v", err)
	}
	if got, want := tuning.Signature(), StandardTuning().Signature(); got != want {
		t.Errorf("signature = %q, want %q", got, want)
	}
}

func TestSignatureRoundTrip(t *testing.T) {
	tuning := Tuning{D, A, D, G, B, E}
	back, err := ParseSignature(tuning.Signature())
	if err != nil {
		t.Fatalf("ParseSignature: %v", err)
	}
	if back.Signature() != tuning.Signature() {
		t.Errorf("round trip = %q", back.Signature())
	}
	if _, err := ParseSignature("4-x"); err == nil {
		t.Error("expected error for malformed signature")
	}
}

func TestResolve(t *testing.T) {
	std := StandardTuning()
	cases := []struct {
		str, fret int
		want      Pitch
	}{
		{1, 0, E},      // high e open
		{2, 1, C},      // B string, 1st fret
		{6, 3, G},      // low E, 3rd fret
		{5, 12, A},     // octave wraps
		{3, 1, GSharp}, // G string
	}
	for _, c := range cases {
		got, err := Resolve(c.str, c.fret, std)
		if err != nil {
			t.Fatalf("Resolve(%d,%d): %v", c.str, c.fret, err)
		}
		if got != c.want {
			t.Errorf("Resolve(%d,%d) = %v, want %v", c.str, c.fret, got, c.want)
		}
	}
}

func TestResolve_OutOfRange(t *testing.T) {
	std := StandardTuning()
	for _, s := range []int{0, 7, -1} {
		_, err := Resolve(s, 0, std)
		if !errors.Is(err, apperr.ErrStringIndexOutOfRange) {
			t.Errorf("Resolve(%d) err = %v, want ErrStringIndexOutOfRange", s, err)
		}
	}
	if _, err := Resolve(1, -2, std); !errors.Is(err, apperr.ErrInvalidFret) {
		t.Errorf("negative fret err = %v", err)
	}
}

func TestParseKey(t *testing.T) {
	cases := map[string]string{
		"C":   "C",
		"Am":  "Am",
		"f#m": "F#m",
		"Bb":  "A#",
		"Ebm": "D#m",
		" G ": "G",
	}
	for name, want := range cases {
		k, err := ParseKey(name)
		if err != nil {
			t.Errorf("ParseKey(%q): %v", name, err)
			continue
		}
		if k.String() != want {
			t.Errorf("ParseKey(%q) = %s, want %s", name, k, want)
		}
	}
}

func TestParseKey_Invalid(t *testing.T) {
	for _, name := range []string{"", "m", "H", "E4", "Cmaj", "A-1"} {
		if _, err := ParseKey(name); !errors.Is(err, apperr.ErrInvalidKey) {
			t.Errorf("ParseKey(%q) err = %v, want ErrInvalidKey", name, err)
		}
	}
}
