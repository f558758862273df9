// Package music resolves fretted notes into pitch classes.
package music

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/starford/lickdex/internal/apperr"
)

// Pitch is a pitch class in [0,11], C = 0. Octave information is discarded.
type Pitch int

// Pitch classes.
const (
	C Pitch = iota
	CSharp
	D
	DSharp
	E
	F
	FSharp
	G
	GSharp
	A
	ASharp
	B
)

var pitchNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

var naturals = map[byte]Pitch{'C': C, 'D': D, 'E': E, 'F': F, 'G': G, 'A': A, 'B': B}

func (p Pitch) String() string {
	if p < 0 || p > 11 {
		return fmt.Sprintf("Pitch(%d)", int(p))
	}
	return pitchNames[p]
}

// ParsePitch reads a note name such as "E", "f#", "Bb" or "E4". Any trailing
// octave digits are ignored.
func ParsePitch(name string) (Pitch, error) {
	s := strings.TrimSpace(name)
	if s == "" {
		return 0, fmt.Errorf("music: empty note name")
	}
	p, ok := naturals[strings.ToUpper(s[:1])[0]]
	if !ok {
		return 0, fmt.Errorf("music: invalid note name %q", name)
	}
	rest := s[1:]
	for len(rest) > 0 {
		switch rest[0] {
		case '#':
			p++
		case 'b':
			p--
		default:
			if _, err := strconv.Atoi(strings.TrimPrefix(rest, "-")); err != nil {
				return 0, fmt.Errorf("music: invalid note name %q", name)
			}
			rest = ""
			continue
		}
		rest = rest[1:]
	}
	return (p%12 + 12) % 12, nil
}

// Tuning lists the open pitch of every string, lowest string first.
type Tuning []Pitch

// TuningFromStrings builds a Tuning from note names listed highest string
// first, the order tab files store them in.
func TuningFromStrings(highToLow []string) (Tuning, error) {
	t := make(Tuning, len(highToLow))
	for i, name := range highToLow {
		p, err := ParsePitch(name)
		if err != nil {
			return nil, err
		}
		t[len(highToLow)-1-i] = p
	}
	return t, nil
}

// StandardTuning is E A D G B E.
func StandardTuning() Tuning {
	return Tuning{E, A, D, G, B, E}
}

// Signature is the stable textual form of the tuning used in canonical keys.
func (t Tuning) Signature() string {
	parts := make([]string, len(t))
	for i, p := range t {
		parts[i] = strconv.Itoa(int(p))
	}
	return strings.Join(parts, "-")
}

// ParseSignature is the inverse of Signature.
func ParseSignature(sig string) (Tuning, error) {
	if sig == "" {
		return Tuning{}, nil
	}
	parts := strings.Split(sig, "-")
	t := make(Tuning, len(parts))
	for i, s := range parts {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 || n > 11 {
			return nil, fmt.Errorf("music: invalid tuning signature %q", sig)
		}
		t[i] = Pitch(n)
	}
	return t, nil
}

// Names returns the note names of the tuning, lowest string first.
func (t Tuning) Names() []string {
	out := make([]string, len(t))
	for i, p := range t {
		out[i] = p.String()
	}
	return out
}

// Resolve returns the pitch sounded by fret on the given string. Strings are
// numbered from 1 starting at the highest-pitched string, as in tablature.
func Resolve(stringIndex, fret int, tuning Tuning) (Pitch, error) {
	if stringIndex < 1 || stringIndex > len(tuning) {
		return 0, fmt.Errorf("%w: string %d of %d", apperr.ErrStringIndexOutOfRange, stringIndex, len(tuning))
	}
	if fret < 0 {
		return 0, fmt.Errorf("%w: %d", apperr.ErrInvalidFret, fret)
	}
	open := tuning[len(tuning)-stringIndex]
	return Pitch((int(open) + fret) % 12), nil
}
