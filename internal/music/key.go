package music

import (
	"fmt"
	"strings"

	"github.com/starford/lickdex/internal/apperr"
)

// Key is a tonal center a track is tagged with.
type Key struct {
	Tonic Pitch
	Minor bool
}

// ParseKey reads a key name: a tonic note without octave, optionally
// followed by "m" for minor ("A", "F#m", "Bbm").
func ParseKey(name string) (Key, error) {
	s := strings.TrimSpace(name)
	minor := strings.HasSuffix(s, "m")
	if minor {
		s = strings.TrimSuffix(s, "m")
	}
	if s == "" || strings.ContainsAny(s, "0123456789-") {
		return Key{}, fmt.Errorf("%w: %q", apperr.ErrInvalidKey, name)
	}
	p, err := ParsePitch(s)
	if err != nil {
		return Key{}, fmt.Errorf("%w: %q", apperr.ErrInvalidKey, name)
	}
	return Key{Tonic: p, Minor: minor}, nil
}

// String returns the stored form of the key, tonic spelled with sharps.
func (k Key) String() string {
	if k.Minor {
		return k.Tonic.String() + "m"
	}
	return k.Tonic.String()
}
