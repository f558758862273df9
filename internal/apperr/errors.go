// Package apperr defines the error taxonomy shared by the analysis core and
// the service layers above it.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// Service-level outcomes.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalidTab    = errors.New("invalid tab document")
	ErrInvalidKey    = errors.New("invalid key")
)

// Analysis errors. Beat and measure errors are reported wrapped in a
// ScopedError; ErrEmptyTrack always rejects the whole track.
var (
	ErrInvalidDuration           = errors.New("invalid duration")
	ErrInvalidFret               = errors.New("invalid fret")
	ErrStringIndexOutOfRange     = errors.New("string index out of range")
	ErrEmptyTrack                = errors.New("empty track")
	ErrUnsupportedVoiceStructure = errors.New("unsupported voice structure")
	ErrContentStoreConflict      = errors.New("content store conflict")
)

// ScopedError locates a malformed unit inside a track. Beat is -1 when the
// error concerns the measure as a whole.
type ScopedError struct {
	Track   int
	Measure int
	Beat    int
	Err     error
}

func (e *ScopedError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "track %d measure %d", e.Track, e.Measure)
	if e.Beat >= 0 {
		fmt.Fprintf(&b, " beat %d", e.Beat)
	}
	b.WriteString(": ")
	b.WriteString(e.Err.Error())
	return b.String()
}

func (e *ScopedError) Unwrap() error { return e.Err }

// Skippable reports whether err is confined to a single beat or measure, so a
// caller may drop that unit and keep analyzing the rest of the track.
func Skippable(err error) bool {
	var se *ScopedError
	return errors.As(err, &se)
}
