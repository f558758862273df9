// Package tab reads tab documents: YAML files describing a song as tracks of
// measures, voices and beats of fretted notes.
package tab

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"

	"github.com/starford/lickdex/internal/apperr"
	"github.com/starford/lickdex/internal/canon"
	"github.com/starford/lickdex/internal/music"
)

// Document is a parsed tab file.
type Document struct {
	Title  string  `yaml:"title" json:"title"`
	Artist string  `yaml:"artist" json:"artist"`
	Album  string  `yaml:"album" json:"album"`
	Year   string  `yaml:"year" json:"year,omitempty"`
	Tempo  int     `yaml:"tempo" json:"tempo"`
	Tracks []Track `yaml:"tracks" json:"tracks"`
}

// Track is one instrument part. Strings are listed highest string first.
type Track struct {
	Index      int       `yaml:"-" json:"index"`
	Name       string    `yaml:"name" json:"name"`
	Instrument *int      `yaml:"instrument" json:"instrument,omitempty"`
	Strings    []string  `yaml:"strings" json:"strings"`
	Measures   []Measure `yaml:"measures" json:"-"`
}

// Measure holds one or more voices; each voice is an ordered beat list.
type Measure struct {
	Voices [][]Beat `yaml:"voices"`
}

// Beat is a raw beat: duration denominator (4 = quarter) and the fretted
// notes struck together. No notes means a rest.
type Beat struct {
	Duration int          `yaml:"duration"`
	Notes    []canon.Note `yaml:"notes"`
}

// Parse decodes and validates a tab document. Only structural problems are
// rejected here; beat-level errors are reported by the analysis.
func Parse(data []byte) (*Document, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty document", apperr.ErrInvalidTab)
		}
		return nil, fmt.Errorf("%w: %v", apperr.ErrInvalidTab, err)
	}
	for i := range doc.Tracks {
		doc.Tracks[i].Index = i
	}
	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrInvalidTab, err)
	}
	return &doc, nil
}

// Validate checks the document structure.
func (d *Document) Validate() error {
	if err := validation.ValidateStruct(d,
		validation.Field(&d.Tracks, validation.Required),
		validation.Field(&d.Tempo, validation.Min(0)),
	); err != nil {
		return err
	}
	for i := range d.Tracks {
		if err := d.Tracks[i].Validate(); err != nil {
			return fmt.Errorf("track %d: %w", i, err)
		}
	}
	return nil
}

// Validate checks that the track carries a parseable tuning.
func (t *Track) Validate() error {
	return validation.ValidateStruct(t,
		validation.Field(&t.Strings, validation.Required, validation.Each(validation.By(noteName))),
	)
}

func noteName(value interface{}) error {
	s, _ := value.(string)
	_, err := music.ParsePitch(s)
	return err
}

// Tuning returns the track tuning, lowest string first.
func (t *Track) Tuning() (music.Tuning, error) {
	return music.TuningFromStrings(t.Strings)
}

// guitarPrograms are the General MIDI guitar programs (0-based 24..30).
var guitarPrograms = map[int]string{
	24: "Nylon string guitar",
	25: "Steel string guitar",
	26: "Jazz electric guitar",
	27: "Clean guitar",
	28: "Muted guitar",
	29: "Overdrive guitar",
	30: "Distortion guitar",
}

// IsGuitar reports whether the track is a six-string guitar part. Tracks
// without an instrument program are judged on their string count alone.
func (t *Track) IsGuitar() bool {
	if len(t.Strings) != 6 {
		return false
	}
	if t.Instrument == nil {
		return true
	}
	_, ok := guitarPrograms[*t.Instrument]
	return ok
}

// InstrumentName returns the GM guitar name for the track, if any.
func (t *Track) InstrumentName() string {
	if t.Instrument == nil {
		return ""
	}
	return guitarPrograms[*t.Instrument]
}

// GuitarTracks returns the tracks eligible for analysis.
func (d *Document) GuitarTracks() []Track {
	var out []Track
	for _, t := range d.Tracks {
		if t.IsGuitar() {
			out = append(out, t)
		}
	}
	return out
}
