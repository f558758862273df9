package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/starford/lickdex/internal/apperr"
	"github.com/starford/lickdex/internal/canon"
	"github.com/starford/lickdex/internal/music"
	"github.com/starford/lickdex/internal/tab"
)

// ErrorPolicy decides what happens to a malformed beat or measure. Returning
// nil drops the measure and continues; returning an error aborts the track.
type ErrorPolicy func(*apperr.ScopedError) error

// Escalate rejects the whole track on the first malformed unit.
func Escalate(err *apperr.ScopedError) error { return err }

// SkipMalformed drops malformed measures and keeps analyzing.
func SkipMalformed(*apperr.ScopedError) error { return nil }

// Aggregator analyzes tracks against a shared canonical store. It holds no
// per-track state and may be used from many goroutines.
type Aggregator struct {
	store  canon.Store
	policy ErrorPolicy
	logger *slog.Logger
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithErrorPolicy sets the policy for malformed beats and measures.
func WithErrorPolicy(p ErrorPolicy) Option {
	return func(a *Aggregator) {
		a.policy = p
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Aggregator) {
		a.logger = l
	}
}

// NewAggregator creates an Aggregator. The default policy escalates.
func NewAggregator(store canon.Store, opts ...Option) *Aggregator {
	a := &Aggregator{
		store:  store,
		policy: Escalate,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze walks the measures of tr in order and returns its statistics.
// Only the first voice of every measure is analyzed.
func (a *Aggregator) Analyze(ctx context.Context, tr tab.Track) (*TrackAnalysis, error) {
	tuning, err := tr.Tuning()
	if err != nil {
		return nil, fmt.Errorf("%w: track %d tuning: %v", apperr.ErrInvalidTab, tr.Index, err)
	}
	total := len(tr.Measures)
	if total == 0 {
		return nil, fmt.Errorf("track %d: %w", tr.Index, apperr.ErrEmptyTrack)
	}

	acc := NewAccumulator()
	occurrences := make(map[canon.ID][]int)
	var order []canon.ID
	var skipped []int

	for i, m := range tr.Measures {
		id, macc, err := a.measure(ctx, tr.Index, i, m, tuning)
		if err != nil {
			var se *apperr.ScopedError
			if !errors.As(err, &se) {
				return nil, err
			}
			if perr := a.policy(se); perr != nil {
				return nil, perr
			}
			a.logger.Warn("analysis: measure skipped",
				slog.Int("track", tr.Index),
				slog.Int("measure", i),
				slog.String("error", se.Error()))
			skipped = append(skipped, i)
			continue
		}
		acc.Merge(macc)
		if _, seen := occurrences[id]; !seen {
			order = append(order, id)
		}
		occurrences[id] = append(occurrences[id], i)
	}

	pitches, err := acc.Finalize()
	if err != nil {
		return nil, fmt.Errorf("track %d: %w", tr.Index, err)
	}

	analyzed := int64(total - len(skipped))
	measures := make([]MeasureMatch, len(order))
	for i, id := range order {
		idx := occurrences[id]
		measures[i] = MeasureMatch{
			ID:          id,
			Occurrences: idx,
			Match:       big.NewRat(int64(len(idx)), analyzed),
		}
	}

	a.logger.Debug("analysis: track analyzed",
		slog.Int("track", tr.Index),
		slog.Int("measures", total),
		slog.Int("distinct_measures", len(order)),
		slog.Int("skipped", len(skipped)),
		slog.String("total_duration", acc.Total().RatString()))

	return &TrackAnalysis{
		Tuning:        tuning,
		MeasureCount:  total,
		TotalDuration: acc.Total(),
		RestDuration:  acc.RestDuration(),
		Measures:      measures,
		Pitches:       pitches,
		Skipped:       skipped,
	}, nil
}

// measure canonicalizes one measure. Every beat is resolved before the store
// is touched, so a malformed measure leaves no trace in it. The returned
// accumulator holds the measure's contribution only.
func (a *Aggregator) measure(ctx context.Context, track, index int, m tab.Measure, tuning music.Tuning) (canon.ID, *Accumulator, error) {
	if len(m.Voices) == 0 {
		return "", nil, &apperr.ScopedError{
			Track: track, Measure: index, Beat: -1,
			Err: fmt.Errorf("%w: measure has no voices", apperr.ErrUnsupportedVoiceStructure),
		}
	}
	voice := m.Voices[0]

	beats := make([]canon.Beat, len(voice))
	for j, rb := range voice {
		b, err := canon.NewBeat(rb.Duration, rb.Notes, tuning)
		if err != nil {
			return "", nil, &apperr.ScopedError{Track: track, Measure: index, Beat: j, Err: err}
		}
		beats[j] = b
	}

	acc := NewAccumulator()
	ids := make([]canon.ID, len(beats))
	for j, b := range beats {
		id, err := canon.InternBeat(ctx, a.store, b)
		if err != nil {
			return "", nil, fmt.Errorf("analysis: intern beat: %w", err)
		}
		ids[j] = id
		acc.Add(b)
	}

	id, err := canon.CanonicalizeMeasure(ctx, a.store, ids, tuning)
	if err != nil {
		return "", nil, fmt.Errorf("analysis: intern measure: %w", err)
	}
	return id, acc, nil
}
