package recurrence

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"
)

// Rule is a validated recurrence together with its canonical lines and a
// preview computed once at construction. A Rule is immutable and safe for
// concurrent use.
type Rule struct {
	input              string
	form               InputForm
	start              time.Time
	numPreview         int
	dailyOrGreaterOnly bool
	canonical          []string
	model              Model
	preview            []time.Time

	zone   *time.Location
	logger *slog.Logger
}

type options struct {
	config   Config
	logger   *slog.Logger
	phrases  PhraseParser
	expander Expander
}

// Option configures New.
type Option func(*options)

// WithConfig replaces the whole construction policy.
func WithConfig(cfg Config) Option {
	return func(o *options) { o.config = cfg }
}

// WithNumPreview sets how many occurrences are previewed.
func WithNumPreview(n int) Option {
	return func(o *options) { o.config.NumPreview = n }
}

// WithDailyOrGreaterOnly turns the sub-daily rejection on or off.
func WithDailyOrGreaterOnly(on bool) Option {
	return func(o *options) { o.config.DailyOrGreaterOnly = on }
}

// WithComparisonZone sets the zone used by (*Rule).Reconcile.
func WithComparisonZone(loc *time.Location) Option {
	return func(o *options) { o.config.ComparisonZone = loc }
}

// WithLogger sets the logger for the rule and its normalizer.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithPhraseParser replaces the natural-language engine.
func WithPhraseParser(p PhraseParser) Option {
	return func(o *options) { o.phrases = p }
}

// WithExpander replaces the recurrence-expansion engine.
func WithExpander(e Expander) Option {
	return func(o *options) { o.expander = e }
}

// New validates input and builds a Rule anchored at start. Input is either
// RFC 5545 rule text (anything containing FREQ=) or an English phrase.
//
// The returned error is an *Error of type ErrParse or ErrGranularity.
func New(input string, start time.Time, opts ...Option) (*Rule, error) {
	o := options{config: DefaultConfig}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if o.config.ComparisonZone == nil {
		o.config.ComparisonZone = time.UTC
	}
	if o.config.NumPreview < 0 || o.config.NumPreview > MaxPreview {
		return nil, &Error{
			Type:    ErrParse,
			Message: fmt.Sprintf("number of previewed occurrences must be between 0 and %d, got %d", MaxPreview, o.config.NumPreview),
			Input:   input,
		}
	}

	normalized, err := NewNormalizer(o.phrases, o.expander, o.logger).Normalize(input, start)
	if err != nil {
		return nil, err
	}
	if o.config.DailyOrGreaterOnly {
		if err := checkGranularity(normalized.Model, input); err != nil {
			return nil, err
		}
	}

	return &Rule{
		input:              input,
		form:               normalized.Form,
		start:              normalized.Start,
		numPreview:         o.config.NumPreview,
		dailyOrGreaterOnly: o.config.DailyOrGreaterOnly,
		canonical:          normalized.Canonical,
		model:              normalized.Model,
		preview:            Preview(normalized.Model, o.config.NumPreview),
		zone:               o.config.ComparisonZone,
		logger:             o.logger,
	}, nil
}

func (r *Rule) Input() string            { return r.input }
func (r *Rule) Form() InputForm          { return r.form }
func (r *Rule) Start() time.Time         { return r.start }
func (r *Rule) NumPreview() int          { return r.numPreview }
func (r *Rule) DailyOrGreaterOnly() bool { return r.dailyOrGreaterOnly }
func (r *Rule) Model() Model             { return r.model }

// Canonical returns a copy of the canonical lines.
func (r *Rule) Canonical() []string {
	return append([]string(nil), r.canonical...)
}

// Preview returns a copy of the occurrences computed at construction.
func (r *Rule) Preview() []time.Time {
	return append([]time.Time(nil), r.preview...)
}

// Reconcile aligns an event window with the first previewed occurrence, comparing
// dates in the rule's comparison zone.
func (r *Rule) Reconcile(start, end time.Time) (time.Time, time.Time, error) {
	newStart, newEnd, err := Reconcile(start, end, r.preview, r.zone)
	if err != nil {
		r.logger.Error("recurrence inconsistent with start",
			"input", r.input,
			"start", start,
			"error", err)
		return start, end, err
	}
	if !newStart.Equal(start) {
		r.logger.Info("event moved to first occurrence",
			"input", r.input,
			"from", start,
			"to", newStart,
			"end", newEnd)
	}
	return newStart, newEnd, nil
}

// Between returns occurrences within [after, before], at most limit of them
// when limit is positive.
func (r *Rule) Between(after, before time.Time, limit int) []time.Time {
	return Between(r.model, after, before, limit)
}

// HasOccurrenceInRange reports whether an occurrence lasting length overlaps
// [rangeStart, rangeEnd). A zero length counts occurrences at rangeStart.
func (r *Rule) HasOccurrenceInRange(rangeStart, rangeEnd time.Time, length time.Duration) bool {
	if !rangeEnd.After(rangeStart) {
		return false
	}
	next := r.model.Iterator()
	for {
		t, ok := next()
		if !ok || !t.Before(rangeEnd) {
			return false
		}
		if end := t.Add(length); end.After(rangeStart) || (length == 0 && t.Equal(rangeStart)) {
			return true
		}
	}
}

// MarshalJSON implements json.Marshaler.
func (r *Rule) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.View())
}
