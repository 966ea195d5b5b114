package recurrence

import (
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/joshhubert-dsp/recurrent-plus/phrase"
)

// PhraseParser is the natural-language engine contract. Parse reads text
// relative to now and reports whether it recurs, the rule text it produced and
// any baseline the phrase named for itself.
type PhraseParser interface {
	Parse(text string, now time.Time) (phrase.Result, error)
}

// Normalized is the output of a successful normalization.
type Normalized struct {
	// Canonical holds the recurrence lines in order, without DTSTART or DTEND.
	Canonical []string
	// Start is the finalized anchor. It differs from the requested start only
	// when a phrase named its own baseline.
	Start time.Time
	Model Model
	Form  InputForm
}

// Normalizer turns raw rule text or English phrases into canonical lines and a
// parsed Model anchored at the finalized start.
type Normalizer struct {
	phrases  PhraseParser
	expander Expander
	logger   *slog.Logger
}

// NewNormalizer creates a normalizer. Nil arguments fall back to the
// package defaults.
func NewNormalizer(phrases PhraseParser, expander Expander, logger *slog.Logger) *Normalizer {
	if phrases == nil {
		phrases = phrase.New()
	}
	if expander == nil {
		expander = NewRRuleExpander()
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Normalizer{phrases: phrases, expander: expander, logger: logger}
}

// DetectForm classifies input by the presence of a FREQ= token, in any case.
func DetectForm(input string) InputForm {
	if strings.Contains(strings.ToUpper(input), "FREQ=") {
		return FormRawRule
	}
	return FormNaturalLanguage
}

// Canonicalize splits text into trimmed lines and drops blank lines and every
// line that mentions DTSTART or DTEND.
func Canonicalize(text string) []string {
	var out []string
	for _, line := range splitLines(text) {
		if isMarkerLine(line) {
			continue
		}
		out = append(out, line)
	}
	return out
}

// Normalize runs the pipeline for one input.
func (n *Normalizer) Normalize(input string, start time.Time) (Normalized, error) {
	form := DetectForm(input)
	n.logger.Debug("detected input form", "form", form, "input", input)

	var ruleText string
	switch form {
	case FormRawRule:
		if _, err := n.expander.Parse(splitLines(input), start); err != nil {
			return Normalized{}, parseError("invalid recurrence rule", input, err)
		}
		ruleText = input

	case FormNaturalLanguage:
		text := input
		if !phrase.HasBaseline(input) {
			text = "starting " + start.Format(time.RFC3339Nano) + ", " + input
		}
		res, err := n.phrases.Parse(text, start)
		if err != nil {
			return Normalized{}, parseError("could not interpret phrase", input, err)
		}
		if !res.IsRecurring {
			return Normalized{}, parseError("phrase does not describe a recurrence", input, nil)
		}
		if baseline, ok := res.Baseline.Get(); ok && !baseline.Equal(start) {
			n.logger.Debug("phrase baseline replaces start",
				"input", input,
				"start", start,
				"baseline", baseline)
			start = baseline
		}
		ruleText = res.RuleText
	}

	canonical := Canonicalize(ruleText)
	if len(canonical) == 0 {
		return Normalized{}, parseError("no recurrence lines after removing start and end markers", input, nil)
	}

	model, err := n.expander.Parse(canonical, start)
	if err != nil {
		return Normalized{}, parseError("canonical rule does not parse", strings.Join(canonical, "\n"), err)
	}

	return Normalized{
		Canonical: canonical,
		Start:     start,
		Model:     model,
		Form:      form,
	}, nil
}

func splitLines(text string) []string {
	var out []string
	for _, line := range strings.FieldsFunc(text, func(r rune) bool { return r == '\n' || r == '\r' }) {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}
