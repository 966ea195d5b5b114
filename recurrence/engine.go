package recurrence

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/samber/mo"
	"github.com/teambition/rrule-go"
)

// Expander is the recurrence-expansion engine: it turns canonical lines into a
// Model anchored at the given instant.
type Expander interface {
	Parse(lines []string, anchor time.Time) (Model, error)
}

// previewPrealloc caps the capacity Preview reserves up front.
const previewPrealloc = 64

var propertyNames = []string{"RRULE", "EXRULE", "RDATE", "EXDATE", "DTSTART", "DTEND"}

// maxExcludedRun stops an enumeration whose exclusions swallow every
// candidate, such as an EXRULE equal to its RRULE.
const maxExcludedRun = 1 << 16

// RRuleExpander expands canonical lines with github.com/teambition/rrule-go.
type RRuleExpander struct{}

// NewRRuleExpander creates a new expansion engine instance
func NewRRuleExpander() *RRuleExpander {
	return &RRuleExpander{}
}

// Parse builds a Model from lines. Lines without a property name are taken as
// RRULE values. DTSTART and DTEND lines are ignored: anchor is authoritative.
// Property names and values are read case-insensitively.
func (e *RRuleExpander) Parse(lines []string, anchor time.Time) (Model, error) {
	anchor = anchor.Truncate(time.Second)
	loc := anchor.Location()

	var (
		rules, exrules  []*rrule.RRule
		rdates, exdates []time.Time
		seen            int
	)
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || isMarkerLine(line) {
			continue
		}
		seen++
		line = upperLine(line)
		name, value := splitProperty(line)

		switch name {
		case "", "RRULE", "EXRULE":
			r, err := newRRule(value, anchor)
			if err != nil {
				return nil, fmt.Errorf("failed to parse recurrence %q: %w", line, err)
			}
			if name == "EXRULE" {
				exrules = append(exrules, r)
				continue
			}
			rules = append(rules, r)
		case "RDATE", "EXDATE":
			ts, err := rrule.StrToDatesInLoc(value, loc)
			if err != nil {
				return nil, fmt.Errorf("failed to parse dates %q: %w", line, err)
			}
			if name == "RDATE" {
				rdates = append(rdates, ts...)
			} else {
				exdates = append(exdates, ts...)
			}
		}
	}
	if seen == 0 {
		return nil, errors.New("no recurrence lines")
	}

	if len(rules) == 1 && seen == 1 {
		r := rules[0]
		return NewSingleModel(rruleSubRule{opt: r.OrigOptions, anchor: anchor}, func() Next {
			return Next(r.Iterator())
		}), nil
	}

	slices.SortFunc(rdates, func(a, b time.Time) int { return a.Compare(b) })
	iterate := func() Next {
		includes := make([]Next, 0, len(rules)+1)
		for _, r := range rules {
			includes = append(includes, Next(r.Iterator()))
		}
		includes = append(includes, sliceIterator(rdates))
		excludes := make([]Next, 0, len(exrules))
		for _, r := range exrules {
			excludes = append(excludes, Next(r.Iterator()))
		}
		return mergeIterators(includes, excludes, exdates)
	}
	return NewCompositeModel(subRules(rules, anchor), subRules(exrules, anchor), rdates, exdates, iterate), nil
}

// newRRule parses one rule value anchored at anchor.
func newRRule(value string, anchor time.Time) (*rrule.RRule, error) {
	opt, err := rrule.StrToROptionInLocation(value, anchor.Location())
	if err != nil {
		return nil, err
	}
	opt.Dtstart = anchor
	return rrule.NewRRule(*opt)
}

func subRules(rules []*rrule.RRule, anchor time.Time) []SubRule {
	out := make([]SubRule, len(rules))
	for i, r := range rules {
		out[i] = rruleSubRule{opt: r.OrigOptions, anchor: anchor}
	}
	return out
}

// cursor holds the pending value of one iterator.
type cursor struct {
	next Next
	head time.Time
	ok   bool
}

func newCursors(iters []Next) []*cursor {
	out := make([]*cursor, len(iters))
	for i, next := range iters {
		out[i] = &cursor{next: next}
		out[i].advance()
	}
	return out
}

func (c *cursor) advance() { c.head, c.ok = c.next() }

// mergeIterators yields the union of includes in ascending order. Instants
// produced more than once are yielded once. Instants equal to an exdate or
// produced by one of excludes are dropped.
func mergeIterators(includes, excludes []Next, exdates []time.Time) Next {
	in := newCursors(includes)
	ex := newCursors(excludes)
	excluded := func(t time.Time) bool {
		if slices.ContainsFunc(exdates, t.Equal) {
			return true
		}
		for _, c := range ex {
			for c.ok && c.head.Before(t) {
				c.advance()
			}
			if c.ok && c.head.Equal(t) {
				return true
			}
		}
		return false
	}

	return func() (time.Time, bool) {
		for run := 0; run < maxExcludedRun; run++ {
			var lowest *cursor
			for _, c := range in {
				if c.ok && (lowest == nil || c.head.Before(lowest.head)) {
					lowest = c
				}
			}
			if lowest == nil {
				return time.Time{}, false
			}
			t := lowest.head
			for _, c := range in {
				for c.ok && !c.head.After(t) {
					c.advance()
				}
			}
			if !excluded(t) {
				return t, true
			}
		}
		return time.Time{}, false
	}
}

func sliceIterator(values []time.Time) Next {
	i := 0
	return func() (time.Time, bool) {
		if i >= len(values) {
			return time.Time{}, false
		}
		i++
		return values[i-1], true
	}
}

// propertyName returns the upper-cased property name of a content line, or ""
// when the line is a bare rule value such as "FREQ=DAILY".
func propertyName(line string) string {
	upper := strings.ToUpper(line)
	for _, name := range propertyNames {
		if strings.HasPrefix(upper, name) && len(upper) > len(name) && (upper[len(name)] == ':' || upper[len(name)] == ';') {
			return name
		}
	}
	return ""
}

// splitProperty separates the property name of line from what follows it.
// The value of "RRULE:FREQ=DAILY" is "FREQ=DAILY"; the value of
// "EXDATE;TZID=Europe/Paris:20240101T090000" keeps its parameters, as
// rrule.StrToDatesInLoc expects.
func splitProperty(line string) (name, value string) {
	name = propertyName(line)
	if name == "" {
		return "", line
	}
	return name, line[len(name)+1:]
}

// upperLine upper-cases a content line except TZID parameter values, which
// name zones in the tz database.
func upperLine(line string) string {
	head, value, found := strings.Cut(line, ":")
	if !found || propertyName(line) == "" {
		return strings.ToUpper(line)
	}
	params := strings.Split(head, ";")
	for i, p := range params {
		if k, v, ok := strings.Cut(p, "="); ok && strings.EqualFold(k, "TZID") {
			params[i] = "TZID=" + v
			continue
		}
		params[i] = strings.ToUpper(p)
	}
	return strings.Join(params, ";") + ":" + strings.ToUpper(value)
}

// isMarkerLine reports whether the line identifies a start or end marker.
func isMarkerLine(line string) bool {
	upper := strings.ToUpper(line)
	return strings.Contains(upper, "DTSTART") || strings.Contains(upper, "DTEND")
}

// Preview returns the first count occurrences of m in strictly ascending order.
// Bounded rules yield fewer; the result is never padded.
func Preview(m Model, count int) []time.Time {
	out := make([]time.Time, 0, min(max(count, 0), previewPrealloc))
	if m == nil {
		return out
	}
	next := m.Iterator()
	for len(out) < count {
		t, ok := next()
		if !ok {
			break
		}
		if n := len(out); n > 0 && !t.After(out[n-1]) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Between returns the occurrences of m within [after, before], stopping after
// limit results when limit is positive.
func Between(m Model, after, before time.Time, limit int) []time.Time {
	var out []time.Time
	if m == nil || before.Before(after) {
		return out
	}
	next := m.Iterator()
	for {
		t, ok := next()
		if !ok || t.After(before) {
			break
		}
		if t.Before(after) {
			continue
		}
		if n := len(out); n > 0 && !t.After(out[n-1]) {
			continue
		}
		out = append(out, t)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// rruleSubRule adapts rrule-go options to SubRule.
type rruleSubRule struct {
	opt    rrule.ROption
	anchor time.Time
}

func (s rruleSubRule) Frequency() Frequency {
	switch s.opt.Freq {
	case rrule.YEARLY:
		return Yearly
	case rrule.MONTHLY:
		return Monthly
	case rrule.WEEKLY:
		return Weekly
	case rrule.DAILY:
		return Daily
	case rrule.HOURLY:
		return Hourly
	case rrule.MINUTELY:
		return Minutely
	default:
		return Secondly
	}
}

func (s rruleSubRule) Interval() int {
	return max(s.opt.Interval, 1)
}

func (s rruleSubRule) Count() int { return s.opt.Count }

func (s rruleSubRule) Until() mo.Option[time.Time] {
	if s.opt.Until.IsZero() {
		return mo.None[time.Time]()
	}
	return mo.Some(s.opt.Until)
}

func (s rruleSubRule) ByWeekday() []string {
	if len(s.opt.Byweekday) == 0 {
		return nil
	}
	out := make([]string, 0, len(s.opt.Byweekday))
	for _, wd := range s.opt.Byweekday {
		out = append(out, wd.String())
	}
	return out
}

func (s rruleSubRule) ByMonthDay() []int { return clone(s.opt.Bymonthday) }
func (s rruleSubRule) ByMonth() []int    { return clone(s.opt.Bymonth) }
func (s rruleSubRule) ByHour() []int     { return clone(s.opt.Byhour) }
func (s rruleSubRule) ByMinute() []int   { return clone(s.opt.Byminute) }
func (s rruleSubRule) BySecond() []int   { return clone(s.opt.Bysecond) }
func (s rruleSubRule) BySetPos() []int   { return clone(s.opt.Bysetpos) }
func (s rruleSubRule) Anchor() time.Time { return s.anchor }

func clone(values []int) []int {
	if len(values) == 0 {
		return nil
	}
	return append([]int(nil), values...)
}
