package phrase

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

// ErrUnrecognizedDate is returned when a date expression matches none of the supported forms.
var ErrUnrecognizedDate = errors.New("unrecognized date")

// absoluteLayouts are tried, in order, against the upper-cased expression.
var absoluteLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
	"20060102T150405Z",
	"20060102T150405",
	"20060102",
}

var monthNames = map[string]time.Month{
	"january": time.January, "jan": time.January,
	"february": time.February, "feb": time.February,
	"march": time.March, "mar": time.March,
	"april": time.April, "apr": time.April,
	"may":  time.May,
	"june": time.June, "jun": time.June,
	"july": time.July, "jul": time.July,
	"august": time.August, "aug": time.August,
	"september": time.September, "sept": time.September, "sep": time.September,
	"october": time.October, "oct": time.October,
	"november": time.November, "nov": time.November,
	"december": time.December, "dec": time.December,
}

var weekdayNames = map[string]time.Weekday{
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tues": time.Tuesday, "tue": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thurs": time.Thursday, "thur": time.Thursday, "thu": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
	"sunday": time.Sunday, "sun": time.Sunday,
}

var numberWords = map[string]int{
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5, "six": 6,
	"seven": 7, "eight": 8, "nine": 9, "ten": 10, "eleven": 11, "twelve": 12,
}

const (
	weekdayPattern = `monday|tuesday|wednesday|thursday|friday|saturday|sunday|mon|tues|tue|wed|thurs|thur|thu|fri|sat|sun`
	monthPattern   = `january|february|march|april|may|june|july|august|september|october|november|december|jan|feb|mar|apr|jun|jul|aug|sept|sep|oct|nov|dec`
	numberPattern  = `\d+|one|two|three|four|five|six|seven|eight|nine|ten|eleven|twelve`
)

var (
	reOrdinalSuffix = regexp.MustCompile(`\b(\d{1,2})(?:st|nd|rd|th)\b`)
	reSept          = regexp.MustCompile(`\bsept\b`)
	reClock         = regexp.MustCompile(`\d:\d{2}|\d\s*(?:a\.?m\.?|p\.?m\.?)(?:\W|$)|\b(?:now|noon|midnight|morning|afternoon|evening|tonight|night)\b`)
)

// monthLayouts read month-name dates once ordinals, commas and "of" are removed.
var monthLayouts = []struct {
	layout  string
	hasYear bool
}{
	{"January 2 2006", true},
	{"Jan 2 2006", true},
	{"2 January 2006", true},
	{"2 Jan 2006", true},
	{"January 2006", true},
	{"Jan 2006", true},
	{"January 2", false},
	{"Jan 2", false},
	{"2 January", false},
	{"2 Jan", false},
	{"January", false},
	{"Jan", false},
}

// relative resolves expressions such as "tomorrow", "next friday" and
// "in 3 days".
var relative = newRelativeParser()

func newRelativeParser() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	w.Add(nextPeriod())
	return w
}

// nextPeriod reads "next week" as seven days ahead and "next month" or
// "next year" as the first day of that period.
func nextPeriod() rules.Rule {
	return &rules.F{
		RegExp: regexp.MustCompile(`(?i)(?:\W|^)next\s+(week|month|year)(?:\W|$)`),
		Applier: func(m *rules.Match, c *rules.Context, _ *rules.Options, ref time.Time) (bool, error) {
			var target time.Time
			switch strings.ToLower(m.Captures[0]) {
			case "week":
				target = ref.AddDate(0, 0, 7)
			case "month":
				target = time.Date(ref.Year(), ref.Month()+1, 1, ref.Hour(), ref.Minute(), ref.Second(), 0, ref.Location())
			default:
				target = time.Date(ref.Year()+1, time.January, 1, ref.Hour(), ref.Minute(), ref.Second(), 0, ref.Location())
			}
			c.Duration = target.Sub(ref)
			return true, nil
		},
	}
}

// ParseDate resolves a date expression relative to now. Expressions without a time of day
// resolve to midnight in now's location; absolute timestamps are converted into it.
func ParseDate(expr string, now time.Time) (time.Time, error) {
	s := strings.TrimSpace(strings.ToLower(expr))
	s = strings.TrimPrefix(s, "on ")
	s = strings.TrimPrefix(s, "the ")
	s = strings.TrimSpace(s)
	loc := now.Location()

	for _, layout := range absoluteLayouts {
		if t, err := time.ParseInLocation(layout, strings.ToUpper(s), loc); err == nil {
			return t.In(loc), nil
		}
	}

	today := midnight(now)
	if reMonthName.MatchString(s) {
		return calendarDate(s, today)
	}

	// Date-only expressions are resolved from noon so that a DST shift cannot
	// move the result across midnight.
	clock := reClock.MatchString(s)
	base := now
	if !clock {
		base = today.Add(12 * time.Hour)
	}
	r, err := relative.Parse(s, base)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q: %v", ErrUnrecognizedDate, expr, err)
	}
	if r == nil || !covers(s, r) {
		return time.Time{}, fmt.Errorf("%w: %q", ErrUnrecognizedDate, expr)
	}

	t := r.Time.In(loc)
	if !clock {
		t = midnight(t)
	}
	return t, nil
}

// covers reports whether the match accounts for every word of s.
func covers(s string, r *when.Result) bool {
	rest := s[:r.Index] + s[r.Index+len(r.Text):]
	return strings.IndexFunc(rest, func(c rune) bool {
		return unicode.IsLetter(c) || unicode.IsDigit(c)
	}) < 0
}

// calendarDate reads a month-name date. Without a year the next date on or
// after today is chosen.
func calendarDate(s string, today time.Time) (time.Time, error) {
	norm := reOrdinalSuffix.ReplaceAllString(s, "$1")
	norm = reSept.ReplaceAllString(norm, "sep")
	norm = strings.ReplaceAll(norm, ",", " ")
	norm = strings.ReplaceAll(norm, " of ", " ")
	norm = strings.Join(strings.Fields(norm), " ")

	for _, l := range monthLayouts {
		t, err := time.ParseInLocation(l.layout, norm, today.Location())
		if err != nil {
			continue
		}
		if l.hasYear {
			return t, nil
		}
		t = time.Date(today.Year(), t.Month(), t.Day(), 0, 0, 0, 0, today.Location())
		if t.Before(today) {
			t = t.AddDate(1, 0, 0)
		}
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrUnrecognizedDate, s)
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// number converts digits or a number word; unknown input yields 0.
func number(s string) int {
	if n, ok := numberWords[s]; ok {
		return n
	}
	n, _ := strconv.Atoi(s)
	return n
}
