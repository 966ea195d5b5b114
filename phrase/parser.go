package phrase

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/samber/mo"
)

// StampLayout is the floating RFC 5545 date-time layout used for DTSTART and UNTIL values.
const StampLayout = "20060102T150405"

// ErrCountAndUntil is returned when a phrase bounds a recurrence both by count and by date.
var ErrCountAndUntil = errors.New("a recurrence cannot be bounded by both a count and an end date")

// Result is what the engine reports for one phrase.
type Result struct {
	// IsRecurring is false when the phrase names a single date or nothing at all.
	IsRecurring bool
	// RuleText holds a DTSTART line followed by one recurrence line.
	RuleText string
	// Baseline is set when the phrase carries its own "starting ..." anchor.
	Baseline mo.Option[time.Time]
}

// Parser turns English recurrence phrases such as "every weekday until march"
// into RFC 5545 rule text. The zero value is ready to use.
type Parser struct {
	// InclusiveUntil moves an UNTIL date to the last second of that day.
	InclusiveUntil bool
}

// New returns a Parser with default settings.
func New() *Parser {
	return &Parser{}
}

var (
	reBaseline = regexp.MustCompile(`\bstart(?:s|ing)?\s+(?:on\s+|from\s+)?([^,]+?(?:,\s*\d{4})?)\s*(?:,|$|\s(?:until|till|through|thru|ending|for|every|each|at)\b)`)
	reUntil    = regexp.MustCompile(`\b(?:until|till|through|thru|ending(?:\s+on)?)\s+([^,]+?(?:,\s*\d{4})?)\s*(?:,|$|\s(?:for|every|each|at|starting|starts|start)\b)`)
	reCount    = regexp.MustCompile(`\b(?:for\s+)?(` + numberPattern + `)\s+times\b`)
	reTwice    = regexp.MustCompile(`\b(twice|thrice)\b`)
	reAt       = regexp.MustCompile(`\bat\s+(noon|midnight|(\d{1,2})(?::(\d{2}))?\s*(am|pm)?)\b`)

	reOrdinalWeekday = regexp.MustCompile(`\b(first|second|third|fourth|fifth|last|1st|2nd|3rd|4th|5th)\s+(` + weekdayPattern + `)\b`)
	reUnit           = regexp.MustCompile(`\b(?:every|each)\s+(?:(other|` + numberPattern + `)\s+)?(day|week|fortnight|month|year|hour|minute|min|second|sec)s?\b`)
	reOnceA          = regexp.MustCompile(`\bonce\s+(?:a|an|per|every)\s+(day|week|month|year|hour)\b`)
	reAdverb         = regexp.MustCompile(`\b(daily|nightly|weekly|biweekly|fortnightly|monthly|bimonthly|quarterly|yearly|annually|hourly|minutely|secondly)\b`)
	reWeekdayWord    = regexp.MustCompile(`\bweekdays?\b`)
	reWeekendWord    = regexp.MustCompile(`\bweekends?\b`)
	reWeekday        = regexp.MustCompile(`\b(` + weekdayPattern + `)(s)?\b`)
	reMonthDay       = regexp.MustCompile(`\b(\d{1,2})(?:st|nd|rd|th)\b`)
	reLastDay        = regexp.MustCompile(`\blast\s+day\b`)
	reMonthName      = regexp.MustCompile(`\b(` + monthPattern + `)\b`)
	reEvery          = regexp.MustCompile(`\b(?:every|each)\b`)
	reEveryOther     = regexp.MustCompile(`\b(?:every|each)\s+other\b`)
)

var unitFrequencies = map[string]string{
	"day": "DAILY", "week": "WEEKLY", "fortnight": "WEEKLY", "month": "MONTHLY", "year": "YEARLY",
	"hour": "HOURLY", "minute": "MINUTELY", "min": "MINUTELY", "second": "SECONDLY", "sec": "SECONDLY",
}

var adverbs = map[string]struct {
	freq     string
	interval int
}{
	"daily": {"DAILY", 1}, "nightly": {"DAILY", 1},
	"weekly": {"WEEKLY", 1}, "biweekly": {"WEEKLY", 2}, "fortnightly": {"WEEKLY", 2},
	"monthly": {"MONTHLY", 1}, "bimonthly": {"MONTHLY", 2}, "quarterly": {"MONTHLY", 3},
	"yearly": {"YEARLY", 1}, "annually": {"YEARLY", 1},
	"hourly": {"HOURLY", 1}, "minutely": {"MINUTELY", 1}, "secondly": {"SECONDLY", 1},
}

var ordinals = map[string]int{
	"first": 1, "1st": 1, "second": 2, "2nd": 2, "third": 3, "3rd": 3,
	"fourth": 4, "4th": 4, "fifth": 5, "5th": 5, "last": -1,
}

var dayCodes = [7]string{"SU", "MO", "TU", "WE", "TH", "FR", "SA"}

// HasBaseline reports whether the phrase has a starting clause, as in
// "weekly starting next monday". The noun in "at the start of the month" is
// not a clause.
func HasBaseline(text string) bool {
	for _, m := range reBaseline.FindAllStringSubmatch(clean(text), -1) {
		if !strings.HasPrefix(m[1], "of ") {
			return true
		}
	}
	return false
}

// Parse interprets text relative to now. A phrase that is understood but does not
// recur yields a Result with IsRecurring false and no error.
func (p *Parser) Parse(text string, now time.Time) (Result, error) {
	s := clean(text)
	res := Result{Baseline: mo.None[time.Time]()}
	anchor := now

	if m := reBaseline.FindStringSubmatchIndex(s); m != nil {
		t, err := ParseDate(s[m[2]:m[3]], now)
		if err != nil {
			return res, fmt.Errorf("starting clause: %w", err)
		}
		anchor = t
		res.Baseline = mo.Some(t)
		s = cut(s, m[0], m[3])
	}

	var r rule
	if m := reUntil.FindStringSubmatchIndex(s); m != nil {
		t, err := ParseDate(s[m[2]:m[3]], now)
		if err != nil {
			return res, fmt.Errorf("until clause: %w", err)
		}
		if p.InclusiveUntil {
			t = midnight(t).AddDate(0, 0, 1).Add(-time.Second)
		}
		r.until = mo.Some(t)
		s = cut(s, m[0], m[3])
	}
	if m := reCount.FindStringSubmatchIndex(s); m != nil {
		r.count = number(s[m[2]:m[3]])
		s = cut(s, m[0], m[1])
	} else if m := reTwice.FindStringSubmatchIndex(s); m != nil {
		r.count = 2
		if s[m[2]:m[3]] == "thrice" {
			r.count = 3
		}
		s = cut(s, m[0], m[1])
	}
	if r.count > 0 && r.until.IsPresent() {
		return res, ErrCountAndUntil
	}
	if m := reAt.FindStringSubmatchIndex(s); m != nil {
		hour, minute, err := timeOfDay(s, m)
		if err != nil {
			return res, err
		}
		r.byHour, r.byMinute = []int{hour}, []int{minute}
		s = cut(s, m[0], m[1])
	}

	if !r.detect(s) {
		return res, nil
	}
	res.IsRecurring = true
	res.RuleText = "DTSTART:" + anchor.Format(StampLayout) + "\n" + r.String()
	return res, nil
}

type rule struct {
	freq       string
	interval   int
	byDay      []string
	byMonthDay []int
	byMonth    []int
	byHour     []int
	byMinute   []int
	count      int
	until      mo.Option[time.Time]
}

// detect fills frequency and by-fields from what remains of the phrase.
func (r *rule) detect(s string) bool {
	if matches := reOrdinalWeekday.FindAllStringSubmatch(s, -1); len(matches) > 0 && strings.Contains(s, "month") {
		r.freq, r.interval = "MONTHLY", 1
		for _, m := range matches {
			r.byDay = append(r.byDay, strconv.Itoa(ordinals[m[1]])+dayCodes[weekdayNames[m[2]]])
		}
		s = reOrdinalWeekday.ReplaceAllString(s, " ")
		if m := reUnit.FindStringSubmatch(s); m != nil && m[2] == "month" {
			r.interval = interval(m[1])
		}
		return true
	}

	switch m := reUnit.FindStringSubmatch(s); {
	case m != nil:
		r.freq, r.interval = unitFrequencies[m[2]], interval(m[1])
		if m[2] == "fortnight" {
			r.interval *= 2
		}
	default:
		if m := reOnceA.FindStringSubmatch(s); m != nil {
			r.freq, r.interval = unitFrequencies[m[1]], 1
		} else if m := reAdverb.FindStringSubmatch(s); m != nil {
			r.freq, r.interval = adverbs[m[1]].freq, adverbs[m[1]].interval
		}
	}

	var days [7]bool
	switch {
	case reWeekdayWord.MatchString(s):
		for d := time.Monday; d <= time.Friday; d++ {
			days[d] = true
		}
	case reWeekendWord.MatchString(s):
		days[time.Saturday], days[time.Sunday] = true, true
	default:
		plural := false
		for _, m := range reWeekday.FindAllStringSubmatch(s, -1) {
			days[weekdayNames[m[1]]] = true
			plural = plural || m[2] != ""
		}
		if r.freq == "" && !plural && !reEvery.MatchString(s) {
			days = [7]bool{}
		}
	}
	for _, d := range []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday, time.Sunday} {
		if days[d] {
			r.byDay = append(r.byDay, dayCodes[d])
		}
	}
	if len(r.byDay) > 0 && r.freq == "" {
		r.freq, r.interval = "WEEKLY", 1
		if reEveryOther.MatchString(s) {
			r.interval = 2
		}
	}

	if r.freq == "" && strings.Contains(s, "month") && reMonthDay.MatchString(s) {
		r.freq, r.interval = "MONTHLY", 1
	}
	if r.freq == "MONTHLY" || r.freq == "YEARLY" {
		for _, m := range reMonthDay.FindAllStringSubmatch(s, -1) {
			if d, _ := strconv.Atoi(m[1]); d >= 1 && d <= 31 {
				r.byMonthDay = append(r.byMonthDay, d)
			}
		}
		if reLastDay.MatchString(s) {
			r.byMonthDay = append(r.byMonthDay, -1)
		}
	}
	if r.freq == "YEARLY" {
		for _, m := range reMonthName.FindAllStringSubmatch(s, -1) {
			r.byMonth = append(r.byMonth, int(monthNames[m[1]]))
		}
	}

	if r.freq == "" {
		return false
	}
	if r.interval < 1 {
		r.interval = 1
	}
	return true
}

// String renders the rule as a bare RRULE value.
func (r rule) String() string {
	parts := []string{"FREQ=" + r.freq, "INTERVAL=" + strconv.Itoa(r.interval)}
	if len(r.byDay) > 0 {
		parts = append(parts, "BYDAY="+strings.Join(r.byDay, ","))
	}
	if len(r.byMonthDay) > 0 {
		parts = append(parts, "BYMONTHDAY="+joinInts(r.byMonthDay))
	}
	if len(r.byMonth) > 0 {
		parts = append(parts, "BYMONTH="+joinInts(r.byMonth))
	}
	if len(r.byHour) > 0 {
		parts = append(parts, "BYHOUR="+joinInts(r.byHour))
	}
	if len(r.byMinute) > 0 {
		parts = append(parts, "BYMINUTE="+joinInts(r.byMinute))
	}
	if r.count > 0 {
		parts = append(parts, "COUNT="+strconv.Itoa(r.count))
	}
	if until, ok := r.until.Get(); ok {
		parts = append(parts, "UNTIL="+until.Format(StampLayout))
	}
	return strings.Join(parts, ";")
}

func timeOfDay(s string, m []int) (int, int, error) {
	switch s[m[2]:m[3]] {
	case "noon":
		return 12, 0, nil
	case "midnight":
		return 0, 0, nil
	}
	hour, _ := strconv.Atoi(s[m[4]:m[5]])
	minute := 0
	if m[6] >= 0 {
		minute, _ = strconv.Atoi(s[m[6]:m[7]])
	}
	if m[8] >= 0 {
		if hour < 1 || hour > 12 {
			return 0, 0, fmt.Errorf("invalid time of day %q", s[m[2]:m[3]])
		}
		hour %= 12
		if s[m[8]:m[9]] == "pm" {
			hour += 12
		}
	}
	if hour > 23 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid time of day %q", s[m[2]:m[3]])
	}
	return hour, minute, nil
}

func interval(word string) int {
	switch word {
	case "":
		return 1
	case "other":
		return 2
	}
	return number(word)
}

func joinInts(values []int) string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strconv.Itoa(v)
	}
	return strings.Join(out, ",")
}

func clean(text string) string {
	s := strings.ToLower(strings.Join(strings.Fields(text), " "))
	return strings.TrimRight(s, ".!")
}

// cut removes s[i:j] and tidies the surrounding whitespace.
func cut(s string, i, j int) string {
	return strings.Join(strings.Fields(s[:i]+" "+s[j:]), " ")
}
