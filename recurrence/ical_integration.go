package recurrence

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/google/uuid"
)

// ProductID is written to every calendar produced by this package.
const ProductID = "-//recurrent-plus//Recurrence Rules//EN"

// recurrenceProps are the component properties that make up a recurrence.
var recurrenceProps = []string{
	ical.PropRecurrenceRule,
	"EXRULE",
	ical.PropRecurrenceDates,
	ical.PropExceptionDates,
}

// Event builds a VEVENT spanning [start, end) that recurs according to the
// rule's canonical lines.
func (r *Rule) Event(start, end time.Time, summary string) *ical.Event {
	event := ical.NewEvent()
	event.Props.SetText(ical.PropUID, uuid.New().String())
	event.Props.SetDateTime(ical.PropDateTimeStamp, time.Now().UTC())
	event.Props.SetDateTime(ical.PropDateTimeStart, start)
	event.Props.SetDateTime(ical.PropDateTimeEnd, end)
	if summary != "" {
		event.Props.SetText(ical.PropSummary, summary)
	}
	for _, line := range r.canonical {
		event.Props.Add(lineToProp(line))
	}
	return event
}

// EncodeCalendar wraps events in a VCALENDAR and returns its text form.
func EncodeCalendar(events ...*ical.Event) (string, error) {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, ProductID)
	for _, event := range events {
		if event.Props.Get(ical.PropDateTimeStamp) == nil {
			event.Props.SetDateTime(ical.PropDateTimeStamp, time.Now().UTC())
		}
		cal.Children = append(cal.Children, event.Component)
	}

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return "", fmt.Errorf("failed to encode calendar: %w", err)
	}
	return buf.String(), nil
}

// ExtractInput rebuilds rule text from the recurrence properties of comp. A
// lone RRULE without parameters is returned as its bare value.
func ExtractInput(comp *ical.Component) (string, bool) {
	var lines []string
	bare := true
	for _, name := range recurrenceProps {
		for _, prop := range comp.Props[name] {
			if prop.Value == "" {
				continue
			}
			if name != ical.PropRecurrenceRule || len(prop.Params) > 0 {
				bare = false
			}
			lines = append(lines, propToLine(prop))
		}
	}
	if len(lines) == 0 {
		return "", false
	}
	if bare && len(lines) == 1 {
		return comp.Props.Get(ical.PropRecurrenceRule).Value, true
	}
	return strings.Join(lines, "\n"), true
}

// NewFromComponent builds a Rule from the recurrence properties of comp,
// anchored at its DTSTART.
func NewFromComponent(comp *ical.Component, opts ...Option) (*Rule, error) {
	input, ok := ExtractInput(comp)
	if !ok {
		return nil, parseError("component has no recurrence properties", comp.Name, nil)
	}
	if comp.Props.Get(ical.PropDateTimeStart) == nil {
		return nil, parseError("component has no DTSTART", input, nil)
	}
	start, err := comp.Props.DateTime(ical.PropDateTimeStart, nil)
	if err != nil {
		return nil, parseError("component has no usable DTSTART", input, err)
	}
	return New(input, start, opts...)
}

// ReconcileComponent moves the DTSTART and DTEND of comp onto the first
// previewed occurrence of r. DURATION-based events keep their DURATION.
func (r *Rule) ReconcileComponent(comp *ical.Component) error {
	start, end, ok := ExtractWindow(comp)
	if !ok {
		return parseError("component has no usable DTSTART", comp.Name, nil)
	}
	newStart, newEnd, err := r.Reconcile(start, end)
	if err != nil {
		return err
	}
	if newStart.Equal(start) {
		return nil
	}
	comp.Props.SetDateTime(ical.PropDateTimeStart, newStart)
	if comp.Props.Get(ical.PropDateTimeEnd) != nil {
		comp.Props.SetDateTime(ical.PropDateTimeEnd, newEnd)
	}
	return nil
}

// ExtractWindow extracts start and end times from an iCal component. It
// fails when DTSTART is missing or any window property does not parse.
func ExtractWindow(comp *ical.Component) (start, end time.Time, ok bool) {
	if comp.Props.Get(ical.PropDateTimeStart) == nil {
		return start, end, false
	}
	start, err := comp.Props.DateTime(ical.PropDateTimeStart, nil)
	if err != nil {
		return start, end, false
	}

	// End time comes from DTEND, then DURATION, then the default length
	if comp.Props.Get(ical.PropDateTimeEnd) != nil {
		end, err = comp.Props.DateTime(ical.PropDateTimeEnd, nil)
		if err != nil {
			return start, end, false
		}

		// An all-day event whose DTEND repeats the start date lasts the whole day.
		if isAllDayDate(start) && sameDate(start, end) {
			end = start.AddDate(0, 0, 1)
		}
	} else if durationProp := comp.Props.Get(ical.PropDuration); durationProp != nil {
		duration, err := durationProp.Duration()
		if err != nil {
			return start, end, false
		}
		end = start.Add(duration)
	} else if isAllDayDate(start) {
		end = start.AddDate(0, 0, 1)
	} else {
		end = start
	}

	return start, end, true
}

// lineToProp converts one canonical line into a component property. Bare rule
// values become RRULE properties. Everything but TZID values is upper-cased.
func lineToProp(line string) *ical.Prop {
	line = upperLine(line)
	name := propertyName(line)
	if name == "" {
		prop := ical.NewProp(ical.PropRecurrenceRule)
		prop.Value = line
		return prop
	}

	head, value, _ := strings.Cut(line, ":")
	parts := strings.Split(head, ";")
	prop := ical.NewProp(name)
	prop.Value = value
	for _, param := range parts[1:] {
		if k, v, found := strings.Cut(param, "="); found {
			prop.Params.Set(strings.ToUpper(k), v)
		}
	}
	return prop
}

// propToLine is the inverse of lineToProp.
func propToLine(prop ical.Prop) string {
	var b strings.Builder
	b.WriteString(prop.Name)

	keys := make([]string, 0, len(prop.Params))
	for k := range prop.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteString(";" + k + "=" + strings.Join(prop.Params[k], ","))
	}

	b.WriteString(":" + prop.Value)
	return b.String()
}

// isAllDayDate checks if a time represents an all-day date (time part is midnight)
func isAllDayDate(t time.Time) bool {
	return t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
