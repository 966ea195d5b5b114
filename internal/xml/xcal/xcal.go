// Package xcal renders recurrences as RFC 6321 xCal documents.
package xcal

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"

	"github.com/joshhubert-dsp/recurrent-plus/recurrence"
)

// Namespace is the xCal namespace
const Namespace = "urn:ietf:params:xml:ns:icalendar-2.0"

const dateTimeLayout = "2006-01-02T15:04:05Z"

// Event is one VEVENT to render
type Event struct {
	UID     string
	Summary string
	Start   time.Time
	End     time.Time
	Model   recurrence.Model
}

// AddNamespace sets the default xCal namespace on the document root
func AddNamespace(doc *etree.Document) {
	root := doc.Root()
	if root == nil {
		return
	}
	root.CreateAttr("xmlns", Namespace)
}

// Document builds an <icalendar> document holding one vcalendar with events
func Document(prodID string, events ...Event) (*etree.Document, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="utf-8"`)
	doc.CreateElement("icalendar")
	AddNamespace(doc)

	vcal := doc.Root().CreateElement("vcalendar")
	props := vcal.CreateElement("properties")
	textProp(props, "prodid", prodID)
	textProp(props, "version", "2.0")

	comps := vcal.CreateElement("components")
	for _, ev := range events {
		if err := addEvent(comps, ev); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

// Render returns the indented xCal text for rule spanning [start, end)
func Render(rule *recurrence.Rule, uid, summary string, start, end time.Time) (string, error) {
	doc, err := Document(recurrence.ProductID, Event{
		UID:     uid,
		Summary: summary,
		Start:   start,
		End:     end,
		Model:   rule.Model(),
	})
	if err != nil {
		return "", err
	}
	doc.Indent(2)

	var buf bytes.Buffer
	if _, err := doc.WriteTo(&buf); err != nil {
		return "", fmt.Errorf("failed to write xCal document: %w", err)
	}
	return buf.String(), nil
}

func addEvent(parent *etree.Element, ev Event) error {
	vevent := parent.CreateElement("vevent")
	props := vevent.CreateElement("properties")

	textProp(props, "uid", ev.UID)
	dateTimeProp(props, "dtstamp", time.Now())
	dateTimeProp(props, "dtstart", ev.Start)
	if !ev.End.IsZero() {
		dateTimeProp(props, "dtend", ev.End)
	}
	if ev.Summary != "" {
		textProp(props, "summary", ev.Summary)
	}

	switch m := ev.Model.(type) {
	case *recurrence.SingleModel:
		addRecur(props, "rrule", m.Rule())
	case *recurrence.CompositeModel:
		for _, r := range m.Rules() {
			addRecur(props, "rrule", r)
		}
		for _, r := range m.ExRules() {
			addRecur(props, "exrule", r)
		}
		for _, t := range m.RDates() {
			dateTimeProp(props, "rdate", t)
		}
		for _, t := range m.ExDates() {
			dateTimeProp(props, "exdate", t)
		}
	default:
		return fmt.Errorf("unsupported model type %T", ev.Model)
	}
	return nil
}

// addRecur writes a <name><recur> element. Multi-valued parts repeat
// their element once per value.
func addRecur(props *etree.Element, name string, r recurrence.SubRule) {
	recur := props.CreateElement(name).CreateElement("recur")
	recur.CreateElement("freq").SetText(r.Frequency().String())
	if until, ok := r.Until().Get(); ok {
		recur.CreateElement("until").SetText(until.UTC().Format(dateTimeLayout))
	}
	if r.Count() > 0 {
		recur.CreateElement("count").SetText(strconv.Itoa(r.Count()))
	}
	if r.Interval() > 1 {
		recur.CreateElement("interval").SetText(strconv.Itoa(r.Interval()))
	}
	intParts(recur, "bysecond", r.BySecond())
	intParts(recur, "byminute", r.ByMinute())
	intParts(recur, "byhour", r.ByHour())
	for _, day := range r.ByWeekday() {
		recur.CreateElement("byday").SetText(strings.TrimPrefix(day, "+"))
	}
	intParts(recur, "bymonthday", r.ByMonthDay())
	intParts(recur, "bymonth", r.ByMonth())
	intParts(recur, "bysetpos", r.BySetPos())
}

func intParts(recur *etree.Element, tag string, values []int) {
	for _, v := range values {
		recur.CreateElement(tag).SetText(strconv.Itoa(v))
	}
}

func textProp(props *etree.Element, name, value string) {
	props.CreateElement(name).CreateElement("text").SetText(value)
}

func dateTimeProp(props *etree.Element, name string, t time.Time) {
	props.CreateElement(name).CreateElement("date-time").SetText(t.UTC().Format(dateTimeLayout))
}
