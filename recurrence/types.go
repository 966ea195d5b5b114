package recurrence

import (
	"time"

	"github.com/samber/mo"
)

// InputForm records which branch produced a rule's canonical lines.
type InputForm int

const (
	FormRawRule InputForm = iota
	FormNaturalLanguage
)

func (f InputForm) String() string {
	if f == FormNaturalLanguage {
		return "natural_language"
	}
	return "rrule"
}

// MarshalText implements encoding.TextMarshaler.
func (f InputForm) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// Frequency is the declared repeat unit of a sub-rule.
type Frequency int

const (
	Yearly Frequency = iota
	Monthly
	Weekly
	Daily
	Hourly
	Minutely
	Secondly
)

var frequencyNames = [...]string{"YEARLY", "MONTHLY", "WEEKLY", "DAILY", "HOURLY", "MINUTELY", "SECONDLY"}

func (f Frequency) String() string {
	if f < Yearly || f > Secondly {
		return "UNKNOWN"
	}
	return frequencyNames[f]
}

// SubDaily reports whether the frequency repeats within a single day.
func (f Frequency) SubDaily() bool {
	return f >= Hourly
}

// SubRule exposes the fields of one recurrence definition that callers may inspect.
// It isolates the rest of the package from the expansion engine's own types.
type SubRule interface {
	Frequency() Frequency
	Interval() int
	Count() int
	Until() mo.Option[time.Time]
	ByWeekday() []string
	ByMonthDay() []int
	ByMonth() []int
	ByHour() []int
	ByMinute() []int
	BySecond() []int
	BySetPos() []int
	Anchor() time.Time
}

// Next yields occurrences in ascending order until ok is false.
type Next func() (value time.Time, ok bool)

// Model is the expanded form of a recurrence. It is either a *SingleModel or a
// *CompositeModel; code that needs to distinguish them switches on the concrete type.
type Model interface {
	// Iterator starts a fresh enumeration from the anchor.
	Iterator() Next
	isModel()
}

// SingleModel holds exactly one recurrence definition.
type SingleModel struct {
	rule    SubRule
	iterate func() Next
}

// NewSingleModel wraps rule; iterate must return a new enumeration on every call.
func NewSingleModel(rule SubRule, iterate func() Next) *SingleModel {
	return &SingleModel{rule: rule, iterate: iterate}
}

func (m *SingleModel) Rule() SubRule  { return m.rule }
func (m *SingleModel) Iterator() Next { return m.iterate() }
func (*SingleModel) isModel()         {}

// CompositeModel holds several recurrence definitions plus explicit
// inclusion (RDATE) and exclusion (EXRULE, EXDATE) sources.
type CompositeModel struct {
	rules   []SubRule
	exrules []SubRule
	rdates  []time.Time
	exdates []time.Time
	iterate func() Next
}

// NewCompositeModel copies its slices; iterate must return a new enumeration on every call.
func NewCompositeModel(rules, exrules []SubRule, rdates, exdates []time.Time, iterate func() Next) *CompositeModel {
	return &CompositeModel{
		rules:   append([]SubRule(nil), rules...),
		exrules: append([]SubRule(nil), exrules...),
		rdates:  append([]time.Time(nil), rdates...),
		exdates: append([]time.Time(nil), exdates...),
		iterate: iterate,
	}
}

func (m *CompositeModel) Rules() []SubRule     { return append([]SubRule(nil), m.rules...) }
func (m *CompositeModel) ExRules() []SubRule   { return append([]SubRule(nil), m.exrules...) }
func (m *CompositeModel) RDates() []time.Time  { return append([]time.Time(nil), m.rdates...) }
func (m *CompositeModel) ExDates() []time.Time { return append([]time.Time(nil), m.exdates...) }
func (m *CompositeModel) Iterator() Next       { return m.iterate() }
func (*CompositeModel) isModel()               {}
