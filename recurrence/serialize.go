package recurrence

import (
	"encoding/json"
	"fmt"
	"time"
)

// RuleJSON is the serialized form of one SubRule. Empty fields are omitted.
type RuleJSON struct {
	Freq       string   `json:"freq" yaml:"freq"`
	Interval   int      `json:"interval,omitempty" yaml:"interval,omitempty"`
	Count      int      `json:"count,omitempty" yaml:"count,omitempty"`
	Until      string   `json:"until,omitempty" yaml:"until,omitempty"`
	ByWeekday  []string `json:"byweekday,omitempty" yaml:"byweekday,omitempty"`
	ByMonthDay []int    `json:"bymonthday,omitempty" yaml:"bymonthday,omitempty"`
	ByMonth    []int    `json:"bymonth,omitempty" yaml:"bymonth,omitempty"`
	ByHour     []int    `json:"byhour,omitempty" yaml:"byhour,omitempty"`
	ByMinute   []int    `json:"byminute,omitempty" yaml:"byminute,omitempty"`
	BySecond   []int    `json:"bysecond,omitempty" yaml:"bysecond,omitempty"`
	DTStart    string   `json:"dtstart,omitempty" yaml:"dtstart,omitempty"`
	BySetPos   []int    `json:"bysetpos,omitempty" yaml:"bysetpos,omitempty"`
}

// SetJSON is the serialized form of a CompositeModel.
type SetJSON struct {
	RRules  []RuleJSON `json:"rrules" yaml:"rrules"`
	ExRules []RuleJSON `json:"exrules,omitempty" yaml:"exrules,omitempty"`
	RDates  []string   `json:"rdates" yaml:"rdates"`
	ExDates []string   `json:"exdates" yaml:"exdates"`
}

// RuleView is the serialized form of a Rule, shared by the JSON and YAML encoders.
type RuleView struct {
	Input              string   `json:"input" yaml:"input"`
	InputForm          string   `json:"input_form" yaml:"input_form"`
	Start              string   `json:"start" yaml:"start"`
	NumPreview         int      `json:"num_preview" yaml:"num_preview"`
	DailyOrGreaterOnly bool     `json:"daily_or_greater_only" yaml:"daily_or_greater_only"`
	Canonical          []string `json:"canonical" yaml:"canonical"`
	Preview            []string `json:"preview" yaml:"preview"`
	Model              any      `json:"model" yaml:"model"`
}

// SubRuleJSON converts r to its serialized form.
func SubRuleJSON(r SubRule) RuleJSON {
	out := RuleJSON{
		Freq:       r.Frequency().String(),
		Interval:   r.Interval(),
		Count:      r.Count(),
		ByWeekday:  r.ByWeekday(),
		ByMonthDay: r.ByMonthDay(),
		ByMonth:    r.ByMonth(),
		ByHour:     r.ByHour(),
		ByMinute:   r.ByMinute(),
		BySecond:   r.BySecond(),
		BySetPos:   r.BySetPos(),
	}
	if until, ok := r.Until().Get(); ok {
		out.Until = until.Format(time.RFC3339)
	}
	if anchor := r.Anchor(); !anchor.IsZero() {
		out.DTStart = anchor.Format(time.RFC3339)
	}
	return out
}

// ModelJSON converts m to a RuleJSON or a SetJSON depending on its variant.
func ModelJSON(m Model) (any, error) {
	switch m := m.(type) {
	case *SingleModel:
		return SubRuleJSON(m.rule), nil
	case *CompositeModel:
		out := SetJSON{
			RRules:  make([]RuleJSON, 0, len(m.rules)),
			RDates:  formatTimes(m.rdates),
			ExDates: formatTimes(m.exdates),
		}
		for _, r := range m.rules {
			out.RRules = append(out.RRules, SubRuleJSON(r))
		}
		for _, r := range m.exrules {
			out.ExRules = append(out.ExRules, SubRuleJSON(r))
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported model type %T", m)
	}
}

// MarshalModel encodes m as JSON.
func MarshalModel(m Model) ([]byte, error) {
	v, err := ModelJSON(m)
	if err != nil {
		return nil, err
	}
	return json.Marshal(v)
}

// View returns the serialized form of r.
func (r *Rule) View() RuleView {
	model, _ := ModelJSON(r.model)
	return RuleView{
		Input:              r.input,
		InputForm:          r.form.String(),
		Start:              r.start.Format(time.RFC3339),
		NumPreview:         r.numPreview,
		DailyOrGreaterOnly: r.dailyOrGreaterOnly,
		Canonical:          r.Canonical(),
		Preview:            formatTimes(r.preview),
		Model:              model,
	}
}

func formatTimes(times []time.Time) []string {
	out := make([]string, len(times))
	for i, t := range times {
		out[i] = t.Format(time.RFC3339)
	}
	return out
}
