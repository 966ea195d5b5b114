package recurrence

// IsDateGranular reports whether every recurrence definition in m repeats at
// most once per day. RDATE instants are not rules and are never checked. BYHOUR,
// BYMINUTE and BYSECOND are not inspected either, so "FREQ=DAILY;BYHOUR=9,17"
// passes although it yields two occurrences a day.
func IsDateGranular(m Model) bool {
	switch m := m.(type) {
	case *SingleModel:
		return !m.rule.Frequency().SubDaily()
	case *CompositeModel:
		for _, r := range m.rules {
			if r.Frequency().SubDaily() {
				return false
			}
		}
		return true
	default:
		return m == nil
	}
}

func checkGranularity(m Model, input string) error {
	if IsDateGranular(m) {
		return nil
	}
	return &Error{
		Type:    ErrGranularity,
		Message: "recurrence repeats more often than once a day",
		Input:   input,
	}
}
