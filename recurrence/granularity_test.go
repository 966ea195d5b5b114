package recurrence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsDateGranular(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		want  bool
	}{
		{"yearly", []string{"FREQ=YEARLY"}, true},
		{"monthly", []string{"FREQ=MONTHLY;BYMONTHDAY=1"}, true},
		{"weekly", []string{"FREQ=WEEKLY;BYDAY=MO,WE"}, true},
		{"daily", []string{"FREQ=DAILY"}, true},
		{"hourly", []string{"FREQ=HOURLY"}, false},
		{"minutely", []string{"FREQ=MINUTELY;INTERVAL=30"}, false},
		{"secondly", []string{"FREQ=SECONDLY"}, false},
		{"daily with several hours passes", []string{"FREQ=DAILY;BYHOUR=9,17"}, true},
		{"composite of date rules", []string{"RRULE:FREQ=DAILY", "RRULE:FREQ=WEEKLY"}, true},
		{"composite with an hourly rule", []string{"RRULE:FREQ=WEEKLY", "RRULE:FREQ=HOURLY"}, false},
		{"hourly rule ahead of a daily rule", []string{"RRULE:FREQ=HOURLY;COUNT=2", "RRULE:FREQ=DAILY;COUNT=2"}, false},
		{"exclusion rules are not checked", []string{"RRULE:FREQ=DAILY", "EXRULE:FREQ=HOURLY"}, true},
		{"inclusions are not rules", []string{"RRULE:FREQ=WEEKLY", "RDATE:20240101T090000Z,20240101T100000Z"}, true},
	}

	e := NewRRuleExpander()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := e.Parse(tt.lines, jan1)
			require.NoError(t, err)
			assert.Equal(t, tt.want, IsDateGranular(m))
		})
	}
}

func TestCheckGranularity(t *testing.T) {
	m, err := NewRRuleExpander().Parse([]string{"FREQ=HOURLY"}, jan1)
	require.NoError(t, err)

	err = checkGranularity(m, "every hour")
	require.Error(t, err)
	assert.True(t, IsGranularityError(err))
	assert.Contains(t, err.Error(), `"every hour"`)
}
