package phrase

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Friday, 1 March 2024
var refNow = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func TestParser_Parse(t *testing.T) {
	tests := []struct {
		name     string
		phrase   string
		wantRule string
		baseline time.Time
	}{
		{
			name:     "daily adverb",
			phrase:   "daily",
			wantRule: "DTSTART:20240301T000000\nFREQ=DAILY;INTERVAL=1",
		},
		{
			name:     "synthesized baseline",
			phrase:   "starting 2024-01-01T00:00:00Z, daily",
			wantRule: "DTSTART:20240101T000000\nFREQ=DAILY;INTERVAL=1",
			baseline: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "relative baseline",
			phrase:   "starting next monday, weekly",
			wantRule: "DTSTART:20240304T000000\nFREQ=WEEKLY;INTERVAL=1",
			baseline: time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "trailing baseline with until",
			phrase:   "every day starting next tuesday until april",
			wantRule: "DTSTART:20240305T000000\nFREQ=DAILY;INTERVAL=1;UNTIL=20240401T000000",
			baseline: time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "hourly",
			phrase:   "every hour",
			wantRule: "DTSTART:20240301T000000\nFREQ=HOURLY;INTERVAL=1",
		},
		{
			name:     "weekdays until",
			phrase:   "every weekday until march 15",
			wantRule: "DTSTART:20240301T000000\nFREQ=WEEKLY;INTERVAL=1;BYDAY=MO,TU,WE,TH,FR;UNTIL=20240315T000000",
		},
		{
			name:     "weekends",
			phrase:   "weekends",
			wantRule: "DTSTART:20240301T000000\nFREQ=WEEKLY;INTERVAL=1;BYDAY=SA,SU",
		},
		{
			name:     "every other weekday name",
			phrase:   "every other tuesday",
			wantRule: "DTSTART:20240301T000000\nFREQ=WEEKLY;INTERVAL=2;BYDAY=TU",
		},
		{
			name:     "several weekdays at a time",
			phrase:   "every monday and wednesday at 9:30am",
			wantRule: "DTSTART:20240301T000000\nFREQ=WEEKLY;INTERVAL=1;BYDAY=MO,WE;BYHOUR=9;BYMINUTE=30",
		},
		{
			name:     "plural weekday with count word",
			phrase:   "fridays twice",
			wantRule: "DTSTART:20240301T000000\nFREQ=WEEKLY;INTERVAL=1;BYDAY=FR;COUNT=2",
		},
		{
			name:     "interval with count",
			phrase:   "every 3 days for 10 times",
			wantRule: "DTSTART:20240301T000000\nFREQ=DAILY;INTERVAL=3;COUNT=10",
		},
		{
			name:     "last weekday of month",
			phrase:   "the last friday of every month",
			wantRule: "DTSTART:20240301T000000\nFREQ=MONTHLY;INTERVAL=1;BYDAY=-1FR",
		},
		{
			name:     "month days",
			phrase:   "on the 1st and 15th of every month",
			wantRule: "DTSTART:20240301T000000\nFREQ=MONTHLY;INTERVAL=1;BYMONTHDAY=1,15",
		},
		{
			name:     "yearly in a month",
			phrase:   "every year in july",
			wantRule: "DTSTART:20240301T000000\nFREQ=YEARLY;INTERVAL=1;BYMONTH=7",
		},
		{
			name:     "quarterly",
			phrase:   "Quarterly.",
			wantRule: "DTSTART:20240301T000000\nFREQ=MONTHLY;INTERVAL=3",
		},
		{
			name:     "fortnight",
			phrase:   "every fortnight",
			wantRule: "DTSTART:20240301T000000\nFREQ=WEEKLY;INTERVAL=2",
		},
		{
			name:     "once a week",
			phrase:   "once a week at noon",
			wantRule: "DTSTART:20240301T000000\nFREQ=WEEKLY;INTERVAL=1;BYHOUR=12;BYMINUTE=0",
		},
	}

	p := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := p.Parse(tt.phrase, refNow)
			require.NoError(t, err)
			require.True(t, res.IsRecurring)
			assert.Equal(t, tt.wantRule, res.RuleText)

			baseline, ok := res.Baseline.Get()
			if tt.baseline.IsZero() {
				assert.False(t, ok)
				return
			}
			require.True(t, ok)
			assert.True(t, tt.baseline.Equal(baseline), "baseline = %v, want %v", baseline, tt.baseline)
		})
	}
}

func TestParser_NotRecurring(t *testing.T) {
	for _, phrase := range []string{"next tuesday", "tomorrow at 5pm", "not a date at all", "on monday"} {
		t.Run(phrase, func(t *testing.T) {
			res, err := New().Parse(phrase, refNow)
			require.NoError(t, err)
			assert.False(t, res.IsRecurring)
			assert.Empty(t, res.RuleText)
		})
	}
}

func TestParser_Errors(t *testing.T) {
	tests := []struct {
		name   string
		phrase string
		target error
	}{
		{"unknown baseline", "daily starting someday", ErrUnrecognizedDate},
		{"unknown until", "weekly until the cows come home", ErrUnrecognizedDate},
		{"count and until", "daily for 3 times until april", ErrCountAndUntil},
		{"bad hour", "daily at 25:00", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New().Parse(tt.phrase, refNow)
			require.Error(t, err)
			if tt.target != nil {
				assert.True(t, errors.Is(err, tt.target), "got %v", err)
			}
		})
	}
}

func TestParser_InclusiveUntil(t *testing.T) {
	p := &Parser{InclusiveUntil: true}
	res, err := p.Parse("daily until march 3", refNow)
	require.NoError(t, err)
	assert.Equal(t, "DTSTART:20240301T000000\nFREQ=DAILY;INTERVAL=1;UNTIL=20240303T235959", res.RuleText)
}

func TestHasBaseline(t *testing.T) {
	assert.True(t, HasBaseline("Starting next week, daily"))
	assert.True(t, HasBaseline("daily starts tomorrow"))
	assert.False(t, HasBaseline("every weekday"))
	assert.False(t, HasBaseline("restart daily"))
	assert.False(t, HasBaseline("every monday at the start of the month"))
	assert.False(t, HasBaseline("monthly from the start"))
	assert.True(t, HasBaseline("daily starting someday"))
	assert.True(t, HasBaseline("at the start of the month, starting tomorrow"))
}
