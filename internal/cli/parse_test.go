package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func runCommand(t *testing.T, opts *RootOptions, newCmd func(*RootOptions) *cobra.Command, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := newCmd(opts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestParsePhraseText(t *testing.T) {
	out, err := runCommand(t, testOptions("text"), NewParseCommand, "--start", "2024-01-01", "every", "monday")
	require.NoError(t, err)

	assert.Contains(t, out, "every monday (natural_language)")
	assert.Contains(t, out, "Canonical: FREQ=WEEKLY")
	assert.Contains(t, out, "1. 2024-01-01T00:00:00Z")
	assert.Contains(t, out, "3. 2024-01-15T00:00:00Z")
	assert.NotContains(t, out, "Window:")
}

func TestParseRawRuleJSON(t *testing.T) {
	out, err := runCommand(t, testOptions("json"), NewParseCommand, "--start", "2024-01-01", "FREQ=MONTHLY;BYMONTHDAY=15")
	require.NoError(t, err)

	var resp struct {
		Status string      `json:"status"`
		Data   ParseResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "rrule", resp.Data.Rule.InputForm)
	assert.Equal(t, []string{"FREQ=MONTHLY;BYMONTHDAY=15"}, resp.Data.Rule.Canonical)
	assert.Equal(t, []string{
		"2024-01-15T00:00:00Z",
		"2024-02-15T00:00:00Z",
		"2024-03-15T00:00:00Z",
	}, resp.Data.Rule.Preview)
	assert.Nil(t, resp.Data.Window)
}

func TestParseWindowYAML(t *testing.T) {
	out, err := runCommand(t, testOptions("yaml"), NewParseCommand,
		"--start", "2024-01-01 09:00", "--end", "2024-01-01 10:00", "FREQ=WEEKLY;BYDAY=TH")
	require.NoError(t, err)

	var resp struct {
		Status string      `yaml:"status"`
		Data   ParseResult `yaml:"data"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.NotNil(t, resp.Data.Window)
	assert.Equal(t, Window{
		Start: "2024-01-04T09:00:00Z",
		End:   "2024-01-04T10:00:00Z",
		Moved: true,
	}, *resp.Data.Window)
}

func TestParseDefaultsStartToNow(t *testing.T) {
	out, err := runCommand(t, testOptions("text"), NewParseCommand, "FREQ=DAILY;COUNT=1")
	require.NoError(t, err)
	assert.Contains(t, out, "Start:     2024-01-01T08:30:00Z")
	assert.Contains(t, out, "1. 2024-01-01T08:30:00Z")
}

func TestParseTimezone(t *testing.T) {
	opts := testOptions("text")
	opts.Timezone = "America/New_York"

	out, err := runCommand(t, opts, NewParseCommand, "--start", "2024-03-09 09:00", "daily")
	require.NoError(t, err)
	assert.Contains(t, out, "1. 2024-03-09T09:00:00-05:00")
	assert.Contains(t, out, "2. 2024-03-10T09:00:00-04:00")
}

func TestParseZeroPreviews(t *testing.T) {
	opts := testOptions("text")
	opts.Previews = 0

	out, err := runCommand(t, opts, NewParseCommand, "--start", "2024-01-01", "daily")
	require.NoError(t, err)
	assert.Contains(t, out, "Preview:   (none)")
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantCode string
		wantExit int
	}{
		{
			name:     "unparseable phrase",
			args:     []string{"--start", "2024-01-01", "whenever", "convenient"},
			wantCode: ErrCodeParse,
			wantExit: ExitFailure,
		},
		{
			name:     "sub-daily rule",
			args:     []string{"--start", "2024-01-01", "FREQ=HOURLY"},
			wantCode: ErrCodeGranularity,
			wantExit: ExitFailure,
		},
		{
			name:     "bad start",
			args:     []string{"--start", "someday", "daily"},
			wantCode: ErrCodeParse,
			wantExit: ExitFailure,
		},
		{
			name:     "end before start",
			args:     []string{"--start", "2024-01-02", "--end", "2024-01-01", "daily"},
			wantCode: ErrCodeParse,
			wantExit: ExitFailure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := runCommand(t, testOptions("text"), NewParseCommand, tt.args...)
			require.Error(t, err)
			assert.Equal(t, tt.wantExit, GetExitCode(err))
			assert.Contains(t, out, "Error ["+tt.wantCode+"]")
		})
	}
}

func TestParseErrorJSON(t *testing.T) {
	out, err := runCommand(t, testOptions("json"), NewParseCommand, "--start", "2024-01-01", "FREQ=MINUTELY")
	require.Error(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeGranularity, resp.Error.Code)
	assert.Equal(t, map[string]any{"input": "FREQ=MINUTELY"}, resp.Error.Details)
}

func TestParseAllowSubDaily(t *testing.T) {
	opts := testOptions("text")
	opts.AllowSubDaily = true

	out, err := runCommand(t, opts, NewParseCommand, "--start", "2024-01-01", "FREQ=HOURLY")
	require.NoError(t, err)
	assert.Contains(t, out, "2. 2024-01-01T01:00:00Z")
}

func TestParseVerbose(t *testing.T) {
	opts := testOptions("json")
	opts.Verbose = true

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	cmd := NewParseCommand(opts)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs([]string{"--start", "2024-01-01", "daily"})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, stderr.String(), "Detected natural_language input")
	var resp CLIResponse
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &resp))
}

func TestBetween(t *testing.T) {
	out, err := runCommand(t, testOptions("text"), NewBetweenCommand,
		"--start", "2024-01-01", "--to", "2024-01-31", "every", "friday")
	require.NoError(t, err)

	assert.Contains(t, out, "4 occurrence(s)")
	for _, day := range []string{"05", "12", "19", "26"} {
		assert.Contains(t, out, "2024-01-"+day+"T00:00:00Z")
	}
}

func TestBetweenLimitJSON(t *testing.T) {
	out, err := runCommand(t, testOptions("json"), NewBetweenCommand,
		"--start", "2024-01-01", "--from", "2024-06-01", "--to", "2024-12-31", "--limit", "2", "FREQ=MONTHLY")
	require.NoError(t, err)

	var resp struct {
		Data BetweenResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, []string{"2024-06-01T00:00:00Z", "2024-07-01T00:00:00Z"}, resp.Data.Occurrences)
}

func TestBetweenRequiresTo(t *testing.T) {
	_, err := runCommand(t, testOptions("text"), NewBetweenCommand, "--start", "2024-01-01", "daily")
	require.Error(t, err)
}
