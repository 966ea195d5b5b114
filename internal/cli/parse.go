package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/joshhubert-dsp/recurrent-plus/recurrence"
)

// ParseResult is the output of the parse command.
type ParseResult struct {
	Rule   recurrence.RuleView `json:"rule" yaml:"rule"`
	Window *Window             `json:"window,omitempty" yaml:"window,omitempty"`
}

// Window is an event window after alignment with the first occurrence.
type Window struct {
	Start string `json:"start" yaml:"start"`
	End   string `json:"end" yaml:"end"`
	Moved bool   `json:"moved" yaml:"moved"`
}

func (r ParseResult) WriteText(w io.Writer) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Input:     %s (%s)\n", r.Rule.Input, r.Rule.InputForm)
	fmt.Fprintf(&b, "Start:     %s\n", r.Rule.Start)
	for i, line := range r.Rule.Canonical {
		label := ""
		if i == 0 {
			label = "Canonical:"
		}
		fmt.Fprintf(&b, "%-10s %s\n", label, line)
	}
	if len(r.Rule.Preview) == 0 {
		b.WriteString("Preview:   (none)\n")
	}
	for i, t := range r.Rule.Preview {
		label := ""
		if i == 0 {
			label = "Preview:"
		}
		fmt.Fprintf(&b, "%-10s %d. %s\n", label, i+1, t)
	}
	if r.Window != nil {
		moved := ""
		if r.Window.Moved {
			moved = " (moved to first occurrence)"
		}
		fmt.Fprintf(&b, "Window:    %s - %s%s\n", r.Window.Start, r.Window.End, moved)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// NewParseCommand creates the parse command.
func NewParseCommand(rootOpts *RootOptions) *cobra.Command {
	var start, end string

	cmd := &cobra.Command{
		Use:   "parse <rule>...",
		Short: "Normalize a recurrence and preview its occurrences",
		Long: `Normalize a recurrence rule or phrase into canonical RRULE lines.

Arguments are joined with spaces, so phrases need no quoting. When --end
is given the event window is aligned with the first occurrence.`,
		Example: `  recur parse every other tuesday at 9am
  recur parse --start 2024-01-01 'FREQ=MONTHLY;BYMONTHDAY=15'
  recur parse --start '2024-01-01 09:00' --end '2024-01-01 10:00' every thursday`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(rootOpts, args, start, end, cmd)
		},
	}

	cmd.Flags().StringVarP(&start, "start", "s", "", "start of the first event (default now)")
	cmd.Flags().StringVarP(&end, "end", "e", "", "end of the first event; enables window alignment")

	return cmd
}

func runParse(opts *RootOptions, args []string, startExpr, endExpr string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	start, end, err := opts.window(startExpr, endExpr)
	if err != nil {
		return formatter.fail(err)
	}

	rule, err := opts.buildRule(cmd, args, start)
	if err != nil {
		return formatter.fail(err)
	}
	formatter.VerboseLog("Detected %s input, %d canonical line(s)", rule.Form(), len(rule.Canonical()))

	result := ParseResult{Rule: rule.View()}
	if strings.TrimSpace(endExpr) != "" {
		newStart, newEnd, err := rule.Reconcile(start, end)
		if err != nil {
			return formatter.fail(err)
		}
		result.Window = &Window{
			Start: newStart.Format(time.RFC3339),
			End:   newEnd.Format(time.RFC3339),
			Moved: !newStart.Equal(start),
		}
	}

	return formatter.Success(result)
}
