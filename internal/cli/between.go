package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/joshhubert-dsp/recurrent-plus/recurrence"
)

// BetweenResult lists the occurrences inside a range.
type BetweenResult struct {
	Canonical   []string `json:"canonical" yaml:"canonical"`
	From        string   `json:"from" yaml:"from"`
	To          string   `json:"to" yaml:"to"`
	Occurrences []string `json:"occurrences" yaml:"occurrences"`
}

func (r BetweenResult) WriteText(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "%d occurrence(s) between %s and %s\n", len(r.Occurrences), r.From, r.To); err != nil {
		return err
	}
	for _, o := range r.Occurrences {
		if _, err := fmt.Fprintf(w, "  %s\n", o); err != nil {
			return err
		}
	}
	return nil
}

// NewBetweenCommand creates the between command.
func NewBetweenCommand(rootOpts *RootOptions) *cobra.Command {
	var start, from, to string
	var limit int

	cmd := &cobra.Command{
		Use:   "between <rule>...",
		Short: "List occurrences inside a date range",
		Example: `  recur between --start 2024-01-01 --to 2024-03-01 every other friday
  recur between --start 2024-01-01 --from 2024-06-01 --to 2024-12-31 --limit 3 FREQ=MONTHLY`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBetween(rootOpts, args, start, from, to, limit, cmd)
		},
	}

	cmd.Flags().StringVarP(&start, "start", "s", "", "start of the recurrence (default now)")
	cmd.Flags().StringVar(&from, "from", "", "range start, inclusive (default --start)")
	cmd.Flags().StringVar(&to, "to", "", "range end, inclusive")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of occurrences (0 means no limit)")
	_ = cmd.MarkFlagRequired("to")

	return cmd
}

func runBetween(opts *RootOptions, args []string, startExpr, fromExpr, toExpr string, limit int, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	start, _, err := opts.window(startExpr, "")
	if err != nil {
		return formatter.fail(err)
	}
	from := start
	if fromExpr != "" {
		if from, err = opts.parseTime(fromExpr); err != nil {
			return formatter.fail(&recurrence.Error{Type: recurrence.ErrParse, Message: "invalid --from", Input: fromExpr, Err: err})
		}
	}
	to, err := opts.parseTime(toExpr)
	if err != nil {
		return formatter.fail(&recurrence.Error{Type: recurrence.ErrParse, Message: "invalid --to", Input: toExpr, Err: err})
	}
	if to.Before(from) {
		return formatter.fail(&recurrence.Error{Type: recurrence.ErrParse, Message: "--to precedes --from", Input: toExpr})
	}

	rule, err := opts.buildRule(cmd, args, start)
	if err != nil {
		return formatter.fail(err)
	}

	occurrences := rule.Between(from, to, limit)
	formatter.VerboseLog("Found %d occurrence(s)", len(occurrences))

	result := BetweenResult{
		Canonical:   rule.Canonical(),
		From:        from.Format(time.RFC3339),
		To:          to.Format(time.RFC3339),
		Occurrences: make([]string, len(occurrences)),
	}
	for i, t := range occurrences {
		result.Occurrences[i] = t.Format(time.RFC3339)
	}
	return formatter.Success(result)
}
