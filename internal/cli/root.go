package cli

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/joshhubert-dsp/recurrent-plus/internal/config"
	"github.com/joshhubert-dsp/recurrent-plus/phrase"
	"github.com/joshhubert-dsp/recurrent-plus/recurrence"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose       bool
	Format        string // "text" | "json" | "yaml"
	Timezone      string
	Previews      int
	AllowSubDaily bool

	Config *config.Config
	now    func() time.Time
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json", "yaml"}

// NewRootCommand creates the root command. cfg supplies flag defaults and
// the settings of the serve command.
func NewRootCommand(cfg *config.Config) *cobra.Command {
	opts := &RootOptions{Config: cfg}

	cmd := &cobra.Command{
		Use:   "recur",
		Short: "Normalize recurrence rules",
		Long: `recur turns recurrence descriptions into canonical RRULE text.

Input is either raw RRULE text ("FREQ=WEEKLY;BYDAY=MO") or an English
phrase ("every other tuesday at 9am"). The result carries the canonical
lines, a preview of upcoming occurrences, and the event window aligned
with the first of them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			if opts.Previews < 0 || opts.Previews > recurrence.MaxPreview {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("--previews must be between 0 and %d", recurrence.MaxPreview))
			}
			if _, err := opts.location(); err != nil {
				return WrapExitError(ExitCommandError, "invalid timezone", err)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (text|json|yaml)")
	cmd.PersistentFlags().StringVar(&opts.Timezone, "timezone", cfg.Timezone, "zone for times given without an offset")
	cmd.PersistentFlags().IntVarP(&opts.Previews, "previews", "n", cfg.NumPreview, "number of occurrences to preview")
	cmd.PersistentFlags().BoolVar(&opts.AllowSubDaily, "allow-subdaily", !cfg.DailyOrGreaterOnly, "accept rules that repeat more than once a day")

	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return WrapExitError(ExitCommandError, "invalid usage of "+c.CommandPath(), err)
	})

	cmd.AddCommand(NewParseCommand(opts))
	cmd.AddCommand(NewBetweenCommand(opts))
	cmd.AddCommand(NewICSCommand(opts))
	cmd.AddCommand(NewXCalCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))

	return cmd
}

func (o *RootOptions) location() (*time.Location, error) {
	return time.LoadLocation(o.Timezone)
}

func (o *RootOptions) clock() time.Time {
	if o.now != nil {
		return o.now()
	}
	return time.Now()
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// logger writes to stderr at the configured level, or at debug level in
// verbose mode.
func (o *RootOptions) logger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelWarn
	if o.Config != nil {
		if l, err := o.Config.Level(); err == nil {
			level = l
		}
	}
	if o.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

// recurrenceConfig is the construction policy after flag overrides.
func (o *RootOptions) recurrenceConfig() (recurrence.Config, error) {
	cfg := recurrence.DefaultConfig
	if o.Config != nil {
		c, err := o.Config.Recurrence()
		if err != nil {
			return cfg, err
		}
		cfg = c
	}
	cfg.NumPreview = o.Previews
	cfg.DailyOrGreaterOnly = !o.AllowSubDaily
	return cfg, nil
}

// parseTime reads a date expression in the configured zone. Empty means now.
func (o *RootOptions) parseTime(expr string) (time.Time, error) {
	loc, err := o.location()
	if err != nil {
		return time.Time{}, err
	}
	now := o.clock().In(loc).Truncate(time.Second)
	if strings.TrimSpace(expr) == "" {
		return now, nil
	}
	return phrase.ParseDate(expr, now)
}

// buildRule constructs the rule for the joined args.
func (o *RootOptions) buildRule(cmd *cobra.Command, args []string, start time.Time) (*recurrence.Rule, error) {
	cfg, err := o.recurrenceConfig()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	return recurrence.New(strings.Join(args, " "), start,
		recurrence.WithConfig(cfg),
		recurrence.WithLogger(o.logger(cmd)))
}

// window reads the event window. The start defaults to now and the end to
// the start. Failures are parse errors so they share the input error code.
func (o *RootOptions) window(startExpr, endExpr string) (time.Time, time.Time, error) {
	start, err := o.parseTime(startExpr)
	if err != nil {
		return start, start, &recurrence.Error{Type: recurrence.ErrParse, Message: "invalid start", Input: startExpr, Err: err}
	}
	if strings.TrimSpace(endExpr) == "" {
		return start, start, nil
	}
	end, err := o.parseTime(endExpr)
	if err != nil {
		return start, end, &recurrence.Error{Type: recurrence.ErrParse, Message: "invalid end", Input: endExpr, Err: err}
	}
	if end.Before(start) {
		return start, end, &recurrence.Error{Type: recurrence.ErrParse, Message: "end precedes start", Input: endExpr}
	}
	return start, end, nil
}
