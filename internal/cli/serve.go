package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/joshhubert-dsp/recurrent-plus/internal/httpapi"
	"github.com/joshhubert-dsp/recurrent-plus/recurrence"
)

const shutdownTimeout = 30 * time.Second

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	addr := ":8080"
	if rootOpts.Config != nil {
		addr = rootOpts.Config.HTTPAddr
	}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the normalizer over HTTP",
		Long: `Serve the normalizer over HTTP until interrupted.

Endpoints:
  GET  /healthz
  POST /recurrences            normalize and preview
  POST /recurrences/reconcile  align an event window
  POST /recurrences/batch      normalize many inputs
  POST /recurrences/ics        render an iCalendar event`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(rootOpts, addr, cmd)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", addr, "listen address")

	return cmd
}

func runServe(opts *RootOptions, addr string, cmd *cobra.Command) error {
	logger := opts.logger(cmd)

	cfg, err := opts.recurrenceConfig()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	loc, err := opts.location()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid timezone", err)
	}

	cacheCfg := recurrence.DefaultCacheConfig
	if opts.Config != nil {
		cacheCfg = opts.Config.Cache()
	}
	cache := recurrence.NewRuleCache(cacheCfg)
	defer cache.Close()

	server := httpapi.NewServer(cache, cfg,
		httpapi.WithLogger(logger),
		httpapi.WithLocation(loc),
		httpapi.WithClock(opts.clock))

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      server,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return WrapExitError(ExitCommandError, "server failed", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return WrapExitError(ExitCommandError, "server shutdown failed", err)
	}
	logger.Info("server stopped")
	return nil
}
