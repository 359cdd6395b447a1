package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/lguelzow/CoreasSpellcaster/internal/config"
	"github.com/lguelzow/CoreasSpellcaster/internal/deck"
	"github.com/lguelzow/CoreasSpellcaster/internal/dispatch"
	"github.com/lguelzow/CoreasSpellcaster/internal/marker"
	"github.com/lguelzow/CoreasSpellcaster/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	CampaignOptions

	// launcher replaces ExecLauncher in tests.
	launcher dispatch.Launcher
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(rootOpts, nil)
}

func newRunCommand(rootOpts *RootOptions, launcher dispatch.Launcher) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts, launcher: launcher}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Simulate every pending shower of a campaign",
		Long: `Enumerate the campaign catalog, write a CORSIKA deck per pending shower
and run up to --parallel simulations at once.

On SIGINT or SIGTERM no new simulations start; running ones are waited for
and the summary is printed. Failed simulations are reported in the summary
and do not change the exit code. Rerunning the same campaign skips every
shower that already finished.`,
		Example: `  spellcaster run --config campaign.yaml --parallel 8
  spellcaster run -c campaign.yaml --start 100 --end 200 --ledger runs.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCampaign(cmd, opts)
		},
	}

	opts.addFlags(cmd)
	return cmd
}

func runCampaign(cmd *cobra.Command, opts *RunOptions) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	camp, err := loadCampaign(cmd, &opts.CampaignOptions, config.ValidateOptions{}, logger)
	if err != nil {
		return err
	}
	cfg := camp.cfg

	session, err := store.NewSessionID()
	if err != nil {
		return WrapExitError(ExitFailure, "start session", err)
	}
	logger = logger.With("session", session)

	writer, err := deck.New(cfg.Deck(), logger)
	if err != nil {
		return WrapExitError(ExitFailure, "prepare decks", err)
	}

	recorders := []dispatch.Recorder{marker.Recorder{Session: session}}

	var ledger *store.Store
	if cfg.Ledger != "" {
		ledger, err = store.Open(cfg.Ledger)
		if err != nil {
			return WrapExitError(ExitFailure, "open ledger", err)
		}
		defer ledger.Close()

		// Ledger writes use their own context so a drain after SIGINT
		// is still recorded.
		if err := ledger.BeginSession(context.Background(), store.Session{
			ID:         session,
			StartedAt:  time.Now(),
			ConfigPath: opts.ConfigPath,
			Parallel:   cfg.Parallel,
		}); err != nil {
			return WrapExitError(ExitFailure, "open ledger", err)
		}
		recorders = append(recorders, &store.Ledger{Store: ledger, Session: session})
	}

	launcher := opts.launcher
	if launcher == nil {
		launcher = dispatch.ExecLauncher{}
	}

	d := &dispatch.Dispatcher{
		Limit:        cfg.Parallel,
		Materializer: writer,
		Launcher:     launcher,
		Recorders:    recorders,
		Logger:       logger,
		Session:      session,
	}

	// Setup signal handling for graceful shutdown
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, draining running simulations", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	logger.Info("campaign started",
		"parallel", cfg.Parallel,
		"grid_size", cfg.Grid().Size(),
		"dir", cfg.DirSimulations)

	cat, err := camp.catalog(logger, true)
	if err != nil {
		return err
	}

	summary, runErr := d.Run(ctx, cat.Items())
	if summary == nil {
		return WrapExitError(ExitFailure, "dispatch", runErr)
	}

	if ledger != nil {
		if err := ledger.FinishSession(context.Background(), summary, time.Now()); err != nil {
			logger.Error("ledger not finalised", "error", err)
		}
	}

	if runErr != nil {
		// One report per run: the error envelope carries the summary in
		// JSON; text mode prints the summary before the error line.
		exitErr := exitForCatalog(runErr)
		if formatter.Format == "json" {
			exitErr.Details = summary
		} else if err := formatter.Success(summary, renderSummary(summary)); err != nil {
			return err
		}
		return exitErr
	}

	return formatter.Success(summary, renderSummary(summary))
}

// renderSummary is the text form of a dispatcher summary.
func renderSummary(s *dispatch.Summary) string {
	title := "Campaign complete"
	if s.Stopped {
		title = "Campaign stopped"
	}

	failed := count(s.Failed)
	if s.Failed > 0 {
		failed = badStyle.Render(failed)
	}

	lines := []string{
		titleStyle.Render(title),
		kv("session", s.Session),
		kv("dispatched", count(s.Dispatched)),
		kv("succeeded", goodStyle.Render(count(s.Succeeded))),
		kv("failed", failed),
		kv("materialization errors", count(s.MaterializationErrors)),
		kv("launch errors", count(s.LaunchErrors)),
		kv("skipped (done)", count(s.Skipped)),
		kv("dropped (collision)", count(s.Aliased)),
		kv("peak concurrency", count(s.PeakRunning)),
	}

	var problems []string
	for _, r := range s.Results {
		if r.State == dispatch.StateSucceeded {
			continue
		}
		problems = append(problems, fmt.Sprintf("%s %s %s", r.ID, r.State, describe(r)))
	}
	if len(problems) > 0 {
		lines = append(lines, "", badStyle.Render("Unsuccessful"))
		lines = append(lines, problems...)
	}

	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func describe(r dispatch.Result) string {
	switch {
	case r.Err != nil:
		return r.Err.Error()
	case r.Signal != "":
		return "signal " + r.Signal
	default:
		return fmt.Sprintf("exit %d", r.ExitCode)
	}
}
