package cli

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/lguelzow/CoreasSpellcaster/internal/dispatch"
	"github.com/lguelzow/CoreasSpellcaster/internal/runid"
	"github.com/lguelzow/CoreasSpellcaster/internal/store"
)

// StatusOptions holds flags for the status command.
type StatusOptions struct {
	*RootOptions
	Ledger  string
	Session string
	ID      string
	State   string
	Limit   int
}

// StatusResult is the output of the status command.
type StatusResult struct {
	Session *store.Session `json:"session,omitempty"`
	Runs    []store.Run    `json:"runs"`
}

var validStates = []dispatch.State{
	dispatch.StateRunning,
	dispatch.StateSucceeded,
	dispatch.StateFailed,
	dispatch.StateMaterializationError,
	dispatch.StateLaunchError,
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StatusOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show recorded outcomes from a run ledger",
		Long: `List the simulations recorded in a run ledger.

By default the most recent session is shown. --session selects another one;
--id lists one shower across every session.`,
		Example: `  spellcaster status --ledger runs.db
  spellcaster status --ledger runs.db --state failed
  spellcaster status --ledger runs.db --id 016027`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.Ledger, "ledger", "", "SQLite run ledger (required)")
	f.StringVar(&opts.Session, "session", "", "session id (default: most recent)")
	f.StringVar(&opts.ID, "id", "", "only this run identifier, across sessions")
	f.StringVar(&opts.State, "state", "", "only runs in this state")
	f.IntVar(&opts.Limit, "limit", 0, "maximum number of runs (0 = all)")
	_ = cmd.MarkFlagRequired("ledger")
	return cmd
}

func runStatus(cmd *cobra.Command, opts *StatusOptions) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	filter := store.Filter{
		Session: opts.Session,
		ID:      runid.ID(opts.ID),
		State:   dispatch.State(opts.State),
		Limit:   opts.Limit,
	}
	if filter.State != "" && !slices.Contains(validStates, filter.State) {
		return NewExitError(ExitCommandError,
			fmt.Sprintf("invalid state %q: must be one of %v", opts.State, validStates))
	}

	st, err := store.Open(opts.Ledger)
	if err != nil {
		return WrapExitError(ExitFailure, "open ledger", err)
	}
	defer st.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	result := StatusResult{}
	if filter.ID == "" {
		sess, err := selectSession(ctx, st, opts.Session)
		if err != nil {
			return err
		}
		result.Session = &sess
		filter.Session = sess.ID
	}

	result.Runs, err = st.Runs(ctx, filter)
	if err != nil {
		return WrapExitError(ExitFailure, "query ledger", err)
	}

	return formatter.Success(result, renderStatus(result))
}

func selectSession(ctx context.Context, st *store.Store, id string) (store.Session, error) {
	if id == "" {
		sess, err := st.LatestSession(ctx)
		if errors.Is(err, store.ErrNotFound) {
			return store.Session{}, NewExitError(ExitFailure, "ledger has no sessions")
		}
		if err != nil {
			return store.Session{}, WrapExitError(ExitFailure, "query ledger", err)
		}
		return sess, nil
	}

	sessions, err := st.Sessions(ctx)
	if err != nil {
		return store.Session{}, WrapExitError(ExitFailure, "query ledger", err)
	}
	for _, s := range sessions {
		if s.ID == id {
			return s, nil
		}
	}
	return store.Session{}, NewExitError(ExitFailure, fmt.Sprintf("session %q not found", id))
}

func renderStatus(r StatusResult) string {
	var blocks []string

	if s := r.Session; s != nil {
		finished := "unfinished"
		if !s.FinishedAt.IsZero() {
			finished = s.FinishedAt.Local().Format(time.DateTime)
		}
		if s.Stopped {
			finished += " (stopped)"
		}
		blocks = append(blocks, boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
			titleStyle.Render("Session "+s.ID),
			kv("started", s.StartedAt.Local().Format(time.DateTime)),
			kv("finished", finished),
			kv("parallel", count(s.Parallel)),
			kv("dispatched", count(s.Dispatched)),
			kv("succeeded", count(s.Succeeded)),
			kv("failed", count(s.Failed)),
			kv("skipped (done)", count(s.Skipped)),
		)))
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		Headers("SEQ", "ID", "STATE", "EXIT", "LOCATION", "STARTED").
		StyleFunc(func(row, col int) lipgloss.Style {
			return lipgloss.NewStyle().Padding(0, 1)
		})
	for _, run := range r.Runs {
		exit := fmt.Sprint(run.ExitCode)
		if run.Signal != "" {
			exit = run.Signal
		}
		t.Row(
			fmt.Sprint(run.Seq),
			string(run.ID),
			string(run.State),
			exit,
			run.Location,
			run.Started.Local().Format(time.DateTime),
		)
	}
	blocks = append(blocks, t.String(), fmt.Sprintf("%s runs", count(len(r.Runs))))

	return lipgloss.JoinVertical(lipgloss.Left, blocks...)
}
