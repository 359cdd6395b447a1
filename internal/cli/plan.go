package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/lguelzow/CoreasSpellcaster/internal/catalog"
	"github.com/lguelzow/CoreasSpellcaster/internal/config"
	"github.com/lguelzow/CoreasSpellcaster/internal/dispatch"
	"github.com/lguelzow/CoreasSpellcaster/internal/store"
)

// PlanOptions holds flags for the plan command.
type PlanOptions struct {
	*RootOptions
	CampaignOptions
	PendingOnly bool
}

// PlanItem is one catalog entry with its completion state.
type PlanItem struct {
	catalog.WorkItem
	Done bool `json:"done"`
	// Last is the most recent ledger outcome, when a ledger is configured.
	Last dispatch.State `json:"last,omitempty"`
}

// PlanResult is the output of the plan command.
type PlanResult struct {
	GridSize int        `json:"grid_size"`
	Pending  int        `json:"pending"`
	Done     int        `json:"done"`
	Aliased  int        `json:"aliased"`
	Items    []PlanItem `json:"items"`
}

// NewPlanCommand creates the plan command.
func NewPlanCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PlanOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "List the showers a run would simulate",
		Long: `Enumerate the campaign catalog in dispatch order without writing decks or
starting simulations. Each shower is listed with its identifier, parameters,
output directory and whether its completion marker exists.

Showers are classified in the same order as a run: a shower whose marker
exists counts as done before it is checked for an identifier collision.

Without a configured seed, plan uses the seed stored by an earlier run. A
campaign that never ran has no stored seed yet, so its azimuths (and the
identifiers depending on them) will differ from the first run's.

A missing CORSIKA executable is only a warning here.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(cmd, opts)
		},
	}

	opts.addFlags(cmd)
	cmd.Flags().BoolVar(&opts.PendingOnly, "pending", false, "only list showers that are not done")
	return cmd
}

func runPlan(cmd *cobra.Command, opts *PlanOptions) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	camp, err := loadCampaign(cmd, &opts.CampaignOptions, config.ValidateOptions{DryRun: true}, logger)
	if err != nil {
		return err
	}

	cat, err := camp.catalog(logger, false)
	if err != nil {
		return err
	}

	var ledger *store.Store
	if path := camp.cfg.Ledger; path != "" {
		if _, err := os.Stat(path); err == nil {
			ledger, err = store.Open(path)
			if err != nil {
				return WrapExitError(ExitFailure, "open ledger", err)
			}
			defer ledger.Close()
		}
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	result := PlanResult{GridSize: camp.cfg.Grid().Size(), Items: []PlanItem{}}
	var ledgerErr error
	add := func(item catalog.WorkItem, done bool) {
		if done {
			result.Done++
		} else {
			result.Pending++
		}
		if (done && opts.PendingOnly) || ledgerErr != nil {
			return
		}
		pi := PlanItem{WorkItem: item, Done: done}
		if ledger != nil {
			last, err := ledger.LastOutcome(ctx, item.ID, item.Location)
			switch {
			case err == nil:
				pi.Last = last.State
			case !errors.Is(err, store.ErrNotFound):
				ledgerErr = err
				return
			}
		}
		result.Items = append(result.Items, pi)
	}

	// Done showers come through OnSkip in traversal order, so a shower
	// counts as done or dropped exactly as it would in a run.
	cat.OnSkip = func(item catalog.WorkItem) { add(item, true) }
	cur := cat.Items()
	for {
		item, ok, err := cur.Next()
		if err != nil {
			return exitForCatalog(err)
		}
		if !ok {
			break
		}
		add(item, false)
	}
	if ledgerErr != nil {
		return WrapExitError(ExitFailure, "query ledger", ledgerErr)
	}
	result.Aliased = cur.Stats().Aliased

	return formatter.Success(result, renderPlan(result))
}

func renderPlan(p PlanResult) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		Headers("ID", "PRIMARY", "LOG10(E/GEV)", "ZENITH", "AZIMUTH", "LOCATION", "STATE", "LAST").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return titleStyle
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})

	for _, it := range p.Items {
		state := "pending"
		if it.Done {
			state = "done"
		}
		t.Row(
			string(it.ID),
			fmt.Sprint(it.Params.Primary),
			fmt.Sprintf("%.1f-%.1f", it.EnergyBin[0], it.EnergyBin[1]),
			fmt.Sprintf("%.2f", it.Params.Zenith),
			fmt.Sprintf("%.2f", it.Params.Azimuth),
			it.Location,
			state,
			string(it.Last),
		)
	}

	footer := fmt.Sprintf("%s pending, %s done, %s dropped (collision), grid size %s",
		count(p.Pending), count(p.Done), count(p.Aliased), count(p.GridSize))
	return lipgloss.JoinVertical(lipgloss.Left, t.String(), footer)
}
