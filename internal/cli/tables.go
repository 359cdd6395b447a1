package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/lguelzow/CoreasSpellcaster/internal/runid"
	"github.com/lguelzow/CoreasSpellcaster/internal/tables"
)

// TablesOptions holds flags for the tables command.
type TablesOptions struct {
	*RootOptions
	Tables string
}

// TableReport is one validated bucket table with its boundary ties.
type TableReport struct {
	*runid.Table
	Ties []runid.Tie `json:"ties"`
}

// TablesResult is the output of the tables command.
type TablesResult struct {
	Source string        `json:"source"`
	Layout runid.Layout  `json:"layout"`
	Tables []TableReport `json:"tables"`
}

// NewTablesCommand creates the tables command.
func NewTablesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TablesOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "tables",
		Short: "Validate and print the bucket tables",
		Long: `Load the bucket tables, validate them and print the identifier layout,
every interval and each pair of intervals that share a boundary value.
Where intervals overlap the earlier one wins.

Without --tables the built-in tables are shown.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTables(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Tables, "tables", "", "bucket table file (CUE)")
	return cmd
}

func runTables(cmd *cobra.Command, opts *TablesOptions) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	codec, err := tables.Load(opts.Tables)
	if err != nil {
		return WrapExitError(ExitCommandError, "load tables", err)
	}

	source := opts.Tables
	if source == "" {
		source = tables.DefaultName
	}

	result := TablesResult{Source: source, Layout: codec.Layout()}
	for _, d := range runid.BucketedDimensions {
		t := codec.Table(d)
		if t == nil {
			continue
		}
		ties := t.Overlaps()
		if ties == nil {
			ties = []runid.Tie{}
		}
		result.Tables = append(result.Tables, TableReport{Table: t, Ties: ties})
	}

	return formatter.Success(result, renderTables(result))
}

func renderTables(r TablesResult) string {
	layout := make([]string, len(r.Layout))
	for i, f := range r.Layout {
		layout[i] = fmt.Sprintf("%s:%d", f.Kind, f.Width)
	}

	blocks := []string{
		titleStyle.Render("Bucket tables") + " " + r.Source,
		kv("layout", strings.Join(layout, " ")),
	}

	for _, rep := range r.Tables {
		t := table.New().
			Border(lipgloss.NormalBorder()).
			BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
			Headers("DIGIT", "LOWER", "UPPER").
			StyleFunc(func(row, col int) lipgloss.Style {
				return lipgloss.NewStyle().Padding(0, 1)
			})
		for _, iv := range rep.Intervals {
			t.Row(fmt.Sprint(iv.Digit), fmt.Sprint(iv.Lower), fmt.Sprint(iv.Upper))
		}

		heading := rep.Dimension.String()
		if rep.Discrete {
			heading += " (discrete)"
		}
		blocks = append(blocks, "", titleStyle.Render(heading), t.String())

		for _, tie := range rep.Ties {
			blocks = append(blocks, fmt.Sprintf("tie: [%g, %g] goes to digit %d over digit %d",
				tie.Lower, tie.Upper, rep.Intervals[tie.Winner].Digit, rep.Intervals[tie.Loser].Digit))
		}
	}

	return lipgloss.JoinVertical(lipgloss.Left, blocks...)
}
