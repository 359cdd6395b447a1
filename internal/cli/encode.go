package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lguelzow/CoreasSpellcaster/internal/catalog"
	"github.com/lguelzow/CoreasSpellcaster/internal/runid"
	"github.com/lguelzow/CoreasSpellcaster/internal/tables"
)

// EncodeOptions holds flags for the encode command.
type EncodeOptions struct {
	*RootOptions
	Tables string
	Tuple  runid.Tuple
}

// EncodeResult is the output of the encode command.
type EncodeResult struct {
	ID     runid.ID     `json:"id"`
	Params runid.Tuple  `json:"params"`
	Digits runid.Digits `json:"digits"`
}

// NewEncodeCommand creates the encode command.
func NewEncodeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EncodeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "encode",
		Short: "Print the run identifier of one shower",
		Long: `Encode a parameter tuple into its run identifier using the bucket tables.

Energy is log10(E/GeV) and is rounded to 0.1; angles are degrees rounded to
0.01, the same way the catalog rounds them.`,
		Example: `  spellcaster encode --primary 14 --energy 8.0 --zenith 78 --azimuth 100 --run 27`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEncode(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.Tables, "tables", "", "bucket table file (CUE)")
	f.IntVar(&opts.Tuple.Primary, "primary", 14, "CORSIKA primary particle code")
	f.Float64Var(&opts.Tuple.LogEnergy, "energy", 0, "log10(E/GeV)")
	f.Float64Var(&opts.Tuple.Zenith, "zenith", 0, "zenith angle in degrees")
	f.Float64Var(&opts.Tuple.Azimuth, "azimuth", 0, "azimuth angle in degrees")
	f.IntVar(&opts.Tuple.RunIndex, "run", 0, "run index")
	return cmd
}

func runEncode(cmd *cobra.Command, opts *EncodeOptions) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	codec, err := tables.Load(opts.Tables)
	if err != nil {
		return WrapExitError(ExitCommandError, "load tables", err)
	}

	tuple := catalog.Quantize(opts.Tuple)
	id, err := codec.Encode(tuple)
	if err != nil {
		if runid.IsOutOfRange(err) {
			return WrapExitError(ExitCommandError, "encode", err)
		}
		return WrapExitError(ExitFailure, "encode", err)
	}

	digits, err := codec.Decode(id)
	if err != nil {
		return WrapExitError(ExitFailure, "decode", err)
	}

	result := EncodeResult{ID: id, Params: tuple, Digits: digits}
	return formatter.Success(result, renderEncode(codec.Layout(), result))
}

func renderEncode(layout runid.Layout, r EncodeResult) string {
	fields := make([]string, 0, len(layout))
	for _, f := range layout {
		if f.Kind == runid.Reserved {
			continue
		}
		fields = append(fields, fmt.Sprintf("%s=%d", f.Kind, r.Digits[f.Kind]))
	}
	return fmt.Sprintf("%s  (%s)", r.ID, strings.Join(fields, " "))
}
