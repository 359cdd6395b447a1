package cli

import (
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/spf13/cobra"

	"github.com/lguelzow/CoreasSpellcaster/internal/catalog"
	"github.com/lguelzow/CoreasSpellcaster/internal/config"
	"github.com/lguelzow/CoreasSpellcaster/internal/marker"
	"github.com/lguelzow/CoreasSpellcaster/internal/runid"
	"github.com/lguelzow/CoreasSpellcaster/internal/tables"
)

// CampaignOptions holds the flags that override campaign config values.
type CampaignOptions struct {
	ConfigPath string
	Parallel   int
	Start      int
	End        int
	Dir        string
	Seed       uint64
	Ledger     string
	Tables     string
}

func (o *CampaignOptions) addFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVarP(&o.ConfigPath, "config", "c", "", "campaign config file (YAML)")
	f.IntVarP(&o.Parallel, "parallel", "p", 0, "maximum number of concurrent simulations")
	f.IntVar(&o.Start, "start", 0, "first run index")
	f.IntVar(&o.End, "end", 0, "run index bound (exclusive)")
	f.StringVar(&o.Dir, "dir", "", "campaign output directory")
	f.Uint64Var(&o.Seed, "seed", 0, "seed for the azimuth draws")
	f.StringVar(&o.Ledger, "ledger", "", "SQLite run ledger")
	f.StringVar(&o.Tables, "tables", "", "bucket table file (CUE)")
}

// load reads the config file and applies the flags the user set.
func (o *CampaignOptions) load(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()
	if o.ConfigPath != "" {
		var err error
		cfg, err = config.Load(o.ConfigPath)
		if err != nil {
			return config.Config{}, WrapExitError(ExitCommandError, "load config", err)
		}
	}

	f := cmd.Flags()
	if f.Changed("parallel") {
		cfg.Parallel = o.Parallel
	}
	if f.Changed("start") {
		cfg.StartNumber = o.Start
	}
	if f.Changed("end") {
		cfg.EndNumber = o.End
	}
	if f.Changed("dir") {
		cfg.DirSimulations = o.Dir
	}
	if f.Changed("seed") {
		seed := o.Seed
		cfg.Seed = &seed
	}
	if f.Changed("ledger") {
		cfg.Ledger = o.Ledger
	}
	if f.Changed("tables") {
		cfg.Tables = o.Tables
	}
	return cfg, nil
}

// campaign is a validated config with its codec.
type campaign struct {
	cfg      config.Config
	codec    *runid.Codec
	warnings []config.Warning
}

func loadCampaign(cmd *cobra.Command, o *CampaignOptions, vopts config.ValidateOptions, logger *slog.Logger) (*campaign, error) {
	cfg, err := o.load(cmd)
	if err != nil {
		return nil, err
	}

	warnings, err := cfg.Validate(vopts)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid config", err)
	}
	for _, w := range warnings {
		logger.Warn("config warning", "field", w.Field, "message", w.Message)
	}

	codec, err := tables.Load(cfg.Tables)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "load tables", err)
	}
	if _, err := codec.AssignDigit(runid.Primary, float64(cfg.Primary)); err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid config", err)
	}
	if limit := codec.Layout().RunIndexLimit(); cfg.EndNumber > limit {
		return nil, WrapExitError(ExitCommandError, "invalid config",
			&config.Error{Field: "end_number", Err: fmt.Errorf("%d exceeds the run index limit %d of the identifier layout", cfg.EndNumber, limit)})
	}

	return &campaign{cfg: cfg, codec: codec, warnings: warnings}, nil
}

// catalog builds the campaign catalog with marker-based skipping.
//
// Without a configured seed the azimuth seed stored in the campaign
// directory is used. If none is stored yet and persist is set, a fresh
// seed is drawn and stored so a rerun reproduces the same identifiers.
func (c *campaign) catalog(logger *slog.Logger, persist bool) (*catalog.Catalog, error) {
	cat := &catalog.Catalog{
		Codec:  c.codec,
		Grid:   c.cfg.Grid(),
		Root:   c.cfg.DirSimulations,
		Done:   marker.Predicate{},
		Logger: logger,
	}

	seed, ok := uint64(0), false
	if c.cfg.Seed != nil {
		seed, ok = *c.cfg.Seed, true
	} else {
		stored, found, err := marker.ReadSeed(c.cfg.DirSimulations)
		if err != nil {
			return nil, WrapExitError(ExitFailure, "campaign seed", err)
		}
		seed, ok = stored, found
		if !found && persist {
			seed, ok = rand.Uint64(), true
			if err := marker.WriteSeed(c.cfg.DirSimulations, seed); err != nil {
				return nil, WrapExitError(ExitFailure, "campaign seed", err)
			}
			logger.Info("azimuth seed stored", "path", marker.SeedPath(c.cfg.DirSimulations))
		}
	}
	if ok {
		cat.Rand = rand.NewPCG(seed, 0)
	}
	return cat, nil
}

// exitForCatalog maps a catalog failure to its exit code.
func exitForCatalog(err error) *ExitError {
	if runid.IsOutOfRange(err) {
		return WrapExitError(ExitCommandError, "catalog stopped", err)
	}
	return WrapExitError(ExitFailure, "catalog stopped", err)
}
