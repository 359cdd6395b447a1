// Package config loads simulation campaign settings from YAML.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/lguelzow/CoreasSpellcaster/internal/catalog"
	"github.com/lguelzow/CoreasSpellcaster/internal/deck"
)

// Config describes one simulation campaign.
type Config struct {
	Username       string                 `yaml:"username" json:"username"`
	Primary        int                    `yaml:"primary" json:"primary"`
	DirSimulations string                 `yaml:"dir_simulations" json:"dir_simulations"`
	PathCorsika    string                 `yaml:"path_corsika" json:"path_corsika"`
	CorsikaExe     string                 `yaml:"corsika_exe" json:"corsika_exe"`
	StartNumber    int                    `yaml:"start_number" json:"start_number"`
	EndNumber      int                    `yaml:"end_number" json:"end_number"`
	Energy         catalog.EnergyGrid     `yaml:"energy" json:"energy"`
	Zenith         catalog.ZenithSampling `yaml:"zenith" json:"zenith"`
	ObsLev         float64                `yaml:"obslev" json:"obslev"`
	PathAntennas   string                 `yaml:"path_antennas" json:"path_antennas,omitempty"`
	Parallel       int                    `yaml:"parallel" json:"parallel"`
	Tables         string                 `yaml:"tables" json:"tables,omitempty"`
	Ledger         string                 `yaml:"ledger" json:"ledger,omitempty"`
	Seed           *uint64                `yaml:"seed" json:"seed,omitempty"`
	Magnet         [2]float64             `yaml:"magnet" json:"magnet"`
	AtmosphereFile string                 `yaml:"atmosphere_file" json:"atmosphere_file"`
}

// Default returns the settings of a GP300-style proton campaign.
func Default() Config {
	return Config{
		Username:       os.Getenv("USER"),
		Primary:        14,
		DirSimulations: "sims",
		PathCorsika:    "corsika-77550/run",
		CorsikaExe:     "corsika77550Linux_SIBYLL_urqmd_thin_coreas",
		StartNumber:    0,
		EndNumber:      10,
		Energy:         catalog.EnergyGrid{Start: 8.0, End: 9.0, Step: 0.1},
		Zenith: catalog.ZenithSampling{
			Mode:   catalog.ZenithList,
			Values: []float64{63.0, 66.3, 68.8, 71.3, 73.8, 76.3, 78.8, 81.3, 83.8, 86.3},
		},
		ObsLev:         115_000,
		Parallel:       1,
		Magnet:         [2]float64{27.0, 48.3},
		AtmosphereFile: "ATMOSPHERE_20170401120000_Dunhuang.DAT",
	}
}

// Load reads path over the defaults. Relative paths inside the file are
// resolved against the file's directory.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, &Error{Path: path, Err: err}
	}

	cfg.resolve(filepath.Dir(path))
	return cfg, nil
}

func (c *Config) resolve(base string) {
	for _, p := range []*string{&c.DirSimulations, &c.PathCorsika, &c.PathAntennas, &c.Tables, &c.Ledger} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(base, *p)
		}
	}
}

// Grid is the catalog grid of the campaign.
func (c Config) Grid() catalog.Grid {
	return catalog.Grid{
		Primary:    c.Primary,
		Energy:     c.Energy,
		Zenith:     c.Zenith,
		StartIndex: c.StartNumber,
		EndIndex:   c.EndNumber,
	}
}

// Deck is the deck configuration of the campaign.
func (c Config) Deck() deck.Config {
	return deck.Config{
		Root:           c.DirSimulations,
		Username:       c.Username,
		ObsLev:         c.ObsLev,
		PathCorsika:    c.PathCorsika,
		CorsikaExe:     c.CorsikaExe,
		AtmosphereFile: c.AtmosphereFile,
		Magnet:         c.Magnet,
		PathAntennas:   c.PathAntennas,
	}
}

// Executable is the path of the CORSIKA binary.
func (c Config) Executable() string {
	return filepath.Join(c.PathCorsika, c.CorsikaExe)
}

// Error reports an unusable configuration.
type Error struct {
	Path  string
	Field string
	Err   error
}

func (e *Error) Error() string {
	switch {
	case e.Path != "" && e.Field != "":
		return fmt.Sprintf("%s: %s: %v", e.Path, e.Field, e.Err)
	case e.Path != "":
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	case e.Field != "":
		return fmt.Sprintf("%s: %v", e.Field, e.Err)
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// IsConfigError checks if an error is a config Error.
func IsConfigError(err error) bool {
	var ce *Error
	return errors.As(err, &ce)
}

// Warning is a problem that does not prevent a run.
type Warning struct {
	Field   string
	Message string
}

func (w Warning) String() string {
	return w.Field + ": " + w.Message
}

// ValidateOptions relaxes checks for runs that never execute CORSIKA.
type ValidateOptions struct {
	// DryRun downgrades a missing executable to a warning.
	DryRun bool
}

// Validate checks the campaign before anything is written to disk.
func (c Config) Validate(opts ValidateOptions) ([]Warning, error) {
	var warnings []Warning

	fail := func(field, format string, args ...any) ([]Warning, error) {
		return warnings, &Error{Field: field, Err: fmt.Errorf(format, args...)}
	}

	if c.Energy.End <= c.Energy.Start {
		return fail("energy", "end %g must be greater than start %g", c.Energy.End, c.Energy.Start)
	}
	if c.Energy.Step <= 0 {
		return fail("energy.step", "must be positive, got %g", c.Energy.Step)
	}
	if _, err := c.Zenith.Angles(); err != nil {
		return fail("zenith", "%v", err)
	}
	if c.StartNumber < 0 {
		return fail("start_number", "must not be negative, got %d", c.StartNumber)
	}
	if c.EndNumber <= c.StartNumber {
		return fail("end_number", "%d must be greater than start_number %d", c.EndNumber, c.StartNumber)
	}
	if c.Parallel < 1 {
		return fail("parallel", "must be at least 1, got %d", c.Parallel)
	}
	if c.DirSimulations == "" {
		return fail("dir_simulations", "must be set")
	}

	offset, ok := deck.SeedOffsets[c.Primary]
	if !ok {
		return fail("primary", "%d has no seed offset; supported are 1, 14, 402, 1608, 2814, 5626", c.Primary)
	}
	if offset*1_000_000 > deck.MaxSeed {
		warnings = append(warnings, Warning{Field: "primary", Message: "seed offset exceeds the CORSIKA seed range"})
	}

	if info, err := os.Stat(c.Executable()); err != nil || info.IsDir() {
		if !opts.DryRun {
			return fail("corsika_exe", "%s does not exist", c.Executable())
		}
		warnings = append(warnings, Warning{Field: "corsika_exe", Message: c.Executable() + " does not exist"})
	}

	if c.PathAntennas != "" {
		if _, err := os.Stat(c.PathAntennas); err != nil {
			return fail("path_antennas", "%v", err)
		}
	}

	return warnings, nil
}
