// Package deck writes the CORSIKA and CoREAS input files of a shower and
// the script that runs it.
//
// For an item with identifier <id> the location directory receives
// SIM<id>.inp, SIM<id>.reas, SIM<id>.list (when an antenna list is
// configured) and run_<id>.sh. The script's output goes to
// <root>/log/<E1>/DAT<id>.log.
package deck

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/lguelzow/CoreasSpellcaster/internal/catalog"
	"github.com/lguelzow/CoreasSpellcaster/internal/dispatch"
	"github.com/lguelzow/CoreasSpellcaster/internal/runid"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// MaxSeed is the largest random seed CORSIKA accepts.
const MaxSeed = 900_000_000

// SeedOffsets numbers the supported primaries for seed derivation.
// Keys are CORSIKA particle codes.
var SeedOffsets = map[int]int{
	1:    0, // gamma
	14:   1, // proton
	402:  2, // helium
	1608: 3, // oxygen
	5626: 4, // iron
	2814: 5, // silicon
}

// Seed derives the first of the four seeds of a shower:
// (id + offset*1e6) mod (MaxSeed+1).
func Seed(id runid.ID, primary int) (int64, error) {
	offset, ok := SeedOffsets[primary]
	if !ok {
		return 0, fmt.Errorf("primary %d has no seed offset", primary)
	}
	n, err := id.Int()
	if err != nil {
		return 0, fmt.Errorf("identifier %q: %w", id, err)
	}
	return (n + int64(offset)*1_000_000) % (MaxSeed + 1), nil
}

// Config holds the campaign-wide values written into every deck.
type Config struct {
	Root           string     // campaign directory
	Username       string
	ObsLev         float64    // observation level in cm
	PathCorsika    string     // CORSIKA run directory
	CorsikaExe     string     // executable name inside PathCorsika
	AtmosphereFile string     // relative to PathCorsika unless absolute
	Magnet         [2]float64 // horizontal and vertical field in uT
	PathAntennas   string     // optional CoREAS antenna list
}

// Writer is a dispatch.Materializer producing CORSIKA decks.
type Writer struct {
	cfg    Config
	tmpl   *template.Template
	logger *slog.Logger
}

// New parses the embedded templates.
func New(cfg Config, logger *slog.Logger) (*Writer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	tmpl, err := template.New("deck").Funcs(template.FuncMap{
		"sci":   func(v float64) string { return fmt.Sprintf("%.11E", v) },
		"fixed": func(v float64) string { return fmt.Sprintf("%.1f", v) },
		"angle": func(v float64) string { return fmt.Sprintf("%.2f", v) },
		"quote": shellQuote,
	}).ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Writer{cfg: cfg, tmpl: tmpl, logger: logger}, nil
}

// Executable is the absolute path of the CORSIKA binary.
func (w *Writer) Executable() string {
	return filepath.Join(w.cfg.PathCorsika, w.cfg.CorsikaExe)
}

// LogPath is where the output of the item's script is appended.
func (w *Writer) LogPath(item catalog.WorkItem) string {
	return filepath.Join(w.cfg.Root, "log", fmt.Sprintf("%.1f", item.EnergyBin[0]), "DAT"+string(item.ID)+".log")
}

// ScriptPath is the run script of the item.
func ScriptPath(item catalog.WorkItem) string {
	return filepath.Join(item.Location, "run_"+string(item.ID)+".sh")
}

type deckData struct {
	ID             runid.ID
	Seeds          [4]int64
	Primary        int
	Energy         float64 // GeV
	EnergyBin      string
	Zenith         float64
	Azimuth        float64
	ObsLev         float64
	MagnetH        float64
	MagnetZ        float64
	AtmosphereFile string
	Location       string
	DataDir        string
	Username       string
	Executable     string
}

func (w *Writer) data(item catalog.WorkItem) (deckData, error) {
	seed, err := Seed(item.ID, item.Params.Primary)
	if err != nil {
		return deckData{}, err
	}

	atm := w.cfg.AtmosphereFile
	if atm != "" && !filepath.IsAbs(atm) {
		atm = filepath.Join(w.cfg.PathCorsika, atm)
	}

	return deckData{
		ID:             item.ID,
		Seeds:          [4]int64{seed, seed + 1, seed + 2, seed + 3},
		Primary:        item.Params.Primary,
		Energy:         math.Pow(10, item.EnergyBin[0]),
		EnergyBin:      fmt.Sprintf("%.1f-%.1f", item.EnergyBin[0], item.EnergyBin[1]),
		Zenith:         item.Params.Zenith,
		Azimuth:        item.Params.Azimuth,
		ObsLev:         w.cfg.ObsLev,
		MagnetH:        w.cfg.Magnet[0],
		MagnetZ:        w.cfg.Magnet[1],
		AtmosphereFile: atm,
		Location:       filepath.Clean(item.Location),
		DataDir:        w.cfg.PathCorsika,
		Username:       w.cfg.Username,
		Executable:     w.Executable(),
	}, nil
}

// Materialize writes the item's files and returns the task running its
// script. Failures are *dispatch.MaterializationError.
func (w *Writer) Materialize(ctx context.Context, item catalog.WorkItem) (dispatch.Task, error) {
	task, err := w.materialize(ctx, item)
	if err != nil {
		return dispatch.Task{}, &dispatch.MaterializationError{ID: item.ID, Location: item.Location, Err: err}
	}
	return task, nil
}

func (w *Writer) materialize(ctx context.Context, item catalog.WorkItem) (dispatch.Task, error) {
	if err := ctx.Err(); err != nil {
		return dispatch.Task{}, err
	}

	data, err := w.data(item)
	if err != nil {
		return dispatch.Task{}, err
	}

	if err := os.MkdirAll(item.Location, 0o755); err != nil {
		return dispatch.Task{}, fmt.Errorf("create location: %w", err)
	}

	sim := filepath.Join(item.Location, "SIM"+string(item.ID))
	if err := w.render(sim+".inp", "inp.tmpl", data, 0o644); err != nil {
		return dispatch.Task{}, err
	}
	if err := w.render(sim+".reas", "reas.tmpl", data, 0o644); err != nil {
		return dispatch.Task{}, err
	}
	if w.cfg.PathAntennas != "" {
		if err := copyFile(w.cfg.PathAntennas, sim+".list"); err != nil {
			return dispatch.Task{}, fmt.Errorf("copy antenna list: %w", err)
		}
	}
	script := ScriptPath(item)
	if err := w.render(script, "run.sh.tmpl", data, 0o755); err != nil {
		return dispatch.Task{}, err
	}

	w.logger.Debug("deck written",
		"id", item.ID,
		"location", item.Location,
		"seed", data.Seeds[0])

	return dispatch.Task{
		Path:    "/bin/sh",
		Args:    []string{script},
		Dir:     item.Location,
		LogPath: w.LogPath(item),
	}, nil
}

// Render executes one of the deck templates for item into out.
func (w *Writer) Render(out io.Writer, name string, item catalog.WorkItem) error {
	data, err := w.data(item)
	if err != nil {
		return err
	}
	return w.tmpl.ExecuteTemplate(out, name, data)
}

func (w *Writer) render(path, name string, data deckData, perm os.FileMode) error {
	var buf bytes.Buffer
	if err := w.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	if err := os.WriteFile(path, buf.Bytes(), perm); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
