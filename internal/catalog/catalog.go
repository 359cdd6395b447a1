package catalog

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"path/filepath"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/lguelzow/CoreasSpellcaster/internal/runid"
)

// ParameterTuple is the physical parameter set of one shower.
type ParameterTuple = runid.Tuple

// WorkItem is one shower to simulate.
type WorkItem struct {
	ID        runid.ID       `json:"id"`
	Params    ParameterTuple `json:"params"`
	EnergyBin [2]float64     `json:"energy_bin"` // log10(E/GeV) lower and upper edge
	Location  string         `json:"location"`
}

// CompletionPredicate reports whether the item with id at location has
// already been simulated.
type CompletionPredicate interface {
	IsDone(id runid.ID, location string) bool
}

// PredicateFunc adapts a function to CompletionPredicate.
type PredicateFunc func(id runid.ID, location string) bool

func (f PredicateFunc) IsDone(id runid.ID, location string) bool { return f(id, location) }

// Catalog enumerates the work items of a grid.
type Catalog struct {
	Codec *runid.Codec
	Grid  Grid
	// Root is the campaign directory; items land in <Root>/inp/<E1>.
	Root string
	// Done may be nil, in which case nothing counts as done.
	Done CompletionPredicate
	// OnSkip, if set, receives every item Done reports, in traversal order.
	OnSkip func(WorkItem)
	// Rand feeds the azimuth draws. Nil means a freshly seeded PCG.
	Rand   rand.Source
	Logger *slog.Logger
}

// Location returns the output directory of items in the energy bin
// starting at e1.
func (c *Catalog) Location(e1 float64) string {
	return filepath.Join(c.Root, "inp", fmt.Sprintf("%.1f", e1))
}

// Items starts a fresh traversal. Each call re-derives the same order of
// energy bins, zenith angles and run indices.
func (c *Catalog) Items() *Cursor {
	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}
	src := c.Rand
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}

	cur := &Cursor{
		cat:     c,
		logger:  logger,
		azimuth: distuv.Uniform{Min: 0, Max: 360, Src: src},
		index:   c.Grid.StartIndex,
		seen:    make(map[string]runid.ID),
	}
	if c.Codec == nil {
		cur.err = fmt.Errorf("catalog has no codec")
		return cur
	}
	if err := c.Grid.Validate(); err != nil {
		cur.err = fmt.Errorf("grid: %w", err)
		return cur
	}
	cur.bins, _ = c.Grid.Energy.Bins()
	cur.angles, _ = c.Grid.Zenith.Angles()
	return cur
}

// Stats counts what a traversal did with the items it proposed.
type Stats struct {
	Proposed int `json:"proposed"`
	Skipped  int `json:"skipped"`
	Aliased  int `json:"aliased"`
	Yielded  int `json:"yielded"`
}

// Cursor is a single pull-based traversal of a Catalog. It is not safe for
// concurrent use.
type Cursor struct {
	cat     *Catalog
	logger  *slog.Logger
	azimuth distuv.Uniform

	bins   [][2]float64
	angles []float64

	bin, angle, index int

	seen  map[string]runid.ID
	stats Stats
	err   error
}

// Next returns the next pending item. ok is false once the traversal is
// exhausted. An error ends the traversal; later calls return it again.
func (cur *Cursor) Next() (WorkItem, bool, error) {
	for {
		if cur.err != nil {
			return WorkItem{}, false, cur.err
		}
		if cur.bin >= len(cur.bins) {
			return WorkItem{}, false, nil
		}

		item, err := cur.propose()
		cur.advance()
		if err != nil {
			cur.err = err
			return WorkItem{}, false, err
		}
		cur.stats.Proposed++

		if cur.cat.Done != nil && cur.cat.Done.IsDone(item.ID, item.Location) {
			cur.stats.Skipped++
			cur.logger.Debug("item already done",
				"id", item.ID,
				"location", item.Location)
			if cur.cat.OnSkip != nil {
				cur.cat.OnSkip(item)
			}
			continue
		}

		key := filepath.Join(item.Location, string(item.ID))
		if _, dup := cur.seen[key]; dup {
			cur.stats.Aliased++
			cur.logger.Warn("identifier collision, item dropped",
				"id", item.ID,
				"location", item.Location,
				"zenith", item.Params.Zenith,
				"azimuth", item.Params.Azimuth,
				"run_index", item.Params.RunIndex)
			continue
		}
		cur.seen[key] = item.ID

		cur.stats.Yielded++
		return item, true, nil
	}
}

// Stats returns the counters so far.
func (cur *Cursor) Stats() Stats { return cur.stats }

// Err returns the error that ended the traversal, if any.
func (cur *Cursor) Err() error { return cur.err }

func (cur *Cursor) propose() (WorkItem, error) {
	bin := cur.bins[cur.bin]
	params := Quantize(ParameterTuple{
		Primary:   cur.cat.Grid.Primary,
		LogEnergy: bin[0],
		Zenith:    cur.angles[cur.angle],
		Azimuth:   cur.azimuth.Rand(),
		RunIndex:  cur.index,
	})

	id, err := cur.cat.Codec.Encode(params)
	if err != nil {
		return WorkItem{}, err
	}
	return WorkItem{
		ID:        id,
		Params:    params,
		EnergyBin: bin,
		Location:  cur.cat.Location(bin[0]),
	}, nil
}

// Quantize rounds a tuple to the resolution the bucket tables are built
// for: 0.1 in log10(E/GeV), 0.01 degrees in both angles.
func Quantize(t ParameterTuple) ParameterTuple {
	t.LogEnergy = round(t.LogEnergy, 1)
	t.Zenith = round(t.Zenith, 2)
	t.Azimuth = round(t.Azimuth, 2)
	return t
}

// advance steps the run index, then the zenith, then the energy bin.
func (cur *Cursor) advance() {
	cur.index++
	if cur.index < cur.cat.Grid.EndIndex {
		return
	}
	cur.index = cur.cat.Grid.StartIndex
	cur.angle++
	if cur.angle < len(cur.angles) {
		return
	}
	cur.angle = 0
	cur.bin++
}
