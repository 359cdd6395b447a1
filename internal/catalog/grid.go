package catalog

import (
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
)

// Zenith sampling modes.
const (
	ZenithSecant = "secant"
	ZenithList   = "list"
)

// EnergyGrid spans log10(E/GeV) from Start to End inclusive in Step bins.
type EnergyGrid struct {
	Start float64 `json:"start" yaml:"start"`
	End   float64 `json:"end" yaml:"end"`
	Step  float64 `json:"step" yaml:"step"`
}

// Edges returns the bin edges rounded to one decimal.
func (g EnergyGrid) Edges() ([]float64, error) {
	if g.Step <= 0 || math.IsNaN(g.Step) {
		return nil, fmt.Errorf("energy step %g must be positive", g.Step)
	}
	if g.End <= g.Start {
		return nil, fmt.Errorf("energy end %g must exceed start %g", g.End, g.Start)
	}

	n := int(math.Round((g.End-g.Start)/g.Step)) + 1
	edges := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		edges = append(edges, round(g.Start+float64(i)*g.Step, 1))
	}
	return edges, nil
}

// Bins pairs consecutive edges in ascending order.
func (g EnergyGrid) Bins() ([][2]float64, error) {
	edges, err := g.Edges()
	if err != nil {
		return nil, err
	}
	bins := make([][2]float64, 0, len(edges)-1)
	for i := 1; i < len(edges); i++ {
		bins = append(bins, [2]float64{edges[i-1], edges[i]})
	}
	return bins, nil
}

// ZenithSampling produces the zenith angles, in degrees, of one energy bin.
type ZenithSampling struct {
	Mode   string    `json:"mode" yaml:"mode"`
	Start  float64   `json:"start,omitempty" yaml:"start,omitempty"`
	End    float64   `json:"end,omitempty" yaml:"end,omitempty"`
	Count  int       `json:"count,omitempty" yaml:"count,omitempty"`
	Values []float64 `json:"values,omitempty" yaml:"values,omitempty"`
}

// Angles returns the sampled zenith angles rounded to 0.01 degrees.
//
// Secant mode spaces Count points evenly in 1/cos(zenith) between Start and
// End, which weights the sample towards inclined showers.
func (z ZenithSampling) Angles() ([]float64, error) {
	switch z.Mode {
	case ZenithList:
		if len(z.Values) == 0 {
			return nil, fmt.Errorf("zenith list is empty")
		}
		out := make([]float64, len(z.Values))
		for i, v := range z.Values {
			if v < 0 || v >= 90 || math.IsNaN(v) {
				return nil, fmt.Errorf("zenith %g outside [0, 90)", v)
			}
			out[i] = round(v, 2)
		}
		if !slices.IsSorted(out) {
			return nil, fmt.Errorf("zenith list must be ascending")
		}
		return out, nil

	case ZenithSecant:
		if z.Count < 1 {
			return nil, fmt.Errorf("zenith count %d must be at least 1", z.Count)
		}
		if z.Start < 0 || z.End >= 90 || z.End < z.Start {
			return nil, fmt.Errorf("zenith range [%g, %g] must be ascending inside [0, 90)", z.Start, z.End)
		}
		if z.Count == 1 {
			return []float64{round(z.Start, 2)}, nil
		}
		secants := floats.Span(make([]float64, z.Count), secant(z.Start), secant(z.End))
		out := make([]float64, z.Count)
		for i, s := range secants {
			out[i] = round(math.Acos(1/s)*180/math.Pi, 2)
		}
		return out, nil
	}
	return nil, fmt.Errorf("unknown zenith mode %q", z.Mode)
}

func secant(deg float64) float64 {
	return 1 / math.Cos(deg*math.Pi/180)
}

// Grid is the parameter space of a campaign for one primary.
type Grid struct {
	Primary    int            `json:"primary" yaml:"primary"`
	Energy     EnergyGrid     `json:"energy" yaml:"energy"`
	Zenith     ZenithSampling `json:"zenith" yaml:"zenith"`
	StartIndex int            `json:"start_index" yaml:"start_index"`
	EndIndex   int            `json:"end_index" yaml:"end_index"` // exclusive
}

// Validate checks that the grid enumerates at least one item.
func (g Grid) Validate() error {
	if _, err := g.Energy.Bins(); err != nil {
		return err
	}
	if _, err := g.Zenith.Angles(); err != nil {
		return err
	}
	if g.StartIndex < 0 {
		return fmt.Errorf("start index %d must not be negative", g.StartIndex)
	}
	if g.EndIndex <= g.StartIndex {
		return fmt.Errorf("end index %d must exceed start index %d", g.EndIndex, g.StartIndex)
	}
	return nil
}

// Size is the number of items the grid proposes.
func (g Grid) Size() int {
	bins, err := g.Energy.Bins()
	if err != nil {
		return 0
	}
	angles, err := g.Zenith.Angles()
	if err != nil {
		return 0
	}
	return len(bins) * len(angles) * max(g.EndIndex-g.StartIndex, 0)
}

func round(v float64, decimals int) float64 {
	p := math.Pow10(decimals)
	return math.Round(v*p) / p
}
