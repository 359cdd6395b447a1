package runid

import (
	"fmt"
	"math"
)

// tolerance absorbs float noise when comparing interval bounds.
const tolerance = 1e-9

// Interval is a closed numeric range mapped to one identifier digit.
type Interval struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Digit int     `json:"digit"`
}

// Contains reports whether v lies in [Lower, Upper].
func (iv Interval) Contains(v float64) bool {
	return iv.Lower <= v && v <= iv.Upper
}

// Table is the ordered bucket list of one dimension.
//
// Intervals are matched in declaration order and the first match wins.
// Domain and Resolution describe the values a caller may present: continuous
// tables must cover Domain with no gap wider than Resolution, because callers
// quantise values to Resolution before lookup. Discrete tables (primary
// particle codes) skip the coverage check.
type Table struct {
	Dimension  Dimension  `json:"dimension"`
	Intervals  []Interval `json:"intervals"`
	Discrete   bool       `json:"discrete,omitempty"`
	Domain     [2]float64 `json:"domain"`
	Resolution float64    `json:"resolution,omitempty"`
}

// Lookup returns the digit of the first interval containing v.
func (t *Table) Lookup(v float64) (int, error) {
	for _, iv := range t.Intervals {
		if iv.Contains(v) {
			return iv.Digit, nil
		}
	}
	return 0, &OutOfRangeError{Dimension: t.Dimension, Value: v}
}

// Validate checks the structural preconditions of the table: digits are
// single decimal digits, every interval has Lower <= Upper, intervals are
// declared in ascending order of their lower bound, and continuous tables
// cover their Domain at the configured Resolution.
func (t *Table) Validate() error {
	if !t.Dimension.Bucketed() {
		return &TableError{Dimension: t.Dimension, Index: -1, Message: "dimension does not take a bucket table"}
	}
	if len(t.Intervals) == 0 {
		return &TableError{Dimension: t.Dimension, Index: -1, Message: "no intervals declared"}
	}

	for i, iv := range t.Intervals {
		if iv.Digit < 0 || iv.Digit > 9 {
			return &TableError{Dimension: t.Dimension, Index: i, Message: fmt.Sprintf("digit %d outside 0..9", iv.Digit)}
		}
		if math.IsNaN(iv.Lower) || math.IsNaN(iv.Upper) {
			return &TableError{Dimension: t.Dimension, Index: i, Message: "bound is NaN"}
		}
		if iv.Lower > iv.Upper {
			return &TableError{Dimension: t.Dimension, Index: i, Message: fmt.Sprintf("lower bound %g exceeds upper bound %g", iv.Lower, iv.Upper)}
		}
		if i > 0 && iv.Lower < t.Intervals[i-1].Lower {
			return &TableError{Dimension: t.Dimension, Index: i, Message: fmt.Sprintf("lower bound %g declared after %g", iv.Lower, t.Intervals[i-1].Lower)}
		}
	}

	if t.Discrete {
		return nil
	}
	return t.checkCoverage()
}

func (t *Table) checkCoverage() error {
	lo, hi := t.Domain[0], t.Domain[1]
	if lo > hi {
		return &TableError{Dimension: t.Dimension, Index: -1, Message: fmt.Sprintf("domain [%g, %g] is inverted", lo, hi)}
	}
	if t.Resolution < 0 {
		return &TableError{Dimension: t.Dimension, Index: -1, Message: "resolution must not be negative"}
	}

	first := t.Intervals[0]
	if first.Lower > lo+tolerance {
		return &TableError{Dimension: t.Dimension, Index: 0, Message: fmt.Sprintf("domain start %g is not covered", lo)}
	}

	reach := first.Upper
	for i := 1; i < len(t.Intervals); i++ {
		iv := t.Intervals[i]
		if gap := iv.Lower - reach; gap > t.Resolution+tolerance {
			return &TableError{Dimension: t.Dimension, Index: i, Message: fmt.Sprintf("gap (%g, %g) wider than resolution %g", reach, iv.Lower, t.Resolution)}
		}
		reach = math.Max(reach, iv.Upper)
	}
	if reach < hi-tolerance {
		return &TableError{Dimension: t.Dimension, Index: -1, Message: fmt.Sprintf("domain end %g is not covered (reach %g)", hi, reach)}
	}
	return nil
}

// Tie describes two intervals that both accept a range of values.
// The earlier interval wins every lookup in [Lower, Upper].
type Tie struct {
	Winner, Loser int
	Lower, Upper  float64
}

// Overlaps lists every pair of intervals whose ranges intersect.
func (t *Table) Overlaps() []Tie {
	var ties []Tie
	for i := 0; i < len(t.Intervals); i++ {
		for j := i + 1; j < len(t.Intervals); j++ {
			a, b := t.Intervals[i], t.Intervals[j]
			lo := math.Max(a.Lower, b.Lower)
			hi := math.Min(a.Upper, b.Upper)
			if lo <= hi {
				ties = append(ties, Tie{Winner: i, Loser: j, Lower: lo, Upper: hi})
			}
		}
	}
	return ties
}
