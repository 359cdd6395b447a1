package runid

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Tuple is the immutable parameter set of one simulated shower.
type Tuple struct {
	Primary   int     `json:"primary"`    // CORSIKA particle code
	LogEnergy float64 `json:"log_energy"` // log10(E/GeV)
	Zenith    float64 `json:"zenith"`     // degrees
	Azimuth   float64 `json:"azimuth"`    // degrees
	RunIndex  int     `json:"run_index"`
}

// Value returns the tuple component that feeds dimension d.
func (t Tuple) Value(d Dimension) float64 {
	switch d {
	case Primary:
		return float64(t.Primary)
	case Energy:
		return t.LogEnergy
	case Zenith:
		return t.Zenith
	case Azimuth:
		return t.Azimuth
	case RunIndex:
		return float64(t.RunIndex)
	}
	return 0
}

// ID is a fixed-width, zero-padded decimal run identifier.
type ID string

func (id ID) String() string { return string(id) }

// Int returns the identifier as an integer.
func (id ID) Int() (int64, error) {
	return strconv.ParseInt(string(id), 10, 64)
}

// Field is one positional slot of a layout.
type Field struct {
	Kind  Dimension `json:"kind"`
	Width int       `json:"width"`
}

// Layout orders the identifier fields, most significant first.
type Layout []Field

// maxWidth keeps identifiers inside int64 so seeds can be derived from them.
const maxWidth = 18

// DefaultLayout is the canonical six-digit scheme:
// primary, energy, zenith, a reserved zero, azimuth, run index.
func DefaultLayout() Layout {
	return Layout{
		{Kind: Primary, Width: 1},
		{Kind: Energy, Width: 1},
		{Kind: Zenith, Width: 1},
		{Kind: Reserved, Width: 1},
		{Kind: Azimuth, Width: 1},
		{Kind: RunIndex, Width: 1},
	}
}

// Width is the total number of digits in an identifier.
func (l Layout) Width() int {
	w := 0
	for _, f := range l {
		w += f.Width
	}
	return w
}

// RunIndexLimit is the exclusive upper bound on run indices.
func (l Layout) RunIndexLimit() int {
	for _, f := range l {
		if f.Kind == RunIndex {
			return int(math.Pow10(f.Width))
		}
	}
	return 0
}

// Validate checks that every dimension appears at most once, that the run
// index appears exactly once, and that the identifier fits in int64.
func (l Layout) Validate() error {
	if len(l) == 0 {
		return fmt.Errorf("layout: no fields")
	}
	seen := make(map[Dimension]bool)
	for i, f := range l {
		if _, ok := dimensionNames[f.Kind]; !ok {
			return fmt.Errorf("layout: field %d: unknown kind %d", i, int(f.Kind))
		}
		if f.Width < 1 {
			return fmt.Errorf("layout: field %d (%s): width must be at least 1", i, f.Kind)
		}
		if f.Kind != Reserved && seen[f.Kind] {
			return fmt.Errorf("layout: field %d: %s appears twice", i, f.Kind)
		}
		seen[f.Kind] = true
	}
	if !seen[RunIndex] {
		return fmt.Errorf("layout: run_index field is required")
	}
	if w := l.Width(); w > maxWidth {
		return fmt.Errorf("layout: width %d exceeds %d digits", w, maxWidth)
	}
	return nil
}

// Codec assigns identifiers from a set of bucket tables and a layout.
// It holds no mutable state and is safe for concurrent use.
type Codec struct {
	tables map[Dimension]*Table
	layout Layout
}

// NewCodec validates the tables and layout and builds a codec.
// Every bucketed dimension used by the layout needs a table.
func NewCodec(tables []*Table, layout Layout) (*Codec, error) {
	if err := layout.Validate(); err != nil {
		return nil, err
	}

	byDim := make(map[Dimension]*Table, len(tables))
	for _, t := range tables {
		if _, dup := byDim[t.Dimension]; dup {
			return nil, &TableError{Dimension: t.Dimension, Index: -1, Message: "declared twice"}
		}
		if err := t.Validate(); err != nil {
			return nil, err
		}
		byDim[t.Dimension] = t
	}

	for _, f := range layout {
		if f.Kind.Bucketed() && byDim[f.Kind] == nil {
			return nil, &TableError{Dimension: f.Kind, Index: -1, Message: "layout uses dimension without a table"}
		}
	}

	return &Codec{tables: byDim, layout: layout}, nil
}

// Layout returns the codec's field layout.
func (c *Codec) Layout() Layout { return c.layout }

// Table returns the bucket table of d, or nil.
func (c *Codec) Table(d Dimension) *Table { return c.tables[d] }

// AssignDigit maps value to the digit of its dimension's first matching
// interval. It fails with *OutOfRangeError when no interval matches.
func (c *Codec) AssignDigit(d Dimension, value float64) (int, error) {
	t, ok := c.tables[d]
	if !ok {
		return 0, &OutOfRangeError{Dimension: d, Value: value}
	}
	return t.Lookup(value)
}

// Encode composes the identifier of tuple.
func (c *Codec) Encode(tuple Tuple) (ID, error) {
	var b strings.Builder
	b.Grow(c.layout.Width())

	for _, f := range c.layout {
		var n int
		switch {
		case f.Kind == Reserved:
			n = 0
		case f.Kind == RunIndex:
			if tuple.RunIndex < 0 || tuple.RunIndex >= int(math.Pow10(f.Width)) {
				return "", &OutOfRangeError{Dimension: RunIndex, Value: float64(tuple.RunIndex)}
			}
			n = tuple.RunIndex
		default:
			d, err := c.AssignDigit(f.Kind, tuple.Value(f.Kind))
			if err != nil {
				return "", err
			}
			n = d
		}
		fmt.Fprintf(&b, "%0*d", f.Width, n)
	}
	return ID(b.String()), nil
}

// Digits holds the per-field values recovered from an identifier.
type Digits map[Dimension]int

// Decode splits id back into its field values. Buckets are many-to-one, so
// the original tuple cannot be recovered; only digits and the run index are.
func (c *Codec) Decode(id ID) (Digits, error) {
	s := string(id)
	if len(s) != c.layout.Width() {
		return nil, fmt.Errorf("identifier %q: want %d digits, have %d", s, c.layout.Width(), len(s))
	}

	out := make(Digits, len(c.layout))
	pos := 0
	for _, f := range c.layout {
		part := s[pos : pos+f.Width]
		pos += f.Width
		n, err := strconv.Atoi(part)
		if err != nil || strings.ContainsAny(part, "+-") {
			return nil, fmt.Errorf("identifier %q: field %s is not decimal", s, f.Kind)
		}
		if f.Kind == Reserved {
			continue
		}
		out[f.Kind] = n
	}
	return out, nil
}
