package tables

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/lguelzow/CoreasSpellcaster/internal/runid"
)

// CompileError reports a table configuration that cannot be compiled.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// compileLayout parses the layout list.
func compileLayout(v cue.Value) (runid.Layout, error) {
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var layout runid.Layout
	for iter.Next() {
		fv := iter.Value()
		kindStr, err := fv.LookupPath(cue.ParsePath("kind")).String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		kind, err := runid.ParseDimension(kindStr)
		if err != nil {
			return nil, &CompileError{Field: "layout.kind", Message: err.Error(), Pos: fv.Pos()}
		}
		width, err := fv.LookupPath(cue.ParsePath("width")).Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		layout = append(layout, runid.Field{Kind: kind, Width: int(width)})
	}
	return layout, nil
}

// compileTable parses one bucket table. Interval order is kept exactly as
// declared because lookups resolve boundary ties by declaration order.
func compileTable(dim runid.Dimension, v cue.Value) (*runid.Table, error) {
	table := &runid.Table{Dimension: dim}

	discrete, err := v.LookupPath(cue.ParsePath("discrete")).Bool()
	if err != nil {
		return nil, formatCUEError(err)
	}
	table.Discrete = discrete

	resolution, err := v.LookupPath(cue.ParsePath("resolution")).Float64()
	if err != nil {
		return nil, formatCUEError(err)
	}
	table.Resolution = resolution

	domainVal := v.LookupPath(cue.ParsePath("domain"))
	if domainVal.Exists() {
		bounds, err := floatList(domainVal)
		if err != nil {
			return nil, err
		}
		table.Domain = [2]float64{bounds[0], bounds[1]}
	} else if !discrete {
		return nil, &CompileError{
			Field:   "tables." + dim.String() + ".domain",
			Message: "continuous tables need a domain",
			Pos:     v.Pos(),
		}
	}

	iter, err := v.LookupPath(cue.ParsePath("intervals")).List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		iv := iter.Value()
		lower, err := iv.LookupPath(cue.ParsePath("lower")).Float64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		upper, err := iv.LookupPath(cue.ParsePath("upper")).Float64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		digit, err := iv.LookupPath(cue.ParsePath("digit")).Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		table.Intervals = append(table.Intervals, runid.Interval{Lower: lower, Upper: upper, Digit: int(digit)})
	}

	return table, nil
}

func floatList(v cue.Value) ([]float64, error) {
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []float64
	for iter.Next() {
		f, err := iter.Value().Float64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out = append(out, f)
	}
	return out, nil
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	positions := errors.Positions(first)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
