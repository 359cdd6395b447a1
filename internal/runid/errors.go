package runid

import (
	"errors"
	"fmt"
)

// OutOfRangeError reports a value that no bucket of its dimension accepts,
// or a run index too wide for its layout field.
//
// It marks a configuration defect: a catalog that hits it stops enumerating.
type OutOfRangeError struct {
	Dimension Dimension
	Value     float64
}

func (e *OutOfRangeError) Error() string {
	if e.Dimension == RunIndex {
		return fmt.Sprintf("%s %d does not fit its identifier field", e.Dimension, int64(e.Value))
	}
	return fmt.Sprintf("%s value %g matches no configured interval", e.Dimension, e.Value)
}

// IsOutOfRange reports whether err is, or wraps, an *OutOfRangeError.
func IsOutOfRange(err error) bool {
	var oor *OutOfRangeError
	return errors.As(err, &oor)
}

// TableError reports a bucket table that fails validation.
type TableError struct {
	Dimension Dimension
	Index     int // interval index, -1 for table-wide problems
	Message   string
}

func (e *TableError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("%s table: interval %d: %s", e.Dimension, e.Index, e.Message)
	}
	return fmt.Sprintf("%s table: %s", e.Dimension, e.Message)
}
