package runid

import "fmt"

// Dimension names one positional field of a run identifier.
type Dimension int

const (
	// Primary is the CORSIKA primary particle code.
	Primary Dimension = iota + 1
	// Energy is log10 of the primary energy in GeV.
	Energy
	// Zenith is the shower zenith angle in degrees.
	Zenith
	// Azimuth is the shower azimuth angle in degrees.
	Azimuth
	// RunIndex is the per-bucket shower counter. It is not bucketed.
	RunIndex
	// Reserved is a layout filler that always encodes as zeros.
	Reserved
)

var dimensionNames = map[Dimension]string{
	Primary:  "primary",
	Energy:   "energy",
	Zenith:   "zenith",
	Azimuth:  "azimuth",
	RunIndex: "run_index",
	Reserved: "reserved",
}

// BucketedDimensions lists the dimensions that require a bucket table.
var BucketedDimensions = []Dimension{Primary, Energy, Zenith, Azimuth}

func (d Dimension) String() string {
	if name, ok := dimensionNames[d]; ok {
		return name
	}
	return fmt.Sprintf("dimension(%d)", int(d))
}

// ParseDimension resolves a dimension from its lowercase name.
func ParseDimension(name string) (Dimension, error) {
	for d, n := range dimensionNames {
		if n == name {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown dimension %q", name)
}

// Bucketed reports whether values of d are mapped through a bucket table.
func (d Dimension) Bucketed() bool {
	switch d {
	case Primary, Energy, Zenith, Azimuth:
		return true
	}
	return false
}

func (d Dimension) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Dimension) UnmarshalText(text []byte) error {
	parsed, err := ParseDimension(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
