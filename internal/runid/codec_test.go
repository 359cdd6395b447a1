package runid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func zenithTable() *Table {
	return &Table{
		Dimension:  Zenith,
		Domain:     [2]float64{0, 90},
		Resolution: 0.01,
		Intervals: []Interval{
			{0, 65.09, 0}, {65.1, 67.59, 1}, {67.6, 70.09, 2}, {70.1, 72.59, 3}, {72.6, 75.09, 4},
			{75.1, 77.59, 5}, {77.6, 80.09, 6}, {80.1, 82.59, 7}, {82.6, 85.09, 8}, {85.1, 90, 9},
		},
	}
}

func azimuthTable() *Table {
	return &Table{
		Dimension:  Azimuth,
		Domain:     [2]float64{0, 360},
		Resolution: 0.01,
		Intervals: []Interval{
			{0, 44.99, 0}, {45, 89.99, 1}, {90, 134.99, 2}, {135, 179.99, 3},
			{180, 224.99, 4}, {225, 269.99, 5}, {270, 314.99, 6}, {315, 360, 7},
		},
	}
}

func energyTable() *Table {
	return &Table{
		Dimension:  Energy,
		Domain:     [2]float64{7.0, 12.9},
		Resolution: 0.1,
		Intervals: []Interval{
			{7.0, 7.9, 0}, {8.0, 8.9, 1}, {9.0, 9.9, 2}, {10.0, 10.9, 3}, {11.0, 11.9, 4}, {12.0, 12.9, 5},
		},
	}
}

func primaryTable() *Table {
	return &Table{
		Dimension: Primary,
		Discrete:  true,
		Intervals: []Interval{{14, 14, 0}, {5626, 5626, 1}},
	}
}

func testCodec(t *testing.T) *Codec {
	t.Helper()
	c, err := NewCodec([]*Table{primaryTable(), energyTable(), zenithTable(), azimuthTable()}, DefaultLayout())
	require.NoError(t, err)
	return c
}

func TestEncode_DefaultLayoutLiteral(t *testing.T) {
	c := testCodec(t)

	// proton -> 0, lgE 10.3 -> 3, zenith 78 -> 6, azimuth 100 -> 2, run 7
	id, err := c.Encode(Tuple{Primary: 14, LogEnergy: 10.3, Zenith: 78.0, Azimuth: 100.0, RunIndex: 7})
	require.NoError(t, err)
	assert.Equal(t, ID("036027"), id)
	assert.Len(t, string(id), c.Layout().Width())
}

func TestEncode_CustomLayout(t *testing.T) {
	layout := Layout{
		{Kind: Primary, Width: 1},
		{Kind: Zenith, Width: 1},
		{Kind: Azimuth, Width: 1},
		{Kind: RunIndex, Width: 3},
	}
	c, err := NewCodec([]*Table{primaryTable(), zenithTable(), azimuthTable()}, layout)
	require.NoError(t, err)

	id, err := c.Encode(Tuple{Primary: 5626, Zenith: 66.0, Azimuth: 300.0, RunIndex: 42})
	require.NoError(t, err)
	assert.Equal(t, ID("116042"), id)
}

func TestEncode_SameBucketsCollide(t *testing.T) {
	c := testCodec(t)

	a, err := c.Encode(Tuple{Primary: 14, LogEnergy: 8.1, Zenith: 70.5, Azimuth: 10.0, RunIndex: 3})
	require.NoError(t, err)
	b, err := c.Encode(Tuple{Primary: 14, LogEnergy: 8.7, Zenith: 72.0, Azimuth: 44.0, RunIndex: 3})
	require.NoError(t, err)

	assert.Equal(t, a, b, "identical bucket digits and run index must alias")
}

func TestEncode_RunIndexOverflow(t *testing.T) {
	c := testCodec(t)

	_, err := c.Encode(Tuple{Primary: 14, LogEnergy: 8.0, Zenith: 60, Azimuth: 0, RunIndex: 10})
	require.Error(t, err)
	assert.True(t, IsOutOfRange(err))

	var oor *OutOfRangeError
	require.ErrorAs(t, err, &oor)
	assert.Equal(t, RunIndex, oor.Dimension)

	_, err = c.Encode(Tuple{Primary: 14, LogEnergy: 8.0, Zenith: 60, Azimuth: 0, RunIndex: -1})
	assert.True(t, IsOutOfRange(err))
}

func TestEncode_UnknownPrimary(t *testing.T) {
	c := testCodec(t)

	_, err := c.Encode(Tuple{Primary: 402, LogEnergy: 8.0, Zenith: 60, Azimuth: 0, RunIndex: 1})
	require.Error(t, err)

	var oor *OutOfRangeError
	require.ErrorAs(t, err, &oor)
	assert.Equal(t, Primary, oor.Dimension)
	assert.Equal(t, float64(402), oor.Value)
}

func TestAssignDigit_InsideEveryInterval(t *testing.T) {
	c := testCodec(t)

	for _, table := range []*Table{zenithTable(), azimuthTable(), energyTable(), primaryTable()} {
		for _, iv := range table.Intervals {
			for _, v := range []float64{iv.Lower, (iv.Lower + iv.Upper) / 2, iv.Upper} {
				got, err := c.AssignDigit(table.Dimension, v)
				require.NoError(t, err, "%s %g", table.Dimension, v)
				assert.Equal(t, iv.Digit, got, "%s %g", table.Dimension, v)
			}
		}
	}
}

func TestAssignDigit_OutsideEveryInterval(t *testing.T) {
	c := testCodec(t)

	tests := []struct {
		dim   Dimension
		value float64
	}{
		{Zenith, -0.5},
		{Zenith, 90.01},
		{Zenith, 65.095}, // between 65.09 and 65.1
		{Azimuth, 44.995},
		{Azimuth, 360.5},
		{Energy, 6.9},
		{Energy, 7.95},
		{Primary, 1},
	}
	for _, tt := range tests {
		t.Run(tt.dim.String(), func(t *testing.T) {
			_, err := c.AssignDigit(tt.dim, tt.value)
			require.Error(t, err)
			assert.True(t, IsOutOfRange(err))
			assert.Contains(t, err.Error(), tt.dim.String())
		})
	}
}

func TestAssignDigit_MissingTable(t *testing.T) {
	c, err := NewCodec([]*Table{primaryTable()}, Layout{{Kind: Primary, Width: 1}, {Kind: RunIndex, Width: 2}})
	require.NoError(t, err)

	_, err = c.AssignDigit(Zenith, 10)
	assert.True(t, IsOutOfRange(err))
}

func TestDecode(t *testing.T) {
	c := testCodec(t)

	digits, err := c.Decode("136027")
	require.NoError(t, err)
	assert.Equal(t, Digits{Primary: 1, Energy: 3, Zenith: 6, Azimuth: 2, RunIndex: 7}, digits)

	_, err = c.Decode("13602")
	assert.Error(t, err)

	_, err = c.Decode("13a027")
	assert.Error(t, err)
}

func TestDecode_IsLossy(t *testing.T) {
	c := testCodec(t)

	id, err := c.Encode(Tuple{Primary: 14, LogEnergy: 8.4, Zenith: 71.2, Azimuth: 200.0, RunIndex: 5})
	require.NoError(t, err)

	digits, err := c.Decode(id)
	require.NoError(t, err)
	assert.Equal(t, 1, digits[Energy], "8.4 decodes only to its bucket digit")
	assert.Equal(t, 5, digits[RunIndex])
}

func TestNewCodec_Errors(t *testing.T) {
	t.Run("missing table for layout field", func(t *testing.T) {
		_, err := NewCodec([]*Table{primaryTable()}, DefaultLayout())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "energy")
	})

	t.Run("duplicate table", func(t *testing.T) {
		_, err := NewCodec([]*Table{primaryTable(), primaryTable()}, Layout{{Kind: RunIndex, Width: 1}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "declared twice")
	})

	t.Run("invalid table", func(t *testing.T) {
		bad := zenithTable()
		bad.Intervals[3].Digit = 12
		_, err := NewCodec([]*Table{bad}, Layout{{Kind: Zenith, Width: 1}, {Kind: RunIndex, Width: 1}})
		require.Error(t, err)
		var te *TableError
		require.ErrorAs(t, err, &te)
		assert.Equal(t, 3, te.Index)
	})
}

func TestLayoutValidate(t *testing.T) {
	tests := []struct {
		name    string
		layout  Layout
		wantErr string
	}{
		{"default", DefaultLayout(), ""},
		{"empty", Layout{}, "no fields"},
		{"no run index", Layout{{Kind: Primary, Width: 1}}, "run_index"},
		{"zero width", Layout{{Kind: RunIndex, Width: 0}}, "width"},
		{"duplicate", Layout{{Kind: Zenith, Width: 1}, {Kind: Zenith, Width: 1}, {Kind: RunIndex, Width: 1}}, "twice"},
		{"two reserved", Layout{{Kind: Reserved, Width: 1}, {Kind: Reserved, Width: 2}, {Kind: RunIndex, Width: 1}}, ""},
		{"too wide", Layout{{Kind: RunIndex, Width: 19}}, "exceeds"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.layout.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLayoutRunIndexLimit(t *testing.T) {
	assert.Equal(t, 10, DefaultLayout().RunIndexLimit())
	assert.Equal(t, 1000, Layout{{Kind: RunIndex, Width: 3}}.RunIndexLimit())
}

func TestParseDimension(t *testing.T) {
	for _, d := range []Dimension{Primary, Energy, Zenith, Azimuth, RunIndex, Reserved} {
		got, err := ParseDimension(d.String())
		require.NoError(t, err)
		assert.Equal(t, d, got)
	}
	_, err := ParseDimension("altitude")
	assert.Error(t, err)
}
