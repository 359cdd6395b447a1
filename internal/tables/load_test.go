package tables

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lguelzow/CoreasSpellcaster/internal/runid"
)

func TestDefaultTables(t *testing.T) {
	codec, err := Default()
	require.NoError(t, err)

	id, err := codec.Encode(runid.Tuple{Primary: 14, LogEnergy: 10.3, Zenith: 78.0, Azimuth: 100.0, RunIndex: 7})
	require.NoError(t, err)
	assert.Equal(t, runid.ID("036027"), id)

	assert.Equal(t, runid.DefaultLayout(), codec.Layout())
	for _, dim := range runid.BucketedDimensions {
		assert.NotNil(t, codec.Table(dim), dim.String())
	}
}

func TestDefaultTablesPrimaryCodes(t *testing.T) {
	codec, err := Default()
	require.NoError(t, err)

	tests := map[int]int{1: 5, 14: 0, 402: 2, 1608: 3, 2814: 4, 5626: 1}
	for code, want := range tests {
		got, err := codec.AssignDigit(runid.Primary, float64(code))
		require.NoError(t, err)
		assert.Equal(t, want, got, "primary %d", code)
	}

	_, err = codec.AssignDigit(runid.Primary, 703)
	assert.True(t, runid.IsOutOfRange(err))
}

func TestLoadEmptyPathUsesDefaults(t *testing.T) {
	codec, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 6, codec.Layout().Width())
}

func TestLoadFile(t *testing.T) {
	codec, err := Load(filepath.Join("testdata", "wide.cue"))
	require.NoError(t, err)

	assert.Equal(t, 6, codec.Layout().Width())
	assert.Equal(t, 100, codec.Layout().RunIndexLimit())

	id, err := codec.Encode(runid.Tuple{Primary: 14, LogEnergy: 8.5, Zenith: 60, Azimuth: 12, RunIndex: 42})
	require.NoError(t, err)
	assert.Equal(t, runid.ID("011342"), id)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.cue"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestCompileRejectsDigitOutsideSchema(t *testing.T) {
	src := []byte(`
layout: [{kind: "primary", width: 1}, {kind: "run_index", width: 1}]
tables: primary: {
	discrete: true
	intervals: [{lower: 14, upper: 14, digit: 12}]
}
`)
	_, err := Compile("bad.cue", src)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "digit")
}

func TestCompileRejectsUnknownKind(t *testing.T) {
	src := []byte(`layout: [{kind: "charge", width: 1}, {kind: "run_index", width: 1}]`)
	_, err := Compile("bad.cue", src)
	require.Error(t, err)
}

func TestCompileRequiresDomainForContinuousTable(t *testing.T) {
	src := []byte(`
layout: [{kind: "zenith", width: 1}, {kind: "run_index", width: 1}]
tables: zenith: intervals: [{lower: 0, upper: 90, digit: 0}]
`)
	_, err := Compile("nodomain.cue", src)

	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "tables.zenith.domain", ce.Field)
	assert.Contains(t, ce.Error(), "continuous tables need a domain")
}

func TestCompileReportsCoverageGap(t *testing.T) {
	src := []byte(`
layout: [{kind: "zenith", width: 1}, {kind: "run_index", width: 1}]
tables: zenith: {
	domain: [0, 90]
	resolution: 0.01
	intervals: [
		{lower: 0, upper: 40, digit: 0},
		{lower: 50, upper: 90, digit: 1},
	]
}
`)
	_, err := Compile("gap.cue", src)
	require.Error(t, err)

	var te *runid.TableError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, runid.Zenith, te.Dimension)
	assert.Contains(t, err.Error(), "gap.cue")
}

func TestCompileLayoutWithoutTable(t *testing.T) {
	src := []byte(`layout: [{kind: "energy", width: 1}, {kind: "run_index", width: 1}]`)
	_, err := Compile("notable.cue", src)

	var te *runid.TableError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, runid.Energy, te.Dimension)
}

func TestCompileSyntaxError(t *testing.T) {
	_, err := Compile("broken.cue", []byte(`layout: [`))
	require.Error(t, err)
}
