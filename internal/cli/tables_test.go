package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lguelzow/CoreasSpellcaster/internal/runid"
)

func TestTables_Default(t *testing.T) {
	out := &bytes.Buffer{}
	cmd := NewTablesCommand(&RootOptions{Format: "json"})
	cmd.SetOut(out)
	cmd.SetArgs(nil)
	require.NoError(t, cmd.Execute())

	var resp struct {
		Data TablesResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	r := resp.Data

	assert.Equal(t, "default.cue", r.Source)
	assert.Equal(t, runid.DefaultLayout(), r.Layout)
	require.Len(t, r.Tables, 4)
	assert.Equal(t, runid.Primary, r.Tables[0].Dimension)
	assert.True(t, r.Tables[0].Discrete)
	assert.Len(t, r.Tables[2].Intervals, 10)
	for _, rep := range r.Tables {
		assert.Empty(t, rep.Ties, rep.Dimension.String())
	}
}

func TestTables_ReportsTies(t *testing.T) {
	src := `layout: [{kind: "primary", width: 1}, {kind: "energy", width: 1}, {kind: "zenith", width: 1}, {kind: "azimuth", width: 1}, {kind: "run_index", width: 1}]
tables: {
	primary: {discrete: true, intervals: [{lower: 14, upper: 14, digit: 0}]}
	energy: {domain: [8, 9], intervals: [{lower: 8, upper: 9, digit: 1}]}
	zenith: {domain: [0, 90], intervals: [{lower: 0, upper: 45, digit: 0}, {lower: 45, upper: 90, digit: 1}]}
	azimuth: {domain: [0, 360], intervals: [{lower: 0, upper: 360, digit: 0}]}
}
`
	path := filepath.Join(t.TempDir(), "tie.cue")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))

	out := &bytes.Buffer{}
	cmd := NewTablesCommand(&RootOptions{Format: "text"})
	cmd.SetOut(out)
	cmd.SetArgs([]string{"--tables", path})
	require.NoError(t, cmd.Execute())

	text := out.String()
	assert.Contains(t, text, "tie.cue")
	assert.Contains(t, text, "primary:1 energy:1 zenith:1 azimuth:1 run_index:1")
	assert.Contains(t, text, "tie: [45, 45] goes to digit 0 over digit 1")
	assert.Contains(t, text, "primary (discrete)")
}

func TestTables_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.cue")
	require.NoError(t, os.WriteFile(path, []byte(`layout: [{kind: "energy", width: 1}]
tables: energy: {domain: [8, 9], intervals: [{lower: 8, upper: 9, digit: 12}]}
`), 0o644))

	cmd := NewTablesCommand(&RootOptions{Format: "text"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--tables", path})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "load tables")
}
