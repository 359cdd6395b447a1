package deck

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lguelzow/CoreasSpellcaster/internal/catalog"
	"github.com/lguelzow/CoreasSpellcaster/internal/dispatch"
	"github.com/lguelzow/CoreasSpellcaster/internal/runid"
)

func testConfig(root string) Config {
	return Config{
		Root:           root,
		Username:       "lguelzow",
		ObsLev:         120000,
		PathCorsika:    "/opt/corsika/run",
		CorsikaExe:     "corsika77550Linux_SIBYLL_urqmd_thin_coreas",
		AtmosphereFile: "ATMOSPHERE_20170401120000_Dunhuang.DAT",
		Magnet:         [2]float64{27.0, 48.3},
	}
}

func testItem(location string) catalog.WorkItem {
	return catalog.WorkItem{
		ID:        "016027",
		Params:    runid.Tuple{Primary: 14, LogEnergy: 8.0, Zenith: 78.0, Azimuth: 100.0, RunIndex: 7},
		EnergyBin: [2]float64{8.0, 8.1},
		Location:  location,
	}
}

func TestRenderGolden(t *testing.T) {
	w, err := New(testConfig("/sims"), nil)
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)

	for _, name := range []string{"inp", "reas", "run.sh"} {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, w.Render(&buf, name+".tmpl", testItem("/sims/inp/8.0")))
			g.Assert(t, name, buf.Bytes())
		})
	}
}

func TestSeed(t *testing.T) {
	tests := []struct {
		id      runid.ID
		primary int
		want    int64
	}{
		{"016027", 14, 1_016_027},
		{"516027", 1, 516_027},
		{"146027", 5626, 4_146_027},
		{"999999", 2814, 5_999_999},
	}
	for _, tt := range tests {
		got, err := Seed(tt.id, tt.primary)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%s/%d", tt.id, tt.primary)
	}

	// Seeds wrap inside CORSIKA's range.
	got, err := Seed("900000001", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got)

	_, err = Seed("000001", 703)
	assert.Error(t, err)
}

func TestMaterializeWritesFiles(t *testing.T) {
	root := t.TempDir()
	antennas := filepath.Join(root, "gp300.list")
	require.NoError(t, os.WriteFile(antennas, []byte("AntennaPosition = 0 0 120000 a1\n"), 0o644))

	cfg := testConfig(root)
	cfg.PathAntennas = antennas
	w, err := New(cfg, nil)
	require.NoError(t, err)

	loc := filepath.Join(root, "inp", "8.0")
	item := testItem(loc)

	task, err := w.Materialize(context.Background(), item)
	require.NoError(t, err)

	assert.Equal(t, "/bin/sh", task.Path)
	assert.Equal(t, []string{filepath.Join(loc, "run_016027.sh")}, task.Args)
	assert.Equal(t, loc, task.Dir)
	assert.Equal(t, filepath.Join(root, "log", "8.0", "DAT016027.log"), task.LogPath)

	for _, name := range []string{"SIM016027.inp", "SIM016027.reas", "SIM016027.list", "run_016027.sh"} {
		assert.FileExists(t, filepath.Join(loc, name))
	}

	info, err := os.Stat(filepath.Join(loc, "run_016027.sh"))
	require.NoError(t, err)
	assert.NotZero(t, info.Mode()&0o100, "script is executable")

	list, err := os.ReadFile(filepath.Join(loc, "SIM016027.list"))
	require.NoError(t, err)
	assert.Equal(t, "AntennaPosition = 0 0 120000 a1\n", string(list))

	inp, err := os.ReadFile(filepath.Join(loc, "SIM016027.inp"))
	require.NoError(t, err)
	assert.Contains(t, string(inp), "DIRECT  "+loc+"/\n")
}

func TestMaterializeErrors(t *testing.T) {
	root := t.TempDir()

	t.Run("unknown primary", func(t *testing.T) {
		w, err := New(testConfig(root), nil)
		require.NoError(t, err)

		item := testItem(filepath.Join(root, "inp", "8.0"))
		item.Params.Primary = 703
		_, err = w.Materialize(context.Background(), item)
		require.Error(t, err)
		assert.True(t, dispatch.IsMaterializationError(err))
	})

	t.Run("missing antenna list", func(t *testing.T) {
		cfg := testConfig(root)
		cfg.PathAntennas = filepath.Join(root, "absent.list")
		w, err := New(cfg, nil)
		require.NoError(t, err)

		_, err = w.Materialize(context.Background(), testItem(filepath.Join(root, "inp", "8.0")))
		assert.True(t, dispatch.IsMaterializationError(err))
	})

	t.Run("location is a file", func(t *testing.T) {
		blocker := filepath.Join(root, "blocker")
		require.NoError(t, os.WriteFile(blocker, nil, 0o644))

		w, err := New(testConfig(root), nil)
		require.NoError(t, err)
		_, err = w.Materialize(context.Background(), testItem(filepath.Join(blocker, "8.0")))
		assert.True(t, dispatch.IsMaterializationError(err))
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		w, err := New(testConfig(root), nil)
		require.NoError(t, err)
		_, err = w.Materialize(ctx, testItem(filepath.Join(root, "inp", "8.0")))
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestShellQuote(t *testing.T) {
	assert.Equal(t, `'plain'`, shellQuote("plain"))
	assert.Equal(t, `'it'\''s'`, shellQuote("it's"))
}
