package marker

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedRoundTrip(t *testing.T) {
	root := filepath.Join(t.TempDir(), "sims")

	_, ok, err := ReadSeed(root)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, WriteSeed(root, 18446744073709551615))
	seed, ok, err := ReadSeed(root)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(18446744073709551615), seed)
}

func TestReadSeedRejectsGarbage(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(SeedPath(root), []byte("forty-two\n"), 0o644))

	_, _, err := ReadSeed(root)
	require.Error(t, err)
	assert.Contains(t, err.Error(), ".seed")
}
