package marker

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// SeedPath is the file holding the azimuth seed of the campaign in root.
func SeedPath(root string) string {
	return filepath.Join(root, ".seed")
}

// ReadSeed returns the stored azimuth seed of root. ok is false when none
// has been stored yet.
func ReadSeed(root string) (seed uint64, ok bool, err error) {
	data, err := os.ReadFile(SeedPath(root))
	if errors.Is(err, os.ErrNotExist) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read seed: %w", err)
	}
	seed, err = strconv.ParseUint(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", SeedPath(root), err)
	}
	return seed, true, nil
}

// WriteSeed stores seed for root. Identifiers of a campaign depend on its
// azimuth draws, so the stored seed must never change once showers ran.
func WriteSeed(root string, seed uint64) error {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("create campaign directory: %w", err)
	}
	if err := os.WriteFile(SeedPath(root), []byte(strconv.FormatUint(seed, 10)+"\n"), 0o644); err != nil {
		return fmt.Errorf("write seed: %w", err)
	}
	return nil
}
