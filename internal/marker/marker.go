// Package marker records finished simulations as files next to their
// inputs. A location holds SIM<id>.done only after the task for <id>
// exited successfully, which makes reruns skip exactly the finished work.
package marker

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/lguelzow/CoreasSpellcaster/internal/dispatch"
	"github.com/lguelzow/CoreasSpellcaster/internal/runid"
)

// Path returns the marker file of id inside location.
func Path(location string, id runid.ID) string {
	return filepath.Join(location, "SIM"+string(id)+".done")
}

// Exists reports whether the marker of id is present in location.
func Exists(id runid.ID, location string) bool {
	_, err := os.Stat(Path(location, id))
	return err == nil
}

// Predicate is the filesystem completion predicate.
type Predicate struct{}

// IsDone implements catalog.CompletionPredicate.
func (Predicate) IsDone(id runid.ID, location string) bool {
	return Exists(id, location)
}

// Write creates the marker of id in location.
func Write(location string, id runid.ID, session string, finished time.Time) error {
	if err := os.MkdirAll(location, 0o755); err != nil {
		return fmt.Errorf("create marker directory: %w", err)
	}
	body := fmt.Sprintf("session=%s\nfinished=%s\n", session, finished.UTC().Format(time.RFC3339))
	if err := os.WriteFile(Path(location, id), []byte(body), 0o644); err != nil {
		return fmt.Errorf("write marker: %w", err)
	}
	return nil
}

// Remove deletes the marker of id, if any.
func Remove(location string, id runid.ID) error {
	err := os.Remove(Path(location, id))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// Recorder writes markers for succeeded tasks.
type Recorder struct {
	Session string
}

// OnLaunch clears a stale marker so an interrupted rerun is not mistaken
// for a finished one.
func (r Recorder) OnLaunch(res dispatch.Result) error {
	return Remove(res.Location, res.ID)
}

// OnExit writes the marker when the task succeeded.
func (r Recorder) OnExit(res dispatch.Result) error {
	if res.State != dispatch.StateSucceeded {
		return nil
	}
	return Write(res.Location, res.ID, r.Session, res.Finished)
}
