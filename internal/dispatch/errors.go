package dispatch

import (
	"errors"
	"fmt"

	"github.com/lguelzow/CoreasSpellcaster/internal/runid"
)

// MaterializationError reports that an item's task could not be prepared.
type MaterializationError struct {
	ID       runid.ID
	Location string
	Err      error
}

func (e *MaterializationError) Error() string {
	return fmt.Sprintf("materialize %s in %s: %v", e.ID, e.Location, e.Err)
}

func (e *MaterializationError) Unwrap() error { return e.Err }

// LaunchError reports that a task's process could not be started.
type LaunchError struct {
	ID   runid.ID
	Path string
	Err  error
}

func (e *LaunchError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("launch %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("launch %s (%s): %v", e.ID, e.Path, e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }

// TaskError reports a process that exited unsuccessfully.
type TaskError struct {
	ID     runid.ID
	Code   int
	Signal string
}

func (e *TaskError) Error() string {
	if e.Signal != "" {
		return fmt.Sprintf("task %s killed by %s", e.ID, e.Signal)
	}
	return fmt.Sprintf("task %s exited with code %d", e.ID, e.Code)
}

// IsMaterializationError checks if an error is a MaterializationError.
func IsMaterializationError(err error) bool {
	var me *MaterializationError
	return errors.As(err, &me)
}

// IsLaunchError checks if an error is a LaunchError.
func IsLaunchError(err error) bool {
	var le *LaunchError
	return errors.As(err, &le)
}

// IsTaskError checks if an error is a TaskError.
func IsTaskError(err error) bool {
	var te *TaskError
	return errors.As(err, &te)
}
