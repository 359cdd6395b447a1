package dispatch

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// ExecLauncher starts tasks as operating system processes.
//
// Each child runs in its own process group so that an interrupt sent to
// the terminal reaches only the dispatcher. Output is appended to the
// task's LogPath, or discarded when it is empty.
type ExecLauncher struct{}

// Launch starts task and returns without waiting for it.
func (ExecLauncher) Launch(task Task) (Process, error) {
	if task.Path == "" {
		return nil, &LaunchError{Err: errors.New("task has no executable")}
	}

	cmd := exec.Command(task.Path, task.Args...)
	cmd.Dir = task.Dir
	if len(task.Env) > 0 {
		cmd.Env = append(os.Environ(), task.Env...)
	}
	detach(cmd)

	var logFile *os.File
	if task.LogPath != "" {
		if err := os.MkdirAll(filepath.Dir(task.LogPath), 0o755); err != nil {
			return nil, &LaunchError{Path: task.Path, Err: fmt.Errorf("create log directory: %w", err)}
		}
		f, err := os.OpenFile(task.LogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, &LaunchError{Path: task.Path, Err: fmt.Errorf("open log: %w", err)}
		}
		logFile = f
		cmd.Stdout = f
		cmd.Stderr = f
	}

	if err := cmd.Start(); err != nil {
		if logFile != nil {
			logFile.Close()
		}
		return nil, &LaunchError{Path: task.Path, Err: err}
	}
	return &execProcess{cmd: cmd, log: logFile}, nil
}

type execProcess struct {
	cmd *exec.Cmd
	log *os.File
}

func (p *execProcess) Wait() Exit {
	err := p.cmd.Wait()
	if p.log != nil {
		p.log.Close()
	}

	if err == nil {
		return Exit{}
	}
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		return Exit{Code: ee.ExitCode(), Signal: exitSignal(ee.ProcessState)}
	}
	return Exit{Code: -1, Err: err}
}
