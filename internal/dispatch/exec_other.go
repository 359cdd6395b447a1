//go:build !unix

package dispatch

import (
	"os"
	"os/exec"
)

func detach(cmd *exec.Cmd) {}

func exitSignal(state *os.ProcessState) string { return "" }
