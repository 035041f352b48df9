//go:build windows

package worker

import (
	"os/exec"
)

// Windows has no SIGTERM equivalent for console processes: go straight to TerminateProcess.
func gracefulTerminate(cmd *exec.Cmd) error {
	return cmd.Process.Kill()
}
