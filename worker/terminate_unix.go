//go:build !windows

package worker

import (
	"os/exec"
	"syscall"
)

func gracefulTerminate(cmd *exec.Cmd) error {
	return cmd.Process.Signal(syscall.SIGTERM)
}
