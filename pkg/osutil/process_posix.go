//go:build unix

package osutil

import (
	"os/exec"
	"syscall"
)

// setProcessGroup runs the command in its own process group so a model
// runner's helper processes die with it.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func setProcessGroupKill(cmd *exec.Cmd) {
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
