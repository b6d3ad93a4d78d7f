//go:build windows

package osutil

import (
	"os"
	"os/exec"
)

// No Setpgid equivalent for foreground processes on Windows.
func setProcessGroup(_ *exec.Cmd) {}

// Only the main process can be terminated; children may outlive it.
func setProcessGroupKill(cmd *exec.Cmd) {
	cmd.Cancel = func() error {
		return cmd.Process.Signal(os.Kill)
	}
}
