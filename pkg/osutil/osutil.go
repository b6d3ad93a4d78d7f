// Package osutil holds platform-specific process handling for the local
// model-runner classifier backend.
package osutil

import (
	"os/exec"
	"time"
)

// KillWaitDelay bounds how long Wait keeps draining output pipes after the
// process group has been killed.
const KillWaitDelay = 2 * time.Second

// BindToContext arranges for cmd, and on Unix every process it spawns, to be
// killed when the context passed to exec.CommandContext is done. Must be
// called before cmd.Start().
func BindToContext(cmd *exec.Cmd) {
	setProcessGroup(cmd)
	setProcessGroupKill(cmd)
	cmd.WaitDelay = KillWaitDelay
}
