//go:build !windows

package process

import (
	"os/exec"
	"syscall"
)

// Configure places the command in its own process group so the renderer
// and any node children it spawns can be killed together.
func Configure(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true
}

// KillProcessGroup kills a process and all its children by sending SIGKILL
// to the process group (negative PID).
func KillProcessGroup(pid int) {
	if pid <= 0 {
		return
	}
	// Best-effort cleanup; cmd.Cancel falls back to killing the process itself
	_ = syscall.Kill(-pid, syscall.SIGKILL)
}
