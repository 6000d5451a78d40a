//go:build linux

// Package procattr keeps engine subprocesses from outliving the relay.
package procattr

import (
	"os/exec"
	"syscall"
)

// Set places the subprocess in its own process group. On Linux Pdeathsig
// additionally has the kernel SIGTERM the child if the relay dies without
// a chance to clean up (OOM kill, SIGKILL).
func Set(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid:   true,
		Pdeathsig: syscall.SIGTERM,
	}
}
