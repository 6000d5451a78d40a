//go:build !linux

// Package procattr keeps engine subprocesses from outliving the relay.
package procattr

import (
	"os/exec"
	"syscall"
)

// Set places the subprocess in its own process group so the relay can
// signal the whole group on teardown. Pdeathsig does not exist outside
// Linux.
func Set(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}
}
