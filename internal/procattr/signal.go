package procattr

import (
	"os"
	"syscall"
)

// SignalGroup delivers sig to the process's whole group. Signaling the
// negated pid reaches every process in the group, including anything the
// engine itself spawned. A nil process is a no-op.
func SignalGroup(p *os.Process, sig syscall.Signal) error {
	if p == nil {
		return nil
	}
	return syscall.Kill(-p.Pid, sig)
}

// KillGroup force-kills the process's whole group.
func KillGroup(p *os.Process) error {
	return SignalGroup(p, syscall.SIGKILL)
}
