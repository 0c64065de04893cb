//go:build !windows

package orchestrator

import (
	"errors"
	"syscall"
)

// interruptGroup sends SIGINT to the whole process group so descendants
// spawned by the service receive it too.
func interruptGroup(pid int) error {
	return syscall.Kill(-pid, syscall.SIGINT)
}

// killGroup sends the unconditional SIGKILL to the process group.
func killGroup(pid int) error {
	return syscall.Kill(-pid, syscall.SIGKILL)
}

// isGone reports whether a signaling error means the process had already
// exited, which the stop protocol treats as success.
func isGone(err error) bool {
	return errors.Is(err, syscall.ESRCH)
}
