//go:build !windows

package orchestrator

import (
	"os/exec"
	"syscall"
)

// configureSysProcAttr places the child in a new session so group signals
// reach its descendants but never escape to the supervisor or siblings.
func configureSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}
