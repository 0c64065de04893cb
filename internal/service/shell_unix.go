//go:build !windows

package service

import "os/exec"

// shellCommand wraps script in the platform shell. The absolute path avoids
// PATH lookups when the environment is overridden.
func shellCommand(script string) *exec.Cmd {
	// #nosec G204
	return exec.Command("/bin/sh", "-c", script)
}

func trueCommand() *exec.Cmd {
	// #nosec G204
	return exec.Command("/bin/true")
}
