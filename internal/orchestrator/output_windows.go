//go:build windows

package orchestrator

import (
	"io"
	"os/exec"
)

// startProcess launches cmd with combined stdout+stderr on a pipe. Windows
// has no pty facility usable here, so interactive tools see a plain pipe.
func startProcess(cmd *exec.Cmd) (io.ReadCloser, error) {
	return startWithPipe(cmd)
}
