//go:build !windows

package orchestrator

import (
	"io"
	"os/exec"
	"sync"

	"github.com/creack/pty"
)

var (
	ptyProbe sync.Once
	ptyOK    bool
)

// ptySupported probes pty availability once. Some minimal containers ship
// without a usable /dev/ptmx; those fall back to pipes for the whole run.
func ptySupported() bool {
	ptyProbe.Do(func() {
		m, s, err := pty.Open()
		if err == nil {
			_ = m.Close()
			_ = s.Close()
			ptyOK = true
		}
	})
	return ptyOK
}

// startProcess launches cmd in its own session with combined stdout+stderr
// on a pty master when the platform supports one, else on a pipe with a new
// process group. The pty keeps interactive tools (progress bars, spinners)
// formatting output the way they would standalone.
func startProcess(cmd *exec.Cmd) (io.ReadCloser, error) {
	if ptySupported() {
		// pty.Start puts the child in a new session, which also gives it
		// its own process group for group signaling.
		return pty.Start(cmd)
	}
	return startWithPipe(cmd)
}
