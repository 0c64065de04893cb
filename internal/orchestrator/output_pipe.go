package orchestrator

import (
	"io"
	"os"
	"os/exec"
)

// startWithPipe starts cmd with stdout and stderr joined onto one pipe and
// the child placed in a new process group. The parent keeps only the read
// side; the forwarder owns and closes it.
func startWithPipe(cmd *exec.Cmd) (io.ReadCloser, error) {
	pr, pw, err := os.Pipe()
	if err != nil {
		return nil, err
	}
	cmd.Stdout = pw
	cmd.Stderr = pw
	configureSysProcAttr(cmd)
	if err := cmd.Start(); err != nil {
		_ = pr.Close()
		_ = pw.Close()
		return nil, err
	}
	_ = pw.Close()
	return pr, nil
}
