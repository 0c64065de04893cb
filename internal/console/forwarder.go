package console

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"syscall"
)

// readChunkSize keeps reads small so overwrite sequences reach the console
// with low latency instead of waiting for a full line.
const readChunkSize = 1024

// Forwarder pumps raw bytes from one service's output descriptor into the
// Console until end-of-stream. It runs on its own goroutine, fully decoupled
// from the orchestrator's control path, and owns the read side of the
// descriptor: it closes it on exit.
type Forwarder struct {
	name    string
	src     io.ReadCloser
	console *Console
	prefix  string
	capture io.WriteCloser // optional raw capture file, may be nil
	logger  *slog.Logger
}

func NewForwarder(name, groupID string, src io.ReadCloser, c *Console, capture io.WriteCloser, logger *slog.Logger) *Forwarder {
	return &Forwarder{
		name:    name,
		src:     src,
		console: c,
		prefix:  Tag(name, groupID),
		capture: capture,
		logger:  logger,
	}
}

// Run reads until the descriptor closes. I/O errors end the stream and are
// logged at warning level; declaring the process dead is the crash monitor's
// job, not ours.
func (f *Forwarder) Run() {
	defer func() {
		_ = f.src.Close()
		if f.capture != nil {
			_ = f.capture.Close()
		}
		f.console.Remove(f.name)
	}()

	buf := make([]byte, readChunkSize)
	for {
		n, err := f.src.Read(buf)
		if n > 0 {
			raw := buf[:n]
			if f.capture != nil {
				_, _ = f.capture.Write(raw)
			}
			f.console.Render(f.name, strings.ToValidUTF8(string(raw), "�"), f.prefix)
		}
		if err != nil {
			if !isStreamEnd(err) {
				f.logger.Warn("log forwarder stopped due to IO error",
					"service", f.name, "error", err)
			}
			return
		}
	}
}

// isStreamEnd reports whether err is an expected end-of-stream condition.
// A pty master returns EIO once the child side is gone.
func isStreamEnd(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, syscall.EIO) ||
		errors.Is(err, io.ErrClosedPipe)
}
