package console

import (
	"hash/fnv"
	"io"
	"strings"
	"sync"
)

// ANSI fragments used when rendering to a real terminal.
const (
	ansiReset      = "\033[0m"
	ansiBold       = "\033[1m"
	ansiClearToEOL = "\033[K"
)

// groupPalette holds contrasting colors for group tags, ordered by
// perceptual distinction. All services of one group share a color.
var groupPalette = []string{
	"\033[93m", // bright yellow
	"\033[96m", // bright cyan
	"\033[92m", // bright green
	"\033[95m", // bright magenta
	"\033[97m", // bright white
	"\033[91m", // bright red
	"\033[94m", // bright blue
	"\033[36m", // cyan
	"\033[35m", // magenta
	"\033[32m", // green
}

// GroupColor returns the ANSI color assigned to a group id. The mapping is a
// stable hash so the same group keeps its color across runs.
func GroupColor(groupID string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(groupID))
	return groupPalette[int(h.Sum32())%len(groupPalette)]
}

// Tag builds the colored "[name] " prefix for a service belonging to groupID.
func Tag(name, groupID string) string {
	return ansiBold + GroupColor(groupID) + "[" + name + "]" + ansiReset + " "
}

// Console serializes output from many concurrent sources onto one shared
// stream while preserving each source's terminal semantics: carriage-return
// overwrites (progress bars) keep overwriting their own line, normal logs
// scroll, and a source never clobbers another source's unfinished line.
//
// Input arrives in arbitrary chunks. A chunk with no line terminator is
// buffered per source until a terminator arrives, unless it contains a
// stray '\r', in which case it is a progress update and is shown at once.
type Console struct {
	mu         sync.Mutex
	w          io.Writer
	lastWriter string
	dangling   bool
	pending    map[string]string
}

func New(w io.Writer) *Console {
	return &Console{w: w, pending: make(map[string]string)}
}

// Render appends chunk to sourceID's buffer and emits every logical line it
// completes. The whole decide/emit/state-update cycle runs under one lock, so
// renders from concurrent sources are totally ordered.
func (c *Console) Render(sourceID, chunk, prefix string) {
	if chunk == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	buf := c.pending[sourceID] + chunk
	for {
		i := strings.IndexByte(buf, '\n')
		if i < 0 {
			break
		}
		c.emit(sourceID, buf[:i], prefix, true)
		buf = buf[i+1:]
	}
	// A remainder carrying '\r' is a progress update: show it now rather
	// than waiting for a terminator, and keep only the text after the last
	// '\r' buffered for the next chunk.
	if j := strings.LastIndexByte(buf, '\r'); j >= 0 {
		c.emit(sourceID, buf, prefix, false)
		buf = buf[j+1:]
	}
	if buf == "" {
		delete(c.pending, sourceID)
	} else {
		c.pending[sourceID] = buf
	}
}

// Remove discards sourceID's pending buffer and commits its dangling line,
// if any. Called when a source's stream ends.
func (c *Console) Remove(sourceID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pending, sourceID)
	if c.lastWriter == sourceID && c.dangling {
		_, _ = io.WriteString(c.w, "\n")
		c.dangling = false
	}
}

// emit renders one logical line. Must hold c.mu.
func (c *Console) emit(sourceID, raw, prefix string, terminated bool) {
	// Overwrite intent must be detected before cleaning: buffering can
	// deliver several updates at once ("v1\rv2"), so a prefix check on the
	// raw line would miss it.
	overwrite := strings.ContainsRune(raw, '\r')
	content := strings.TrimFunc(raw, func(r rune) bool {
		return r <= ' ' || r == 0x7f
	})
	if content == "" {
		return
	}

	// Writer switch while the previous line dangles: commit it first so the
	// new source's prefix does not overwrite someone else's progress line.
	if c.lastWriter != "" && c.lastWriter != sourceID && c.dangling {
		_, _ = io.WriteString(c.w, "\n")
		c.dangling = false
	}

	if overwrite {
		// Return to column zero and clear the remainder, so a shorter
		// update fully replaces a longer previous one.
		_, _ = io.WriteString(c.w, "\r"+prefix+content+ansiClearToEOL)
	} else {
		_, _ = io.WriteString(c.w, prefix+content)
	}

	if terminated {
		_, _ = io.WriteString(c.w, "\n")
		c.dangling = false
	} else {
		c.dangling = true
	}
	c.lastWriter = sourceID
}
