package logger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/maestro-sh/maestro/internal/console"
)

const (
	ansiReset = "\033[0m"
	ansiBold  = "\033[1m"
	green     = "\033[92m"
	yellow    = "\033[93m"
	red       = "\033[91m"
	cyan      = "\033[96m"
)

// orchestratorSource is the console source id used for the orchestrator's
// own log lines, so they interleave safely with service output.
const orchestratorSource = "Orchestrator"

// ConsoleHandler is a slog.Handler that renders "[Orchestrator] <message>"
// lines through the shared Console, with the tag colored by level.
type ConsoleHandler struct {
	console *console.Console
	level   slog.Leveler
	attrs   string
}

// NewOrchestratorLogger returns a logger whose output goes through c.
func NewOrchestratorLogger(c *console.Console, level slog.Level) *slog.Logger {
	return slog.New(&ConsoleHandler{console: c, level: level})
}

func (h *ConsoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	min := slog.LevelInfo
	if h.level != nil {
		min = h.level.Level()
	}
	return level >= min
}

func (h *ConsoleHandler) Handle(_ context.Context, r slog.Record) error {
	var color string
	switch {
	case r.Level >= slog.LevelError:
		color = red
	case r.Level >= slog.LevelWarn:
		color = yellow
	case r.Level >= slog.LevelInfo:
		color = green
	default:
		color = cyan
	}
	prefix := ansiBold + color + "[" + orchestratorSource + "]" + ansiReset + " "

	var b strings.Builder
	b.WriteString(r.Message)
	b.WriteString(h.attrs)
	r.Attrs(func(a slog.Attr) bool {
		writeAttr(&b, a)
		return true
	})
	b.WriteByte('\n')
	h.console.Render(orchestratorSource, b.String(), prefix)
	return nil
}

func (h *ConsoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	var b strings.Builder
	b.WriteString(h.attrs)
	for _, a := range attrs {
		writeAttr(&b, a)
	}
	return &ConsoleHandler{console: h.console, level: h.level, attrs: b.String()}
}

// WithGroup is accepted but not nested; console lines stay flat.
func (h *ConsoleHandler) WithGroup(string) slog.Handler { return h }

func writeAttr(b *strings.Builder, a slog.Attr) {
	if a.Equal(slog.Attr{}) {
		return
	}
	fmt.Fprintf(b, " %s=%v", a.Key, a.Value.Any())
}
