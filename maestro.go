// Package maestro supervises groups of long-running local services: it
// starts and stops them on command, restarts them after crashes, and
// multiplexes their console output onto one coherent stream.
package maestro

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/maestro-sh/maestro/internal/config"
	"github.com/maestro-sh/maestro/internal/console"
	"github.com/maestro-sh/maestro/internal/history"
	historysqlite "github.com/maestro-sh/maestro/internal/history/sqlite"
	"github.com/maestro-sh/maestro/internal/logger"
	"github.com/maestro-sh/maestro/internal/metrics"
	"github.com/maestro-sh/maestro/internal/orchestrator"
	"github.com/maestro-sh/maestro/internal/server"
	"github.com/maestro-sh/maestro/internal/service"
)

// Re-export core types for external consumers. These are aliases so
// conversions are zero-cost.

type Spec = service.Spec

type Status = service.Status

type Console = console.Console

type Config = config.Config

type Event = history.Event

type HistorySink = history.Sink

var ErrUnknownGroup = orchestrator.ErrUnknownGroup

// LoadConfig reads and validates a YAML or TOML configuration file.
func LoadConfig(path string) (*Config, error) { return config.Load(path) }

// NewConsole builds the shared output multiplexer writing to w.
func NewConsole(w io.Writer) *console.Console { return console.New(w) }

// NewConsoleLogger returns a logger whose lines render through the shared
// console as "[Orchestrator] ..." so they interleave safely with service
// output.
func NewConsoleLogger(c *console.Console, level slog.Level) *slog.Logger {
	return logger.NewOrchestratorLogger(c, level)
}

// NewSQLiteHistory opens a lifecycle event store at the given file path.
func NewSQLiteHistory(path string) (HistorySink, error) { return historysqlite.New(path) }

// Orchestrator is a thin facade over the internal supervision engine.
type Orchestrator struct{ inner *orchestrator.Orchestrator }

// OrchestratorOptions configures a new Orchestrator.
type OrchestratorOptions struct {
	Config  *Config
	Console *console.Console
	Logger  *slog.Logger
	History HistorySink
}

func NewOrchestrator(opts OrchestratorOptions) *Orchestrator {
	metrics.MustRegisterDefault()
	return &Orchestrator{inner: orchestrator.New(orchestrator.Options{
		Groups:  opts.Config.Groups(),
		Console: opts.Console,
		Logger:  opts.Logger,
		Capture: opts.Config.Capture,
		History: opts.History,
	})}
}

func (o *Orchestrator) StartGroup(groupID string) ([]Status, error) {
	return o.inner.StartGroup(groupID)
}
func (o *Orchestrator) StopGroup(groupID string) { o.inner.StopGroup(groupID) }
func (o *Orchestrator) StopAll()                 { o.inner.StopAll() }
func (o *Orchestrator) GetAllStatuses() []Status { return o.inner.GetAllStatuses() }
func (o *Orchestrator) StartMonitoring()         { o.inner.StartMonitoring() }
func (o *Orchestrator) StopMonitoring()          { o.inner.StopMonitoring() }

// NewServer builds the HTTP control surface for an orchestrator. The caller
// owns the returned server's lifecycle.
func (o *Orchestrator) NewServer(addr string, hist HistorySink) *http.Server {
	return server.New(addr, o.inner, hist)
}
