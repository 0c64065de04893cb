package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"sort"
	"sync"
	"time"

	"github.com/maestro-sh/maestro/internal/console"
	"github.com/maestro-sh/maestro/internal/history"
	"github.com/maestro-sh/maestro/internal/logger"
	"github.com/maestro-sh/maestro/internal/metrics"
	"github.com/maestro-sh/maestro/internal/service"
)

// ErrUnknownGroup is returned when a group id is not present in the
// configuration. Callers decide the external status code.
var ErrUnknownGroup = errors.New("unknown service group")

const (
	// DefaultGracePeriod bounds the wait after SIGINT before escalating
	// to SIGKILL. It is the only stop timeout in the system.
	DefaultGracePeriod = 10 * time.Second
	// DefaultPollInterval is the crash monitor's check interval.
	DefaultPollInterval = 5 * time.Second

	monitorJoinTimeout = 2 * time.Second
)

// Options configures an Orchestrator.
type Options struct {
	// Groups maps group id to its ordered member specs. Loaded once from
	// configuration; never mutated afterwards.
	Groups  map[string][]service.Spec
	Console *console.Console
	Logger  *slog.Logger
	Capture logger.CaptureConfig
	History history.Sink // optional
	// PollInterval and GracePeriod default to the package constants; tests
	// shorten them.
	PollInterval time.Duration
	GracePeriod  time.Duration
}

// record is the mutable state of one running service instance. It lives in
// the orchestrator's table while the child is alive and is removed when the
// child is reaped; a restart creates a fresh record.
type record struct {
	spec      service.Spec
	cmd       *exec.Cmd
	pid       int
	startedAt time.Time
	// manuallyStopped distinguishes an intentional stop from a crash. It is
	// written under the table lock before the termination signal is sent,
	// so a monitor poll racing with the stop resolves to "no restart".
	manuallyStopped bool
	// done is closed by the wait goroutine after cmd.Wait returns; waitErr
	// is valid only after done is observed closed.
	done    chan struct{}
	waitErr error
}

// Orchestrator owns the table of running services, spawns children attached
// to a pty (or pipe) in their own process group, runs the stop protocol, and
// hosts the background crash monitor.
type Orchestrator struct {
	mu       sync.Mutex
	groups   map[string][]service.Spec
	groupIDs []string
	table    map[string]*record

	console *console.Console
	logger  *slog.Logger
	capture logger.CaptureConfig
	hist    history.Sink

	poll  time.Duration
	grace time.Duration

	monitorStop chan struct{}
	monitorDone chan struct{}
}

func New(opts Options) *Orchestrator {
	ids := make([]string, 0, len(opts.Groups))
	for id := range opts.Groups {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	lg := opts.Logger
	if lg == nil {
		lg = slog.Default()
	}
	poll := opts.PollInterval
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	grace := opts.GracePeriod
	if grace <= 0 {
		grace = DefaultGracePeriod
	}
	return &Orchestrator{
		groups:   opts.Groups,
		groupIDs: ids,
		table:    make(map[string]*record),
		console:  opts.Console,
		logger:   lg,
		capture:  opts.Capture,
		hist:     opts.History,
		poll:     poll,
		grace:    grace,
	}
}

// StartGroup starts every member of groupID that is not already running.
// Starting is idempotent per service: running members keep their pid and
// start time. A failure to spawn one member never aborts its siblings.
func (o *Orchestrator) StartGroup(groupID string) ([]service.Status, error) {
	specs, ok := o.groups[groupID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownGroup, groupID)
	}
	statuses := make([]service.Status, 0, len(specs))
	for _, spec := range specs {
		o.mu.Lock()
		_, present := o.table[spec.Name]
		o.mu.Unlock()
		if !present {
			if err := o.startService(spec); err != nil {
				o.logger.Error("failed to start service",
					"service", spec.Name, "error", err)
			}
		}
		statuses = append(statuses, o.statusFor(spec))
	}
	o.updateRunningGauges()
	return statuses, nil
}

// StopGroup stops every running member of groupID, best-effort.
func (o *Orchestrator) StopGroup(groupID string) {
	o.mu.Lock()
	names := make([]string, 0, len(o.table))
	for name, rec := range o.table {
		if rec.spec.GroupID == groupID {
			names = append(names, name)
		}
	}
	o.mu.Unlock()
	sort.Strings(names)
	for _, name := range names {
		o.stopService(name)
	}
	o.updateRunningGauges()
}

// StopAll stops every tracked service. Used on supervisor shutdown.
func (o *Orchestrator) StopAll() {
	o.logger.Info("shutting down all managed services")
	o.mu.Lock()
	names := make([]string, 0, len(o.table))
	for name := range o.table {
		names = append(names, name)
	}
	o.mu.Unlock()
	sort.Strings(names)
	for _, name := range names {
		o.stopService(name)
	}
	o.updateRunningGauges()
}

// GetAllStatuses reports every configured service across all groups.
func (o *Orchestrator) GetAllStatuses() []service.Status {
	var out []service.Status
	for _, gid := range o.groupIDs {
		for _, spec := range o.groups[gid] {
			out = append(out, o.statusFor(spec))
		}
	}
	return out
}

// startService spawns one child and its log forwarder. The record is
// reserved in the table before the spawn so concurrent starts of the same
// name cannot create duplicates.
func (o *Orchestrator) startService(spec service.Spec) error {
	rec := &record{spec: spec, done: make(chan struct{})}
	o.mu.Lock()
	if _, exists := o.table[spec.Name]; exists {
		o.mu.Unlock()
		return nil
	}
	o.table[spec.Name] = rec
	o.mu.Unlock()

	workDir, err := service.ExpandWorkDir(spec.WorkDir)
	if err != nil {
		o.abortStart(spec.Name)
		return fmt.Errorf("resolve working dir for %s: %w", spec.Name, err)
	}
	o.logger.Info("starting service", "service", spec.Name, "dir", workDir)

	cmd := spec.BuildCommand()
	cmd.Dir = workDir
	out, err := startProcess(cmd)
	if err != nil {
		o.abortStart(spec.Name)
		return fmt.Errorf("start %s: %w", spec.Name, err)
	}

	o.mu.Lock()
	rec.cmd = cmd
	rec.pid = cmd.Process.Pid
	rec.startedAt = time.Now()
	rec.manuallyStopped = false
	o.mu.Unlock()

	// Reap the child as soon as it exits; done doubles as the liveness
	// signal for the monitor and the stop protocol.
	go func() {
		rec.waitErr = cmd.Wait()
		close(rec.done)
	}()

	fw := console.NewForwarder(spec.Name, spec.GroupID, out, o.console,
		o.capture.Writer(spec.Name), o.logger)
	go fw.Run()

	metrics.IncStart(spec.Name)
	o.recordEvent(history.EventStart, rec, "")
	o.logger.Info("service started", "service", spec.Name, "pid", rec.pid)
	return nil
}

func (o *Orchestrator) abortStart(name string) {
	o.mu.Lock()
	delete(o.table, name)
	o.mu.Unlock()
}

// stopService runs the shutdown protocol: mark the intent, interrupt the
// whole process group, wait out the grace period, escalate to SIGKILL, and
// remove the table entry. A process that is already gone counts as stopped.
// The log forwarder self-terminates when its descriptor closes; it is never
// joined here, avoiding a circular wait.
func (o *Orchestrator) stopService(name string) {
	o.mu.Lock()
	rec, ok := o.table[name]
	if !ok || rec.cmd == nil {
		o.mu.Unlock()
		return
	}
	rec.manuallyStopped = true
	pid := rec.pid
	o.mu.Unlock()

	o.logger.Info("stopping service", "service", name, "pid", pid)
	if err := interruptGroup(pid); err != nil {
		if isGone(err) {
			o.logger.Warn("process already gone", "service", name)
		} else {
			o.logger.Error("error signaling process", "service", name, "error", err)
		}
	}

	select {
	case <-rec.done:
		o.logger.Info("service stopped gracefully", "service", name)
	case <-time.After(o.grace):
		o.logger.Warn("service did not stop gracefully, killing", "service", name)
		_ = killGroup(pid)
		select {
		case <-rec.done:
		case <-time.After(200 * time.Millisecond):
			// best-effort; the wait goroutine reaps eventually
		}
	}

	o.mu.Lock()
	delete(o.table, name)
	o.mu.Unlock()
	metrics.IncStop(name)
	o.recordEvent(history.EventStop, rec, "manual stop")
}

// StartMonitoring launches the background crash monitor. Called once at
// startup; subsequent calls are no-ops while it runs.
func (o *Orchestrator) StartMonitoring() {
	o.mu.Lock()
	if o.monitorStop != nil {
		o.mu.Unlock()
		return
	}
	stop := make(chan struct{})
	done := make(chan struct{})
	o.monitorStop = stop
	o.monitorDone = done
	o.mu.Unlock()

	o.logger.Info("starting background process monitor")
	go func() {
		defer close(done)
		t := time.NewTicker(o.poll)
		defer t.Stop()
		for {
			select {
			case <-stop:
				return
			case <-t.C:
				o.reapOnce()
			}
		}
	}()
}

// StopMonitoring signals the monitor to exit and joins it with a bounded wait.
func (o *Orchestrator) StopMonitoring() {
	o.mu.Lock()
	stop, done := o.monitorStop, o.monitorDone
	o.monitorStop, o.monitorDone = nil, nil
	o.mu.Unlock()
	if stop == nil {
		return
	}
	o.logger.Info("stopping background process monitor")
	close(stop)
	select {
	case <-done:
	case <-time.After(monitorJoinTimeout):
	}
}

// reapOnce scans a snapshot of the table for exited children. An unexpected
// exit is a crash: the dead entry is removed first, then the service is
// restarted synchronously through the normal start path with a fresh record.
// Expected exits (manual stop in flight) are removed without restart.
func (o *Orchestrator) reapOnce() {
	type exited struct {
		rec     *record
		crashed bool
	}
	o.mu.Lock()
	var dead []exited
	for name, rec := range o.table {
		if rec.cmd == nil {
			continue // start still in flight
		}
		select {
		case <-rec.done:
			dead = append(dead, exited{rec, !rec.manuallyStopped})
			delete(o.table, name)
		default:
		}
	}
	o.mu.Unlock()

	for _, d := range dead {
		if !d.crashed {
			continue
		}
		detail := "exit status 0"
		if d.rec.waitErr != nil {
			detail = d.rec.waitErr.Error()
		}
		o.logger.Error("service crashed, scheduling restart",
			"service", d.rec.spec.Name, "exit", detail)
		metrics.IncCrashRestart(d.rec.spec.Name)
		o.recordEvent(history.EventCrash, d.rec, detail)
		if err := o.startService(d.rec.spec); err != nil {
			o.logger.Error("failed to restart service",
				"service", d.rec.spec.Name, "error", err)
		}
	}
	if len(dead) > 0 {
		o.updateRunningGauges()
	}
}

// statusFor projects one service's table entry onto its external status.
// A crash is never observable here: the monitor removes and restarts within
// one critical section, so a crashed service reads as a transient "stopped".
func (o *Orchestrator) statusFor(spec service.Spec) service.Status {
	o.mu.Lock()
	rec, ok := o.table[spec.Name]
	var alive bool
	var pid int
	var startedAt time.Time
	if ok && rec.cmd != nil {
		select {
		case <-rec.done:
		default:
			alive = true
			pid = rec.pid
			startedAt = rec.startedAt
		}
	}
	o.mu.Unlock()

	if alive {
		st := startedAt
		return service.Status{
			Name:      spec.Name,
			GroupID:   spec.GroupID,
			State:     service.StateRunning,
			PID:       pid,
			StartedAt: &st,
			Detail:    "Running since " + st.Format(time.RFC3339),
		}
	}
	return service.Status{
		Name:    spec.Name,
		GroupID: spec.GroupID,
		State:   service.StateStopped,
		Detail:  "Service is not running.",
	}
}

func (o *Orchestrator) updateRunningGauges() {
	o.mu.Lock()
	counts := make(map[string]int, len(o.groupIDs))
	for _, rec := range o.table {
		if rec.cmd == nil {
			continue
		}
		select {
		case <-rec.done:
		default:
			counts[rec.spec.GroupID]++
		}
	}
	o.mu.Unlock()
	for _, gid := range o.groupIDs {
		metrics.SetRunning(gid, counts[gid])
	}
}

func (o *Orchestrator) recordEvent(t history.EventType, rec *record, detail string) {
	if o.hist == nil {
		return
	}
	evt := history.Event{
		Type:       t,
		Name:       rec.spec.Name,
		GroupID:    rec.spec.GroupID,
		PID:        rec.pid,
		OccurredAt: time.Now().UTC(),
		Detail:     detail,
	}
	if err := o.hist.Send(context.Background(), evt); err != nil {
		o.logger.Debug("history sink rejected event", "error", err)
	}
}
