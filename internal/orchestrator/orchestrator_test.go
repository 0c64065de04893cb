//go:build !windows

package orchestrator

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maestro-sh/maestro/internal/console"
	"github.com/maestro-sh/maestro/internal/service"
)

func testOrchestrator(t *testing.T, groups map[string][]service.Spec) *Orchestrator {
	t.Helper()
	o := New(Options{
		Groups:       groups,
		Console:      console.New(io.Discard),
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		PollInterval: 50 * time.Millisecond,
		GracePeriod:  500 * time.Millisecond,
	})
	t.Cleanup(func() {
		o.StopMonitoring()
		o.StopAll()
	})
	return o
}

func groupOf(specs ...service.Spec) map[string][]service.Spec {
	out := make(map[string][]service.Spec)
	for _, s := range specs {
		out[s.GroupID] = append(out[s.GroupID], s)
	}
	return out
}

func runningPID(t *testing.T, o *Orchestrator, name string) int {
	t.Helper()
	for _, st := range o.GetAllStatuses() {
		if st.Name == name {
			require.Equal(t, service.StateRunning, st.State, "service %s", name)
			require.NotZero(t, st.PID)
			require.NotNil(t, st.StartedAt)
			return st.PID
		}
	}
	t.Fatalf("service %s not in statuses", name)
	return 0
}

func TestStartGroupUnknown(t *testing.T) {
	o := testOrchestrator(t, groupOf(service.Spec{Name: "api", GroupID: "web", Command: "sleep 60"}))
	_, err := o.StartGroup("nope")
	require.ErrorIs(t, err, ErrUnknownGroup)
}

func TestStartStopGroupBasic(t *testing.T) {
	o := testOrchestrator(t, groupOf(
		service.Spec{Name: "api", GroupID: "web", Command: "sleep 100"},
		service.Spec{Name: "frontend", GroupID: "web", Command: "sleep 100"},
	))
	statuses, err := o.StartGroup("web")
	require.NoError(t, err)
	require.Len(t, statuses, 2)
	for _, st := range statuses {
		assert.Equal(t, service.StateRunning, st.State)
		assert.NotZero(t, st.PID)
	}

	o.StopGroup("web")
	for _, st := range o.GetAllStatuses() {
		assert.Equal(t, service.StateStopped, st.State)
		assert.Zero(t, st.PID)
		assert.Nil(t, st.StartedAt)
	}
}

func TestStartGroupIdempotent(t *testing.T) {
	o := testOrchestrator(t, groupOf(service.Spec{Name: "api", GroupID: "web", Command: "sleep 100"}))
	first, err := o.StartGroup("web")
	require.NoError(t, err)
	pid := first[0].PID
	started := *first[0].StartedAt

	second, err := o.StartGroup("web")
	require.NoError(t, err)
	assert.Equal(t, pid, second[0].PID, "second start must not respawn")
	assert.True(t, started.Equal(*second[0].StartedAt), "start time must be unchanged")
}

func TestSpawnFailureDoesNotAbortSiblings(t *testing.T) {
	o := testOrchestrator(t, map[string][]service.Spec{"web": {
		{Name: "broken", GroupID: "web", WorkDir: "/nonexistent/never/here", Command: "sleep 100"},
		{Name: "api", GroupID: "web", Command: "sleep 100"},
	}})
	statuses, err := o.StartGroup("web")
	require.NoError(t, err)
	require.Len(t, statuses, 2)
	assert.Equal(t, service.StateStopped, statuses[0].State)
	assert.Equal(t, service.StateRunning, statuses[1].State)
}

func TestStatusesAllStoppedInitially(t *testing.T) {
	o := testOrchestrator(t, groupOf(
		service.Spec{Name: "api", GroupID: "web", Command: "sleep 100"},
		service.Spec{Name: "mailer", GroupID: "workers", Command: "sleep 100"},
	))
	statuses := o.GetAllStatuses()
	require.Len(t, statuses, 2)
	for _, st := range statuses {
		assert.Equal(t, service.StateStopped, st.State)
	}
}

func TestCrashTriggersRestart(t *testing.T) {
	o := testOrchestrator(t, groupOf(service.Spec{Name: "api", GroupID: "web", Command: "sleep 100"}))
	o.StartMonitoring()
	_, err := o.StartGroup("web")
	require.NoError(t, err)
	oldPID := runningPID(t, o, "api")

	// Out-of-band kill, bypassing the stop protocol: a crash.
	require.NoError(t, syscall.Kill(oldPID, syscall.SIGKILL))

	require.Eventually(t, func() bool {
		for _, st := range o.GetAllStatuses() {
			if st.Name == "api" && st.State == service.StateRunning && st.PID != oldPID {
				return true
			}
		}
		return false
	}, 3*time.Second, 20*time.Millisecond, "service was not restarted after crash")
}

func TestManualStopIsNotRestarted(t *testing.T) {
	o := testOrchestrator(t, groupOf(service.Spec{Name: "api", GroupID: "web", Command: "sleep 100"}))
	o.StartMonitoring()
	_, err := o.StartGroup("web")
	require.NoError(t, err)

	o.StopGroup("web")

	// Give the monitor several poll cycles to (wrongly) restart.
	time.Sleep(300 * time.Millisecond)
	for _, st := range o.GetAllStatuses() {
		assert.Equal(t, service.StateStopped, st.State, "manual stop must not be restarted")
	}
}

func TestStopEscalatesToKill(t *testing.T) {
	// The child ignores SIGINT, forcing the grace period to elapse. It
	// touches a ready file once the trap is installed so the stop cannot
	// race the shell's startup and hit the default SIGINT disposition.
	ready := filepath.Join(t.TempDir(), "ready")
	o := testOrchestrator(t, groupOf(service.Spec{
		Name: "stubborn", GroupID: "web",
		Command: `sh -c 'trap "" INT; touch ` + ready + `; while true; do sleep 1; done'`,
	}))
	_, err := o.StartGroup("web")
	require.NoError(t, err)
	runningPID(t, o, "stubborn")
	require.Eventually(t, func() bool {
		_, statErr := os.Stat(ready)
		return statErr == nil
	}, 3*time.Second, 10*time.Millisecond, "child never installed its trap")

	start := time.Now()
	o.StopGroup("web")
	elapsed := time.Since(start)

	require.GreaterOrEqual(t, elapsed, 500*time.Millisecond, "grace period should elapse")
	require.Less(t, elapsed, 3*time.Second, "kill escalation should not hang")
	for _, st := range o.GetAllStatuses() {
		assert.Equal(t, service.StateStopped, st.State)
	}
}

func TestProcessGroupSignalReachesDescendants(t *testing.T) {
	// The shell spawns a grandchild; stopping the service must take the
	// whole process group down with it.
	o := testOrchestrator(t, groupOf(service.Spec{
		Name: "parent", GroupID: "web",
		Command: `sh -c 'sleep 100 & wait'`,
	}))
	_, err := o.StartGroup("web")
	require.NoError(t, err)
	pid := runningPID(t, o, "parent")

	o.StopGroup("web")

	require.Eventually(t, func() bool {
		// Signal 0 to the old process group: ESRCH once every member died.
		return syscall.Kill(-pid, 0) != nil
	}, 3*time.Second, 20*time.Millisecond, "descendants survived group stop")
}

func TestStopAll(t *testing.T) {
	o := testOrchestrator(t, groupOf(
		service.Spec{Name: "api", GroupID: "web", Command: "sleep 100"},
		service.Spec{Name: "mailer", GroupID: "workers", Command: "sleep 100"},
	))
	_, err := o.StartGroup("web")
	require.NoError(t, err)
	_, err = o.StartGroup("workers")
	require.NoError(t, err)

	o.StopAll()
	for _, st := range o.GetAllStatuses() {
		assert.Equal(t, service.StateStopped, st.State)
	}
}

func TestMonitoringLifecycleIdempotent(t *testing.T) {
	o := testOrchestrator(t, groupOf(service.Spec{Name: "api", GroupID: "web", Command: "sleep 100"}))
	o.StartMonitoring()
	o.StartMonitoring() // second call is a no-op
	o.StopMonitoring()
	o.StopMonitoring() // stop after stop is a no-op
}
