package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level Prometheus collectors. They are registered via Register.
var (
	regOK atomic.Bool

	serviceStarts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "maestro",
			Subsystem: "service",
			Name:      "starts_total",
			Help:      "Number of successful service starts.",
		}, []string{"name"},
	)
	serviceStops = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "maestro",
			Subsystem: "service",
			Name:      "stops_total",
			Help:      "Number of manual service stops.",
		}, []string{"name"},
	)
	crashRestarts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "maestro",
			Subsystem: "service",
			Name:      "crash_restarts_total",
			Help:      "Number of automatic restarts after a crash.",
		}, []string{"name"},
	)
	runningServices = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "maestro",
			Subsystem: "service",
			Name:      "running",
			Help:      "Current number of running services per group.",
		}, []string{"group"},
	)
)

// Register registers all metrics with the provided registerer.
// It is safe to call multiple times; subsequent calls after success are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	for _, c := range []prometheus.Collector{serviceStarts, serviceStops, crashRestarts, runningServices} {
		if err := r.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// MustRegisterDefault registers with the default registry, ignoring duplicates.
func MustRegisterDefault() { _ = Register(prometheus.DefaultRegisterer) }

// Handler returns the HTTP handler serving the default registry.
func Handler() http.Handler { return promhttp.Handler() }

func IncStart(name string)        { serviceStarts.WithLabelValues(name).Inc() }
func IncStop(name string)         { serviceStops.WithLabelValues(name).Inc() }
func IncCrashRestart(name string) { crashRestarts.WithLabelValues(name).Inc() }

func SetRunning(group string, n int) { runningServices.WithLabelValues(group).Set(float64(n)) }
