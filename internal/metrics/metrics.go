// Package metrics wires the discrete orchestration counters SPEC_FULL.md
// §4.9 asks for: Prometheus instrumentation for a long-running scheduling
// process, in the shape the pack's only Prometheus consumer
// (jhkimqd-chaos-utils) wires its client in — one struct built once at
// startup, registered against a collector registry, with plain
// increment/observe methods called from the walker's callbacks.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"go.te.io/tescenario/lib"
)

// Registry bundles every counter/histogram the walker reports through.
// Zero value is unusable; construct with New.
type Registry struct {
	TestsStarted  *prometheus.CounterVec
	TestsPassed   prometheus.Counter
	TestsFailed   prometheus.Counter
	TestsSkipped  prometheus.Counter
	BackupDrift   prometheus.Counter
	ScenarioIters prometheus.Histogram
}

// New creates and registers every metric against reg.
func New(reg prometheus.Registerer) *Registry {
	m := &Registry{
		TestsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "te_tests_started_total",
			Help: "Number of test-script iterations started.",
		}, []string{"path"}),
		TestsPassed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "te_tests_passed_total",
			Help: "Number of test-script iterations that passed.",
		}),
		TestsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "te_tests_failed_total",
			Help: "Number of test-script iterations that failed (any non-passing status).",
		}),
		TestsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "te_tests_skipped_total",
			Help: "Number of test-script iterations skipped by requirement filtering or quietskip.",
		}),
		BackupDrift: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "te_backup_drift_total",
			Help: "Number of times the configuration-manager backup discipline found drift.",
		}),
		ScenarioIters: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "te_scenario_iterations",
			Help:    "Distribution of scenario sizes (total iterations) walked per campaign.",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		}),
	}
	reg.MustRegister(m.TestsStarted, m.TestsPassed, m.TestsFailed, m.TestsSkipped, m.BackupDrift, m.ScenarioIters)
	return m
}

// ObserveStatus records one completed iteration's status under path.
func (m *Registry) ObserveStatus(path string, status lib.TesterStatus) {
	m.TestsStarted.WithLabelValues(path).Inc()
	switch status {
	case lib.StatusPassed, lib.StatusFaked:
		m.TestsPassed.Inc()
	case lib.StatusSkipped, lib.StatusEmpty:
		m.TestsSkipped.Inc()
	case lib.StatusDirty:
		m.BackupDrift.Inc()
		m.TestsPassed.Inc()
	default:
		m.TestsFailed.Inc()
	}
}

// ObserveScenario records the size of a walked scenario.
func (m *Registry) ObserveScenario(totalIters uint64) {
	m.ScenarioIters.Observe(float64(totalIters))
}
