package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"ctr/internal/domain"
)

const (
	MetricsNamespace = "ctr"
)

// Recorder collects run metrics in its own registry so they can be written
// as a node_exporter textfile after the run.
type Recorder struct {
	registry *prometheus.Registry

	testsTotal      *prometheus.CounterVec
	testDuration    prometheus.Histogram
	warningsTotal   prometheus.Counter
	skippedTotal    prometheus.Counter
	lastRunDuration prometheus.Gauge
	lastRunAborted  prometheus.Gauge
	lastRunTime     prometheus.Gauge
}

// NewRecorder creates a Recorder with all metrics registered
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		testsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "tests_total",
			Help:      "Count of executed tests by outcome",
		}, []string{
			"status",
		}),
		testDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: MetricsNamespace,
			Name:      "test_duration_seconds",
			Help:      "Duration of individual test invocations",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
		warningsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "discovery_warnings_total",
			Help:      "Count of methods that matched the prefix but could not run as tests",
		}),
		skippedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "tests_skipped_total",
			Help:      "Count of tests skipped because they already succeeded",
		}),
		lastRunDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: MetricsNamespace,
			Name:      "last_run_duration_seconds",
			Help:      "Duration of the last run",
		}),
		lastRunAborted: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: MetricsNamespace,
			Name:      "last_run_aborted",
			Help:      "1 if the last run stopped early",
		}),
		lastRunTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: MetricsNamespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished",
		}),
	}

	r.registry.MustRegister(
		r.testsTotal,
		r.testDuration,
		r.warningsTotal,
		r.skippedTotal,
		r.lastRunDuration,
		r.lastRunAborted,
		r.lastRunTime,
	)
	return r
}

// Registry exposes the underlying registry
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveOutcome records one executed test
func (r *Recorder) ObserveOutcome(outcome domain.Outcome) {
	r.testsTotal.WithLabelValues(outcome.Status.String()).Inc()
	r.testDuration.Observe(outcome.Duration.Seconds())
}

// ObserveWarning records one discovery warning
func (r *Recorder) ObserveWarning() {
	r.warningsTotal.Inc()
}

// ObserveRun records the totals of a finished run
func (r *Recorder) ObserveRun(summary *domain.RunSummary) {
	r.skippedTotal.Add(float64(summary.Skipped))
	r.lastRunDuration.Set(summary.Duration.Seconds())
	if summary.Aborted {
		r.lastRunAborted.Set(1)
	} else {
		r.lastRunAborted.Set(0)
	}
	r.lastRunTime.SetToCurrentTime()
}

// WriteTextfile writes all metrics in the text exposition format
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics file: %w", err)
	}
	return nil
}
