package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"sigs.k8s.io/controller-runtime/pkg/metrics"

	"github.com/clustergate/cloudcheck/internal/checks"
)

var (
	// CheckSeverity reports the latest severity of each check as its exit
	// code: 0 ok, 1 warning, 2 critical, 3 unknown.
	// Labels: check (check name).
	CheckSeverity = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "cloudcheck",
			Name:      "check_severity",
			Help:      "Latest severity of a check (0=ok, 1=warning, 2=critical, 3=unknown).",
		},
		[]string{"check"},
	)

	// CheckDuration is a histogram that records how long each check takes to run.
	// Labels: check (check name), severity.
	CheckDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cloudcheck",
			Name:      "check_duration_seconds",
			Help:      "Duration of check execution in seconds.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
		},
		[]string{"check", "severity"},
	)

	// CheckLastRun records when each check last completed.
	CheckLastRun = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "cloudcheck",
			Name:      "check_last_run_timestamp_seconds",
			Help:      "Unix time of the last completed run of a check.",
		},
		[]string{"check"},
	)

	// CleanupFailures counts probe runs that left a resource behind.
	CleanupFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cloudcheck",
			Name:      "cleanup_failures_total",
			Help:      "Number of lifecycle probe runs whose cleanup failed.",
		},
		[]string{"check"},
	)
)

func init() {
	metrics.Registry.MustRegister(CheckSeverity, CheckDuration, CheckLastRun, CleanupFailures)
}

// Record updates every collector from one check result.
func Record(check string, r checks.Result, now time.Time) {
	CheckSeverity.WithLabelValues(check).Set(float64(r.Severity.ExitCode()))
	CheckLastRun.WithLabelValues(check).Set(float64(now.Unix()))
	if r.Elapsed != nil {
		CheckDuration.WithLabelValues(check, r.Severity.String()).Observe(r.Elapsed.Seconds())
	}
	if r.Details["cleanup"] == "failed" {
		CleanupFailures.WithLabelValues(check).Inc()
	}
}

// WriteTextfile writes the registry in the node exporter textfile
// collector format. The file is replaced atomically.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, metrics.Registry)
}
