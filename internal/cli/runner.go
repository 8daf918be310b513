package cli

import (
	"context"
	"fmt"
	"sort"
	"time"

	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/clustergate/cloudcheck/internal/checks"
	"github.com/clustergate/cloudcheck/internal/metrics"
)

// CheckResult holds a single check's outcome.
type CheckResult struct {
	Check          string            `json:"check"`
	Severity       checks.Severity   `json:"severity"`
	Message        string            `json:"message"`
	ElapsedSeconds *float64          `json:"elapsedSeconds,omitempty"`
	Details        map[string]string `json:"details,omitempty"`
}

// Report holds the aggregate result of running checks.
type Report struct {
	// Severity is the worst severity across all checks.
	Severity checks.Severity `json:"severity"`
	Total    int             `json:"total"`
	OK       int             `json:"ok"`
	Warning  int             `json:"warning"`
	Critical int             `json:"critical"`
	Unknown  int             `json:"unknown"`
	Checks   []CheckResult   `json:"checks"`
}

// ExitCode returns the process exit code for the report.
func (r *Report) ExitCode() int {
	return r.Severity.ExitCode()
}

// NewCheckResult converts a checks.Result for presentation.
func NewCheckResult(name string, r checks.Result) CheckResult {
	cr := CheckResult{
		Check:    name,
		Severity: r.Severity,
		Message:  r.Message,
		Details:  r.Details,
	}
	if r.Elapsed != nil {
		seconds := r.Elapsed.Seconds()
		cr.ElapsedSeconds = &seconds
	}
	return cr
}

// Add appends a result and updates the counters and overall severity.
func (r *Report) Add(cr CheckResult) {
	r.Checks = append(r.Checks, cr)
	r.Total++
	switch cr.Severity {
	case checks.SeverityOK:
		r.OK++
	case checks.SeverityWarning:
		r.Warning++
	case checks.SeverityCritical:
		r.Critical++
	default:
		r.Unknown++
	}
	r.Severity = checks.Worst(r.Severity, cr.Severity)
}

// RunChecks executes the given checkers one at a time and returns a Report.
// If filter is non-empty, only checks whose names are in filter are executed.
// Each result is recorded in the metrics registry.
func RunChecks(ctx context.Context, checkers []checks.Checker, filter map[string]bool) *Report {
	report := &Report{}
	logger := log.FromContext(ctx)

	// Sort checkers by name for deterministic output.
	sorted := make([]checks.Checker, len(checkers))
	copy(sorted, checkers)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Name() < sorted[j].Name()
	})

	for _, c := range sorted {
		if len(filter) > 0 && !filter[c.Name()] {
			continue
		}

		result := checks.RunSafe(ctx, c)
		metrics.Record(c.Name(), result, time.Now())
		logger.V(1).Info("Check finished", "check", c.Name(), "severity", result.Severity.String())
		report.Add(NewCheckResult(c.Name(), result))
	}

	if report.Total == 0 {
		report.Severity = checks.SeverityUnknown
	}
	return report
}

// AuthFailure is the report for credentials that could not be loaded or
// were rejected. It carries no elapsed time.
func AuthFailure(check string, err error) *Report {
	report := &Report{}
	report.Add(CheckResult{
		Check:    check,
		Severity: checks.SeverityCritical,
		Message:  fmt.Sprintf("Failed to authenticate: %v", err),
	})
	return report
}
