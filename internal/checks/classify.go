package checks

import (
	"errors"
	"time"

	"github.com/clustergate/cloudcheck/internal/resource"
)

// Default timing thresholds applied by the CLI.
const (
	DefaultWarningThreshold  = 5 * time.Second
	DefaultCriticalThreshold = 10 * time.Second
)

// Thresholds holds the elapsed-time limits used to escalate a successful
// result. A zero value disables the corresponding limit.
type Thresholds struct {
	Warning  time.Duration `json:"warning,omitempty" yaml:"warning"`
	Critical time.Duration `json:"critical,omitempty" yaml:"critical"`
}

// Classify turns an operation outcome plus its elapsed time into a verdict.
//
// A non-OK outcome is returned unchanged: timing is only consulted for
// operations that succeeded, so a fast failure is never reported as OK and
// an ambiguous match is never escalated by timing alone.
func Classify(outcome Severity, elapsed time.Duration, th Thresholds) Severity {
	if outcome != SeverityOK {
		return outcome
	}
	if th.Critical > 0 && elapsed >= th.Critical {
		return SeverityCritical
	}
	if th.Warning > 0 && elapsed >= th.Warning {
		return SeverityWarning
	}
	return SeverityOK
}

// SeverityForError maps an operation error to the severity it carries when
// it ends a check: nil is OK, an ambiguous name match is a warning, anything
// else is critical.
func SeverityForError(err error) Severity {
	if err == nil {
		return SeverityOK
	}
	var ambiguous *resource.AmbiguousError
	if errors.As(err, &ambiguous) {
		return SeverityWarning
	}
	return SeverityCritical
}
