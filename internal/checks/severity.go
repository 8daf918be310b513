package checks

import (
	"fmt"
	"strings"
)

// Severity is the verdict a check reports to the monitoring system.
// Values are ordered by escalation: OK < Warning < Critical. Unknown is
// reserved for internal errors that cannot be classified.
type Severity int

const (
	// SeverityOK indicates the check passed within its time budget.
	SeverityOK Severity = iota

	// SeverityWarning indicates a degraded result, e.g. a slow response or an
	// ambiguous name match.
	SeverityWarning

	// SeverityCritical indicates the check failed.
	SeverityCritical

	// SeverityUnknown indicates the check could not produce a verdict.
	SeverityUnknown
)

var severityNames = map[Severity]string{
	SeverityOK:       "ok",
	SeverityWarning:  "warning",
	SeverityCritical: "critical",
	SeverityUnknown:  "unknown",
}

var severityLabels = map[Severity]string{
	SeverityOK:       "OKAY",
	SeverityWarning:  "WARNING",
	SeverityCritical: "CRITICAL",
	SeverityUnknown:  "UNKNOWN",
}

func (s Severity) String() string {
	if name, ok := severityNames[s]; ok {
		return name
	}
	return severityNames[SeverityUnknown]
}

// Label returns the upper-case prefix used on the check output line.
func (s Severity) Label() string {
	if label, ok := severityLabels[s]; ok {
		return label
	}
	return severityLabels[SeverityUnknown]
}

// ExitCode maps the severity to the monitoring plugin exit code convention.
func (s Severity) ExitCode() int {
	switch s {
	case SeverityOK:
		return 0
	case SeverityWarning:
		return 1
	case SeverityCritical:
		return 2
	default:
		return 3
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Severity) UnmarshalText(text []byte) error {
	parsed, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseSeverity accepts either the lower-case name or the output label.
func ParseSeverity(s string) (Severity, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if v == "okay" {
		return SeverityOK, nil
	}
	for sev, name := range severityNames {
		if name == v {
			return sev, nil
		}
	}
	return SeverityUnknown, fmt.Errorf("unknown severity %q", s)
}

// Worst returns the more severe of a and b. Unknown outranks Critical so
// that an unclassifiable result is never hidden behind a known one.
func Worst(a, b Severity) Severity {
	if b > a {
		return b
	}
	return a
}
