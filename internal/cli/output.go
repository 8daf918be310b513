package cli

import (
	"encoding/json"
	"fmt"
	"io"
)

// FormatLine renders one result as "<LABEL>: <message> (<elapsed> seconds)".
// The elapsed suffix is omitted when no time was measured.
func FormatLine(cr CheckResult) string {
	line := fmt.Sprintf("%s: %s", cr.Severity.Label(), cr.Message)
	if cr.ElapsedSeconds != nil {
		line += fmt.Sprintf(" (%.4f seconds)", *cr.ElapsedSeconds)
	}
	return line
}

// FormatText writes one line per check. With more than one check each line
// names its check after the severity label.
func FormatText(w io.Writer, report *Report) {
	if len(report.Checks) == 0 {
		fmt.Fprintf(w, "%s: no checks matched\n", report.Severity.Label())
		return
	}
	if len(report.Checks) == 1 {
		fmt.Fprintln(w, FormatLine(report.Checks[0]))
		return
	}
	for _, cr := range report.Checks {
		named := cr
		named.Message = fmt.Sprintf("%s: %s", cr.Check, cr.Message)
		fmt.Fprintln(w, FormatLine(named))
	}
}

// FormatJSON writes the report as indented JSON to the writer. A single
// check is written as a bare result object.
func FormatJSON(w io.Writer, report *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if len(report.Checks) == 1 {
		return enc.Encode(report.Checks[0])
	}
	return enc.Encode(report)
}
