package doctor

import (
	"fmt"
	"io"
)

// FormatReport writes a human-readable representation of the report. Each
// result is a pass (✓), error (✗) or warning (!) line, followed by a summary
// count of issues.
func FormatReport(w io.Writer, report DiagnosticReport) {
	issueCount := 0

	for _, r := range report.Results {
		if r.Passed {
			fmt.Fprintf(w, "✓ %s: OK\n", r.Name)
			continue
		}

		marker := "✗"
		if r.Severity == SeverityWarning {
			marker = "!"
		}
		fmt.Fprintf(w, "%s %s: %s\n", marker, r.Name, r.Details)
		if r.Suggestion != "" {
			fmt.Fprintf(w, "  → %s\n", r.Suggestion)
		}
		issueCount++
	}

	if len(report.Results) > 0 {
		fmt.Fprint(w, "\n")
	}

	switch issueCount {
	case 0:
		fmt.Fprint(w, "No issues found.\n")
	case 1:
		fmt.Fprint(w, "1 issue found.\n")
	default:
		fmt.Fprintf(w, "%d issues found.\n", issueCount)
	}
}

// ExitCode returns 0 when the report has no error-severity failures (warnings
// allowed), and 1 otherwise.
func ExitCode(report DiagnosticReport) int {
	if report.HasErrors() {
		return 1
	}
	return 0
}
