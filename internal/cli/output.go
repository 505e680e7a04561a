// Package cli formats match results for the urlmatch command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/hyperjump/urlmatch/internal/models"
	"github.com/hyperjump/urlmatch/pkg/utils"
)

// OutputFormat is the format for check output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputCompact prints one line per match and per unmatched term.
	OutputCompact OutputFormat = "compact"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat maps a flag value to an OutputFormat.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case OutputText, OutputCompact, OutputJSON:
		return OutputFormat(s), nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text, compact, or json", s)
	}
}

// CheckReport is what the check command prints.
type CheckReport struct {
	File           string             `json:"file"`
	Column         string             `json:"column"`
	ReferenceCount int                `json:"reference_count"`
	ValidTermCount int                `json:"valid_term_count"`
	Evaluation     *models.Evaluation `json:"evaluation"`
}

// referenceWidth bounds how much of a long reference the text format shows.
const referenceWidth = 120

// WriteReport writes report to w in the given format.
func WriteReport(w io.Writer, report *CheckReport, format OutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	case OutputCompact:
		writeReportCompact(w, report)
		return nil
	default:
		writeReportText(w, report)
		return nil
	}
}

func writeReportText(w io.Writer, report *CheckReport) {
	eval := report.Evaluation
	fmt.Fprintf(w, "\n%s [%s]: %d URLs in file, %d URLs entered\n",
		report.File, report.Column, report.ReferenceCount, report.ValidTermCount)
	fmt.Fprintf(w, "Exact matches: %d | Partial matches: %d | Not found: %d\n\n",
		eval.ExactCount, eval.PartialCount, len(eval.Unmatched))
	for _, result := range eval.Results {
		if !result.Matched() {
			continue
		}
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "%s (%d)\n", result.Term, len(result.Matches))
		for _, m := range result.Matches {
			fmt.Fprintf(w, "  %-13s %s\n", m.Kind.Label()+":", utils.Truncate(m.Reference, referenceWidth))
		}
	}
	if len(eval.Unmatched) > 0 {
		fmt.Fprintln(w, "--- Not found in file ---")
		for i, term := range eval.Unmatched {
			fmt.Fprintf(w, "%d. %s\n", i+1, term)
		}
	}
}

func writeReportCompact(w io.Writer, report *CheckReport) {
	for _, m := range report.Evaluation.Matches {
		fmt.Fprintf(w, "%s\t%s\t%s\n", m.Kind, m.Term, m.Reference)
	}
	for _, term := range report.Evaluation.Unmatched {
		fmt.Fprintf(w, "none\t%s\t\n", term)
	}
}
