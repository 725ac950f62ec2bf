package output

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ccollicutt/log2sql/pkg/pipeline"
)

// TextFormatter formats reports as human-readable text.
type TextFormatter struct {
	opts FormatOptions
}

// NewTextFormatter creates a new text formatter with the given options.
func NewTextFormatter(opts FormatOptions) *TextFormatter {
	return &TextFormatter{opts: opts}
}

// Name returns the format name.
func (f *TextFormatter) Name() string {
	return "text"
}

// Format renders the report as text.
func (f *TextFormatter) Format(ctx context.Context, report *Report, w io.Writer) error {
	if f.opts.Quiet {
		return f.formatQuiet(report, w)
	}
	return f.formatFull(report, w)
}

func (f *TextFormatter) formatQuiet(report *Report, w io.Writer) error {
	_, err := fmt.Fprintf(w, "log2sql: %d lines read, %d inserted, %d skipped\n",
		report.Summary.LinesRead,
		report.Summary.Inserted,
		report.Summary.Skipped)
	return err
}

func (f *TextFormatter) formatFull(report *Report, w io.Writer) error {
	var b strings.Builder

	// Header
	fmt.Fprintln(&b, "=== log2sql Run Summary ===")
	fmt.Fprintln(&b)

	if report.Metadata.Database != "" {
		fmt.Fprintf(&b, "Table: %s in %s\n", report.Metadata.Table, report.Metadata.Database)
	} else {
		fmt.Fprintf(&b, "Table: %s (statements printed)\n", report.Metadata.Table)
	}
	if len(report.Metadata.Sources) > 0 {
		fmt.Fprintf(&b, "Sources: %s\n", strings.Join(report.Metadata.Sources, ", "))
	}
	fmt.Fprintln(&b)

	// Per-outcome counts
	for _, o := range pipeline.Outcomes {
		n := report.Summary.Outcomes[o]
		if n == 0 && !f.opts.Verbose {
			continue
		}
		fmt.Fprintf(&b, "  %-16s %d\n", o, n)
	}

	if p := report.Summary.Pruning; p != nil {
		fmt.Fprintf(&b, "  %-16s %d\n", "duplicates", p.DuplicatesDeleted)
		if p.MidpointsRan {
			fmt.Fprintf(&b, "  %-16s %d\n", "midpoints", p.MidpointsDeleted)
		}
	}

	// Summary
	fmt.Fprintln(&b, "---")
	fmt.Fprintf(&b, "Summary: %d lines read, %d inserted, %d skipped\n",
		report.Summary.LinesRead,
		report.Summary.Inserted,
		report.Summary.Skipped)

	if f.opts.Verbose {
		fmt.Fprintf(&b, "Duration: %s\n", report.Metadata.Duration.Round(1e6))
		if report.Metadata.RunID != "" {
			fmt.Fprintf(&b, "Run: %s\n", report.Metadata.RunID)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}
