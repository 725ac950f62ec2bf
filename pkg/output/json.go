package output

import (
	"context"
	"encoding/json"
	"io"

	"github.com/ccollicutt/log2sql/pkg/pipeline"
)

// JSONFormatter formats reports as JSON.
type JSONFormatter struct {
	opts FormatOptions
}

// NewJSONFormatter creates a new JSON formatter with the given options.
func NewJSONFormatter(opts FormatOptions) *JSONFormatter {
	return &JSONFormatter{opts: opts}
}

// Name returns the format name.
func (f *JSONFormatter) Name() string {
	return "json"
}

// jsonReport is the full document: the report plus its status.
type jsonReport struct {
	Status string `json:"status"`
	*Report
}

// jsonShort is the single-line document written in quiet mode.
type jsonShort struct {
	Status    string                   `json:"status"`
	LinesRead int                      `json:"lines_read"`
	Inserted  int                      `json:"inserted"`
	Skipped   int                      `json:"skipped"`
	SkippedBy map[pipeline.Outcome]int `json:"skipped_by,omitempty"`
	Pruning   *Pruning                 `json:"pruning,omitempty"`
}

// Format renders the report as indented JSON. Quiet mode writes one compact
// line of counts instead. Outcomes with no lines are listed only when verbose.
func (f *JSONFormatter) Format(ctx context.Context, report *Report, w io.Writer) error {
	if f.opts.Quiet {
		return json.NewEncoder(w).Encode(jsonShort{
			Status:    report.Status(),
			LinesRead: report.Summary.LinesRead,
			Inserted:  report.Summary.Inserted,
			Skipped:   report.Summary.Skipped,
			SkippedBy: report.SkippedByOutcome(),
			Pruning:   report.Summary.Pruning,
		})
	}

	doc := *report
	if !f.opts.Verbose {
		doc.Summary.Outcomes = make(map[pipeline.Outcome]int, len(report.Summary.Outcomes))
		for o, n := range report.Summary.Outcomes {
			if n > 0 {
				doc.Summary.Outcomes[o] = n
			}
		}
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(jsonReport{Status: report.Status(), Report: &doc})
}
