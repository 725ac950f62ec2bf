// Package output provides formatting for run summaries.
package output

import (
	"time"

	"github.com/ccollicutt/log2sql/pkg/pipeline"
)

// Report is the complete run summary.
type Report struct {
	// Summary provides aggregate statistics.
	Summary Summary `json:"summary"`

	// Metadata provides context about the run.
	Metadata Metadata `json:"metadata"`
}

// Summary provides aggregate statistics.
type Summary struct {
	// LinesRead is the total number of input lines examined.
	LinesRead int `json:"lines_read"`

	// Inserted is the number of lines that produced a row.
	Inserted int `json:"inserted"`

	// Skipped is the number of lines that did not.
	Skipped int `json:"skipped"`

	// Outcomes holds the line count for every outcome, including zeros.
	Outcomes map[pipeline.Outcome]int `json:"outcomes"`

	// Pruning is nil when the dedup passes did not run.
	Pruning *Pruning `json:"pruning,omitempty"`
}

// Pruning reports the dedup passes.
type Pruning struct {
	DuplicatesDeleted int64 `json:"duplicates_deleted"`
	MidpointsRan      bool  `json:"midpoints_ran"`
	MidpointsDeleted  int64 `json:"midpoints_deleted"`
}

// Metadata provides context about the run.
type Metadata struct {
	// RunID identifies the run in log output.
	RunID string `json:"run_id,omitempty"`

	// Table is the target table.
	Table string `json:"table"`

	// Database is the store file; empty when statements were printed.
	Database string `json:"database,omitempty"`

	// Sources lists the inputs that were read.
	Sources []string `json:"sources"`

	// ConvertedAt is when the run completed.
	ConvertedAt time.Time `json:"converted_at"`

	// Duration is how long the run took.
	Duration time.Duration `json:"duration"`
}

// NewReport creates a Report from a run result.
func NewReport(result *pipeline.Result, runID string) *Report {
	outcomes := make(map[pipeline.Outcome]int, len(pipeline.Outcomes))
	for _, o := range pipeline.Outcomes {
		outcomes[o] = result.Count(o)
	}

	end := result.EndTime
	if end.IsZero() {
		end = time.Now()
	}

	report := &Report{
		Summary: Summary{
			LinesRead: result.LinesRead,
			Inserted:  result.Count(pipeline.OutcomeInserted),
			Skipped:   result.Skipped(),
			Outcomes:  outcomes,
		},
		Metadata: Metadata{
			RunID:       runID,
			Table:       result.Table,
			Database:    result.Database,
			Sources:     result.Sources,
			ConvertedAt: end,
			Duration:    end.Sub(result.StartTime),
		},
	}

	if result.Dedup != nil {
		report.Summary.Pruning = &Pruning{
			DuplicatesDeleted: result.Dedup.DuplicatesDeleted,
			MidpointsRan:      result.Dedup.MidpointsRan,
			MidpointsDeleted:  result.Dedup.MidpointsDeleted,
		}
	}

	return report
}

// HasSkipped returns true if any line did not produce a row.
func (r *Report) HasSkipped() bool {
	return r.Summary.Skipped > 0
}

// Run statuses.
const (
	StatusOK     = "ok"
	StatusIssues = "issues"
)

// Status returns StatusIssues when any line was skipped, else StatusOK.
func (r *Report) Status() string {
	if r.HasSkipped() {
		return StatusIssues
	}
	return StatusOK
}

// SkippedByOutcome returns the non-zero counts of every outcome other than
// inserted.
func (r *Report) SkippedByOutcome() map[pipeline.Outcome]int {
	out := make(map[pipeline.Outcome]int)
	for o, n := range r.Summary.Outcomes {
		if o != pipeline.OutcomeInserted && n > 0 {
			out[o] = n
		}
	}
	return out
}
