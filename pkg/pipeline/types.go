// Package pipeline drives input lines through matching, resolution and
// statement generation into a sink, then prunes the store.
package pipeline

import (
	"time"

	"github.com/ccollicutt/log2sql/pkg/dedup"
)

// Outcome classifies what happened to one input line.
type Outcome string

const (
	// OutcomeInserted means a statement was handed to the sink.
	OutcomeInserted Outcome = "inserted"

	// OutcomeNoMatch means the line did not match the template.
	OutcomeNoMatch Outcome = "no_match"

	// OutcomeFieldNotFound means a schema column had no source field.
	OutcomeFieldNotFound Outcome = "field_not_found"

	// OutcomeTypeCoercion means a value could not be converted to its column type.
	OutcomeTypeCoercion Outcome = "type_coercion"

	// OutcomeRejected means the store refused the row.
	OutcomeRejected Outcome = "rejected"
)

// Outcomes lists every outcome in reporting order.
var Outcomes = []Outcome{
	OutcomeInserted,
	OutcomeNoMatch,
	OutcomeFieldNotFound,
	OutcomeTypeCoercion,
	OutcomeRejected,
}

// Result describes a complete run.
type Result struct {
	// Sources lists the inputs that were read, in order.
	Sources []string

	// Database is the store file written to; empty when statements were printed.
	Database string

	// Table is the target table.
	Table string

	// LinesRead is the number of input lines examined.
	LinesRead int

	// Counts holds the number of lines per outcome.
	Counts map[Outcome]int

	// Dedup reports the pruning passes; nil when they did not run.
	Dedup *dedup.Result

	// StartTime is when the run began.
	StartTime time.Time

	// EndTime is when the run completed.
	EndTime time.Time
}

func newResult(table string) *Result {
	return &Result{
		Table:     table,
		Counts:    make(map[Outcome]int, len(Outcomes)),
		StartTime: time.Now(),
	}
}

// Count returns the number of lines with the given outcome.
func (r *Result) Count(o Outcome) int {
	return r.Counts[o]
}

// Skipped returns the number of lines that did not produce a row.
func (r *Result) Skipped() int {
	return r.LinesRead - r.Counts[OutcomeInserted]
}
