package pipeline

import (
	"context"
	"fmt"
	"io"

	"github.com/ccollicutt/log2sql/pkg/sqlgen"
)

// PrintSink writes each statement as one ";"-terminated line.
type PrintSink struct {
	w io.Writer
}

// NewPrintSink creates a sink that prints to w.
func NewPrintSink(w io.Writer) *PrintSink {
	return &PrintSink{w: w}
}

// Write prints the statement with its values inlined.
func (p *PrintSink) Write(_ context.Context, stmt *sqlgen.Statement) error {
	if _, err := fmt.Fprintf(p.w, "%s;\n", stmt.String()); err != nil {
		return fmt.Errorf("writing statement: %w", err)
	}
	return nil
}
