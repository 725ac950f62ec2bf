package pipeline

import (
	"context"

	"github.com/ccollicutt/log2sql/pkg/sqlgen"
)

// Sink receives generated statements. A *store.Writer executes them; a
// PrintSink writes them out as text.
type Sink interface {
	// Write handles one statement. Row errors (see errdefs.IsRowError) only
	// discard the row; any other error aborts the run.
	Write(ctx context.Context, stmt *sqlgen.Statement) error
}
