package parser

import (
	"context"
	"io"
)

// LogSource provides an iterator over input lines.
// Implementations must be safe for sequential access (not concurrent).
type LogSource interface {
	// Next returns the next line.
	// Returns io.EOF when no more lines are available.
	Next(ctx context.Context) (*LogLine, error)

	// Close releases any resources held by the source.
	Close() error
}

// Ensure io.EOF is available for callers
var _ = io.EOF
