// Package parser reads log lines from files and standard input.
package parser

// StdinName is the input path that selects standard input.
const StdinName = "-"

// LogLine is one raw line of input.
type LogLine struct {
	// Content is the line text without the trailing newline.
	Content string

	// Source is the file path this line came from, or "-" for stdin.
	Source string

	// LineNum is the 1-based line number in the source.
	LineNum int
}
