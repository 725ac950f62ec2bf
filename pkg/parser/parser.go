package parser

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// FileSource implements LogSource over files and standard input, read in
// the order given.
type FileSource struct {
	paths []string
	stdin io.Reader

	currentFile    *os.File
	currentRelease func() error
	currentScanner *bufio.Scanner
	currentSource  string
	currentLine    int
	fileIndex      int
}

// SourceOption configures a FileSource.
type SourceOption func(*FileSource)

// WithStdin sets the reader used for the "-" path.
func WithStdin(r io.Reader) SourceOption {
	return func(s *FileSource) {
		s.stdin = r
	}
}

// NewFileSource creates a LogSource that reads the given paths in order.
// The path "-" reads standard input. Compressed files are decompressed
// according to their extension.
func NewFileSource(paths []string, opts ...SourceOption) *FileSource {
	s := &FileSource{
		paths:     paths,
		stdin:     os.Stdin,
		fileIndex: -1,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Next returns the next line.
// Returns io.EOF when all sources have been exhausted.
func (s *FileSource) Next(ctx context.Context) (*LogLine, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if s.currentScanner == nil {
			if err := s.openNext(); err != nil {
				return nil, err
			}
		}

		if s.currentScanner.Scan() {
			s.currentLine++
			return &LogLine{
				Content: strings.TrimSuffix(s.currentScanner.Text(), "\r"),
				Source:  s.currentSource,
				LineNum: s.currentLine,
			}, nil
		}

		if err := s.currentScanner.Err(); err != nil {
			return nil, fmt.Errorf("reading %s: %w", s.currentSource, err)
		}

		// Current source exhausted, try next
		if err := s.closeCurrent(); err != nil {
			return nil, err
		}
	}
}

// Source returns the path currently being read.
func (s *FileSource) Source() string {
	return s.currentSource
}

// Close releases resources.
func (s *FileSource) Close() error {
	return s.closeCurrent()
}

func (s *FileSource) openNext() error {
	s.fileIndex++
	if s.fileIndex >= len(s.paths) {
		return io.EOF
	}

	path := s.paths[s.fileIndex]
	var (
		raw         io.Reader
		compression = CompressionNone
	)

	if path == StdinName {
		raw = s.stdin
	} else {
		f, err := os.Open(path) // #nosec G304 -- user-provided paths are expected
		if err != nil {
			return fmt.Errorf("opening input %s: %w", path, err)
		}
		s.currentFile = f
		raw = f
		compression = DetectCompression(path)
	}

	r, release, err := newReader(raw, compression)
	if err != nil {
		closeErr := s.closeCurrent()
		return errors.Join(fmt.Errorf("opening input %s: %w", path, err), closeErr)
	}

	s.currentRelease = release
	s.currentScanner = bufio.NewScanner(r)
	s.currentScanner.Buffer(make([]byte, 0, 64*1024), 1024*1024) // 1MB max line size
	s.currentSource = path
	s.currentLine = 0

	return nil
}

func (s *FileSource) closeCurrent() error {
	var errs []error
	if s.currentRelease != nil {
		errs = append(errs, s.currentRelease())
		s.currentRelease = nil
	}
	if s.currentFile != nil {
		errs = append(errs, s.currentFile.Close())
		s.currentFile = nil
	}
	s.currentScanner = nil
	return errors.Join(errs...)
}
