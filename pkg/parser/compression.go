package parser

import (
	"compress/bzip2"
	"compress/gzip"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Compression is the compression format of an input file.
type Compression int

const (
	CompressionNone Compression = iota
	CompressionGZ
	CompressionBZ2
	CompressionXZ
	CompressionZSTD
)

// DetectCompression picks the compression format from the file extension.
func DetectCompression(path string) Compression {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz":
		return CompressionGZ
	case ".bz2":
		return CompressionBZ2
	case ".xz":
		return CompressionXZ
	case ".zst":
		return CompressionZSTD
	default:
		return CompressionNone
	}
}

// newReader wraps r with a decompressor for c and with byte-order-mark
// handling. The returned function releases the decompressor.
func newReader(r io.Reader, c Compression) (io.Reader, func() error, error) {
	var (
		dec     io.Reader
		release = func() error { return nil }
	)

	switch c {
	case CompressionNone:
		dec = r
	case CompressionGZ:
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("creating gzip reader: %w", err)
		}
		dec, release = gz, gz.Close
	case CompressionBZ2:
		dec = bzip2.NewReader(r)
	case CompressionXZ:
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("creating xz reader: %w", err)
		}
		dec = xr
	case CompressionZSTD:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("creating zstd reader: %w", err)
		}
		dec = zr
		release = func() error {
			zr.Close()
			return nil
		}
	default:
		return nil, nil, fmt.Errorf("unsupported compression %d", c)
	}

	// A UTF-8 or UTF-16 byte-order mark selects the decoder; anything else
	// passes through untouched.
	return transform.NewReader(dec, unicode.BOMOverride(transform.Nop)), release, nil
}
