package compress

import (
	"bufio"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
)

const gzipSuffix = ".gz"

// IsGzipPath reports whether a file should be treated as gzip compressed based on its name.
func IsGzipPath(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), gzipSuffix)
}

// WriteCloser is a compressing (or pass-through) writer layered over an underlying writer.
// Close flushes and closes the compression stream but never the underlying writer.
type WriteCloser interface {
	io.WriteCloser
	Flush() error
}

// NoOpWriter passes writes straight through.  Useful for uncompressed output.
type NoOpWriter struct {
	io.Writer
}

func (w *NoOpWriter) Flush() error {
	return nil
}

func (w *NoOpWriter) Close() error {
	return nil
}

// NewWriter wraps w in a gzip stream when compressed is set.
func NewWriter(w io.Writer, compressed bool) (WriteCloser, error) {
	if !compressed {
		return &NoOpWriter{Writer: w}, nil
	}
	gw, err := gzip.NewWriterLevel(w, gzip.DefaultCompression)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return gw, nil
}

// NewReader returns a buffered reader over r, transparently decompressing when compressed is set.
// The returned closer releases the decompressor only.
func NewReader(r io.Reader, compressed bool) (*bufio.Reader, io.Closer, error) {
	if !compressed {
		return bufio.NewReader(r), io.NopCloser(nil), nil
	}
	gr, err := gzip.NewReader(r)
	if err != nil {
		return nil, nil, errors.WithStack(err)
	}
	return bufio.NewReader(gr), gr, nil
}
