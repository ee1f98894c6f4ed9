package worker

import (
	"context"
	"io"
	"time"

	"github.com/pkg/errors"
)

var (
	ErrNoSuchContainer = errors.New("no such container")
	ErrNoSuchObject    = errors.New("no such object")
)

// OpResult is the timing of one storage operation. FirstByte is when the response started to
// arrive and LastByte when it was fully consumed.
type OpResult struct {
	FirstByte time.Duration
	LastByte  time.Duration
	TransID   string
	Bytes     int64
}

// ObjectStore is the storage cluster under test.
type ObjectStore interface {
	CreateContainer(ctx context.Context, container string) (OpResult, error)
	DeleteContainer(ctx context.Context, container string) (OpResult, error)
	PutObject(ctx context.Context, container, name string, size int64) (OpResult, error)
	GetObject(ctx context.Context, container, name string) (OpResult, error)
	DeleteObject(ctx context.Context, container, name string) (OpResult, error)
}

const patternAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// patternReader yields size bytes of a repeating, zero free pattern.
type patternReader struct {
	remaining int64
	offset    int
}

func newPatternReader(size int64) *patternReader {
	return &patternReader{remaining: size}
}

func (r *patternReader) Read(p []byte) (int, error) {
	if r.remaining <= 0 {
		return 0, io.EOF
	}
	n := len(p)
	if int64(n) > r.remaining {
		n = int(r.remaining)
	}
	for i := 0; i < n; i++ {
		p[i] = patternAlphabet[r.offset]
		r.offset = (r.offset + 1) % len(patternAlphabet)
	}
	r.remaining -= int64(n)
	return n, nil
}
