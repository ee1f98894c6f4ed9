package resultlog

import (
	"bytes"
	"encoding/binary"
	"os"
	"sync"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/armadaproject/storebench/internal/common/compress"
	"github.com/armadaproject/storebench/internal/storebench/scenario"
)

// DefaultFlushThreshold is how many bytes are buffered before a batch is handed to the writer.
const DefaultFlushThreshold = 1024 * 1024

// pendingBlobs bounds how many buffers may wait for the writer goroutine.
const pendingBlobs = 8

var ErrFinalized = errors.New("result log is finalized")

// Writer appends length prefixed records to a result log. Record zero is the scenario and every
// later record is a raw result batch. File I/O happens on a single background goroutine.
type Writer struct {
	path      string
	file      *os.File
	stream    compress.WriteCloser
	threshold int

	mu        sync.Mutex
	buf       bytes.Buffer
	finalized bool

	blobs chan []byte
	done  chan struct{}

	errMu    sync.Mutex
	writeErr error
}

// Create starts a new result log at path, gzip compressed when the name ends in .gz.
func Create(path string, sc *scenario.Scenario, threshold int) (*Writer, error) {
	if threshold <= 0 {
		threshold = DefaultFlushThreshold
	}
	header, err := sc.MarshalJSON()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	stream, err := compress.NewWriter(file, compress.IsGzipPath(path))
	if err != nil {
		_ = file.Close()
		return nil, err
	}
	if _, err := stream.Write(frame(nil, header)); err != nil {
		_ = file.Close()
		return nil, errors.Wrap(err, "writing scenario record")
	}
	if err := stream.Flush(); err != nil {
		_ = file.Close()
		return nil, errors.Wrap(err, "writing scenario record")
	}

	w := &Writer{
		path:      path,
		file:      file,
		stream:    stream,
		threshold: threshold,
		blobs:     make(chan []byte, pendingBlobs),
		done:      make(chan struct{}),
	}
	go w.run()
	return w, nil
}

func frame(dst []byte, record []byte) []byte {
	var prefix [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(prefix[:], uint64(len(record)))
	dst = append(dst, prefix[:n]...)
	return append(dst, record...)
}

func (w *Writer) run() {
	defer close(w.done)
	for blob := range w.blobs {
		if w.err() != nil {
			continue
		}
		if _, err := w.stream.Write(blob); err != nil {
			w.setErr(errors.Wrapf(err, "writing %s", w.path))
			continue
		}
		if err := w.stream.Flush(); err != nil {
			w.setErr(errors.Wrapf(err, "flushing %s", w.path))
		}
	}
}

func (w *Writer) err() error {
	w.errMu.Lock()
	defer w.errMu.Unlock()
	return w.writeErr
}

func (w *Writer) setErr(err error) {
	w.errMu.Lock()
	defer w.errMu.Unlock()
	if w.writeErr == nil {
		log.WithError(err).Error("result log write failed")
		w.writeErr = err
	}
}

// ProcessRawResults buffers one raw result batch. The buffer goes to the writer once it grows past
// the flush threshold. An earlier write failure is returned here.
func (w *Writer) ProcessRawResults(raw []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.finalized {
		return ErrFinalized
	}
	if err := w.err(); err != nil {
		return err
	}
	w.buf.Write(frame(nil, raw))
	if w.buf.Len() > w.threshold {
		w.handOff()
	}
	return nil
}

func (w *Writer) handOff() {
	blob := make([]byte, w.buf.Len())
	copy(blob, w.buf.Bytes())
	w.buf.Reset()
	w.blobs <- blob
}

// Finalize writes everything buffered, waits for the writer and syncs the file to disk.
// The log cannot be written after it returns.
func (w *Writer) Finalize() error {
	w.mu.Lock()
	if w.finalized {
		w.mu.Unlock()
		return ErrFinalized
	}
	w.finalized = true
	if w.buf.Len() > 0 {
		w.handOff()
	}
	close(w.blobs)
	w.mu.Unlock()

	<-w.done
	err := w.err()
	if closeErr := w.stream.Close(); closeErr != nil && err == nil {
		err = errors.Wrapf(closeErr, "closing %s", w.path)
	}
	if syncErr := w.file.Sync(); syncErr != nil && err == nil {
		err = errors.Wrapf(syncErr, "syncing %s", w.path)
	}
	if closeErr := w.file.Close(); closeErr != nil && err == nil {
		err = errors.Wrapf(closeErr, "closing %s", w.path)
	}
	return err
}

func (w *Writer) Path() string {
	return w.path
}
