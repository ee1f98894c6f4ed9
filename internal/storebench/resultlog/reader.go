package resultlog

import (
	"bufio"
	"encoding/binary"
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/armadaproject/storebench/internal/common/compress"
	"github.com/armadaproject/storebench/internal/storebench/jobs"
	"github.com/armadaproject/storebench/internal/storebench/scenario"
)

const maxRecordSize = 1 << 30

// ErrMalformedRecord wraps a batch record that could not be decoded. Reading may continue past it.
type ErrMalformedRecord struct {
	Index int
	Err   error
}

func (e *ErrMalformedRecord) Error() string {
	return errors.Wrapf(e.Err, "record %d", e.Index).Error()
}

func (e *ErrMalformedRecord) Unwrap() error {
	return e.Err
}

// Reader is a single pass, forward only view over a result log.
type Reader struct {
	file     *os.File
	closer   io.Closer
	in       *bufio.Reader
	scenario *scenario.Scenario
	index    int
}

// Open reads the scenario record of a result log and positions the reader at the first batch.
func Open(path string) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	in, closer, err := compress.NewReader(file, compress.IsGzipPath(path))
	if err != nil {
		_ = file.Close()
		return nil, errors.Wrapf(err, "opening %s", path)
	}
	r := &Reader{file: file, closer: closer, in: in}
	header, err := r.record()
	if err != nil {
		_ = r.Close()
		if err == io.EOF {
			return nil, errors.Errorf("%s holds no scenario record", path)
		}
		return nil, errors.Wrapf(err, "reading scenario from %s", path)
	}
	r.scenario, err = scenario.Parse(header)
	if err != nil {
		_ = r.Close()
		return nil, err
	}
	return r, nil
}

func (r *Reader) Scenario() *scenario.Scenario {
	return r.scenario
}

func (r *Reader) record() ([]byte, error) {
	size, err := binary.ReadUvarint(r.in)
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		return nil, errors.Wrap(err, "reading record length")
	}
	if size > maxRecordSize {
		return nil, errors.Errorf("record of %d bytes exceeds the %d byte limit", size, maxRecordSize)
	}
	record := make([]byte, size)
	if _, err := io.ReadFull(r.in, record); err != nil {
		return nil, errors.Wrap(err, "reading record")
	}
	r.index++
	return record, nil
}

// Next decodes the next batch. A batch that cannot be decoded is reported as *ErrMalformedRecord
// and the following call moves on to the next record.
func (r *Reader) Next() ([]jobs.Result, error) {
	raw, err := r.record()
	if err != nil {
		return nil, err
	}
	batch, err := jobs.DecodeResults(raw)
	if err != nil {
		return nil, &ErrMalformedRecord{Index: r.index - 1, Err: err}
	}
	return batch, nil
}

func (r *Reader) Close() error {
	closeErr := r.closer.Close()
	if err := r.file.Close(); err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(closeErr)
}
