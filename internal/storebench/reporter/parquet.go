package reporter

import (
	"io"

	"github.com/pkg/errors"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/armadaproject/storebench/internal/storebench/resultlog"
)

const parquetParallelism = 4

// ResultRow is the Parquet schema of an exported result.
type ResultRow struct {
	WorkerID         string  `parquet:"name=worker_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	Type             string  `parquet:"name=type, type=BYTE_ARRAY, convertedtype=UTF8"`
	SizeStr          string  `parquet:"name=size_str, type=BYTE_ARRAY, convertedtype=UTF8"`
	Container        string  `parquet:"name=container, type=BYTE_ARRAY, convertedtype=UTF8"`
	ObjectName       string  `parquet:"name=object_name, type=BYTE_ARRAY, convertedtype=UTF8"`
	ObjectSize       int64   `parquet:"name=object_size, type=INT64"`
	CompletedAt      float64 `parquet:"name=completed_at, type=DOUBLE"`
	FirstByteLatency float64 `parquet:"name=first_byte_latency, type=DOUBLE"`
	LastByteLatency  float64 `parquet:"name=last_byte_latency, type=DOUBLE"`
	Retries          int32   `parquet:"name=retries, type=INT32"`
	TransID          string  `parquet:"name=trans_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	Exception        string  `parquet:"name=exception, type=BYTE_ARRAY, convertedtype=UTF8"`
}

// ExportParquet writes one row per result in the log, including failures and records that would be
// skipped by the report. Undecodable batches are skipped.
func ExportParquet(in *resultlog.Reader, path string) (int, error) {
	file, err := local.NewLocalFileWriter(path)
	if err != nil {
		return 0, errors.Wrapf(err, "creating %s", path)
	}
	pw, err := writer.NewParquetWriter(file, new(ResultRow), parquetParallelism)
	if err != nil {
		_ = file.Close()
		return 0, errors.Wrap(err, "creating parquet writer")
	}

	rows := 0
	for {
		batch, err := in.Next()
		if err == io.EOF {
			break
		}
		var malformed *resultlog.ErrMalformedRecord
		if errors.As(err, &malformed) {
			continue
		}
		if err != nil {
			_ = file.Close()
			return rows, err
		}
		for _, r := range batch {
			row := ResultRow{
				WorkerID:    r.WorkerID,
				Type:        string(r.Type),
				SizeStr:     r.SizeStr,
				Container:   r.Container,
				ObjectName:  r.ObjectName,
				ObjectSize:  r.ObjectSize,
				CompletedAt: r.CompletedAt,
				Retries:     int32(r.Retries),
				TransID:     r.TransID,
				Exception:   r.Exception,
			}
			if r.FirstByteLatency != nil {
				row.FirstByteLatency = *r.FirstByteLatency
			}
			if r.LastByteLatency != nil {
				row.LastByteLatency = *r.LastByteLatency
			}
			if err := pw.Write(row); err != nil {
				_ = file.Close()
				return rows, errors.Wrap(err, "writing parquet row")
			}
			rows++
		}
	}

	if err := pw.WriteStop(); err != nil {
		_ = file.Close()
		return rows, errors.Wrap(err, "finishing parquet file")
	}
	return rows, errors.WithStack(file.Close())
}
