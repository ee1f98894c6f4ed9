package jobs

import (
	"bytes"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func EncodeJob(job Job) ([]byte, error) {
	b, err := json.Marshal(job)
	return b, errors.WithStack(err)
}

func DecodeJob(b []byte) (Job, error) {
	var job Job
	if err := json.Unmarshal(b, &job); err != nil {
		return Job{}, errors.Wrap(err, "decoding job")
	}
	if _, err := ParseOpType(string(job.Type)); err != nil {
		return Job{}, err
	}
	return job, nil
}

// EncodeResults encodes a batch of results as submitted by a worker in a single stats message.
func EncodeResults(results []Result) ([]byte, error) {
	b, err := json.Marshal(results)
	return b, errors.WithStack(err)
}

// DecodeResults accepts either a batch (JSON array) or a single result object.
func DecodeResults(b []byte) ([]Result, error) {
	if trimmed := bytes.TrimLeft(b, " \t\r\n"); len(trimmed) > 0 && trimmed[0] == '{' {
		var single Result
		if err := json.Unmarshal(b, &single); err != nil {
			return nil, errors.Wrap(err, "decoding result")
		}
		return []Result{single}, nil
	}
	var results []Result
	if err := json.Unmarshal(b, &results); err != nil {
		return nil, errors.Wrap(err, "decoding result batch")
	}
	return results, nil
}
