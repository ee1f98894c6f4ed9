package jobs

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
)

// Result is what a worker reports after executing a Job. Successful results carry latencies;
// failed ones carry Exception instead.
type Result struct {
	WorkerID    string  `json:"worker_id"`
	Type        OpType  `json:"type"`
	SizeStr     string  `json:"size_str,omitempty"`
	Container   string  `json:"container,omitempty"`
	ObjectName  string  `json:"object_name,omitempty"`
	CompletedAt float64 `json:"completed_at"`
	Retries     int     `json:"retries"`

	ObjectSize       int64    `json:"object_size,omitempty"`
	FirstByteLatency *float64 `json:"first_byte_latency,omitempty"`
	LastByteLatency  *float64 `json:"last_byte_latency,omitempty"`
	TransID          string   `json:"trans_id,omitempty"`

	Exception string `json:"exception,omitempty"`
	Traceback string `json:"traceback,omitempty"`
}

// Sample is the success view of a Result used for latency accounting.
type Sample struct {
	FirstByteLatency float64
	LastByteLatency  float64
	CompletedAt      float64
	TransID          string
}

// Start is when the operation began, derived from its completion time and total latency.
func (s Sample) Start() float64 {
	return s.CompletedAt - s.LastByteLatency
}

func (r *Result) Failed() bool {
	return r.Exception != ""
}

// Sample returns the latency view of a successful result. ok is false for failures and for
// successes lacking latency fields.
func (r *Result) Sample() (Sample, bool) {
	if r.Failed() || r.LastByteLatency == nil {
		return Sample{}, false
	}
	s := Sample{
		LastByteLatency: *r.LastByteLatency,
		CompletedAt:     r.CompletedAt,
		TransID:         r.TransID,
	}
	if r.FirstByteLatency != nil {
		s.FirstByteLatency = *r.FirstByteLatency
	} else {
		s.FirstByteLatency = s.LastByteLatency
	}
	return s, true
}

// Validate checks that the envelope fields every consumer relies on are present.
func (r *Result) Validate() error {
	switch {
	case r.WorkerID == "":
		return errors.New("result missing worker_id")
	case r.Type == "":
		return errors.New("result missing type")
	case r.CompletedAt <= 0:
		return errors.New("result missing completed_at")
	case r.Type.IsObjectOp() && r.SizeStr == "":
		return errors.Errorf("%s result missing size_str", r.Type)
	case !r.Failed() && r.Type.IsObjectOp() && r.LastByteLatency == nil:
		return errors.Errorf("%s result missing last_byte_latency", r.Type)
	}
	if _, err := ParseOpType(string(r.Type)); err != nil {
		return err
	}
	return nil
}

func (r *Result) String() string {
	if r.Failed() {
		return fmt.Sprintf("%s %s/%s failed on %s: %s", r.Type.Label(), r.Container, r.ObjectName, r.WorkerID, r.Exception)
	}
	return fmt.Sprintf("%s %s/%s on %s", r.Type.Label(), r.Container, r.ObjectName, r.WorkerID)
}

// NewSuccess builds the result of a job that completed at completedAt.
func NewSuccess(workerID string, job Job, completedAt time.Time, firstByte, lastByte time.Duration, transID string, retries int) Result {
	fb := firstByte.Seconds()
	lb := lastByte.Seconds()
	return Result{
		WorkerID:         workerID,
		Type:             job.Type,
		SizeStr:          job.SizeStr,
		Container:        job.Container,
		ObjectName:       job.ObjectName,
		ObjectSize:       job.ObjectSize,
		CompletedAt:      UnixSeconds(completedAt),
		Retries:          retries,
		FirstByteLatency: &fb,
		LastByteLatency:  &lb,
		TransID:          transID,
	}
}

// NewFailure builds the result of a job that could not be completed.
func NewFailure(workerID string, job Job, completedAt time.Time, err error, retries int) Result {
	return Result{
		WorkerID:    workerID,
		Type:        job.Type,
		SizeStr:     job.SizeStr,
		Container:   job.Container,
		ObjectName:  job.ObjectName,
		CompletedAt: UnixSeconds(completedAt),
		Retries:     retries,
		Exception:   err.Error(),
		Traceback:   fmt.Sprintf("%+v", err),
	}
}

func UnixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
