package queue

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// DefaultTube is used and watched by a fresh connection.
const DefaultTube = "default"

// MaxPriority is the exclusive upper bound of job priorities.
const MaxPriority = 1 << 20

var ErrTimeout = errors.New("timed out waiting for a job")

// Queue is a priority work queue split into named tubes. Lower priority values are reserved first and
// jobs of equal priority come out in the order they were put.
type Queue interface {
	// Use selects the tube Put writes to.
	Use(tube string)
	// Watch adds a tube to the set Reserve reads from.
	Watch(tube string)
	// Ignore removes a tube from the watch set. The last watched tube cannot be ignored.
	Ignore(tube string) error
	Put(ctx context.Context, payload []byte, priority uint32) (string, error)
	// Reserve waits up to timeout for a job on any watched tube. A zero timeout polls once.
	Reserve(ctx context.Context, timeout time.Duration) (*Job, error)
	Pending(ctx context.Context, tube string) (int64, error)
	// Reserved counts jobs handed out and neither deleted nor released.
	Reserved(ctx context.Context) (int64, error)
	Close() error
}

type jobOwner interface {
	delete(ctx context.Context, job *Job) error
	release(ctx context.Context, job *Job, priority uint32) error
}

// Job is a reserved job. It must be deleted or released.
type Job struct {
	ID   string
	Tube string
	Body []byte

	owner jobOwner
}

func (j *Job) Delete(ctx context.Context) error {
	return j.owner.delete(ctx, j)
}

// Release puts the job back on its tube with the given priority.
func (j *Job) Release(ctx context.Context, priority uint32) error {
	return j.owner.release(ctx, j, priority)
}

func checkPriority(priority uint32) error {
	if priority >= MaxPriority {
		return errors.Errorf("priority %d is out of range, must be below %d", priority, MaxPriority)
	}
	return nil
}
