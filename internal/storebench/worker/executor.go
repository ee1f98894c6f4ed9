package worker

import (
	"context"
	"time"

	"github.com/avast/retry-go"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"k8s.io/utils/clock"

	"github.com/armadaproject/storebench/internal/storebench/jobs"
)

var (
	ErrNoObjectName       = errors.New("no object name supplied")
	errUnsupportedJobType = errors.New("unsupported job type")
)

type RetryConfig struct {
	MaxRetries uint
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// Executor runs jobs against an object store. Failures are reported in the Result, never returned.
type Executor struct {
	store    ObjectStore
	workerID string
	retry    RetryConfig
	metrics  *Metrics
	clock    clock.Clock
}

func NewExecutor(store ObjectStore, workerID string, retry RetryConfig, metrics *Metrics) *Executor {
	return &Executor{
		store:    store,
		workerID: workerID,
		retry:    retry,
		metrics:  metrics,
		clock:    clock.RealClock{},
	}
}

func (e *Executor) Execute(ctx context.Context, job jobs.Job) jobs.Result {
	if job.Type.NeedsTarget() && job.ObjectName == "" {
		e.metrics.RecordOperation(string(job.Type), true, 0)
		return jobs.NewFailure(e.workerID, job, e.clock.Now(), ErrNoObjectName, 0)
	}

	attempts := 0
	var op OpResult
	err := retry.Do(
		func() error {
			attempts++
			var err error
			op, err = e.perform(ctx, job)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(e.retry.MaxRetries+1),
		retry.Delay(e.retry.BaseDelay),
		retry.MaxDelay(e.retry.MaxDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return !errors.Is(err, errUnsupportedJobType)
		}),
		retry.OnRetry(func(n uint, err error) {
			log.WithError(err).Debugf("attempt %d of %s failed", n+1, job)
		}),
	)
	retries := attempts - 1
	if retries < 0 {
		retries = 0
	}
	for i := 0; i < retries; i++ {
		e.metrics.RecordRetry(string(job.Type))
	}
	if err != nil {
		e.metrics.RecordOperation(string(job.Type), true, 0)
		return jobs.NewFailure(e.workerID, job, e.clock.Now(), err, retries)
	}
	e.metrics.RecordOperation(string(job.Type), false, op.LastByte.Seconds())
	if job.ObjectSize == 0 {
		job.ObjectSize = op.Bytes
	}
	return jobs.NewSuccess(e.workerID, job, e.clock.Now(), op.FirstByte, op.LastByte, op.TransID, retries)
}

func (e *Executor) perform(ctx context.Context, job jobs.Job) (OpResult, error) {
	switch job.Type {
	case jobs.CreateObject, jobs.UpdateObject:
		return e.store.PutObject(ctx, job.Container, job.ObjectName, job.ObjectSize)
	case jobs.ReadObject:
		return e.store.GetObject(ctx, job.Container, job.ObjectName)
	case jobs.DeleteObject:
		return e.store.DeleteObject(ctx, job.Container, job.ObjectName)
	case jobs.CreateContainer:
		return e.store.CreateContainer(ctx, job.Container)
	case jobs.DeleteContainer:
		return e.store.DeleteContainer(ctx, job.Container)
	}
	return OpResult{}, errors.Wrap(errUnsupportedJobType, string(job.Type))
}
