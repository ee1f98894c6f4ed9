package worker

import (
	"context"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/armadaproject/storebench/internal/storebench/jobs"
	"github.com/armadaproject/storebench/internal/storebench/queue"
)

// ResultPriority is used for every result batch put on the stats tube.
const ResultPriority uint32 = 0

type Config struct {
	Concurrency    int
	WorkTube       string
	StatsTube      string
	BatchSize      int
	BatchTimeout   time.Duration
	ReserveTimeout time.Duration
}

// Worker executes jobs from the work tube and reports results to the stats tube in batches.
type Worker struct {
	queue    queue.Queue
	executor *Executor
	config   Config
	metrics  *Metrics
	log      *log.Entry
}

func New(q queue.Queue, executor *Executor, config Config, metrics *Metrics) *Worker {
	if config.Concurrency < 1 {
		config.Concurrency = 1
	}
	if config.BatchSize < 1 {
		config.BatchSize = 1
	}
	if config.BatchTimeout <= 0 {
		config.BatchTimeout = time.Second
	}
	if config.ReserveTimeout <= 0 {
		config.ReserveTimeout = time.Second
	}
	q.Watch(config.WorkTube)
	if config.WorkTube != queue.DefaultTube {
		if err := q.Ignore(queue.DefaultTube); err != nil {
			log.WithError(err).Warn("could not stop watching the default tube")
		}
	}
	q.Use(config.StatsTube)
	return &Worker{
		queue:    q,
		executor: executor,
		config:   config,
		metrics:  metrics,
		log:      log.WithFields(log.Fields{"component": "worker", "worker": executor.workerID, "tube": config.WorkTube}),
	}
}

// Run executes jobs until ctx is cancelled, then flushes any results not yet reported.
func (w *Worker) Run(ctx context.Context) error {
	results := make(chan jobs.Result, w.config.BatchSize)
	batcher := NewBatcher(results, w.config.BatchSize, w.config.BatchTimeout, w.submit)
	batcherDone := make(chan struct{})
	go func() {
		defer close(batcherDone)
		batcher.Run(context.Background())
	}()

	w.log.Infof("starting %d executors", w.config.Concurrency)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < w.config.Concurrency; i++ {
		g.Go(func() error {
			return w.consume(gctx, results)
		})
	}
	err := g.Wait()
	close(results)
	<-batcherDone
	w.log.Info("stopped")
	return err
}

func (w *Worker) consume(ctx context.Context, results chan<- jobs.Result) error {
	for {
		reserved, err := w.queue.Reserve(ctx, w.config.ReserveTimeout)
		if ctx.Err() != nil {
			if reserved != nil {
				// Hand the job back for another worker.
				_ = reserved.Release(context.Background(), 0)
			}
			return nil
		}
		if err == queue.ErrTimeout {
			continue
		}
		if err != nil {
			return errors.WithMessage(err, "reserving job")
		}

		job, err := jobs.DecodeJob(reserved.Body)
		if err != nil {
			w.log.WithError(err).Errorf("discarding undecodable job %s", reserved.ID)
			if err := reserved.Delete(ctx); err != nil {
				return err
			}
			continue
		}

		w.metrics.inflight.Inc()
		result := w.executor.Execute(ctx, job)
		w.metrics.inflight.Dec()

		if err := reserved.Delete(context.Background()); err != nil {
			return errors.WithMessagef(err, "deleting job %s", reserved.ID)
		}
		results <- result
	}
}

func (w *Worker) submit(batch []jobs.Result) {
	payload, err := jobs.EncodeResults(batch)
	if err == nil {
		_, err = w.queue.Put(context.Background(), payload, ResultPriority)
	}
	w.metrics.RecordSubmission(err)
	if err != nil {
		w.log.WithError(err).Errorf("failed to report %d results", len(batch))
	}
}
