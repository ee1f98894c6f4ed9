package master

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"k8s.io/utils/clock"

	"github.com/armadaproject/storebench/internal/storebench/jobs"
	"github.com/armadaproject/storebench/internal/storebench/queue"
	"github.com/armadaproject/storebench/internal/storebench/runstate"
	"github.com/armadaproject/storebench/internal/storebench/scenario"
)

// Job priorities. Lower values are reserved first, so population jobs always drain before work jobs.
const (
	PrioritySetup   uint32 = 1000
	PriorityWork    uint32 = 2000
	PriorityCleanup uint32 = 3000
)

const (
	DefaultStatsTube  = "stats_results"
	DefaultWorkPrefix = "work_"
)

// WorkTube names the tube workers of a run with the given concurrency watch.
func WorkTube(prefix string, userCount int) string {
	return fmt.Sprintf("%s%04d", prefix, userCount)
}

type Config struct {
	StatsTube     string
	WorkPrefix    string
	SetupTimeout  time.Duration
	ResultTimeout time.Duration
	// Window caps the number of work jobs in flight. Zero means four per user.
	Window           int
	Cleanup          bool
	DeleteContainers bool
	ProgressEvery    int
}

// ResultSink receives the raw result batches of the timed run.
type ResultSink interface {
	ProcessRawResults(raw []byte) error
}

// ErrIncompleteRun is returned when results stop arriving before the expected number was gathered.
type ErrIncompleteRun struct {
	Expected int
	Received int
}

func (e *ErrIncompleteRun) Error() string {
	return fmt.Sprintf("incomplete run: expected %d results but only %d arrived", e.Expected, e.Received)
}

type RunSummary struct {
	Queued   int
	Skipped  int
	Gathered int
	Errors   int
	Cleanup  int
	Duration time.Duration
}

// Master drives a scenario through the work queue. It is not safe for concurrent use.
type Master struct {
	queue  queue.Queue
	config Config
	clock  clock.Clock
	log    *log.Entry
}

func New(q queue.Queue, config Config) *Master {
	if config.StatsTube == "" {
		config.StatsTube = DefaultStatsTube
	}
	if config.WorkPrefix == "" {
		config.WorkPrefix = DefaultWorkPrefix
	}
	q.Watch(config.StatsTube)
	if err := q.Ignore(queue.DefaultTube); err != nil && config.StatsTube != queue.DefaultTube {
		log.WithError(err).Warn("could not stop watching the default tube")
	}
	return &Master{
		queue:  q,
		config: config,
		clock:  clock.RealClock{},
		log:    log.WithField("component", "master"),
	}
}

// DrainStatsQueue throws away results left over from an earlier run.
func (m *Master) DrainStatsQueue(ctx context.Context) (int, error) {
	drained := 0
	for {
		job, err := m.queue.Reserve(ctx, 0)
		if err == queue.ErrTimeout {
			if drained > 0 {
				m.log.Infof("discarded %d stale result batches", drained)
			}
			return drained, nil
		}
		if err != nil {
			return drained, err
		}
		if err := job.Delete(ctx); err != nil {
			return drained, err
		}
		drained++
	}
}

// GatherResults collects results from the stats tube until count have arrived or no batch arrives
// within timeout. A count of zero or less gathers until the tube goes quiet.
func (m *Master) GatherResults(ctx context.Context, count int, timeout time.Duration) ([]jobs.Result, error) {
	var results []jobs.Result
	_, err := m.gather(ctx, count, timeout, func(_ []byte, batch []jobs.Result) error {
		results = append(results, batch...)
		return nil
	})
	return results, err
}

type batchHandler func(raw []byte, batch []jobs.Result) error

func (m *Master) gather(ctx context.Context, count int, timeout time.Duration, handle batchHandler) (int, error) {
	received := 0
	for count <= 0 || received < count {
		job, err := m.queue.Reserve(ctx, timeout)
		if err == queue.ErrTimeout {
			if count > 0 {
				m.logStuckJobs(ctx, count-received)
				return received, &ErrIncompleteRun{Expected: count, Received: received}
			}
			return received, nil
		}
		if err != nil {
			return received, err
		}
		if err := job.Delete(ctx); err != nil {
			return received, err
		}
		batch, err := jobs.DecodeResults(job.Body)
		if err != nil {
			m.log.WithError(err).Warnf("skipping undecodable result batch %s", job.ID)
			continue
		}
		received += len(batch)
		if err := handle(job.Body, batch); err != nil {
			return received, err
		}
	}
	return received, nil
}

func (m *Master) put(ctx context.Context, job jobs.Job, priority uint32) error {
	payload, err := jobs.EncodeJob(job)
	if err != nil {
		return err
	}
	_, err = m.queue.Put(ctx, payload, priority)
	return err
}

func (m *Master) putAll(ctx context.Context, all []jobs.Job, priority uint32) error {
	for _, job := range all {
		if err := m.put(ctx, job, priority); err != nil {
			return err
		}
	}
	return nil
}

func (m *Master) countFailures(phase string) batchHandler {
	return func(_ []byte, batch []jobs.Result) error {
		for _, r := range batch {
			if r.Failed() {
				m.log.WithField("phase", phase).Warnf("%s %s/%s failed: %s", r.Type, r.Container, r.ObjectName, r.Exception)
			}
		}
		return nil
	}
}

// RunScenario populates the cluster, runs the timed benchmark and optionally cleans up after it.
// Only results of the timed run reach the sink.
func (m *Master) RunScenario(ctx context.Context, sc *scenario.Scenario, sink ResultSink) (RunSummary, error) {
	started := m.clock.Now()
	summary := RunSummary{}
	state := runstate.New()
	tube := WorkTube(m.config.WorkPrefix, sc.UserCount())
	m.queue.Use(tube)
	logger := m.log.WithFields(log.Fields{"scenario": sc.Name(), "tube": tube})

	if _, err := m.DrainStatsQueue(ctx); err != nil {
		return summary, errors.WithMessage(err, "draining stats queue")
	}

	containers := sc.ContainerJobs(jobs.CreateContainer)
	logger.Infof("creating %d containers", len(containers))
	if err := m.putAll(ctx, containers, PrioritySetup); err != nil {
		return summary, err
	}
	if _, err := m.gather(ctx, len(containers), m.config.SetupTimeout, m.countFailures("containers")); err != nil {
		return summary, err
	}

	initial := sc.InitialJobs()
	logger.Infof("populating %d initial objects", len(initial))
	if err := m.putAll(ctx, initial, PrioritySetup); err != nil {
		return summary, err
	}
	_, err := m.gather(ctx, len(initial), m.config.SetupTimeout, func(_ []byte, batch []jobs.Result) error {
		for _, r := range batch {
			state.HandleInitializationResult(r)
		}
		return nil
	})
	if err != nil {
		return summary, err
	}

	window := m.config.Window
	if window <= 0 {
		window = sc.UserCount() * 4
	}
	progress := newProgress(m.config.ProgressEvery, m.clock, logger)
	benchHandler := func(raw []byte, batch []jobs.Result) error {
		if err := sink.ProcessRawResults(raw); err != nil {
			return err
		}
		for _, r := range batch {
			state.HandleRunResult(r)
			progress.record(r)
			if r.Failed() {
				summary.Errors++
			}
		}
		return nil
	}

	bench := sc.BenchJobs()
	logger.Infof("running %d benchmark operations with at most %d in flight", len(bench), window)
	outstanding := 0
	for _, job := range bench {
		filled, ok := state.FillInJob(job)
		if !ok {
			summary.Skipped++
			continue
		}
		if err := m.put(ctx, filled, PriorityWork); err != nil {
			return summary, err
		}
		summary.Queued++
		outstanding++
		for outstanding >= window {
			n, err := m.gather(ctx, 1, m.config.ResultTimeout, benchHandler)
			outstanding -= n
			summary.Gathered += n
			if err != nil {
				return summary, runIncomplete(err, summary)
			}
		}
	}
	if outstanding > 0 {
		n, err := m.gather(ctx, outstanding, m.config.ResultTimeout, benchHandler)
		summary.Gathered += n
		if err != nil {
			return summary, runIncomplete(err, summary)
		}
	}
	if summary.Skipped > 0 {
		logger.Warnf("skipped %d operations with no object to target", summary.Skipped)
	}
	progress.report()

	if m.config.Cleanup {
		leftovers := state.CleanupObjectInfos()
		deletes := make([]jobs.Job, 0, len(leftovers))
		for _, o := range leftovers {
			deletes = append(deletes, jobs.Job{Type: jobs.DeleteObject, SizeStr: o.SizeStr, Container: o.Container, ObjectName: o.Name})
		}
		logger.Infof("deleting %d objects created during the run", len(deletes))
		if err := m.putAll(ctx, deletes, PriorityCleanup); err != nil {
			return summary, err
		}
		if _, err := m.gather(ctx, len(deletes), m.config.ResultTimeout, m.countFailures("cleanup")); err != nil {
			return summary, err
		}
		summary.Cleanup = len(deletes)
	}

	if m.config.DeleteContainers {
		containers := sc.ContainerJobs(jobs.DeleteContainer)
		if err := m.putAll(ctx, containers, PriorityCleanup); err != nil {
			return summary, err
		}
		if _, err := m.gather(ctx, len(containers), m.config.ResultTimeout, m.countFailures("containers")); err != nil {
			return summary, err
		}
	}

	summary.Duration = m.clock.Since(started)
	logger.WithFields(log.Fields{
		"queued":   summary.Queued,
		"skipped":  summary.Skipped,
		"gathered": summary.Gathered,
		"errors":   summary.Errors,
		"duration": summary.Duration,
	}).Info("scenario complete")
	return summary, nil
}

// logStuckJobs reports how many jobs workers are still holding when results stop arriving.
func (m *Master) logStuckJobs(ctx context.Context, missing int) {
	reserved, err := m.queue.Reserved(ctx)
	if err != nil {
		m.log.WithError(err).Warn("could not count reserved jobs")
		return
	}
	m.log.WithFields(log.Fields{
		"missing":  missing,
		"reserved": reserved,
	}).Warn("timed out waiting for results")
}

// runIncomplete restates a timed out wait in terms of the whole timed run.
func runIncomplete(err error, summary RunSummary) error {
	var incomplete *ErrIncompleteRun
	if errors.As(err, &incomplete) {
		return &ErrIncompleteRun{Expected: summary.Queued, Received: summary.Gathered}
	}
	return err
}
