package master

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis"
	"github.com/go-redis/redis"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/armadaproject/storebench/internal/storebench/jobs"
	"github.com/armadaproject/storebench/internal/storebench/queue"
	"github.com/armadaproject/storebench/internal/storebench/scenario"
)

const testPrefix = "test:"

func withRedis(t *testing.T, action func(client *redis.Client)) {
	db, err := miniredis.Run()
	require.NoError(t, err)
	defer db.Close()

	client := redis.NewClient(&redis.Options{Addr: db.Addr()})
	defer client.Close()
	action(client)
}

func newMaster(client *redis.Client, config Config) *Master {
	return New(queue.NewRedisQueue(client, testPrefix), config)
}

func putResults(t *testing.T, client *redis.Client, results ...jobs.Result) {
	q := queue.NewRedisQueue(client, testPrefix)
	q.Use(DefaultStatsTube)
	payload, err := jobs.EncodeResults(results)
	require.NoError(t, err)
	_, err = q.Put(context.Background(), payload, 0)
	require.NoError(t, err)
}

func success(name string) jobs.Result {
	job := jobs.Job{Type: jobs.CreateObject, SizeStr: "tiny", Container: "Picture", ObjectName: name, ObjectSize: 99000}
	return jobs.NewSuccess("w1", job, time.Unix(1000, 0), time.Millisecond, 2*time.Millisecond, "tx-"+name, 0)
}

// echoWorker answers every job on tube with a successful result until ctx is done.
func echoWorker(ctx context.Context, client *redis.Client, tube string) {
	q := queue.NewRedisQueue(client, testPrefix)
	q.Watch(tube)
	_ = q.Ignore(queue.DefaultTube)
	q.Use(DefaultStatsTube)
	for {
		reserved, err := q.Reserve(ctx, 20*time.Millisecond)
		if err == queue.ErrTimeout {
			continue
		}
		if err != nil {
			return
		}
		job, err := jobs.DecodeJob(reserved.Body)
		if err != nil {
			return
		}
		result := jobs.NewSuccess("echo", job, time.Now(), time.Millisecond, 2*time.Millisecond, "tx-"+reserved.ID, 0)
		payload, err := jobs.EncodeResults([]jobs.Result{result})
		if err != nil {
			return
		}
		if _, err := q.Put(ctx, payload, 0); err != nil {
			return
		}
		if err := reserved.Delete(ctx); err != nil {
			return
		}
	}
}

type recordingSink struct {
	batches [][]byte
	results int
}

func (s *recordingSink) ProcessRawResults(raw []byte) error {
	batch, err := jobs.DecodeResults(raw)
	if err != nil {
		return err
	}
	s.batches = append(s.batches, raw)
	s.results += len(batch)
	return nil
}

func TestWorkTube(t *testing.T) {
	assert.Equal(t, "work_0008", WorkTube(DefaultWorkPrefix, 8))
	assert.Equal(t, "bench-1000", WorkTube("bench-", 1000))
}

func TestDrainStatsQueue(t *testing.T) {
	withRedis(t, func(client *redis.Client) {
		putResults(t, client, success("a"))
		putResults(t, client, success("b"), success("c"))
		m := newMaster(client, Config{})

		drained, err := m.DrainStatsQueue(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 2, drained)

		results, err := m.GatherResults(context.Background(), 0, 10*time.Millisecond)
		assert.NoError(t, err)
		assert.Empty(t, results)
	})
}

func TestGatherResults_CountsIndividualResults(t *testing.T) {
	withRedis(t, func(client *redis.Client) {
		putResults(t, client, success("a"))
		putResults(t, client, success("b"), success("c"))
		putResults(t, client, success("d"))
		m := newMaster(client, Config{})

		results, err := m.GatherResults(context.Background(), 3, 50*time.Millisecond)
		require.NoError(t, err)
		require.Len(t, results, 3)
		assert.Equal(t, "a", results[0].ObjectName)
		assert.Equal(t, "c", results[2].ObjectName)

		rest, err := m.GatherResults(context.Background(), 0, 20*time.Millisecond)
		require.NoError(t, err)
		require.Len(t, rest, 1)
		assert.Equal(t, "d", rest[0].ObjectName)
	})
}

func TestGatherResults_Incomplete(t *testing.T) {
	withRedis(t, func(client *redis.Client) {
		putResults(t, client, success("a"))
		m := newMaster(client, Config{})

		results, err := m.GatherResults(context.Background(), 3, 30*time.Millisecond)
		assert.Len(t, results, 1)
		var incomplete *ErrIncompleteRun
		require.True(t, errors.As(err, &incomplete))
		assert.Equal(t, ErrIncompleteRun{Expected: 3, Received: 1}, *incomplete)
	})
}

func TestGatherResults_LogsJobsStillReserved(t *testing.T) {
	withRedis(t, func(client *redis.Client) {
		m := newMaster(client, Config{})
		logger, hook := logtest.NewNullLogger()
		m.log = log.NewEntry(logger)

		stuck := queue.NewRedisQueue(client, testPrefix)
		stuck.Use("work_0001")
		stuck.Watch("work_0001")
		_, err := stuck.Put(context.Background(), []byte("job"), PriorityWork)
		require.NoError(t, err)
		_, err = stuck.Reserve(context.Background(), 0)
		require.NoError(t, err)

		_, err = m.GatherResults(context.Background(), 2, 20*time.Millisecond)
		require.Error(t, err)

		entry := hook.LastEntry()
		require.NotNil(t, entry)
		assert.Equal(t, log.WarnLevel, entry.Level)
		assert.Equal(t, int64(1), entry.Data["reserved"])
		assert.Equal(t, 2, entry.Data["missing"])
	})
}

func TestGatherResults_NothingArrives(t *testing.T) {
	withRedis(t, func(client *redis.Client) {
		m := newMaster(client, Config{})
		results, err := m.GatherResults(context.Background(), 2, 20*time.Millisecond)
		assert.Empty(t, results)
		assert.Equal(t, &ErrIncompleteRun{Expected: 2, Received: 0}, err)
	})
}

func TestGatherResults_SkipsUndecodableBatches(t *testing.T) {
	withRedis(t, func(client *redis.Client) {
		q := queue.NewRedisQueue(client, testPrefix)
		q.Use(DefaultStatsTube)
		_, err := q.Put(context.Background(), []byte("not json"), 0)
		require.NoError(t, err)
		putResults(t, client, success("a"))

		results, err := newMaster(client, Config{}).GatherResults(context.Background(), 1, 50*time.Millisecond)
		require.NoError(t, err)
		assert.Len(t, results, 1)
	})
}

func TestRunScenario(t *testing.T) {
	withRedis(t, func(client *redis.Client) {
		ops := 60
		sc, err := scenario.New(scenario.Spec{
			Name:           "small run",
			UserCount:      2,
			InitialFiles:   map[string]int{"tiny": 5, "small": 5},
			CrudProfile:    []float64{3, 1, 1, 1},
			OperationCount: &ops,
			Seed:           11,
		})
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go echoWorker(ctx, client, WorkTube(DefaultWorkPrefix, 2))

		m := newMaster(client, Config{
			SetupTimeout:     5 * time.Second,
			ResultTimeout:    5 * time.Second,
			Window:           3,
			Cleanup:          true,
			DeleteContainers: true,
		})
		sink := &recordingSink{}
		summary, err := m.RunScenario(ctx, sc, sink)
		require.NoError(t, err)

		assert.Equal(t, ops, summary.Queued+summary.Skipped)
		assert.Equal(t, summary.Queued, summary.Gathered)
		assert.Equal(t, summary.Queued, sink.results)
		assert.Zero(t, summary.Errors)
		assert.Positive(t, summary.Cleanup)

		pending, err := queue.NewRedisQueue(client, testPrefix).Pending(context.Background(), WorkTube(DefaultWorkPrefix, 2))
		require.NoError(t, err)
		assert.Zero(t, pending)

		for _, raw := range sink.batches {
			batch, err := jobs.DecodeResults(raw)
			require.NoError(t, err)
			for _, r := range batch {
				assert.True(t, r.Type.IsObjectOp())
				if r.Type != jobs.CreateObject {
					assert.NotEmpty(t, r.ObjectName)
				}
			}
		}
	})
}

func TestRunScenario_NoWorkers(t *testing.T) {
	withRedis(t, func(client *redis.Client) {
		sc, err := scenario.New(scenario.Spec{
			Name:         "nobody home",
			UserCount:    1,
			InitialFiles: map[string]int{"tiny": 2},
			CrudProfile:  []float64{1, 0, 0, 0},
		})
		require.NoError(t, err)

		m := newMaster(client, Config{SetupTimeout: 20 * time.Millisecond, ResultTimeout: 20 * time.Millisecond})
		_, err = m.RunScenario(context.Background(), sc, &recordingSink{})
		var incomplete *ErrIncompleteRun
		assert.True(t, errors.As(err, &incomplete))
	})
}
