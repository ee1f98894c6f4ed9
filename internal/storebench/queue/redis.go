package queue

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/go-redis/redis"
	"github.com/pkg/errors"
	"golang.org/x/exp/slices"
	"k8s.io/utils/clock"
)

const (
	minPollInterval = 10 * time.Millisecond
	maxPollInterval = 250 * time.Millisecond
	priorityShift   = 1 << 32
)

// DefaultTimeToRun is how long a reservation lasts before the job goes back on its tube.
const DefaultTimeToRun = 5 * time.Minute

// reserveScript first puts every reservation whose deadline has passed back on its tube with its
// original score, then moves the lowest scored job across every watched tube into the reserved
// hash. KEYS are the tube sets followed by the reserved hash, the reservation scores hash and the
// reservation deadlines set. ARGV are the matching tube names followed by the key prefix, the
// current time and the deadline for a new reservation, both in unix milliseconds.
const reserveScript = `
local tubes = #KEYS - 3
local reserved, scores, deadlines = KEYS[tubes + 1], KEYS[tubes + 2], KEYS[tubes + 3]
local prefix, now, deadline = ARGV[tubes + 1], ARGV[tubes + 2], ARGV[tubes + 3]

for _, id in ipairs(redis.call('ZRANGEBYSCORE', deadlines, '-inf', now)) do
	local tube = redis.call('HGET', reserved, id)
	local score = redis.call('HGET', scores, id)
	if tube and score then
		redis.call('ZADD', prefix .. 'tube:' .. tube, score, id)
	end
	redis.call('HDEL', reserved, id)
	redis.call('HDEL', scores, id)
	redis.call('ZREM', deadlines, id)
end

local best, bestScore, bestTube
for i = 1, tubes do
	local head = redis.call('ZRANGE', KEYS[i], 0, 0, 'WITHSCORES')
	if head[1] then
		local score = tonumber(head[2])
		if bestScore == nil or score < tonumber(bestScore) then
			best = head[1]
			bestScore = head[2]
			bestTube = i
		end
	end
end
if not best then
	return false
end
redis.call('ZREM', KEYS[bestTube], best)
redis.call('HSET', reserved, best, ARGV[bestTube])
redis.call('HSET', scores, best, bestScore)
redis.call('ZADD', deadlines, deadline, best)
return {best, ARGV[bestTube]}
`

type RedisQueue struct {
	db     redis.UniversalClient
	prefix string
	clock  clock.Clock

	mu        sync.Mutex
	used      string
	watched   []string
	timeToRun time.Duration
}

func NewRedisQueue(db redis.UniversalClient, prefix string) *RedisQueue {
	return &RedisQueue{
		db:        db,
		prefix:    prefix,
		clock:     clock.RealClock{},
		used:      DefaultTube,
		watched:   []string{DefaultTube},
		timeToRun: DefaultTimeToRun,
	}
}

// SetTimeToRun sets how long later reservations last. A job neither deleted nor released within
// that time is handed out again.
func (q *RedisQueue) SetTimeToRun(ttr time.Duration) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.timeToRun = ttr
}

func (q *RedisQueue) tubeKey(tube string) string {
	return q.prefix + "tube:" + tube
}

func (q *RedisQueue) jobKey(id string) string {
	return q.prefix + "job:" + id
}

func (q *RedisQueue) reservedKey() string {
	return q.prefix + "reserved"
}

func (q *RedisQueue) scoresKey() string {
	return q.prefix + "reserved:score"
}

func (q *RedisQueue) deadlinesKey() string {
	return q.prefix + "reserved:deadline"
}

func (q *RedisQueue) seqKey() string {
	return q.prefix + "seq"
}

func (q *RedisQueue) Use(tube string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.used = tube
}

func (q *RedisQueue) Watch(tube string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !slices.Contains(q.watched, tube) {
		q.watched = append(q.watched, tube)
	}
}

func (q *RedisQueue) Ignore(tube string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	i := slices.Index(q.watched, tube)
	if i < 0 {
		return nil
	}
	if len(q.watched) == 1 {
		return errors.Errorf("cannot ignore %s, it is the only watched tube", tube)
	}
	q.watched = slices.Delete(q.watched, i, i+1)
	return nil
}

func (q *RedisQueue) Put(ctx context.Context, payload []byte, priority uint32) (string, error) {
	if err := checkPriority(priority); err != nil {
		return "", err
	}
	q.mu.Lock()
	tube := q.used
	q.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return "", err
	}

	seq, err := q.db.Incr(q.seqKey()).Result()
	if err != nil {
		return "", errors.WithStack(err)
	}
	id := strconv.FormatInt(seq, 10)

	pipe := q.db.TxPipeline()
	pipe.Set(q.jobKey(id), payload, 0)
	pipe.ZAdd(q.tubeKey(tube), redis.Z{Member: id, Score: score(priority, seq)})
	if _, err := pipe.Exec(); err != nil {
		return "", errors.WithStack(err)
	}
	return id, nil
}

// score orders by priority, then by insertion.
func score(priority uint32, seq int64) float64 {
	return float64(priority)*priorityShift + float64(seq%priorityShift)
}

func (q *RedisQueue) Reserve(ctx context.Context, timeout time.Duration) (*Job, error) {
	deadline := time.Now().Add(timeout)
	interval := minPollInterval
	for {
		job, err := q.tryReserve()
		if err != nil || job != nil {
			return job, err
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, ErrTimeout
		}
		if interval > remaining {
			interval = remaining
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(interval):
		}
		interval *= 2
		if interval > maxPollInterval {
			interval = maxPollInterval
		}
	}
}

func (q *RedisQueue) tryReserve() (*Job, error) {
	q.mu.Lock()
	tubes := slices.Clone(q.watched)
	ttr := q.timeToRun
	q.mu.Unlock()

	now := q.clock.Now()
	keys := make([]string, 0, len(tubes)+3)
	args := make([]interface{}, 0, len(tubes)+3)
	for _, tube := range tubes {
		keys = append(keys, q.tubeKey(tube))
		args = append(args, tube)
	}
	keys = append(keys, q.reservedKey(), q.scoresKey(), q.deadlinesKey())
	args = append(args, q.prefix, now.UnixMilli(), now.Add(ttr).UnixMilli())

	reply, err := q.db.Eval(reserveScript, keys, args...).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, errors.WithStack(err)
	}
	fields, ok := reply.([]interface{})
	if !ok || len(fields) != 2 {
		return nil, errors.Errorf("unexpected reserve reply %v", reply)
	}
	id, _ := fields[0].(string)
	tube, _ := fields[1].(string)

	body, err := q.db.Get(q.jobKey(id)).Bytes()
	if err == redis.Nil {
		// The payload went away underneath us; drop the reservation and carry on.
		pipe := q.db.TxPipeline()
		q.forget(pipe, id)
		if _, err := pipe.Exec(); err != nil {
			return nil, errors.WithStack(err)
		}
		return nil, nil
	}
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return &Job{ID: id, Tube: tube, Body: body, owner: q}, nil
}

func (q *RedisQueue) delete(ctx context.Context, job *Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	pipe := q.db.TxPipeline()
	pipe.Del(q.jobKey(job.ID))
	pipe.ZRem(q.tubeKey(job.Tube), job.ID)
	q.forget(pipe, job.ID)
	_, err := pipe.Exec()
	return errors.WithStack(err)
}

// forget drops the reservation bookkeeping for a job.
func (q *RedisQueue) forget(pipe redis.Pipeliner, id string) {
	pipe.HDel(q.reservedKey(), id)
	pipe.HDel(q.scoresKey(), id)
	pipe.ZRem(q.deadlinesKey(), id)
}

func (q *RedisQueue) release(ctx context.Context, job *Job, priority uint32) error {
	if err := checkPriority(priority); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	seq, err := q.db.Incr(q.seqKey()).Result()
	if err != nil {
		return errors.WithStack(err)
	}
	pipe := q.db.TxPipeline()
	q.forget(pipe, job.ID)
	pipe.ZAdd(q.tubeKey(job.Tube), redis.Z{Member: job.ID, Score: score(priority, seq)})
	_, err = pipe.Exec()
	return errors.WithStack(err)
}

func (q *RedisQueue) Pending(ctx context.Context, tube string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	n, err := q.db.ZCard(q.tubeKey(tube)).Result()
	return n, errors.WithStack(err)
}

// Reserved is the number of jobs handed out and neither deleted nor released. Reservations past
// their time to run count until the next reserve hands them out again.
func (q *RedisQueue) Reserved(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	n, err := q.db.HLen(q.reservedKey()).Result()
	return n, errors.WithStack(err)
}

func (q *RedisQueue) Close() error {
	return q.db.Close()
}
