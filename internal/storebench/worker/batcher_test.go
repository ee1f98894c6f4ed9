package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	testclock "k8s.io/utils/clock/testing"
)

const (
	defaultMaxItems   = 3
	defaultMaxTimeout = 5 * time.Second
)

type collector struct {
	mu      sync.Mutex
	batches [][]int
}

func (c *collector) add(batch []int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.batches = append(c.batches, batch)
}

func (c *collector) get() [][]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]int{}, c.batches...)
}

func TestBatcher_MaxItems(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	input := make(chan int)
	output := &collector{}
	batcher := NewBatcher(input, defaultMaxItems, defaultMaxTimeout, output.add)
	batcher.clock = testclock.NewFakeClock(time.Now())
	go batcher.Run(ctx)

	for i := 1; i <= 6; i++ {
		input <- i
	}
	assert.Eventually(t, func() bool { return len(output.get()) == 2 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, [][]int{{1, 2, 3}, {4, 5, 6}}, output.get())
}

func TestBatcher_Timeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	fakeClock := testclock.NewFakeClock(time.Now())
	input := make(chan int)
	output := &collector{}
	batcher := NewBatcher(input, defaultMaxItems, defaultMaxTimeout, output.add)
	batcher.clock = fakeClock
	go batcher.Run(ctx)

	input <- 1
	input <- 2
	assert.Eventually(t, fakeClock.HasWaiters, time.Second, time.Millisecond)
	fakeClock.Step(defaultMaxTimeout)
	assert.Eventually(t, func() bool { return len(output.get()) == 1 }, time.Second, 10*time.Millisecond)

	input <- 3
	assert.Eventually(t, fakeClock.HasWaiters, time.Second, time.Millisecond)
	fakeClock.Step(defaultMaxTimeout)
	assert.Eventually(t, func() bool { return len(output.get()) == 2 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, [][]int{{1, 2}, {3}}, output.get())
}

func TestBatcher_EmptyTimeoutEmitsNothing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	fakeClock := testclock.NewFakeClock(time.Now())
	input := make(chan int)
	output := &collector{}
	batcher := NewBatcher(input, defaultMaxItems, defaultMaxTimeout, output.add)
	batcher.clock = fakeClock
	done := make(chan struct{})
	go func() {
		batcher.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, fakeClock.HasWaiters, time.Second, time.Millisecond)
	fakeClock.Step(defaultMaxTimeout)
	assert.Eventually(t, fakeClock.HasWaiters, time.Second, time.Millisecond)
	cancel()
	<-done
	assert.Empty(t, output.get())
}

func TestBatcher_FlushesOnClose(t *testing.T) {
	input := make(chan int, 2)
	output := &collector{}
	batcher := NewBatcher(input, defaultMaxItems, defaultMaxTimeout, output.add)
	batcher.clock = testclock.NewFakeClock(time.Now())

	input <- 1
	input <- 2
	close(input)
	batcher.Run(context.Background())

	assert.Equal(t, [][]int{{1, 2}}, output.get())
}
