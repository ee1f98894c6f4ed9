package worker

import (
	"context"
	"time"

	"k8s.io/utils/clock"
)

// Batcher groups values from a channel. A batch is emitted once maxItems have arrived or maxTimeout
// has passed since the batch was started, whichever happens first. Whatever is buffered is emitted
// when the input closes or ctx is done.
type Batcher[T any] struct {
	input      chan T
	maxItems   int
	maxTimeout time.Duration
	clock      clock.Clock
	callback   func([]T)
}

func NewBatcher[T any](input chan T, maxItems int, maxTimeout time.Duration, callback func([]T)) *Batcher[T] {
	return &Batcher[T]{
		input:      input,
		maxItems:   maxItems,
		maxTimeout: maxTimeout,
		callback:   callback,
		clock:      clock.RealClock{},
	}
}

func (b *Batcher[T]) Run(ctx context.Context) {
	var buffer []T
	flush := func() {
		if len(buffer) > 0 {
			b.callback(buffer)
			buffer = nil
		}
	}
	for {
		expire := b.clock.After(b.maxTimeout)
		for full := false; !full; {
			select {
			case <-ctx.Done():
				flush()
				return
			case value, ok := <-b.input:
				if !ok {
					flush()
					return
				}
				buffer = append(buffer, value)
				if len(buffer) >= b.maxItems {
					flush()
					full = true
				}
			case <-expire:
				if len(buffer) > 0 {
					flush()
					full = true
				} else {
					expire = b.clock.After(b.maxTimeout)
				}
			}
		}
	}
}
