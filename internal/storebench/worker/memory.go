package worker

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// MemoryStore keeps object sizes in memory. Useful for local runs and tests.
type MemoryStore struct {
	mu         sync.Mutex
	containers map[string]map[string]int64
	// Latency is added to every operation.
	Latency time.Duration
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{containers: map[string]map[string]int64{}}
}

func (s *MemoryStore) timed(ctx context.Context, op func() (int64, error)) (OpResult, error) {
	start := time.Now()
	if s.Latency > 0 {
		select {
		case <-ctx.Done():
			return OpResult{}, ctx.Err()
		case <-time.After(s.Latency):
		}
	}
	s.mu.Lock()
	n, err := op()
	s.mu.Unlock()
	if err != nil {
		return OpResult{}, err
	}
	elapsed := time.Since(start)
	return OpResult{FirstByte: elapsed, LastByte: elapsed, TransID: uuid.NewString(), Bytes: n}, nil
}

func (s *MemoryStore) CreateContainer(ctx context.Context, container string) (OpResult, error) {
	return s.timed(ctx, func() (int64, error) {
		if _, ok := s.containers[container]; !ok {
			s.containers[container] = map[string]int64{}
		}
		return 0, nil
	})
}

func (s *MemoryStore) DeleteContainer(ctx context.Context, container string) (OpResult, error) {
	return s.timed(ctx, func() (int64, error) {
		objects, ok := s.containers[container]
		if !ok {
			return 0, errors.Wrap(ErrNoSuchContainer, container)
		}
		if len(objects) > 0 {
			return 0, errors.Errorf("container %s is not empty", container)
		}
		delete(s.containers, container)
		return 0, nil
	})
}

func (s *MemoryStore) PutObject(ctx context.Context, container, name string, size int64) (OpResult, error) {
	// Drain the payload like a real upload would.
	written, err := io.Copy(io.Discard, newPatternReader(size))
	if err != nil {
		return OpResult{}, errors.WithStack(err)
	}
	return s.timed(ctx, func() (int64, error) {
		objects, ok := s.containers[container]
		if !ok {
			return 0, errors.Wrap(ErrNoSuchContainer, container)
		}
		objects[name] = written
		return written, nil
	})
}

func (s *MemoryStore) GetObject(ctx context.Context, container, name string) (OpResult, error) {
	return s.timed(ctx, func() (int64, error) {
		size, ok := s.containers[container][name]
		if !ok {
			return 0, errors.Wrapf(ErrNoSuchObject, "%s/%s", container, name)
		}
		return size, nil
	})
}

func (s *MemoryStore) DeleteObject(ctx context.Context, container, name string) (OpResult, error) {
	return s.timed(ctx, func() (int64, error) {
		objects := s.containers[container]
		if _, ok := objects[name]; !ok {
			return 0, errors.Wrapf(ErrNoSuchObject, "%s/%s", container, name)
		}
		delete(objects, name)
		return 0, nil
	})
}

// Snapshot lists every container with its objects in name order.
func (s *MemoryStore) Snapshot() map[string][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string][]string, len(s.containers))
	for container, objects := range s.containers {
		names := maps.Keys(objects)
		slices.Sort(names)
		out[container] = names
	}
	return out
}
