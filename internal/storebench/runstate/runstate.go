package runstate

import (
	"github.com/gammazero/deque"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/armadaproject/storebench/internal/storebench/jobs"
)

// ObjectInfo is an object believed to exist in the cluster.
type ObjectInfo struct {
	Container string
	Name      string
	SizeStr   string
	Size      int64
	Initial   bool
}

// Counts records every result seen, for auditing a run.
type Counts struct {
	Created  int
	Ignored  int
	Failures int
}

// RunState tracks the live population per size class so that reads, updates and deletes
// target objects that exist. It is owned by a single goroutine.
type RunState struct {
	objects map[string]*deque.Deque[ObjectInfo]
	counts  Counts
}

func New() *RunState {
	return &RunState{objects: map[string]*deque.Deque[ObjectInfo]{}}
}

func (s *RunState) sequence(size string) *deque.Deque[ObjectInfo] {
	q, ok := s.objects[size]
	if !ok {
		q = deque.New[ObjectInfo]()
		s.objects[size] = q
	}
	return q
}

// FillInJob targets a job at a tracked object. DELETE takes the oldest object, READ and UPDATE
// use the front and rotate it to the back. It returns false, with the job unmodified, when there
// is nothing to target.
func (s *RunState) FillInJob(job jobs.Job) (jobs.Job, bool) {
	switch job.Type {
	case jobs.DeleteObject:
		seq := s.sequence(job.SizeStr)
		if seq.Len() == 0 {
			return job, false
		}
		o := seq.PopFront()
		job.Container = o.Container
		job.ObjectName = o.Name
		return job, true
	case jobs.ReadObject, jobs.UpdateObject:
		seq := s.sequence(job.SizeStr)
		if seq.Len() == 0 {
			return job, false
		}
		o := seq.Front()
		seq.Rotate(1)
		job.Container = o.Container
		job.ObjectName = o.Name
		if job.Type == jobs.UpdateObject && job.ObjectSize == 0 {
			job.ObjectSize = o.Size
		}
		return job, true
	default:
		return job, true
	}
}

func (s *RunState) HandleInitializationResult(r jobs.Result) {
	s.handle(r, true)
}

func (s *RunState) HandleRunResult(r jobs.Result) {
	s.handle(r, false)
}

func (s *RunState) handle(r jobs.Result, initial bool) {
	switch {
	case r.Failed():
		s.counts.Failures++
	case r.Type == jobs.CreateObject && r.ObjectName != "":
		s.counts.Created++
		s.sequence(r.SizeStr).PushBack(ObjectInfo{
			Container: r.Container,
			Name:      r.ObjectName,
			SizeStr:   r.SizeStr,
			Size:      r.ObjectSize,
			Initial:   initial,
		})
	default:
		s.counts.Ignored++
	}
}

// CleanupObjectInfos removes and returns every object created during the timed run, sizes in
// name order. Initial objects stay behind in their original relative order.
func (s *RunState) CleanupObjectInfos() []ObjectInfo {
	sizes := maps.Keys(s.objects)
	slices.Sort(sizes)
	var out []ObjectInfo
	for _, size := range sizes {
		seq := s.objects[size]
		var kept []ObjectInfo
		for i := 0; i < seq.Len(); i++ {
			if o := seq.At(i); o.Initial {
				kept = append(kept, o)
			} else {
				out = append(out, o)
			}
		}
		seq.Clear()
		for _, o := range kept {
			seq.PushBack(o)
		}
	}
	return out
}

// objectNames returns the tracked object names for a size, front first.
func (s *RunState) objectNames(size string) []string {
	q, ok := s.objects[size]
	if !ok {
		return nil
	}
	names := make([]string, 0, q.Len())
	for i := 0; i < q.Len(); i++ {
		names = append(names, q.At(i).Name)
	}
	return names
}

func (s *RunState) Len(size string) int {
	if q, ok := s.objects[size]; ok {
		return q.Len()
	}
	return 0
}

func (s *RunState) Counts() Counts {
	return s.counts
}
