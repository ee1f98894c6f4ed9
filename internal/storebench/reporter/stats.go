package reporter

import (
	"math"

	"github.com/armadaproject/storebench/internal/storebench/jobs"
)

// Worst is the slowest observation of one latency type and the transaction that produced it.
type Worst struct {
	Valid   bool
	Latency float64
	TransID string
}

func (w *Worst) offer(latency float64, transID string) {
	if !w.Valid || latency > w.Latency {
		*w = Worst{Valid: true, Latency: latency, TransID: transID}
	}
}

// Stats is one node of the report tree. SizeStats is only populated on nodes that break down by size.
type Stats struct {
	ReqCount     int
	Errors       int
	Retries      int
	RetryRate    float64
	Start        float64
	Stop         float64
	AvgReqPerSec float64

	FirstByteLatency SeriesStats
	LastByteLatency  SeriesStats
	WorstFirstByte   Worst
	WorstLastByte    Worst

	SizeStats map[string]*Stats

	firstByte []float64
	lastByte  []float64
}

func newStats(bySize bool) *Stats {
	s := &Stats{Start: math.Inf(1), Stop: math.Inf(-1)}
	if bySize {
		s.SizeStats = map[string]*Stats{}
	}
	return s
}

func (s *Stats) size(name string) *Stats {
	child, ok := s.SizeStats[name]
	if !ok {
		child = newStats(false)
		s.SizeStats[name] = child
	}
	return child
}

// add accounts for one valid result. Failures only count as errors.
func (s *Stats) add(r *jobs.Result) {
	s.Retries += r.Retries
	if r.Failed() {
		s.Errors++
		return
	}
	s.ReqCount++
	sample, ok := r.Sample()
	if !ok {
		return
	}
	s.Start = math.Min(s.Start, sample.Start())
	s.Stop = math.Max(s.Stop, sample.CompletedAt)
	s.firstByte = append(s.firstByte, sample.FirstByteLatency)
	s.lastByte = append(s.lastByte, sample.LastByteLatency)
	s.WorstFirstByte.offer(sample.FirstByteLatency, sample.TransID)
	s.WorstLastByte.offer(sample.LastByteLatency, sample.TransID)
}

func (s *Stats) finish(pctile float64) {
	if math.IsInf(s.Start, 0) || math.IsInf(s.Stop, 0) {
		s.Start, s.Stop = 0, 0
	}
	if span := s.Stop - s.Start; span > 0 {
		s.AvgReqPerSec = float64(s.ReqCount) / span
	}
	if s.ReqCount > 0 {
		s.RetryRate = 100 * float64(s.Retries) / float64(s.ReqCount)
	}
	s.FirstByteLatency = newSeriesStats(s.firstByte, pctile)
	s.LastByteLatency = newSeriesStats(s.lastByte, pctile)
	s.firstByte, s.lastByte = nil, nil
	for _, child := range s.SizeStats {
		child.finish(pctile)
	}
}
