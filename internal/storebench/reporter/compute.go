package reporter

import (
	"io"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/armadaproject/storebench/internal/storebench/jobs"
	"github.com/armadaproject/storebench/internal/storebench/resultlog"
	"github.com/armadaproject/storebench/internal/storebench/scenario"
)

const DefaultPercentile = 95

// BatchReader yields result batches until io.EOF.
type BatchReader interface {
	Next() ([]jobs.Result, error)
}

// RunStats is the reduced form of one run's result log.
type RunStats struct {
	Scenario   *scenario.Scenario
	Percentile float64

	Aggregate  *Stats
	Workers    map[string]*Stats
	Ops        map[jobs.OpType]*Stats
	TimeSeries TimeSeries

	// Skipped counts results that were missing required fields, plus undecodable batches.
	Skipped int

	series timeSeriesBuilder
}

// Compute replays a result log into a RunStats tree.
func Compute(sc *scenario.Scenario, in BatchReader, percentile float64) (*RunStats, error) {
	rs := &RunStats{
		Scenario:   sc,
		Percentile: percentile,
		Aggregate:  newStats(true),
		Workers:    map[string]*Stats{},
		Ops:        map[jobs.OpType]*Stats{},
	}
	for _, op := range jobs.CrudTypes {
		rs.Ops[op] = newStats(true)
	}

	for {
		batch, err := in.Next()
		if err == io.EOF {
			break
		}
		var malformed *resultlog.ErrMalformedRecord
		if errors.As(err, &malformed) {
			rs.Skipped++
			continue
		}
		if err != nil {
			return nil, err
		}
		for i := range batch {
			rs.add(&batch[i])
		}
	}
	if rs.Skipped > 0 {
		log.Warnf("skipped %d invalid results", rs.Skipped)
	}

	rs.Aggregate.finish(percentile)
	for _, s := range rs.Workers {
		s.finish(percentile)
	}
	for _, s := range rs.Ops {
		s.finish(percentile)
	}
	rs.TimeSeries = rs.series.build()
	return rs, nil
}

func (rs *RunStats) add(r *jobs.Result) {
	if err := r.Validate(); err != nil {
		rs.Skipped++
		return
	}
	worker, ok := rs.Workers[r.WorkerID]
	if !ok {
		worker = newStats(false)
		rs.Workers[r.WorkerID] = worker
	}
	nodes := []*Stats{rs.Aggregate, worker}
	if r.Type.IsObjectOp() {
		op := rs.Ops[r.Type]
		nodes = append(nodes, rs.Aggregate.size(r.SizeStr), op, op.size(r.SizeStr))
	}
	for _, node := range nodes {
		node.add(r)
	}
	if !r.Failed() {
		rs.series.add(r.CompletedAt)
	}
}

// SizeOrder lists the sizes to report on: the scenario's sizes in order, then any others seen in
// the results sorted by name.
func (rs *RunStats) SizeOrder() []string {
	var order []string
	known := map[string]bool{}
	if rs.Scenario != nil {
		for _, s := range rs.Scenario.Sizes() {
			order = append(order, s.Name)
			known[s.Name] = true
		}
	}
	var extra []string
	for _, name := range maps.Keys(rs.Aggregate.SizeStats) {
		if !known[name] {
			extra = append(extra, name)
		}
	}
	slices.Sort(extra)
	return append(order, extra...)
}

// WorkerIDs returns the worker ids in sorted order.
func (rs *RunStats) WorkerIDs() []string {
	ids := maps.Keys(rs.Workers)
	slices.Sort(ids)
	return ids
}

// WorkerDistribution describes how evenly requests were spread across workers.
type WorkerDistribution struct {
	Min    float64
	Max    float64
	Avg    float64
	StdDev float64
}

func (rs *RunStats) WorkerDistribution() WorkerDistribution {
	counts := make([]float64, 0, len(rs.Workers))
	for _, id := range rs.WorkerIDs() {
		counts = append(counts, float64(rs.Workers[id].ReqCount))
	}
	if len(counts) == 0 {
		return WorkerDistribution{}
	}
	sorted := slices.Clone(counts)
	slices.Sort(sorted)
	avg, stdDev := meanStdDev(sorted)
	return WorkerDistribution{Min: sorted[0], Max: sorted[len(sorted)-1], Avg: avg, StdDev: stdDev}
}
