package master

import (
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	log "github.com/sirupsen/logrus"
	"k8s.io/utils/clock"

	"github.com/armadaproject/storebench/internal/storebench/jobs"
)

// progress keeps a running latency histogram of the timed run and logs it periodically.
type progress struct {
	hist    *hdrhistogram.Histogram
	every   int
	total   int
	errors  int
	started time.Time
	clock   clock.Clock
	log     *log.Entry
}

func newProgress(every int, c clock.Clock, logger *log.Entry) *progress {
	return &progress{
		// 1us to 1h, 3 significant figures
		hist:    hdrhistogram.New(1, int64(time.Hour/time.Microsecond), 3),
		every:   every,
		started: c.Now(),
		clock:   c,
		log:     logger,
	}
}

func (p *progress) record(r jobs.Result) {
	p.total++
	if sample, ok := r.Sample(); ok {
		micros := int64(sample.LastByteLatency * 1e6)
		if micros < 1 {
			micros = 1
		}
		// Values past the histogram range are dropped from the live view only.
		_ = p.hist.RecordValue(micros)
	} else if r.Failed() {
		p.errors++
	}
	if p.every > 0 && p.total%p.every == 0 {
		p.report()
	}
}

func (p *progress) report() {
	elapsed := p.clock.Since(p.started).Seconds()
	rate := 0.0
	if elapsed > 0 {
		rate = float64(p.total) / elapsed
	}
	p.log.WithFields(log.Fields{
		"results": p.total,
		"errors":  p.errors,
		"rate":    rate,
		"p50":     time.Duration(p.hist.ValueAtQuantile(50)) * time.Microsecond,
		"p99":     time.Duration(p.hist.ValueAtQuantile(99)) * time.Microsecond,
		"max":     time.Duration(p.hist.Max()) * time.Microsecond,
	}).Info("benchmark progress")
}
