package worker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsPrefix = "storebench_worker_"

type Metrics struct {
	operations *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	retries    *prometheus.CounterVec
	inflight   prometheus.Gauge
	submitted  *prometheus.CounterVec
}

// NewMetrics registers the worker metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		operations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricsPrefix + "operations_total",
				Help: "Storage operations executed, by operation and outcome",
			},
			[]string{"op", "status"},
		),
		latency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricsPrefix + "operation_latency_seconds",
				Help:    "Last byte latency of successful storage operations",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 16),
			},
			[]string{"op"},
		),
		retries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricsPrefix + "retries_total",
				Help: "Storage operation attempts that were retried",
			},
			[]string{"op"},
		),
		inflight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: metricsPrefix + "inflight",
				Help: "Jobs currently being executed",
			},
		),
		submitted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricsPrefix + "result_batches_total",
				Help: "Result batches sent to the stats tube, by outcome",
			},
			[]string{"status"},
		),
	}
}

func (m *Metrics) RecordOperation(op string, failed bool, lastByteSeconds float64) {
	if failed {
		m.operations.WithLabelValues(op, "failure").Inc()
		return
	}
	m.operations.WithLabelValues(op, "success").Inc()
	m.latency.WithLabelValues(op).Observe(lastByteSeconds)
}

func (m *Metrics) RecordRetry(op string) {
	m.retries.WithLabelValues(op).Inc()
}

func (m *Metrics) RecordSubmission(err error) {
	if err != nil {
		m.submitted.WithLabelValues("failure").Inc()
		return
	}
	m.submitted.WithLabelValues("success").Inc()
}
