package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DispatchesTotal tracks generation calls by model and outcome (succeeded|failed)
	DispatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studio_batch_dispatches_total",
			Help: "Total number of generation calls dispatched by batches",
		},
		[]string{"model", "outcome"},
	)

	// FailuresTotal tracks classified failures
	FailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studio_batch_failures_total",
			Help: "Total number of failed generation calls by error category",
		},
		[]string{"category"},
	)

	// RewritesTotal tracks prompt rewrite attempts (ok|error)
	RewritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studio_batch_rewrites_total",
			Help: "Total number of content-policy prompt rewrites",
		},
		[]string{"result"},
	)

	// SweepsTotal counts sweep cycles started across all batches
	SweepsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "studio_batch_sweeps_total",
			Help: "Total number of retry sweeps started",
		},
	)

	// BatchesTotal tracks batches by final state
	BatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studio_batches_total",
			Help: "Total number of batches by final state",
		},
		[]string{"state"},
	)

	// DispatchLatency tracks generation call latency
	DispatchLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "studio_batch_dispatch_latency_seconds",
			Help:    "Generation call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"model"},
	)

	// InFlight is the number of generation calls currently executing
	InFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "studio_batch_dispatches_in_flight",
			Help: "Generation calls currently executing",
		},
	)
)
