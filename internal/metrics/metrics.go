package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	UpstreamCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "surfcast_upstream_calls_total",
			Help: "Total upstream API calls by source and outcome",
		},
		[]string{"source", "endpoint", "status"},
	)

	UpstreamLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "surfcast_upstream_latency_seconds",
			Help:    "Upstream API call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source", "endpoint"},
	)

	SwellInstantsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "surfcast_swell_instants_ingested_total",
			Help: "Forecast instants with swell components successfully stored",
		},
		[]string{"spot"},
	)

	ConditionsAssembled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "surfcast_conditions_assembled_total",
			Help: "Assembled surf condition records stored",
		},
		[]string{"spot"},
	)

	AssemblyInputMissing = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "surfcast_assembly_input_missing_total",
			Help: "Assembly cycles that ran without one of their inputs",
		},
		[]string{"spot", "input"},
	)
)
