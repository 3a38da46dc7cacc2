package provider

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// upstreamReqs counts provider calls by operation and outcome
	// (ok|upstream_error|transport_error|decode_error).
	upstreamReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_requests_total",
			Help: "Total number of calls to the upstream provider.",
		},
		[]string{"op", "outcome"},
	)

	// upstreamLat records provider latency in seconds. Image generation is
	// slow, so the buckets reach well past the HTTP defaults.
	upstreamLat = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstream_request_duration_seconds",
			Help:    "Duration of upstream provider calls in seconds.",
			Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
		},
		[]string{"op"},
	)
)

func init() {
	prometheus.MustRegister(upstreamReqs, upstreamLat)
}

const (
	opGenerate = "images.generate"
	opComplete = "chat.complete"

	outcomeOK        = "ok"
	outcomeUpstream  = "upstream_error"
	outcomeTransport = "transport_error"
	outcomeDecode    = "decode_error"
)
