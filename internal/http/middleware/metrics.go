package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// unmatchedRoute labels requests that hit no registered route, so probes for
// random paths cannot grow the series count.
const unmatchedRoute = "unmatched"

var (
	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	// Generation requests wait on the provider, often for tens of seconds.
	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 20, 30, 60, 120},
		},
		[]string{"method", "route"},
	)

	requestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_inflight",
			Help: "Current number of in-flight HTTP requests.",
		},
	)

	// API bodies are small JSON documents; images are never proxied.
	responseBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_response_size_bytes",
			Help:    "Size of HTTP responses in bytes.",
			Buckets: prometheus.ExponentialBuckets(64, 4, 8), // 64B..1MiB
		},
		[]string{"method", "route"},
	)
)

func init() {
	prometheus.MustRegister(requestsTotal, requestDuration, requestsInFlight, responseBytes)
}

// Metrics records request count, latency, concurrency and body size per
// registered route. Mount the scrape endpoint separately:
//
//	r.Use(middleware.Metrics())
//	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestsInFlight.Inc()
		start := time.Now()
		defer func() {
			requestsInFlight.Dec()
			route := routeLabel(c)
			method := c.Request.Method

			requestsTotal.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
			requestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			// Size is -1 when nothing but a status was written.
			if n := c.Writer.Size(); n >= 0 {
				responseBytes.WithLabelValues(method, route).Observe(float64(n))
			}
		}()
		c.Next()
	}
}

func routeLabel(c *gin.Context) string {
	if p := c.FullPath(); p != "" {
		return p
	}
	return unmatchedRoute
}
