package middleware

import (
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "vetverify"

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route template and status class",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latencies in seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "route"},
	)

	httpInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "http_inflight_requests",
			Help:      "HTTP requests currently being served, event streams excluded",
		},
	)

	activeStreams = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "notification_streams_active",
			Help:      "Open notification event streams",
		},
	)
)

// statusClass collapses status codes to 2xx, 4xx, ... to bound label cardinality
func statusClass(code int) string {
	if code < 100 || code > 599 {
		return "unknown"
	}
	return strconv.Itoa(code/100) + "xx"
}

// Metrics records request counters and latencies under the matched route template.
// skipPaths are not recorded at all. Event streams only move the active stream gauge,
// their lifetime would swamp the latency histogram.
func Metrics(skipPaths ...string) fiber.Handler {
	return func(c fiber.Ctx) error {
		path := c.Path()
		if slices.Contains(skipPaths, path) {
			return c.Next()
		}
		if strings.HasSuffix(path, "/stream") {
			activeStreams.Inc()
			defer activeStreams.Dec()
			return c.Next()
		}

		start := time.Now()
		httpInFlight.Inc()
		defer httpInFlight.Dec()

		err := c.Next()

		route := "unmatched"
		if r := c.Route(); r != nil && r.Path != "" && r.Path != "/" {
			route = r.Path
		} else if path == "/" {
			route = "/"
		}
		method := c.Method()

		httpRequestsTotal.WithLabelValues(method, route, statusClass(c.Response().StatusCode())).Inc()
		httpRequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())

		return err
	}
}
