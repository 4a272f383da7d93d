// Package metrics exposes request dispatch and worker pool state to
// Prometheus.
//
// Every method is safe on a nil *Metrics, which records nothing.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "nstd"

// Metrics holds the collectors of one server.
type Metrics struct {
	requests    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	bytesOut    prometheus.Counter
	inflight    prometheus.Gauge
	failures    prometheus.Counter
	unmatched   prometheus.Counter
	rateLimited prometheus.Counter

	factory promauto.Factory
}

// New creates the collectors and registers them with reg. A nil reg leaves
// them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		factory: f,

		// Dispatch
		requests: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of dispatched requests by method and response status",
			},
			[]string{"method", "status"},
		),
		duration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Time from request arrival to the end of dispatch",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
			},
			[]string{"method"},
		),
		bytesOut: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "response_bytes_total",
			Help:      "Total bytes of serialized responses handed to the transport",
		}),
		inflight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "Requests currently being dispatched",
		}),

		// Outcomes
		failures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "handler_failures_total",
			Help:      "Handlers that returned an error or panicked",
		}),
		unmatched: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "unmatched_requests_total",
			Help:      "Requests that matched no route",
		}),
		rateLimited: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Requests refused by the per-client rate limiter",
		}),
	}
}

// RequestStarted marks a request as in flight.
func (m *Metrics) RequestStarted() {
	if m == nil {
		return
	}
	m.inflight.Inc()
}

// RequestFinished records a dispatched request. A status of 0 means no
// response was sent.
func (m *Metrics) RequestFinished(method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.inflight.Dec()
	m.requests.WithLabelValues(method, statusLabel(status)).Inc()
	m.duration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// ResponseWritten adds n serialized response bytes.
func (m *Metrics) ResponseWritten(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.bytesOut.Add(float64(n))
}

func (m *Metrics) HandlerFailed() {
	if m == nil {
		return
	}
	m.failures.Inc()
}

func (m *Metrics) Unmatched() {
	if m == nil {
		return
	}
	m.unmatched.Inc()
}

func (m *Metrics) RateLimited() {
	if m == nil {
		return
	}
	m.rateLimited.Inc()
}

// WatchWorkerPool exports the size and queue length of a worker pool,
// sampled at scrape time.
func (m *Metrics) WatchWorkerPool(size func() int, queued func() int) {
	if m == nil {
		return
	}
	m.factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "workerpool",
		Name:      "workers",
		Help:      "Number of worker loops",
	}, func() float64 { return float64(size()) })
	m.factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "workerpool",
		Name:      "queued_tasks",
		Help:      "Tasks waiting for a worker",
	}, func() float64 { return float64(queued()) })
}

func statusLabel(status int) string {
	if status == 0 {
		return "none"
	}
	return strconv.Itoa(status)
}
