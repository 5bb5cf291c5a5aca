// Package metrics exposes Prometheus collectors for the clipboard pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is implemented by Collectors and by the no-op returned from Noop.
type Recorder interface {
	IncPollTicks()
	IncSkipped(reason string)
	IncCaptured(kind string)
	IncPersistFailures()
	ObservePersistDuration(d time.Duration)
	SetHistorySize(n int)
	IncTransforms(outcome string)
	ObserveTransformDuration(d time.Duration)
	IncRequestsTotal(route string, status int)
}

// Skip reasons reported by the monitor.
const (
	SkipPaused    = "paused"
	SkipUnchanged = "unchanged"
	SkipNoContent = "no_content"
)

// Transform outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeBusy    = "busy"
)

// Collectors is the Prometheus-backed Recorder.
type Collectors struct {
	registry          *prometheus.Registry
	pollTicks         prometheus.Counter
	skipped           *prometheus.CounterVec
	captured          *prometheus.CounterVec
	persistFailures   prometheus.Counter
	persistDuration   prometheus.Histogram
	historySize       prometheus.Gauge
	transforms        *prometheus.CounterVec
	transformDuration prometheus.Histogram
	requests          *prometheus.CounterVec
}

// New registers all collectors, plus the Go runtime and process collectors,
// on a fresh registry.
func New() *Collectors {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Collectors{
		registry: reg,
		pollTicks: f.NewCounter(prometheus.CounterOpts{
			Name: "clipmaster_poll_ticks_total",
			Help: "Total number of clipboard poll ticks",
		}),
		skipped: f.NewCounterVec(prometheus.CounterOpts{
			Name: "clipmaster_poll_skipped_total",
			Help: "Poll ticks that captured nothing, by reason",
		}, []string{"reason"}),
		captured: f.NewCounterVec(prometheus.CounterOpts{
			Name: "clipmaster_captured_total",
			Help: "Clipboard items captured, by kind",
		}, []string{"kind"}),
		persistFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "clipmaster_persist_failures_total",
			Help: "History writes that failed to reach the database",
		}),
		persistDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "clipmaster_persist_duration_seconds",
			Help:    "Duration of history persistence transactions in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		historySize: f.NewGauge(prometheus.GaugeOpts{
			Name: "clipmaster_history_size",
			Help: "Number of records currently held in history",
		}),
		transforms: f.NewCounterVec(prometheus.CounterOpts{
			Name: "clipmaster_transforms_total",
			Help: "Transform requests, by outcome",
		}, []string{"outcome"}),
		transformDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "clipmaster_transform_duration_seconds",
			Help:    "Duration of generation requests in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "clipmaster_http_requests_total",
			Help: "Control API requests",
		}, []string{"route", "status"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collectors) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests and extra collectors.
func (c *Collectors) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collectors) IncPollTicks()            { c.pollTicks.Inc() }
func (c *Collectors) IncSkipped(reason string) { c.skipped.WithLabelValues(reason).Inc() }
func (c *Collectors) IncCaptured(kind string)  { c.captured.WithLabelValues(kind).Inc() }
func (c *Collectors) IncPersistFailures()      { c.persistFailures.Inc() }
func (c *Collectors) SetHistorySize(n int)     { c.historySize.Set(float64(n)) }
func (c *Collectors) IncTransforms(o string)   { c.transforms.WithLabelValues(o).Inc() }

func (c *Collectors) ObservePersistDuration(d time.Duration) {
	c.persistDuration.Observe(d.Seconds())
}

func (c *Collectors) ObserveTransformDuration(d time.Duration) {
	c.transformDuration.Observe(d.Seconds())
}

func (c *Collectors) IncRequestsTotal(route string, status int) {
	c.requests.WithLabelValues(route, statusBucket(status)).Inc()
}

func statusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

// Noop returns a Recorder that discards everything.
func Noop() Recorder { return noop{} }

type noop struct{}

func (noop) IncPollTicks()                          {}
func (noop) IncSkipped(string)                      {}
func (noop) IncCaptured(string)                     {}
func (noop) IncPersistFailures()                    {}
func (noop) ObservePersistDuration(time.Duration)   {}
func (noop) SetHistorySize(int)                     {}
func (noop) IncTransforms(string)                   {}
func (noop) ObserveTransformDuration(time.Duration) {}
func (noop) IncRequestsTotal(string, int)           {}
