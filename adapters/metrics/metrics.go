// Package metrics provides Prometheus metrics for viewsets, the connection
// pool and config reloads.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds every crudkit metric.
type Collector struct {
	// Request metrics
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	// Pool metrics
	PoolAcquisitions   *prometheus.CounterVec
	PoolAcquireSeconds prometheus.Histogram

	// Event metrics
	EventPublishErrors *prometheus.CounterVec

	// Config metrics
	ConfigReloads      prometheus.Counter
	ConfigReloadErrors prometheus.Counter
	ConfigLastReload   prometheus.Gauge

	gatherer prometheus.Gatherer
}

// New creates a collector registered with its own registry.
func New() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return NewWithRegistry(reg, reg)
}

// NewWithRegistry creates a collector registered with reg and served from g.
func NewWithRegistry(reg prometheus.Registerer, g prometheus.Gatherer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "crudkit",
				Name:      "requests_total",
				Help:      "Total number of viewset requests",
			},
			[]string{"model", "action", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "crudkit",
				Name:      "request_duration_seconds",
				Help:      "Viewset request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"model", "action"},
		),
		RequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "crudkit",
				Name:      "requests_in_flight",
				Help:      "Number of viewset requests currently being processed",
			},
		),

		PoolAcquisitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "crudkit",
				Name:      "pool_acquisitions_total",
				Help:      "Connection acquisitions by result",
			},
			[]string{"result"},
		),
		PoolAcquireSeconds: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "crudkit",
				Name:      "pool_acquire_seconds",
				Help:      "Time spent waiting for a pooled connection",
				Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
			},
		),

		EventPublishErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "crudkit",
				Name:      "event_publish_errors_total",
				Help:      "Change events that could not be published",
			},
			[]string{"model"},
		),

		ConfigReloads: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "crudkit",
				Name:      "config_reloads_total",
				Help:      "Total number of successful config reloads",
			},
		),
		ConfigReloadErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "crudkit",
				Name:      "config_reload_errors_total",
				Help:      "Total number of config reload errors",
			},
		),
		ConfigLastReload: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "crudkit",
				Name:      "config_last_reload_timestamp",
				Help:      "Unix timestamp of last successful config reload",
			},
		),

		gatherer: g,
	}
}

// RequestStarted marks a request in flight.
func (c *Collector) RequestStarted() {
	c.RequestsInFlight.Inc()
}

// ObserveRequest records a finished viewset request.
func (c *Collector) ObserveRequest(model, action string, status int, d time.Duration) {
	c.RequestsInFlight.Dec()
	c.RequestsTotal.WithLabelValues(model, action, StatusClass(status)).Inc()
	c.RequestDuration.WithLabelValues(model, action).Observe(d.Seconds())
}

// ObserveAcquire records a pool acquisition. Its signature matches the
// pool's acquisition hook.
func (c *Collector) ObserveAcquire(wait time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.PoolAcquisitions.WithLabelValues(result).Inc()
	c.PoolAcquireSeconds.Observe(wait.Seconds())
}

// EventPublishFailed counts a failed change event.
func (c *Collector) EventPublishFailed(model string) {
	c.EventPublishErrors.WithLabelValues(model).Inc()
}

// ConfigReloaded records a reload attempt.
func (c *Collector) ConfigReloaded(err error) {
	if err != nil {
		c.ConfigReloadErrors.Inc()
		return
	}
	c.ConfigReloads.Inc()
	c.ConfigLastReload.SetToCurrentTime()
}

// Handler serves the collector's registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}

// StatusClass reduces a status code to its class, e.g. 404 -> "4xx".
func StatusClass(status int) string {
	if status < 100 || status > 599 {
		return strconv.Itoa(status)
	}
	return strconv.Itoa(status/100) + "xx"
}
