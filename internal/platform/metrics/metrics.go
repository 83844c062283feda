package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns the workflow and HTTP collectors on a private registry so
// that tests can build as many as they like.
type Collector struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	transitions  *prometheus.CounterVec
	rejections   *prometheus.CounterVec
}

func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "leaveflow",
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests handled.",
			},
			[]string{"method", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "leaveflow",
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Duration of HTTP requests.",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
			},
			[]string{"method"},
		),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "leaveflow",
				Subsystem: "workflow",
				Name:      "transitions_total",
				Help:      "Leave workflow transitions by action and resulting request status.",
			},
			[]string{"action", "status"},
		),
		rejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "leaveflow",
				Subsystem: "workflow",
				Name:      "refused_total",
				Help:      "Workflow operations refused by the engine, by action and error code.",
			},
			[]string{"action", "code"},
		),
	}
	c.registry.MustRegister(c.httpRequests, c.httpDuration, c.transitions, c.rejections)
	return c
}

// Record observes one HTTP request.
func (c *Collector) Record(method string, status int, duration time.Duration) {
	if c == nil {
		return
	}
	c.httpRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	c.httpDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// Transition counts a committed workflow transition.
func (c *Collector) Transition(action, status string) {
	if c == nil {
		return
	}
	c.transitions.WithLabelValues(action, status).Inc()
}

// Refused counts an operation the engine declined.
func (c *Collector) Refused(action, code string) {
	if c == nil {
		return
	}
	c.rejections.WithLabelValues(action, code).Inc()
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
