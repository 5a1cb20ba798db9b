package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Options configures the collectors.
type Options struct {
	Registerer prometheus.Registerer
	Namespace  string
	Buckets    []float64
}

// Metrics holds the Prometheus collectors used by the server.
type Metrics struct {
	Requests    *prometheus.CounterVec
	Duration    *prometheus.HistogramVec
	InFlight    prometheus.Gauge
	AuthEvents  *prometheus.CounterVec
	RateLimited prometheus.Counter
	Forgery     prometheus.Counter
}

// New constructs the collectors and registers them with the provided registerer.
// Collectors already registered under the same name are reused.
func New(opts Options) (*Metrics, error) {
	namespace := opts.Namespace
	if namespace == "" {
		namespace = "session_auth"
	}

	reg := opts.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	buckets := opts.Buckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	requests, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of HTTP requests partitioned by method, route, and status code.",
	}, []string{"method", "route", "status"}))
	if err != nil {
		return nil, err
	}

	duration, err := register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Histogram of HTTP request latencies in seconds partitioned by method, route, and status code.",
		Buckets:   buckets,
	}, []string{"method", "route", "status"}))
	if err != nil {
		return nil, err
	}

	inFlight, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "in_flight_requests",
		Help:      "Current number of in-flight HTTP requests.",
	}))
	if err != nil {
		return nil, err
	}

	authEvents, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "auth",
		Name:      "events_total",
		Help:      "Authentication workflow outcomes partitioned by workflow and outcome.",
	}, []string{"workflow", "outcome"}))
	if err != nil {
		return nil, err
	}

	rateLimited, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ratelimit",
		Name:      "rejected_total",
		Help:      "Requests rejected by the abuse limiter.",
	}))
	if err != nil {
		return nil, err
	}

	forgery, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "forgery",
		Name:      "rejected_total",
		Help:      "State-changing requests rejected for a missing or invalid anti-forgery token.",
	}))
	if err != nil {
		return nil, err
	}

	return &Metrics{
		Requests:    requests,
		Duration:    duration,
		InFlight:    inFlight,
		AuthEvents:  authEvents,
		RateLimited: rateLimited,
		Forgery:     forgery,
	}, nil
}

// AuthEvent records a workflow outcome. Safe on a nil receiver.
func (m *Metrics) AuthEvent(workflow, outcome string) {
	if m == nil || m.AuthEvents == nil {
		return
	}
	m.AuthEvents.WithLabelValues(workflow, outcome).Inc()
}

func (m *Metrics) RateLimitRejected() {
	if m == nil || m.RateLimited == nil {
		return
	}
	m.RateLimited.Inc()
}

func (m *Metrics) ForgeryRejected() {
	if m == nil || m.Forgery == nil {
		return
	}
	m.Forgery.Inc()
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing, nil
			}
			return c, fmt.Errorf("existing collector has unexpected type %T", already.ExistingCollector)
		}
		return c, fmt.Errorf("register collector: %w", err)
	}
	return c, nil
}
