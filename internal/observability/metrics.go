package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the service's prometheus collectors. A nil *Metrics is a
// valid no-op recorder.
type Metrics struct {
	requests        *prometheus.CounterVec
	requestLatency  *prometheus.HistogramVec
	errors          *prometheus.CounterVec
	subscribers     prometheus.Gauge
	published       *prometheus.CounterVec
	delivered       prometheus.Counter
	dropped         *prometheus.CounterVec
	mutations       *prometheus.CounterVec
	notifications   *prometheus.CounterVec
	sideEffectFails *prometheus.CounterVec
}

// NewMetrics creates and registers all collectors on reg.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"path", "method", "status"}),
		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"path", "method"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_errors_total",
			Help:      "HTTP errors by route, method and error code.",
		}, []string{"path", "method", "code"}),
		subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "subscribers",
			Help:      "Currently registered realtime subscriptions.",
		}),
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "events_published_total",
			Help:      "Events published to the broker by type.",
		}, []string{"type"}),
		delivered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "events_delivered_total",
			Help:      "Events enqueued onto subscriber buffers.",
		}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "events_dropped_total",
			Help:      "Events dropped by reason (overflow, stale).",
		}, []string{"reason"}),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "workflow",
			Name:      "mutations_total",
			Help:      "Workflow mutations by entity and outcome code.",
		}, []string{"entity", "outcome"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notification",
			Name:      "outbox_entries_total",
			Help:      "Outbox enqueue attempts by channel and result.",
		}, []string{"channel", "result"}),
		sideEffectFails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "workflow",
			Name:      "side_effect_failures_total",
			Help:      "Swallowed best-effort side-effect failures by stage.",
		}, []string{"stage"}),
	}
	if reg != nil {
		reg.MustRegister(
			m.requests, m.requestLatency, m.errors,
			m.subscribers, m.published, m.delivered, m.dropped,
			m.mutations, m.notifications, m.sideEffectFails,
		)
	}
	return m
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
	m.requestLatency.WithLabelValues(path, method).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(path, method, code).Inc()
}

func (m *Metrics) SubscriberAdded() {
	if m == nil {
		return
	}
	m.subscribers.Inc()
}

func (m *Metrics) SubscriberRemoved() {
	if m == nil {
		return
	}
	m.subscribers.Dec()
}

func (m *Metrics) EventPublished(eventType string, deliveries int) {
	if m == nil {
		return
	}
	m.published.WithLabelValues(eventType).Inc()
	m.delivered.Add(float64(deliveries))
}

func (m *Metrics) EventDropped(reason string) {
	if m == nil {
		return
	}
	m.dropped.WithLabelValues(reason).Inc()
}

func (m *Metrics) Mutation(entity, outcome string) {
	if m == nil {
		return
	}
	m.mutations.WithLabelValues(entity, outcome).Inc()
}

func (m *Metrics) Notification(channel, result string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(channel, result).Inc()
}

func (m *Metrics) SideEffectFailed(stage string) {
	if m == nil {
		return
	}
	m.sideEffectFails.WithLabelValues(stage).Inc()
}
