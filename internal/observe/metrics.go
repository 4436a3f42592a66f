// Package observe exposes Prometheus metrics for the dispatcher and translator.
package observe

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is a prometheus.Collector grouping every bot metric.
type Metrics struct {
	events          *prometheus.CounterVec
	translations    *prometheus.CounterVec
	unknownRecorded prometheus.Counter
	failures        *prometheus.CounterVec
	duration        *prometheus.HistogramVec
	deliveries      *prometheus.CounterVec

	collectors []prometheus.Collector
}

// NewMetrics creates the metrics and registers them on registry.
func NewMetrics(registry prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "translitbot_events_total",
			Help: "Inbound events by routed command",
		}, []string{"command"}),
		translations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "translitbot_translations_total",
			Help: "Translated lines by result source",
		}, []string{"source"}),
		unknownRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "translitbot_unknown_recorded_total",
			Help: "Unmatched spans forwarded to the unknown list",
		}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "translitbot_failures_total",
			Help: "Handling failures that reset a session",
		}, []string{"kind"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "translitbot_event_duration_seconds",
			Help:    "Time spent handling one inbound event",
			Buckets: prometheus.DefBuckets,
		}, []string{"command"}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "translitbot_deliveries_total",
			Help: "Outbound replies by delivery result",
		}, []string{"result"}),
	}
	m.collectors = []prometheus.Collector{
		m.events, m.translations, m.unknownRecorded, m.failures, m.duration, m.deliveries,
	}

	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("registry.Register() > %w", err)
	}
	return m, nil
}

func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	for _, c := range m.collectors {
		c.Describe(ch)
	}
}

func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	for _, c := range m.collectors {
		c.Collect(ch)
	}
}

// ObserveEvent counts one event routed as command and its handling time.
func (m *Metrics) ObserveEvent(command string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(command).Inc()
	m.duration.WithLabelValues(command).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveTranslation(source string, unknown int) {
	if m == nil {
		return
	}
	m.translations.WithLabelValues(source).Inc()
	m.unknownRecorded.Add(float64(unknown))
}

// ObserveFailure counts a reset caused by an error or a recovered panic.
func (m *Metrics) ObserveFailure(kind string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(kind).Inc()
}

func (m *Metrics) ObserveDelivery(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.deliveries.WithLabelValues(result).Inc()
}
