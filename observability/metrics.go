package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "collab"

// Metrics groups every collector exposed on /metrics.
// Collectors are registered on the given registerer so that tests can use a private registry.
type Metrics struct {
	ActiveSessions     prometheus.Gauge
	ActiveConnections  prometheus.Gauge
	InboundEvents      *prometheus.CounterVec
	DeliveredEvents    *prometheus.CounterVec
	DroppedEvents      *prometheus.CounterVec
	RejectedHandshakes prometheus.Counter
	AppendDuration     prometheus.Histogram
	AppendFailures     prometheus.Counter
	ProcessRSS         prometheus.Gauge
	ProcessCPU         prometheus.Gauge
	QueueLength        *prometheus.GaugeVec
	QueueCapacity      *prometheus.GaugeVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of sessions currently held in the registry",
		}),
		ActiveConnections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_connections",
			Help:      "Number of open real-time connections, joined or not",
		}),
		InboundEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inbound_events_total",
			Help:      "Inbound events handled by the gateway",
		}, []string{"event"}),
		DeliveredEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delivered_events_total",
			Help:      "Outbound events accepted by a connection buffer",
		}, []string{"event"}),
		DroppedEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dropped_events_total",
			Help:      "Outbound events refused by a full or closed connection",
		}, []string{"event"}),
		RejectedHandshakes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rejected_handshakes_total",
			Help:      "Connections left inert because of a missing identity field",
		}),
		AppendDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "chat_append_duration_seconds",
			Help:      "Time spent recording a chat message",
			Buckets:   prometheus.DefBuckets,
		}),
		AppendFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_append_failures_total",
			Help:      "Chat messages that could not be recorded",
		}),
		ProcessRSS: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "process_rss_bytes",
			Help:      "Resident memory of the server process",
		}),
		ProcessCPU: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "process_cpu_percent",
			Help:      "CPU usage of the server process",
		}),
		QueueLength: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_length",
			Help:      "Items waiting in an internal queue",
		}, []string{"queue"}),
		QueueCapacity: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_capacity",
			Help:      "Size of an internal queue",
		}, []string{"queue"}),
	}
}
