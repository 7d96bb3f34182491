package metrics

import "github.com/prometheus/client_golang/prometheus"

// BrokerMetrics holds Prometheus metrics for the dispatch loop.
type BrokerMetrics struct {
	ActiveConnections   prometheus.Gauge
	Subscribers         prometheus.Gauge
	RejectedConnections prometheus.Counter
	MessagesPublished   prometheus.Counter
	Deliveries          prometheus.Counter
	DeliveryFailures    prometheus.Counter
	Replayed            prometheus.Counter
	PersistErrors       *prometheus.CounterVec
	ProtocolErrors      *prometheus.CounterVec
	ExpiredEntries      prometheus.Counter
}

// NewBrokerMetrics creates and registers broker metrics on the given registry.
func NewBrokerMetrics(reg prometheus.Registerer) *BrokerMetrics {
	m := &BrokerMetrics{
		ActiveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "broker",
			Name:      "active_connections",
			Help:      "Number of connections currently holding a registry slot.",
		}),
		Subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "broker",
			Name:      "subscribers",
			Help:      "Number of connections subscribed to a topic.",
		}),
		RejectedConnections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "broker",
			Name:      "rejected_connections_total",
			Help:      "Connections closed on accept because every slot was taken.",
		}),
		MessagesPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "broker",
			Name:      "messages_published_total",
			Help:      "Valid PUB commands processed.",
		}),
		Deliveries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "broker",
			Name:      "deliveries_total",
			Help:      "MSG frames written to subscribers.",
		}),
		DeliveryFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "broker",
			Name:      "delivery_failures_total",
			Help:      "MSG frames that could not be written to a subscriber.",
		}),
		Replayed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "persist",
			Name:      "replayed_entries_total",
			Help:      "Persisted entries delivered to new subscribers.",
		}),
		PersistErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "persist",
			Name:      "errors_total",
			Help:      "Persistence failures by operation.",
		}, []string{"op"}),
		ProtocolErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "broker",
			Name:      "protocol_errors_total",
			Help:      "Connections closed for protocol violations by reason.",
		}, []string{"reason"}),
		ExpiredEntries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "persist",
			Name:      "expired_entries_total",
			Help:      "Entries dropped by timed retention.",
		}),
	}

	reg.MustRegister(
		m.ActiveConnections,
		m.Subscribers,
		m.RejectedConnections,
		m.MessagesPublished,
		m.Deliveries,
		m.DeliveryFailures,
		m.Replayed,
		m.PersistErrors,
		m.ProtocolErrors,
		m.ExpiredEntries,
	)
	return m
}

// ObserveExpired matches persist.Options.OnExpire.
func (m *BrokerMetrics) ObserveExpired(_ string, n int) {
	m.ExpiredEntries.Add(float64(n))
}
