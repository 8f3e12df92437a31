package session

import (
	"github.com/compose-network/wlscanner/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds session-level metrics. A nil *Metrics records nothing.
type Metrics struct {
	registry *metrics.ComponentRegistry

	MessagesTotal    *prometheus.CounterVec
	MessageSizeBytes *prometheus.HistogramVec
	ErrorsTotal      *prometheus.CounterVec
	ObjectsLive      prometheus.Gauge
	ObjectsCreated   *prometheus.CounterVec
	ObjectsDestroyed *prometheus.CounterVec
	NamespaceResets  prometheus.Counter
}

// NewMetrics creates session metrics in the default registry.
func NewMetrics() *Metrics {
	return NewMetricsWith(metrics.NewComponentRegistry("wlscanner", "session"))
}

// NewMetricsWith creates session metrics in reg.
func NewMetricsWith(reg *metrics.ComponentRegistry) *Metrics {
	return &Metrics{
		registry: reg,

		MessagesTotal: reg.NewCounterVec(prometheus.CounterOpts{
			Name: "messages_total",
			Help: "Messages marshalled or decoded, by direction and interface",
		}, []string{"direction", "interface"}),

		MessageSizeBytes: reg.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "message_size_bytes",
			Help:    "Size of framed messages including the header",
			Buckets: metrics.SizeBuckets,
		}, []string{"direction"}),

		ErrorsTotal: reg.NewCounterVec(prometheus.CounterOpts{
			Name: "errors_total",
			Help: "Protocol faults and caller misuse errors",
		}, []string{"kind"}),

		ObjectsLive: reg.NewGauge(prometheus.GaugeOpts{
			Name: "objects_live",
			Help: "Objects currently bound across sessions",
		}),

		ObjectsCreated: reg.NewCounterVec(prometheus.CounterOpts{
			Name: "objects_created_total",
			Help: "Objects created, by interface",
		}, []string{"interface"}),

		ObjectsDestroyed: reg.NewCounterVec(prometheus.CounterOpts{
			Name: "objects_destroyed_total",
			Help: "Objects destroyed by a destructor message, by interface",
		}, []string{"interface"}),

		NamespaceResets: reg.NewCounter(prometheus.CounterOpts{
			Name: "namespace_resets_total",
			Help: "Identifier namespace teardowns",
		}),
	}
}

func (m *Metrics) recordMessage(direction, iface string, size int) {
	if m == nil {
		return
	}
	m.MessagesTotal.WithLabelValues(direction, iface).Inc()
	m.MessageSizeBytes.WithLabelValues(direction).Observe(float64(size))
}

func (m *Metrics) recordError(err *Error) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(err.Kind.String()).Inc()
}

func (m *Metrics) recordCreated(o *Object) {
	if m == nil {
		return
	}
	m.ObjectsLive.Inc()
	m.ObjectsCreated.WithLabelValues(o.iface.Name).Inc()
}

func (m *Metrics) recordDestroyed(o *Object) {
	if m == nil {
		return
	}
	m.ObjectsLive.Dec()
	m.ObjectsDestroyed.WithLabelValues(o.iface.Name).Inc()
}

func (m *Metrics) recordReset(live int) {
	if m == nil {
		return
	}
	m.ObjectsLive.Sub(float64(live))
	m.NamespaceResets.Inc()
}
