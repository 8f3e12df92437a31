package catalog

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/compose-network/wlscanner/metrics"
)

// Metrics holds catalog compile metrics. A nil *Metrics records nothing.
type Metrics struct {
	CollectionsTotal   *prometheus.CounterVec
	DocumentsTotal     *prometheus.CounterVec
	CompileDuration    *prometheus.HistogramVec
	InterfacesPerDoc   prometheus.Histogram
	GeneratedBytes     prometheus.Histogram
	LastRunTimestamp   prometheus.Gauge
	LastRunCollections *prometheus.GaugeVec
}

// NewMetrics creates catalog metrics in the default registry.
func NewMetrics() *Metrics {
	return NewMetricsWith(metrics.NewComponentRegistry("wlscanner", "catalog"))
}

// NewMetricsWith creates catalog metrics in reg.
func NewMetricsWith(reg *metrics.ComponentRegistry) *Metrics {
	return &Metrics{
		CollectionsTotal: reg.NewCounterVec(prometheus.CounterOpts{
			Name: "collections_total",
			Help: "Collections processed, by result",
		}, []string{"result"}),

		DocumentsTotal: reg.NewCounterVec(prometheus.CounterOpts{
			Name: "documents_total",
			Help: "Protocol documents parsed, by role and result",
		}, []string{"role", "result"}),

		CompileDuration: reg.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "compile_duration_seconds",
			Help:    "Time to compile one collection",
			Buckets: metrics.DurationBuckets,
		}, []string{"collection"}),

		InterfacesPerDoc: reg.NewHistogram(prometheus.HistogramOpts{
			Name:    "interfaces_per_document",
			Help:    "Interfaces declared per compiled document",
			Buckets: metrics.CountBuckets,
		}),

		GeneratedBytes: reg.NewHistogram(prometheus.HistogramOpts{
			Name:    "generated_file_bytes",
			Help:    "Size of generated source files",
			Buckets: metrics.SizeBuckets,
		}),

		LastRunTimestamp: reg.NewGauge(prometheus.GaugeOpts{
			Name: "last_run_timestamp_seconds",
			Help: "Unix time the last catalog run finished",
		}),

		LastRunCollections: reg.NewGaugeVec(prometheus.GaugeOpts{
			Name: "last_run_collections",
			Help: "Collections of the last run, by result",
		}, []string{"result"}),
	}
}

func (m *Metrics) recordDocument(role, result string) {
	if m == nil {
		return
	}
	m.DocumentsTotal.WithLabelValues(role, result).Inc()
}

func (m *Metrics) recordCollection(r *CollectionResult) {
	if m == nil {
		return
	}
	m.CollectionsTotal.WithLabelValues(r.Status()).Inc()
	if r.Skipped {
		return
	}
	m.CompileDuration.WithLabelValues(r.Name).Observe(r.Duration.Seconds())
	for _, p := range r.Protocols {
		m.InterfacesPerDoc.Observe(float64(len(p.Interfaces)))
	}
	for _, out := range r.Outputs {
		for _, f := range out.Files {
			m.GeneratedBytes.Observe(float64(len(f.Content)))
		}
	}
}

func (m *Metrics) recordRun(res *Result) {
	if m == nil {
		return
	}
	counts := map[string]int{StatusCompiled: 0, StatusFailed: 0, StatusSkipped: 0}
	for _, c := range res.Collections {
		counts[c.Status()]++
	}
	for status, n := range counts {
		m.LastRunCollections.WithLabelValues(status).Set(float64(n))
	}
	m.LastRunTimestamp.Set(float64(res.Finished.UnixNano()) / float64(time.Second))
}
