package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the documents module.
// Tracks request lifecycle counts, generation latency and template cache use.
type Metrics struct {
	RequestsCreated     *prometheus.CounterVec
	RequestsProcessed   *prometheus.CounterVec
	RequestsCancelled   prometheus.Counter
	GenerationDuration  prometheus.Histogram
	GenerationFailures  prometheus.Counter
	TemplateCacheHits   prometheus.Counter
	TemplateCacheMisses prometheus.Counter
	DefaultTemplates    *prometheus.CounterVec
}

// New registers documents metrics with the default registry.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers documents metrics with reg.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RequestsCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "barangay_document_requests_created_total",
			Help: "Document requests created, by type and origin",
		}, []string{"type", "origin"}),
		RequestsProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "barangay_document_requests_processed_total",
			Help: "Document requests approved or denied",
		}, []string{"type", "status"}),
		RequestsCancelled: factory.NewCounter(prometheus.CounterOpts{
			Name: "barangay_document_requests_cancelled_total",
			Help: "Pending requests cancelled by citizens",
		}),
		GenerationDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "barangay_document_generation_duration_seconds",
			Help:    "Duration of template fill and file write during approval",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
		GenerationFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "barangay_document_generation_failures_total",
			Help: "Approvals that failed to render or persist the document",
		}),
		TemplateCacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "barangay_template_cache_hits_total",
			Help: "Template reads served from the in-memory cache",
		}),
		TemplateCacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "barangay_template_cache_misses_total",
			Help: "Template reads that went to disk",
		}),
		DefaultTemplates: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "barangay_default_templates_created_total",
			Help: "Built-in templates materialized because none was uploaded",
		}, []string{"type"}),
	}
}

// IncrementCreated records a new request. origin is "citizen" or "admin".
func (m *Metrics) IncrementCreated(docType, origin string) {
	m.RequestsCreated.WithLabelValues(docType, origin).Inc()
}

// IncrementProcessed records an approval or denial.
func (m *Metrics) IncrementProcessed(docType, status string) {
	m.RequestsProcessed.WithLabelValues(docType, status).Inc()
}

func (m *Metrics) IncrementCancelled() {
	m.RequestsCancelled.Inc()
}

// ObserveGeneration records the duration of a document generation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveGeneration(start time.Time) {
	m.GenerationDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncrementGenerationFailure() {
	m.GenerationFailures.Inc()
}

func (m *Metrics) IncrementTemplateCacheHit() {
	m.TemplateCacheHits.Inc()
}

func (m *Metrics) IncrementTemplateCacheMiss() {
	m.TemplateCacheMisses.Inc()
}

func (m *Metrics) IncrementDefaultTemplate(docType string) {
	m.DefaultTemplates.WithLabelValues(docType).Inc()
}
