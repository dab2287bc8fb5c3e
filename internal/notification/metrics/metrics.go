package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks SMS dispatch outcomes.
type Metrics struct {
	Enqueued   *prometheus.CounterVec
	Dropped    *prometheus.CounterVec
	Sent       *prometheus.CounterVec
	Failed     *prometheus.CounterVec
	QueueDepth prometheus.Gauge
}

func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Enqueued: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "barangay_sms_enqueued_total",
			Help: "Notifications accepted into the dispatch queue",
		}, []string{"kind"}),
		Dropped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "barangay_sms_dropped_total",
			Help: "Notifications dropped before sending, by reason",
		}, []string{"reason"}),
		Sent: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "barangay_sms_sent_total",
			Help: "Notifications the provider accepted",
		}, []string{"provider", "kind"}),
		Failed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "barangay_sms_failed_total",
			Help: "Notifications the provider rejected or could not be reached for",
		}, []string{"provider", "kind"}),
		QueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "barangay_sms_queue_depth",
			Help: "Notifications waiting in the in-process queue",
		}),
	}
}

func (m *Metrics) IncrementEnqueued(kind string) { m.Enqueued.WithLabelValues(kind).Inc() }
func (m *Metrics) IncrementDropped(reason string) { m.Dropped.WithLabelValues(reason).Inc() }

func (m *Metrics) IncrementSent(provider, kind string) {
	m.Sent.WithLabelValues(provider, kind).Inc()
}

func (m *Metrics) IncrementFailed(provider, kind string) {
	m.Failed.WithLabelValues(provider, kind).Inc()
}

func (m *Metrics) SetQueueDepth(n int) { m.QueueDepth.Set(float64(n)) }
