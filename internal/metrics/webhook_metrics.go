package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// WebhookMetrics содержит метрики пайплайна входящих Stripe-событий.
type WebhookMetrics struct {
	// received считается по исходам обработки: fulfilled / accepted /
	// ignored / rejected.
	received *prometheus.CounterVec

	verifyFailed prometheus.Counter
	duration     prometheus.Histogram
}

// NewWebhookMetrics создаёт метрики webhook-пайплайна в DefaultRegisterer.
func NewWebhookMetrics() *WebhookMetrics {
	return newWebhookMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func newWebhookMetricsWithRegisterer(registerer prometheus.Registerer) *WebhookMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &WebhookMetrics{
		received: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "coursepay_webhook_events_total",
			Help: "Total number of processed webhook events by outcome",
		}, []string{"outcome"}),
		verifyFailed: registerCounter(registerer, prometheus.CounterOpts{
			Name: "coursepay_webhook_signature_failures_total",
			Help: "Total number of webhook events rejected by signature verification",
		}),
		duration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "coursepay_webhook_duration_seconds",
			Help:    "Duration of webhook event processing in seconds",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic("collector " + opts.Name + " already registered with unexpected type")
			}
			return existing
		}
		panic("register counter vec " + opts.Name + ": " + err.Error())
	}
	return collector
}

// RecordOutcome увеличивает счётчик событий с данным исходом обработки.
func (m *WebhookMetrics) RecordOutcome(outcome string) {
	m.received.WithLabelValues(outcome).Inc()
}

// RecordSignatureFailure увеличивает счётчик отказов проверки подписи.
func (m *WebhookMetrics) RecordSignatureFailure() {
	m.verifyFailed.Inc()
}

// RecordDuration записывает время обработки события.
func (m *WebhookMetrics) RecordDuration(duration time.Duration) {
	m.duration.Observe(duration.Seconds())
}
