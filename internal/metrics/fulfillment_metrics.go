// Package metrics содержит Prometheus-метрики сервиса.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// FulfillmentMetrics содержит метрики саги зачисления.
type FulfillmentMetrics struct {
	// Счётчики исходов саги
	sagaStarted   prometheus.Counter
	sagaCompleted prometheus.Counter
	sagaFailed    prometheus.Counter
	sagaResumed   prometheus.Counter

	usersCreated    prometheus.Counter
	coursesEnrolled prometheus.Counter
	coursesSkipped  prometheus.Counter

	// Гистограммы времени выполнения
	sagaDuration prometheus.Histogram
	stepDuration *prometheus.HistogramVec

	// Gauge для активных саг
	activeSagas prometheus.Gauge
}

// NewFulfillmentMetrics создаёт метрики саги в DefaultRegisterer.
func NewFulfillmentMetrics() *FulfillmentMetrics {
	return newFulfillmentMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func newFulfillmentMetricsWithRegisterer(registerer prometheus.Registerer) *FulfillmentMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &FulfillmentMetrics{
		sagaStarted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "coursepay_fulfillment_started_total",
			Help: "Total number of fulfillment sagas started",
		}),
		sagaCompleted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "coursepay_fulfillment_completed_total",
			Help: "Total number of fulfillment sagas completed successfully",
		}),
		sagaFailed: registerCounter(registerer, prometheus.CounterOpts{
			Name: "coursepay_fulfillment_failed_total",
			Help: "Total number of fulfillment sagas failed",
		}),
		sagaResumed: registerCounter(registerer, prometheus.CounterOpts{
			Name: "coursepay_fulfillment_resumed_total",
			Help: "Total number of fulfillment sagas resumed with prior progress",
		}),
		usersCreated: registerCounter(registerer, prometheus.CounterOpts{
			Name: "coursepay_lms_users_created_total",
			Help: "Total number of LMS user accounts created by the saga",
		}),
		coursesEnrolled: registerCounter(registerer, prometheus.CounterOpts{
			Name: "coursepay_lms_enrollments_total",
			Help: "Total number of successful LMS course enrollments",
		}),
		coursesSkipped: registerCounter(registerer, prometheus.CounterOpts{
			Name: "coursepay_lms_enrollments_skipped_total",
			Help: "Total number of course enrollments skipped on resume",
		}),
		sagaDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "coursepay_fulfillment_duration_seconds",
			Help:    "Duration of fulfillment sagas in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		stepDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "coursepay_fulfillment_step_duration_seconds",
			Help:    "Duration of individual fulfillment steps in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
		}, []string{"step"}),
		activeSagas: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "coursepay_fulfillment_active",
			Help: "Number of currently running fulfillment sagas",
		}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerGauge(registerer prometheus.Registerer, opts prometheus.GaugeOpts) prometheus.Gauge {
	collector := prometheus.NewGauge(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Gauge)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register gauge %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogram(registerer prometheus.Registerer, opts prometheus.HistogramOpts) prometheus.Histogram {
	collector := prometheus.NewHistogram(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Histogram)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogramVec(registerer prometheus.Registerer, opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	collector := prometheus.NewHistogramVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.HistogramVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram vec %q: %v", opts.Name, err))
	}
	return collector
}

// RecordSagaStarted увеличивает счётчик запущенных саг и число активных.
func (m *FulfillmentMetrics) RecordSagaStarted() {
	m.sagaStarted.Inc()
	m.activeSagas.Inc()
}

// RecordSagaFinished уменьшает число активных саг.
func (m *FulfillmentMetrics) RecordSagaFinished() {
	m.activeSagas.Dec()
}

// RecordSagaCompleted увеличивает счётчик успешно завершённых саг.
func (m *FulfillmentMetrics) RecordSagaCompleted() {
	m.sagaCompleted.Inc()
}

// RecordSagaFailed увеличивает счётчик неудачных саг.
func (m *FulfillmentMetrics) RecordSagaFailed() {
	m.sagaFailed.Inc()
}

// RecordSagaResumed увеличивает счётчик саг, возобновлённых с прогрессом.
func (m *FulfillmentMetrics) RecordSagaResumed() {
	m.sagaResumed.Inc()
}

// RecordUserCreated увеличивает счётчик созданных учётных записей LMS.
func (m *FulfillmentMetrics) RecordUserCreated() {
	m.usersCreated.Inc()
}

// RecordCourseEnrolled увеличивает счётчик успешных зачислений.
func (m *FulfillmentMetrics) RecordCourseEnrolled() {
	m.coursesEnrolled.Inc()
}

// RecordCourseSkipped увеличивает счётчик курсов, пропущенных при resume.
func (m *FulfillmentMetrics) RecordCourseSkipped() {
	m.coursesSkipped.Inc()
}

// RecordSagaDuration записывает время выполнения саги.
func (m *FulfillmentMetrics) RecordSagaDuration(duration time.Duration) {
	m.sagaDuration.Observe(duration.Seconds())
}

// RecordStepDuration записывает время выполнения шага саги.
func (m *FulfillmentMetrics) RecordStepDuration(step string, duration time.Duration) {
	m.stepDuration.WithLabelValues(step).Observe(duration.Seconds())
}
