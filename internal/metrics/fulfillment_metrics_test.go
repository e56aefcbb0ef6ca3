package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestNewFulfillmentMetricsWithRegisterer(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := newFulfillmentMetricsWithRegisterer(reg)

	if metrics == nil {
		t.Fatal("newFulfillmentMetricsWithRegisterer should not return nil")
	}
	if metrics.sagaStarted == nil {
		t.Error("sagaStarted counter should not be nil")
	}
	if metrics.sagaResumed == nil {
		t.Error("sagaResumed counter should not be nil")
	}
	if metrics.stepDuration == nil {
		t.Error("stepDuration histogram vec should not be nil")
	}
	if metrics.activeSagas == nil {
		t.Error("activeSagas gauge should not be nil")
	}

	// Повторная регистрация в том же registry должна вернуть те же коллекторы.
	again := newFulfillmentMetricsWithRegisterer(reg)
	if again.sagaStarted != metrics.sagaStarted {
		t.Error("re-registration should reuse the existing counter")
	}
}

func TestFulfillmentMetricsRecordSagaLifecycle(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := newFulfillmentMetricsWithRegisterer(reg)

	metrics.RecordSagaStarted()
	metrics.RecordCourseEnrolled()
	metrics.RecordCourseEnrolled()
	metrics.RecordSagaCompleted()
	metrics.RecordSagaDuration(150 * time.Millisecond)
	metrics.RecordStepDuration("enrol_course", 30*time.Millisecond)
	metrics.RecordSagaFinished()

	if got := counterValue(t, metrics.sagaStarted); got != 1 {
		t.Errorf("sagaStarted = %v, want 1", got)
	}
	if got := counterValue(t, metrics.coursesEnrolled); got != 2 {
		t.Errorf("coursesEnrolled = %v, want 2", got)
	}
	if got := gaugeValue(t, metrics.activeSagas); got != 0 {
		t.Errorf("activeSagas = %v, want 0 after finish", got)
	}
}

func TestWebhookMetricsRecordOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := newWebhookMetricsWithRegisterer(reg)

	metrics.RecordOutcome("fulfilled")
	metrics.RecordOutcome("ignored")
	metrics.RecordOutcome("ignored")
	metrics.RecordSignatureFailure()
	metrics.RecordDuration(10 * time.Millisecond)

	if got := counterValue(t, metrics.received.WithLabelValues("ignored")); got != 2 {
		t.Errorf("received{ignored} = %v, want 2", got)
	}
	if got := counterValue(t, metrics.verifyFailed); got != 1 {
		t.Errorf("verifyFailed = %v, want 1", got)
	}
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("write counter: %v", err)
	}
	return m.GetCounter().GetValue()
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	if err := g.Write(&m); err != nil {
		t.Fatalf("write gauge: %v", err)
	}
	return m.GetGauge().GetValue()
}
