package prommetrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestNewMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg, "test")

	if metrics == nil {
		t.Fatal("NewMetrics returned nil")
	}
}

func TestRecordersRegisterMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg, "test")

	metrics.RecordWebhookEvent("checkout.session.completed", "success")
	metrics.RecordWebhookProcessingDuration("checkout.session.completed", 25*time.Millisecond)
	metrics.RecordWebhookError("auth_failed")
	metrics.RecordCheckoutSession("subscription", "success")
	metrics.RecordCustomerSync("success")
	metrics.RecordCustomerSyncDuration(10 * time.Millisecond)
	metrics.RecordCompensation("succeeded")
	metrics.RecordGatewayCall("/customers", "success")
	metrics.RecordGatewayCallDuration("/customers", 40*time.Millisecond)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	if len(families) != 9 {
		t.Errorf("expected 9 metric families, got %d", len(families))
	}

	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{
		"test_payments_webhook_events_total",
		"test_payments_checkout_sessions_total",
		"test_payments_customer_compensations_total",
		"test_payments_gateway_call_duration_seconds",
	} {
		if !names[want] {
			t.Errorf("missing metric family %s", want)
		}
	}
}
