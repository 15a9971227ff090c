package payments

import "time"

// Metrics defines the interface for tracking checkout and reconciliation
// operations. All methods are optional - components should gracefully handle
// nil metrics by substituting NoopMetrics.
type Metrics interface {
	// RecordWebhookEvent records a webhook event received from the gateway.
	// status: "success" or "error"
	RecordWebhookEvent(eventType, status string)

	// RecordWebhookProcessingDuration records how long it took to process a
	// webhook event.
	RecordWebhookProcessingDuration(eventType string, duration time.Duration)

	// RecordWebhookError records a webhook failure.
	// errorType: e.g. "auth_failed", "invalid_payload", "processing_error"
	RecordWebhookError(errorType string)

	// RecordCheckoutSession records a checkout-session creation attempt.
	// mode: "payment" or "subscription"; status: "success" or "error"
	RecordCheckoutSession(mode, status string)

	// RecordCustomerSync records a subscription sync for one customer.
	// status: "success" or "error"
	RecordCustomerSync(status string)

	// RecordCustomerSyncDuration records how long a customer sync took.
	RecordCustomerSyncDuration(duration time.Duration)

	// RecordCompensation records the outcome of a compensating delete of a
	// remote customer ("succeeded" or "failed"). A failed compensation means
	// a leaked remote resource worth alerting on.
	RecordCompensation(outcome string)

	// RecordGatewayCall records an API call to the payment gateway.
	RecordGatewayCall(endpoint, status string)

	// RecordGatewayCallDuration records how long a gateway call took.
	RecordGatewayCallDuration(endpoint string, duration time.Duration)
}

// NoopMetrics is a no-op implementation of the Metrics interface.
type NoopMetrics struct{}

func (n *NoopMetrics) RecordWebhookEvent(_, _ string)                            {}
func (n *NoopMetrics) RecordWebhookProcessingDuration(_ string, _ time.Duration) {}
func (n *NoopMetrics) RecordWebhookError(_ string)                               {}
func (n *NoopMetrics) RecordCheckoutSession(_, _ string)                         {}
func (n *NoopMetrics) RecordCustomerSync(_ string)                               {}
func (n *NoopMetrics) RecordCustomerSyncDuration(_ time.Duration)                {}
func (n *NoopMetrics) RecordCompensation(_ string)                               {}
func (n *NoopMetrics) RecordGatewayCall(_, _ string)                             {}
func (n *NoopMetrics) RecordGatewayCallDuration(_ string, _ time.Duration)       {}
