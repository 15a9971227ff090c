package prommetrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/hellotelle/payments/pkg/payments"
)

// Metrics implements payments.Metrics using Prometheus.
type Metrics struct {
	webhookEventsTotal        *prometheus.CounterVec
	webhookProcessingDuration *prometheus.HistogramVec
	webhookErrorsTotal        *prometheus.CounterVec
	checkoutSessionsTotal     *prometheus.CounterVec
	customerSyncTotal         *prometheus.CounterVec
	customerSyncDuration      prometheus.Histogram
	compensationsTotal        *prometheus.CounterVec
	gatewayCallsTotal         *prometheus.CounterVec
	gatewayCallDuration       *prometheus.HistogramVec
}

// NewMetrics creates a new Prometheus metrics implementation.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		webhookEventsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "payments",
			Name:      "webhook_events_total",
			Help:      "Total number of webhook events received from the payment gateway.",
		}, []string{"event_type", "status"}),

		webhookProcessingDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "payments",
			Name:      "webhook_processing_duration_seconds",
			Help:      "Duration of webhook processing in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"event_type"}),

		webhookErrorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "payments",
			Name:      "webhook_errors_total",
			Help:      "Total number of webhook processing errors.",
		}, []string{"error_type"}),

		checkoutSessionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "payments",
			Name:      "checkout_sessions_total",
			Help:      "Total number of checkout-session creation attempts.",
		}, []string{"mode", "status"}),

		customerSyncTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "payments",
			Name:      "customer_sync_total",
			Help:      "Total number of subscription sync operations.",
		}, []string{"status"}),

		customerSyncDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "payments",
			Name:      "customer_sync_duration_seconds",
			Help:      "Duration of subscription sync operations in seconds.",
			Buckets:   prometheus.DefBuckets,
		}),

		compensationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "payments",
			Name:      "customer_compensations_total",
			Help:      "Outcomes of compensating deletes of remote customers. A failed outcome means a leaked remote resource.",
		}, []string{"outcome"}),

		gatewayCallsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "payments",
			Name:      "gateway_calls_total",
			Help:      "Total number of API calls to the payment gateway.",
		}, []string{"endpoint", "status"}),

		gatewayCallDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "payments",
			Name:      "gateway_call_duration_seconds",
			Help:      "Duration of payment gateway API calls in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
	}
}

// DefaultMetrics creates metrics registered against the default Prometheus
// registry.
func DefaultMetrics(namespace string) *Metrics {
	return NewMetrics(prometheus.DefaultRegisterer, namespace)
}

var _ payments.Metrics = (*Metrics)(nil)

func (m *Metrics) RecordWebhookEvent(eventType, status string) {
	m.webhookEventsTotal.WithLabelValues(eventType, status).Inc()
}

func (m *Metrics) RecordWebhookProcessingDuration(eventType string, duration time.Duration) {
	m.webhookProcessingDuration.WithLabelValues(eventType).Observe(duration.Seconds())
}

func (m *Metrics) RecordWebhookError(errorType string) {
	m.webhookErrorsTotal.WithLabelValues(errorType).Inc()
}

func (m *Metrics) RecordCheckoutSession(mode, status string) {
	m.checkoutSessionsTotal.WithLabelValues(mode, status).Inc()
}

func (m *Metrics) RecordCustomerSync(status string) {
	m.customerSyncTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) RecordCustomerSyncDuration(duration time.Duration) {
	m.customerSyncDuration.Observe(duration.Seconds())
}

func (m *Metrics) RecordCompensation(outcome string) {
	m.compensationsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordGatewayCall(endpoint, status string) {
	m.gatewayCallsTotal.WithLabelValues(endpoint, status).Inc()
}

func (m *Metrics) RecordGatewayCallDuration(endpoint string, duration time.Duration) {
	m.gatewayCallDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}
