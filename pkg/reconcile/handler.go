package reconcile

import (
	"net/http"
	"time"

	"github.com/hellotelle/payments/internal/httpx"
	"github.com/hellotelle/payments/pkg/payments"
)

const maxWebhookBodyBytes = 256 * 1024

// Handler returns the HTTP handler for gateway webhooks, wrapped with
// per-IP rate limiting.
func (s *Service) Handler() http.Handler {
	limiter := httpx.NewRateLimiter(100, time.Minute)
	return limiter.Middleware(http.HandlerFunc(s.handleWebhook))
}

// handleWebhook verifies and processes one webhook delivery. The body is
// consumed as the exact byte stream received; nothing upstream may parse it
// before signature verification. A non-2xx response makes the gateway retry
// delivery.
func (s *Service) handleWebhook(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Content-Type-Options", "nosniff")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if r.Method != http.MethodPost {
		_ = httpx.WriteJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "Method not allowed"})
		return
	}

	body, err := httpx.ReadBodyStrict(w, r, maxWebhookBodyBytes)
	if err != nil {
		s.metrics.RecordWebhookError("invalid_payload")
		_ = httpx.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid payload"})
		return
	}

	sig := r.Header.Get("Stripe-Signature")
	if sig == "" {
		s.metrics.RecordWebhookError("missing_signature")
		_ = httpx.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "No signature found"})
		return
	}

	event, err := s.gw.ConstructEvent(body, sig)
	if err != nil {
		s.metrics.RecordWebhookError("auth_failed")
		s.logger.Warn("webhook signature verification failed",
			payments.Field{Key: "error", Value: err.Error()})
		_ = httpx.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	if err := s.ProcessEvent(r.Context(), event); err != nil {
		s.metrics.RecordWebhookEvent(event.Type, "error")
		s.metrics.RecordWebhookError("processing_error")
		s.metrics.RecordWebhookProcessingDuration(event.Type, time.Since(startTime))
		s.logger.Error("failed to process webhook event",
			payments.Field{Key: "event_id", Value: event.ID},
			payments.Field{Key: "event_type", Value: event.Type},
			payments.Field{Key: "error", Value: err.Error()})
		_ = httpx.WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	s.metrics.RecordWebhookEvent(event.Type, "success")
	s.metrics.RecordWebhookProcessingDuration(event.Type, time.Since(startTime))
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]bool{"received": true})
}
