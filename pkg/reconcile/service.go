// Package reconcile consumes payment-gateway webhook events and reconciles
// local subscription, order, and waitlist state with the gateway's source of
// truth.
package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hellotelle/payments/pkg/gateway"
	"github.com/hellotelle/payments/pkg/payments"
)

const (
	eventCheckoutSessionCompleted = "checkout.session.completed"
	eventPaymentIntentSucceeded   = "payment_intent.succeeded"

	paymentStatusPaid = "paid"

	metadataTypeKey       = "type"
	metadataWaitlistIDKey = "waitlist_id"
	metadataWaitlistType  = "waitlist_deposit"
)

// Config holds reconciliation service dependencies.
type Config struct {
	// Gateway is the payment processor client (required).
	Gateway gateway.Gateway

	// Store is the record store (required).
	Store payments.Store

	// Logger is optional; defaults to NoopLogger.
	Logger payments.Logger

	// Metrics is optional; defaults to NoopMetrics.
	Metrics payments.Metrics
}

// Service reconciles webhook events. Subscription sync always re-fetches the
// gateway's state rather than applying deltas, so redelivered or reordered
// events converge on the same final row.
type Service struct {
	gw      gateway.Gateway
	store   payments.Store
	logger  payments.Logger
	metrics payments.Metrics
}

// NewService creates a reconciliation service.
func NewService(config Config) (*Service, error) {
	if config.Gateway == nil {
		return nil, errors.New("gateway is required")
	}
	if config.Store == nil {
		return nil, errors.New("store is required")
	}

	logger := config.Logger
	if logger == nil {
		logger = &payments.NoopLogger{}
	}
	metrics := config.Metrics
	if metrics == nil {
		metrics = &payments.NoopMetrics{}
	}

	return &Service{
		gw:      config.Gateway,
		store:   config.Store,
		logger:  logger,
		metrics: metrics,
	}, nil
}

// eventObject is the subset of a webhook event's embedded object this
// service inspects. Reference fields (customer, payment_intent) may arrive
// as bare id strings or expanded objects.
type eventObject struct {
	ID             string            `json:"id"`
	Customer       objectRef         `json:"customer"`
	PaymentIntent  objectRef         `json:"payment_intent"`
	Mode           string            `json:"mode"`
	PaymentStatus  string            `json:"payment_status"`
	AmountSubtotal int64             `json:"amount_subtotal"`
	AmountTotal    int64             `json:"amount_total"`
	Currency       string            `json:"currency"`
	Metadata       map[string]string `json:"metadata"`
}

// objectRef accepts either "id_string" or {"id": "..."}.
type objectRef struct {
	ID string
}

func (r *objectRef) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		r.ID = s
		return nil
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	r.ID = obj.ID
	return nil
}

// ProcessEvent routes one verified event. Events whose object carries no
// customer are not relevant to this subsystem and are acknowledged without
// action; processing failures are returned so the caller signals the gateway
// to redeliver.
func (s *Service) ProcessEvent(ctx context.Context, event *gateway.Event) error {
	fields, err := rawFields(event.ObjectRaw)
	if err != nil {
		return fmt.Errorf("failed to parse event object: %w", err)
	}

	if _, ok := fields["customer"]; !ok {
		return nil
	}

	// Succeeded payment intents outside invoice flows are recorded via
	// checkout.session.completed instead, so the same payment is not
	// processed twice.
	if event.Type == eventPaymentIntentSucceeded {
		if invoice, ok := fields["invoice"]; ok && string(invoice) == "null" {
			return nil
		}
	}

	var obj eventObject
	if err := json.Unmarshal(event.ObjectRaw, &obj); err != nil {
		return fmt.Errorf("failed to parse event object: %w", err)
	}

	if obj.Customer.ID == "" {
		s.logger.Error("no customer received on event",
			payments.Field{Key: "event_id", Value: event.ID},
			payments.Field{Key: "event_type", Value: event.Type})
		return nil
	}

	isSubscription := true
	if event.Type == eventCheckoutSessionCompleted {
		isSubscription = obj.Mode == gateway.ModeSubscription
		s.logger.Info("processing checkout session",
			payments.Field{Key: "session_id", Value: obj.ID},
			payments.Field{Key: "mode", Value: obj.Mode})
	}

	if isSubscription {
		return s.SyncCustomer(ctx, obj.Customer.ID)
	}
	if obj.Mode == gateway.ModePayment && obj.PaymentStatus == paymentStatusPaid {
		return s.recordOneTimePayment(ctx, &obj)
	}
	return nil
}

// SyncCustomer refreshes the local subscription snapshot from the gateway.
// The gateway's state fully replaces the local row: this is a last-write-wins
// cache refresh, never a merge, which makes redelivery idempotent.
func (s *Service) SyncCustomer(ctx context.Context, customerID string) error {
	startTime := time.Now()

	sub, err := s.gw.LatestSubscription(ctx, customerID)
	if err != nil && !errors.Is(err, gateway.ErrNoSubscription) {
		s.metrics.RecordCustomerSync("error")
		s.metrics.RecordCustomerSyncDuration(time.Since(startTime))
		return fmt.Errorf("failed to list subscriptions for customer %s: %w", customerID, err)
	}

	var rec *payments.SubscriptionRecord
	if errors.Is(err, gateway.ErrNoSubscription) {
		// Customer exists but never subscribed; distinct from canceled.
		rec = &payments.SubscriptionRecord{
			CustomerID: customerID,
			Status:     payments.SubscriptionNotStarted,
		}
	} else {
		rec = &payments.SubscriptionRecord{
			CustomerID:         customerID,
			SubscriptionID:     sub.ID,
			PriceID:            sub.PriceID,
			Status:             sub.Status,
			CurrentPeriodStart: sub.CurrentPeriodStart,
			CurrentPeriodEnd:   sub.CurrentPeriodEnd,
			CancelAtPeriodEnd:  sub.CancelAtPeriodEnd,
			PaymentMethodBrand: sub.PaymentMethodBrand,
			PaymentMethodLast4: sub.PaymentMethodLast4,
		}
	}

	if err := s.store.UpsertSubscription(ctx, rec); err != nil {
		s.metrics.RecordCustomerSync("error")
		s.metrics.RecordCustomerSyncDuration(time.Since(startTime))
		return fmt.Errorf("failed to sync subscription for customer %s: %w", customerID, err)
	}

	s.metrics.RecordCustomerSync("success")
	s.metrics.RecordCustomerSyncDuration(time.Since(startTime))
	s.logger.Info("synced subscription",
		payments.Field{Key: "customer_id", Value: customerID},
		payments.Field{Key: "status", Value: string(rec.Status)})
	return nil
}

// recordOneTimePayment handles a completed, paid checkout session. The
// waitlist update is independent of order recording: its failure is logged
// but does not abort the event. The order insert is the retryable part;
// a duplicate insert means the event was already recorded.
func (s *Service) recordOneTimePayment(ctx context.Context, obj *eventObject) error {
	if obj.Metadata[metadataTypeKey] == metadataWaitlistType && obj.Metadata[metadataWaitlistIDKey] != "" {
		waitlistID := obj.Metadata[metadataWaitlistIDKey]
		err := s.store.MarkWaitlistDepositPaid(ctx, waitlistID, obj.Customer.ID, obj.PaymentIntent.ID)
		if err != nil {
			s.logger.Error("failed to mark waitlist deposit paid",
				payments.Field{Key: "waitlist_id", Value: waitlistID},
				payments.Field{Key: "error", Value: fmt.Sprint(err)})
		} else {
			s.logger.Info("marked waitlist deposit paid",
				payments.Field{Key: "waitlist_id", Value: waitlistID})
		}
	}

	order := &payments.OrderRecord{
		CheckoutSessionID: obj.ID,
		PaymentIntentID:   obj.PaymentIntent.ID,
		CustomerID:        obj.Customer.ID,
		AmountSubtotal:    obj.AmountSubtotal,
		AmountTotal:       obj.AmountTotal,
		Currency:          obj.Currency,
		PaymentStatus:     obj.PaymentStatus,
		Status:            payments.OrderCompleted,
	}
	if err := s.store.InsertOrder(ctx, order); err != nil {
		if errors.Is(err, payments.ErrDuplicateOrder) {
			s.logger.Info("order already recorded",
				payments.Field{Key: "session_id", Value: obj.ID})
			return nil
		}
		return fmt.Errorf("failed to insert order for session %s: %w", obj.ID, err)
	}

	s.logger.Info("recorded one-time payment",
		payments.Field{Key: "session_id", Value: obj.ID},
		payments.Field{Key: "customer_id", Value: obj.Customer.ID})
	return nil
}

func rawFields(raw json.RawMessage) (map[string]json.RawMessage, error) {
	fields := make(map[string]json.RawMessage)
	if len(raw) == 0 {
		return fields, nil
	}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}
