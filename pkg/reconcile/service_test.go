package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hellotelle/payments/pkg/gateway"
	"github.com/hellotelle/payments/pkg/payments"
	"github.com/hellotelle/payments/storage/memory"
)

// fakeGateway serves a canned subscription per customer and counts lookups.
type fakeGateway struct {
	subscriptions map[string]*gateway.Subscription
	listCalls     int
	listErr       error

	event    *gateway.Event
	eventErr error
}

func (f *fakeGateway) CreateCustomer(context.Context, gateway.CustomerParams) (*gateway.Customer, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeGateway) DeleteCustomer(context.Context, string) error {
	return errors.New("not implemented")
}

func (f *fakeGateway) CreateCheckoutSession(context.Context, gateway.SessionParams) (*gateway.Session, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeGateway) LatestSubscription(_ context.Context, customerID string) (*gateway.Subscription, error) {
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	sub, ok := f.subscriptions[customerID]
	if !ok {
		return nil, gateway.ErrNoSubscription
	}
	return sub, nil
}

func (f *fakeGateway) ConstructEvent(_ []byte, _ string) (*gateway.Event, error) {
	if f.eventErr != nil {
		return nil, f.eventErr
	}
	return f.event, nil
}

func newTestService(t *testing.T, gw gateway.Gateway, store payments.Store) *Service {
	t.Helper()
	svc, err := NewService(Config{Gateway: gw, Store: store})
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	return svc
}

func makeEvent(t *testing.T, eventType string, object map[string]interface{}) *gateway.Event {
	t.Helper()
	raw, err := json.Marshal(object)
	if err != nil {
		t.Fatalf("failed to marshal event object: %v", err)
	}
	return &gateway.Event{ID: "evt_1", Type: eventType, ObjectRaw: raw}
}

func TestProcessEventIgnoresObjectsWithoutCustomer(t *testing.T) {
	gw := &fakeGateway{}
	store := memory.New()
	svc := newTestService(t, gw, store)

	event := makeEvent(t, "product.created", map[string]interface{}{
		"id": "prod_1",
	})
	if err := svc.ProcessEvent(context.Background(), event); err != nil {
		t.Fatalf("ProcessEvent failed: %v", err)
	}
	if gw.listCalls != 0 {
		t.Error("no sync should happen for events without a customer field")
	}
}

func TestProcessEventSkipsPaymentIntentWithoutInvoice(t *testing.T) {
	gw := &fakeGateway{}
	store := memory.New()
	svc := newTestService(t, gw, store)

	// One-time payment intents carry a null invoice and are recorded through
	// the checkout.session.completed event instead.
	event := makeEvent(t, "payment_intent.succeeded", map[string]interface{}{
		"id":       "pi_1",
		"customer": "cus_1",
		"invoice":  nil,
	})
	if err := svc.ProcessEvent(context.Background(), event); err != nil {
		t.Fatalf("ProcessEvent failed: %v", err)
	}
	if gw.listCalls != 0 {
		t.Error("payment_intent.succeeded without invoice must be skipped")
	}
}

func TestProcessEventSyncsNotStartedWhenNoSubscription(t *testing.T) {
	gw := &fakeGateway{subscriptions: map[string]*gateway.Subscription{}}
	store := memory.New()
	svc := newTestService(t, gw, store)
	ctx := context.Background()

	event := makeEvent(t, "customer.subscription.deleted", map[string]interface{}{
		"id":       "sub_1",
		"customer": "cus_1",
	})
	if err := svc.ProcessEvent(ctx, event); err != nil {
		t.Fatalf("ProcessEvent failed: %v", err)
	}

	rec, err := store.SubscriptionByCustomerID(ctx, "cus_1")
	if err != nil {
		t.Fatalf("SubscriptionByCustomerID failed: %v", err)
	}
	if rec.Status != payments.SubscriptionNotStarted {
		t.Errorf("expected not_started, got %s", rec.Status)
	}
}

func TestProcessEventSyncsFullSnapshot(t *testing.T) {
	gw := &fakeGateway{subscriptions: map[string]*gateway.Subscription{
		"cus_1": {
			ID:                 "sub_1",
			PriceID:            "price_1",
			Status:             payments.SubscriptionActive,
			CurrentPeriodStart: 100,
			CurrentPeriodEnd:   200,
			CancelAtPeriodEnd:  true,
			PaymentMethodBrand: "visa",
			PaymentMethodLast4: "4242",
		},
	}}
	store := memory.New()
	svc := newTestService(t, gw, store)
	ctx := context.Background()

	// Seed a stale row; the sync must fully replace it.
	if err := store.UpsertSubscription(ctx, &payments.SubscriptionRecord{
		CustomerID: "cus_1",
		Status:     payments.SubscriptionNotStarted,
	}); err != nil {
		t.Fatalf("UpsertSubscription failed: %v", err)
	}

	event := makeEvent(t, "checkout.session.completed", map[string]interface{}{
		"id":       "cs_1",
		"customer": "cus_1",
		"mode":     "subscription",
	})
	if err := svc.ProcessEvent(ctx, event); err != nil {
		t.Fatalf("ProcessEvent failed: %v", err)
	}

	rec, err := store.SubscriptionByCustomerID(ctx, "cus_1")
	if err != nil {
		t.Fatalf("SubscriptionByCustomerID failed: %v", err)
	}
	if rec.SubscriptionID != "sub_1" || rec.Status != payments.SubscriptionActive {
		t.Errorf("unexpected record: %+v", rec)
	}
	if rec.PaymentMethodLast4 != "4242" || !rec.CancelAtPeriodEnd {
		t.Errorf("snapshot fields not carried: %+v", rec)
	}
}

func TestProcessEventRedeliveryConverges(t *testing.T) {
	gw := &fakeGateway{subscriptions: map[string]*gateway.Subscription{
		"cus_1": {ID: "sub_1", Status: payments.SubscriptionActive},
	}}
	store := memory.New()
	svc := newTestService(t, gw, store)
	ctx := context.Background()

	event := makeEvent(t, "customer.subscription.updated", map[string]interface{}{
		"id":       "sub_1",
		"customer": map[string]interface{}{"id": "cus_1"},
	})

	for i := 0; i < 3; i++ {
		if err := svc.ProcessEvent(ctx, event); err != nil {
			t.Fatalf("delivery %d failed: %v", i+1, err)
		}
	}

	rec, err := store.SubscriptionByCustomerID(ctx, "cus_1")
	if err != nil {
		t.Fatalf("SubscriptionByCustomerID failed: %v", err)
	}
	if rec.Status != payments.SubscriptionActive {
		t.Errorf("expected active, got %s", rec.Status)
	}
}

func TestProcessEventRecordsWaitlistDeposit(t *testing.T) {
	gw := &fakeGateway{}
	store := memory.New()
	svc := newTestService(t, gw, store)
	ctx := context.Background()

	entry := &payments.WaitlistEntry{Email: "guest@example.com"}
	if err := store.CreateWaitlistEntry(ctx, entry); err != nil {
		t.Fatalf("CreateWaitlistEntry failed: %v", err)
	}

	event := makeEvent(t, "checkout.session.completed", map[string]interface{}{
		"id":              "cs_1",
		"customer":        "cus_1",
		"payment_intent":  "pi_1",
		"mode":            "payment",
		"payment_status":  "paid",
		"amount_subtotal": 5000,
		"amount_total":    5000,
		"currency":        "usd",
		"metadata": map[string]string{
			"type":        "waitlist_deposit",
			"waitlist_id": entry.ID,
		},
	})
	if err := svc.ProcessEvent(ctx, event); err != nil {
		t.Fatalf("ProcessEvent failed: %v", err)
	}

	got, err := store.WaitlistEntryByEmail(ctx, "guest@example.com")
	if err != nil {
		t.Fatalf("WaitlistEntryByEmail failed: %v", err)
	}
	if !got.DepositPaid {
		t.Error("deposit not marked paid")
	}
	if got.StripeCustomerID != "cus_1" || got.PaymentIntentID != "pi_1" {
		t.Errorf("payment references not recorded: %+v", got)
	}
	if gw.listCalls != 0 {
		t.Error("payment-mode session must not trigger a subscription sync")
	}
}

func TestProcessEventDuplicateOrderIsAcknowledged(t *testing.T) {
	gw := &fakeGateway{}
	store := memory.New()
	svc := newTestService(t, gw, store)
	ctx := context.Background()

	event := makeEvent(t, "checkout.session.completed", map[string]interface{}{
		"id":             "cs_1",
		"customer":       "cus_1",
		"payment_intent": "pi_1",
		"mode":           "payment",
		"payment_status": "paid",
		"amount_total":   5000,
		"currency":       "usd",
	})

	if err := svc.ProcessEvent(ctx, event); err != nil {
		t.Fatalf("first delivery failed: %v", err)
	}
	// A redelivered event finds the order already present and succeeds.
	if err := svc.ProcessEvent(ctx, event); err != nil {
		t.Fatalf("redelivery failed: %v", err)
	}
}

func TestProcessEventUnpaidSessionNotRecorded(t *testing.T) {
	gw := &fakeGateway{}
	store := memory.New()
	svc := newTestService(t, gw, store)
	ctx := context.Background()

	event := makeEvent(t, "checkout.session.completed", map[string]interface{}{
		"id":             "cs_1",
		"customer":       "cus_1",
		"mode":           "payment",
		"payment_status": "unpaid",
	})
	if err := svc.ProcessEvent(ctx, event); err != nil {
		t.Fatalf("ProcessEvent failed: %v", err)
	}

	// Delivering the paid version afterwards must still record the order.
	paid := makeEvent(t, "checkout.session.completed", map[string]interface{}{
		"id":             "cs_1",
		"customer":       "cus_1",
		"mode":           "payment",
		"payment_status": "paid",
	})
	if err := svc.ProcessEvent(ctx, paid); err != nil {
		t.Fatalf("ProcessEvent failed: %v", err)
	}
}

func TestProcessEventWaitlistFailureDoesNotAbort(t *testing.T) {
	gw := &fakeGateway{}
	store := memory.New()
	svc := newTestService(t, gw, store)
	ctx := context.Background()

	// Metadata points at a waitlist entry that does not exist; the order must
	// still be recorded so the gateway does not redeliver forever.
	event := makeEvent(t, "checkout.session.completed", map[string]interface{}{
		"id":             "cs_1",
		"customer":       "cus_1",
		"mode":           "payment",
		"payment_status": "paid",
		"metadata": map[string]string{
			"type":        "waitlist_deposit",
			"waitlist_id": "missing",
		},
	})
	if err := svc.ProcessEvent(ctx, event); err != nil {
		t.Fatalf("ProcessEvent failed: %v", err)
	}
}

func TestSyncCustomerGatewayFailureIsRetryable(t *testing.T) {
	gw := &fakeGateway{listErr: errors.New("gateway down")}
	store := memory.New()
	svc := newTestService(t, gw, store)

	err := svc.SyncCustomer(context.Background(), "cus_1")
	if err == nil {
		t.Fatal("expected error when gateway listing fails")
	}
}
