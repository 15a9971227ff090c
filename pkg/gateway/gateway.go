// Package gateway defines the interface to the external payment processor.
// The checkout and reconciliation services depend on this interface rather
// than a concrete SDK so they can be exercised with fakes in tests.
package gateway

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/hellotelle/payments/pkg/payments"
)

// Checkout session modes accepted by the gateway.
const (
	ModePayment      = "payment"
	ModeSubscription = "subscription"
)

// ErrNoSubscription is returned by LatestSubscription when the customer has
// never had a subscription at the gateway.
var ErrNoSubscription = errors.New("customer has no subscriptions")

// Customer is a payment-account record at the gateway.
type Customer struct {
	ID    string
	Email string
}

// CustomerParams describes a customer to create at the gateway. Metadata is
// attached verbatim and is later used to recognize the account in webhook
// payloads.
type CustomerParams struct {
	Email    string
	Metadata map[string]string
}

// Session is a hosted checkout session the caller redirects the user to.
type Session struct {
	ID  string
	URL string
}

// SessionParams describes a checkout session: a single line item for PriceID
// with quantity 1, charged to Customer.
type SessionParams struct {
	Customer   string
	PriceID    string
	Mode       string
	SuccessURL string
	CancelURL  string
	Metadata   map[string]string
}

// Subscription is the gateway's snapshot of a customer's most recent
// subscription, any status, with the default payment method expanded.
type Subscription struct {
	ID                 string
	PriceID            string
	Status             payments.SubscriptionStatus
	CurrentPeriodStart int64
	CurrentPeriodEnd   int64
	CancelAtPeriodEnd  bool
	PaymentMethodBrand string
	PaymentMethodLast4 string
}

// Event is a verified webhook notification. ObjectRaw is the embedded
// object's raw JSON; the reconciler inspects it without assuming a shape.
type Event struct {
	ID        string
	Type      string
	Created   int64
	ObjectRaw json.RawMessage
}

// Gateway is the client surface of the external payment processor.
type Gateway interface {
	// CreateCustomer creates a payment account at the gateway.
	CreateCustomer(ctx context.Context, params CustomerParams) (*Customer, error)

	// DeleteCustomer removes a payment account. Used as the compensating
	// action when persisting a customer mapping fails.
	DeleteCustomer(ctx context.Context, customerID string) error

	// CreateCheckoutSession creates a hosted checkout session.
	CreateCheckoutSession(ctx context.Context, params SessionParams) (*Session, error)

	// LatestSubscription returns the customer's most recent subscription
	// (limit 1, any status, default payment method expanded), or
	// ErrNoSubscription.
	LatestSubscription(ctx context.Context, customerID string) (*Subscription, error)

	// ConstructEvent verifies sigHeader against the raw payload using the
	// shared signing secret and returns the parsed event. Verification fails
	// closed: any mismatch or malformed payload is an error.
	ConstructEvent(payload []byte, sigHeader string) (*Event, error)
}
