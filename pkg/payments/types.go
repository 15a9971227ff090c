// Package payments defines the domain model shared by the checkout and
// reconciliation services: waitlist entries, customer mappings, subscription
// snapshots, order records, and the seams (store, logger, metrics) the
// services are wired through.
package payments

import "time"

// SubscriptionStatus is the gateway-reported lifecycle state of a
// subscription. Transitions are driven entirely by the payment gateway and
// are not validated locally: not_started -> {incomplete, trialing, active};
// active <-> past_due; any non-terminal state -> canceled | unpaid. A
// customer may start a new subscription later, producing a fresh status on
// the same customer_id row.
type SubscriptionStatus string

const (
	SubscriptionNotStarted SubscriptionStatus = "not_started"
	SubscriptionIncomplete SubscriptionStatus = "incomplete"
	SubscriptionTrialing   SubscriptionStatus = "trialing"
	SubscriptionActive     SubscriptionStatus = "active"
	SubscriptionPastDue    SubscriptionStatus = "past_due"
	SubscriptionCanceled   SubscriptionStatus = "canceled"
	SubscriptionUnpaid     SubscriptionStatus = "unpaid"
	SubscriptionPaused     SubscriptionStatus = "paused"
)

// OrderCompleted is the fixed status recorded for every one-time payment.
const OrderCompleted = "completed"

// WaitlistEntry is a signup on the pre-launch waitlist. Created when a
// visitor submits their email; DepositPaid flips to true only through
// webhook reconciliation of a confirmed payment. Entries are never deleted
// by this subsystem.
type WaitlistEntry struct {
	ID               string
	Email            string
	DepositPaid      bool
	StripeCustomerID string
	PaymentIntentID  string
	Position         int64
	CreatedAt        time.Time
}

// CustomerMapping links an identity to a payment-gateway customer account.
// UserID is empty for guest (public checkout) customers. At most one active
// (DeletedAt == nil) mapping exists per user.
type CustomerMapping struct {
	UserID     string
	CustomerID string
	DeletedAt  *time.Time
	CreatedAt  time.Time
}

// SubscriptionRecord is a cache of the gateway's subscription state for one
// customer, keyed by CustomerID. It is upserted wholesale on every
// reconciliation event; it is not an independent source of truth.
type SubscriptionRecord struct {
	CustomerID         string
	SubscriptionID     string
	PriceID            string
	Status             SubscriptionStatus
	CurrentPeriodStart int64
	CurrentPeriodEnd   int64
	CancelAtPeriodEnd  bool
	PaymentMethodBrand string
	PaymentMethodLast4 string
	UpdatedAt          time.Time
}

// OrderRecord is one row in the append-only log of completed one-time
// payments. CheckoutSessionID is unique so webhook redelivery cannot record
// the same payment twice.
type OrderRecord struct {
	CheckoutSessionID string
	PaymentIntentID   string
	CustomerID        string
	AmountSubtotal    int64
	AmountTotal       int64
	Currency          string
	PaymentStatus     string
	Status            string
	CreatedAt         time.Time
}
