package payments

import "context"

// Store is the interface to the relational record store that owns the four
// entities. Implementations rely on per-row atomicity (unique keys plus
// upserts) for concurrency safety; callers hold no authoritative in-memory
// copies and take no locks.
type Store interface {
	// ActiveCustomerMapping returns the non-deleted mapping for a user.
	// Returns ErrCustomerMappingNotFound when none exists.
	ActiveCustomerMapping(ctx context.Context, userID string) (*CustomerMapping, error)

	// CreateCustomerMapping persists a new mapping. UserID may be empty for
	// guest customers.
	CreateCustomerMapping(ctx context.Context, m *CustomerMapping) error

	// SubscriptionByCustomerID returns the subscription snapshot for a
	// customer. Returns ErrSubscriptionNotFound when none exists.
	SubscriptionByCustomerID(ctx context.Context, customerID string) (*SubscriptionRecord, error)

	// UpsertSubscription replaces the subscription snapshot keyed by
	// CustomerID (last write wins).
	UpsertSubscription(ctx context.Context, rec *SubscriptionRecord) error

	// InsertOrder appends an order record. Returns ErrDuplicateOrder when an
	// order with the same CheckoutSessionID was already recorded.
	InsertOrder(ctx context.Context, o *OrderRecord) error

	// CreateWaitlistEntry persists a new signup. Returns
	// ErrEmailAlreadyOnWaitlist when the email is taken; the entry's ID and
	// Position are populated on success.
	CreateWaitlistEntry(ctx context.Context, e *WaitlistEntry) error

	// WaitlistEntryByEmail returns the entry for an email, or
	// ErrWaitlistEntryNotFound.
	WaitlistEntryByEmail(ctx context.Context, email string) (*WaitlistEntry, error)

	// MarkWaitlistDepositPaid flips DepositPaid on the entry and records the
	// gateway customer and payment intent ids. Returns
	// ErrWaitlistEntryNotFound when no entry matches.
	MarkWaitlistDepositPaid(ctx context.Context, waitlistID, customerID, paymentIntentID string) error
}
