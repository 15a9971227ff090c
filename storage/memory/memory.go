// Package memory provides an in-memory implementation of the payments.Store
// interface. This implementation is primarily intended for testing and
// development.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hellotelle/payments/pkg/payments"
)

// Store implements payments.Store using in-memory maps.
type Store struct {
	mu            sync.RWMutex
	mappings      []*payments.CustomerMapping
	subscriptions map[string]*payments.SubscriptionRecord
	orders        map[string]*payments.OrderRecord
	waitlist      map[string]*payments.WaitlistEntry
	nextPosition  int64
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		subscriptions: make(map[string]*payments.SubscriptionRecord),
		orders:        make(map[string]*payments.OrderRecord),
		waitlist:      make(map[string]*payments.WaitlistEntry),
	}
}

// ActiveCustomerMapping implements payments.Store.
func (s *Store) ActiveCustomerMapping(ctx context.Context, userID string) (*payments.CustomerMapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, m := range s.mappings {
		if m.UserID == userID && userID != "" && m.DeletedAt == nil {
			mCopy := *m
			return &mCopy, nil
		}
	}
	return nil, payments.ErrCustomerMappingNotFound
}

// CreateCustomerMapping implements payments.Store.
func (s *Store) CreateCustomerMapping(ctx context.Context, m *payments.CustomerMapping) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	mCopy := *m
	if mCopy.CreatedAt.IsZero() {
		mCopy.CreatedAt = time.Now().UTC()
	}
	s.mappings = append(s.mappings, &mCopy)
	return nil
}

// SubscriptionByCustomerID implements payments.Store.
func (s *Store) SubscriptionByCustomerID(ctx context.Context, customerID string) (*payments.SubscriptionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.subscriptions[customerID]
	if !ok {
		return nil, payments.ErrSubscriptionNotFound
	}
	recCopy := *rec
	return &recCopy, nil
}

// UpsertSubscription implements payments.Store.
func (s *Store) UpsertSubscription(ctx context.Context, rec *payments.SubscriptionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	recCopy := *rec
	recCopy.UpdatedAt = time.Now().UTC()
	s.subscriptions[rec.CustomerID] = &recCopy
	return nil
}

// InsertOrder implements payments.Store.
func (s *Store) InsertOrder(ctx context.Context, o *payments.OrderRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orders[o.CheckoutSessionID]; ok {
		return payments.ErrDuplicateOrder
	}
	oCopy := *o
	if oCopy.CreatedAt.IsZero() {
		oCopy.CreatedAt = time.Now().UTC()
	}
	s.orders[o.CheckoutSessionID] = &oCopy
	return nil
}

// CreateWaitlistEntry implements payments.Store.
func (s *Store) CreateWaitlistEntry(ctx context.Context, e *payments.WaitlistEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, entry := range s.waitlist {
		if entry.Email == e.Email {
			return payments.ErrEmailAlreadyOnWaitlist
		}
	}

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	s.nextPosition++
	e.Position = s.nextPosition
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	eCopy := *e
	s.waitlist[e.ID] = &eCopy
	return nil
}

// WaitlistEntryByEmail implements payments.Store.
func (s *Store) WaitlistEntryByEmail(ctx context.Context, email string) (*payments.WaitlistEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, entry := range s.waitlist {
		if entry.Email == email {
			eCopy := *entry
			return &eCopy, nil
		}
	}
	return nil, payments.ErrWaitlistEntryNotFound
}

// MarkWaitlistDepositPaid implements payments.Store.
func (s *Store) MarkWaitlistDepositPaid(ctx context.Context, waitlistID, customerID, paymentIntentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.waitlist[waitlistID]
	if !ok {
		return payments.ErrWaitlistEntryNotFound
	}
	entry.DepositPaid = true
	entry.StripeCustomerID = customerID
	entry.PaymentIntentID = paymentIntentID
	return nil
}

var _ payments.Store = (*Store)(nil)
