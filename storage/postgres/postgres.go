// Package postgres provides a PostgreSQL implementation of the
// payments.Store interface. Concurrency safety comes from per-row atomicity:
// upserts on unique keys (customer_id, email, checkout_session_id) are the
// sole mechanism preventing duplicate rows under concurrent requests.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hellotelle/payments/pkg/payments"
)

// Store implements payments.Store using PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// Config holds PostgreSQL store configuration.
type Config struct {
	// ConnectionString is the PostgreSQL connection string (required).
	ConnectionString string

	// Pool configuration
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxConns:        10,
		MinConns:        2,
		MaxConnLifetime: time.Hour,
		MaxConnIdleTime: 30 * time.Minute,
	}
}

// New creates a new PostgreSQL store.
func New(ctx context.Context, config Config) (*Store, error) {
	if config.ConnectionString == "" {
		return nil, fmt.Errorf("connection string is required")
	}

	poolConfig, err := pgxpool.ParseConfig(config.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	if config.MaxConns > 0 {
		poolConfig.MaxConns = config.MaxConns
	}
	if config.MinConns > 0 {
		poolConfig.MinConns = config.MinConns
	}
	if config.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = config.MaxConnLifetime
	}
	if config.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = config.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Close closes the connection pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ping checks the PostgreSQL connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// ActiveCustomerMapping implements payments.Store.
func (s *Store) ActiveCustomerMapping(ctx context.Context, userID string) (*payments.CustomerMapping, error) {
	var m payments.CustomerMapping

	err := s.pool.QueryRow(ctx,
		`SELECT COALESCE(user_id, ''), customer_id, deleted_at, created_at
			FROM stripe_customers
			WHERE user_id = $1 AND deleted_at IS NULL`,
		userID).Scan(&m.UserID, &m.CustomerID, &m.DeletedAt, &m.CreatedAt)

	if err == pgx.ErrNoRows {
		return nil, payments.ErrCustomerMappingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get customer mapping: %w", err)
	}

	return &m, nil
}

// CreateCustomerMapping implements payments.Store.
func (s *Store) CreateCustomerMapping(ctx context.Context, m *payments.CustomerMapping) error {
	if m == nil || m.CustomerID == "" {
		return fmt.Errorf("invalid customer mapping")
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO stripe_customers (user_id, customer_id, created_at)
			VALUES (NULLIF($1, ''), $2, NOW())`,
		m.UserID, m.CustomerID)

	if err != nil {
		return fmt.Errorf("failed to create customer mapping: %w", err)
	}

	return nil
}

// SubscriptionByCustomerID implements payments.Store.
func (s *Store) SubscriptionByCustomerID(ctx context.Context, customerID string) (*payments.SubscriptionRecord, error) {
	var rec payments.SubscriptionRecord

	err := s.pool.QueryRow(ctx,
		`SELECT customer_id, COALESCE(subscription_id, ''), COALESCE(price_id, ''), status,
				COALESCE(current_period_start, 0), COALESCE(current_period_end, 0),
				cancel_at_period_end,
				COALESCE(payment_method_brand, ''), COALESCE(payment_method_last4, ''),
				updated_at
			FROM stripe_subscriptions WHERE customer_id = $1`,
		customerID).Scan(
		&rec.CustomerID,
		&rec.SubscriptionID,
		&rec.PriceID,
		&rec.Status,
		&rec.CurrentPeriodStart,
		&rec.CurrentPeriodEnd,
		&rec.CancelAtPeriodEnd,
		&rec.PaymentMethodBrand,
		&rec.PaymentMethodLast4,
		&rec.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, payments.ErrSubscriptionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	return &rec, nil
}

// UpsertSubscription implements payments.Store. The incoming snapshot fully
// replaces the stored row (last write wins).
func (s *Store) UpsertSubscription(ctx context.Context, rec *payments.SubscriptionRecord) error {
	if rec == nil || rec.CustomerID == "" {
		return fmt.Errorf("invalid subscription record")
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO stripe_subscriptions
				(customer_id, subscription_id, price_id, status,
				 current_period_start, current_period_end, cancel_at_period_end,
				 payment_method_brand, payment_method_last4, updated_at)
			VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), $4, $5, $6, $7, NULLIF($8, ''), NULLIF($9, ''), NOW())
			ON CONFLICT (customer_id) DO UPDATE SET
				subscription_id = EXCLUDED.subscription_id,
				price_id = EXCLUDED.price_id,
				status = EXCLUDED.status,
				current_period_start = EXCLUDED.current_period_start,
				current_period_end = EXCLUDED.current_period_end,
				cancel_at_period_end = EXCLUDED.cancel_at_period_end,
				payment_method_brand = EXCLUDED.payment_method_brand,
				payment_method_last4 = EXCLUDED.payment_method_last4,
				updated_at = EXCLUDED.updated_at`,
		rec.CustomerID, rec.SubscriptionID, rec.PriceID, string(rec.Status),
		rec.CurrentPeriodStart, rec.CurrentPeriodEnd, rec.CancelAtPeriodEnd,
		rec.PaymentMethodBrand, rec.PaymentMethodLast4)

	if err != nil {
		return fmt.Errorf("failed to upsert subscription: %w", err)
	}

	return nil
}

// InsertOrder implements payments.Store. The unique key on
// checkout_session_id makes redelivered webhook events report
// ErrDuplicateOrder instead of recording the payment twice.
func (s *Store) InsertOrder(ctx context.Context, o *payments.OrderRecord) error {
	if o == nil || o.CheckoutSessionID == "" {
		return fmt.Errorf("invalid order record")
	}

	tag, err := s.pool.Exec(ctx,
		`INSERT INTO stripe_orders
				(checkout_session_id, payment_intent_id, customer_id,
				 amount_subtotal, amount_total, currency, payment_status, status, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
			ON CONFLICT (checkout_session_id) DO NOTHING`,
		o.CheckoutSessionID, o.PaymentIntentID, o.CustomerID,
		o.AmountSubtotal, o.AmountTotal, o.Currency, o.PaymentStatus, o.Status)

	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return payments.ErrDuplicateOrder
	}

	return nil
}

// CreateWaitlistEntry implements payments.Store. Position is assigned by the
// database so concurrent signups never collide.
func (s *Store) CreateWaitlistEntry(ctx context.Context, e *payments.WaitlistEntry) error {
	if e == nil || e.Email == "" {
		return fmt.Errorf("invalid waitlist entry")
	}

	if e.ID == "" {
		e.ID = uuid.NewString()
	}

	err := s.pool.QueryRow(ctx,
		`INSERT INTO waitlist (id, email, deposit_paid, created_at)
			VALUES ($1, $2, FALSE, NOW())
			ON CONFLICT (email) DO NOTHING
			RETURNING id, "position", created_at`,
		e.ID, e.Email).Scan(&e.ID, &e.Position, &e.CreatedAt)

	if err == pgx.ErrNoRows {
		return payments.ErrEmailAlreadyOnWaitlist
	}
	if err != nil {
		return fmt.Errorf("failed to create waitlist entry: %w", err)
	}

	return nil
}

// WaitlistEntryByEmail implements payments.Store.
func (s *Store) WaitlistEntryByEmail(ctx context.Context, email string) (*payments.WaitlistEntry, error) {
	var e payments.WaitlistEntry

	err := s.pool.QueryRow(ctx,
		`SELECT id, email, deposit_paid, COALESCE(stripe_customer_id, ''),
				COALESCE(payment_intent_id, ''), "position", created_at
			FROM waitlist WHERE email = $1`,
		email).Scan(&e.ID, &e.Email, &e.DepositPaid, &e.StripeCustomerID,
		&e.PaymentIntentID, &e.Position, &e.CreatedAt)

	if err == pgx.ErrNoRows {
		return nil, payments.ErrWaitlistEntryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get waitlist entry: %w", err)
	}

	return &e, nil
}

// MarkWaitlistDepositPaid implements payments.Store.
func (s *Store) MarkWaitlistDepositPaid(ctx context.Context, waitlistID, customerID, paymentIntentID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE waitlist
			SET deposit_paid = TRUE,
				stripe_customer_id = $2,
				payment_intent_id = $3
			WHERE id = $1`,
		waitlistID, customerID, paymentIntentID)

	if err != nil {
		return fmt.Errorf("failed to update waitlist entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return payments.ErrWaitlistEntryNotFound
	}

	return nil
}

var _ payments.Store = (*Store)(nil)
