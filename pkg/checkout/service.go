// Package checkout orchestrates checkout-session creation: it ensures a
// gateway customer exists for the caller, seeds subscription records, and
// requests a hosted session from the payment gateway.
package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/hellotelle/payments/pkg/gateway"
	"github.com/hellotelle/payments/pkg/identity"
	"github.com/hellotelle/payments/pkg/payments"
)

// CleanupOutcome reports what happened to a remote customer after a local
// write failed. A failed cleanup means a leaked remote resource; it is
// logged and counted rather than escalated.
type CleanupOutcome string

const (
	CleanupSucceeded CleanupOutcome = "succeeded"
	CleanupFailed    CleanupOutcome = "failed"
)

// Config holds checkout service dependencies.
type Config struct {
	// Gateway is the payment processor client (required).
	Gateway gateway.Gateway

	// Store is the record store (required).
	Store payments.Store

	// Resolver resolves bearer tokens for the authenticated path (required
	// unless only the public path is used).
	Resolver identity.Resolver

	// Logger is optional; defaults to NoopLogger.
	Logger payments.Logger

	// Metrics is optional; defaults to NoopMetrics.
	Metrics payments.Metrics
}

// Service creates checkout sessions. Each call is a stateless
// request-response unit; no retries are attempted here since session
// creation is not idempotent at the gateway (a resubmission simply creates a
// new session).
type Service struct {
	gw       gateway.Gateway
	store    payments.Store
	resolver identity.Resolver
	logger   payments.Logger
	metrics  payments.Metrics
}

// NewService creates a checkout service.
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
		gw:       config.Gateway,
		store:    config.Store,
		resolver: config.Resolver,
		logger:   logger,
		metrics:  metrics,
	}, nil
}

// CreateSession handles the authenticated checkout path: the bearer token is
// resolved to an identity, a customer mapping is created lazily on first
// checkout, and a session is requested from the gateway.
func (s *Service) CreateSession(ctx context.Context, token string, req *SessionRequest) (*gateway.Session, error) {
	if s.resolver == nil {
		return nil, payments.Upstream("resolve identity", errors.New("no identity resolver configured"))
	}

	user, err := s.resolver.Resolve(ctx, token)
	if err != nil {
		s.metrics.RecordCheckoutSession(req.Mode, "error")
		return nil, err
	}

	customerID, err := s.ensureCustomer(ctx, user, req.Mode)
	if err != nil {
		s.metrics.RecordCheckoutSession(req.Mode, "error")
		return nil, err
	}

	session, err := s.createSession(ctx, customerID, req, nil)
	if err != nil {
		s.metrics.RecordCheckoutSession(req.Mode, "error")
		return nil, err
	}

	s.metrics.RecordCheckoutSession(req.Mode, "success")
	s.logger.Info("created checkout session",
		payments.Field{Key: "session_id", Value: session.ID},
		payments.Field{Key: "customer_id", Value: customerID},
		payments.Field{Key: "user_id", Value: user.ID})
	return session, nil
}

// CreatePublicSession handles the email-only checkout path used by the
// waitlist deposit flow. Caller-supplied metadata is attached verbatim to
// both the customer and the session so the webhook can recognize
// waitlist-deposit payments later.
func (s *Service) CreatePublicSession(ctx context.Context, req *SessionRequest) (*gateway.Session, error) {
	cust, err := s.gw.CreateCustomer(ctx, gateway.CustomerParams{
		Email:    req.CustomerEmail,
		Metadata: req.Metadata,
	})
	if err != nil {
		s.metrics.RecordCheckoutSession(req.Mode, "error")
		return nil, payments.Upstream("create customer", err)
	}

	s.logger.Info("created gateway customer for guest checkout",
		payments.Field{Key: "customer_id", Value: cust.ID},
		payments.Field{Key: "email", Value: req.CustomerEmail})

	// Guest mappings carry no user id; the row ties the gateway account to
	// this subsystem so reconciliation recognizes the customer.
	mapping := &payments.CustomerMapping{CustomerID: cust.ID}
	if err := s.store.CreateCustomerMapping(ctx, mapping); err != nil {
		s.compensate(ctx, cust.ID, err)
		s.metrics.RecordCheckoutSession(req.Mode, "error")
		return nil, payments.Upstream("create customer mapping", err)
	}

	session, err := s.createSession(ctx, cust.ID, req, req.Metadata)
	if err != nil {
		s.metrics.RecordCheckoutSession(req.Mode, "error")
		return nil, err
	}

	s.metrics.RecordCheckoutSession(req.Mode, "success")
	s.logger.Info("created public checkout session",
		payments.Field{Key: "session_id", Value: session.ID},
		payments.Field{Key: "customer_id", Value: cust.ID})
	return session, nil
}

// ensureCustomer returns the gateway customer id for the user, creating the
// remote customer and local mapping on first checkout. If the mapping write
// fails after the remote customer was created, the remote customer is
// deleted so no orphaned paid account is left behind.
func (s *Service) ensureCustomer(ctx context.Context, user *identity.User, mode string) (string, error) {
	mapping, err := s.store.ActiveCustomerMapping(ctx, user.ID)
	if err == nil {
		if mode == gateway.ModeSubscription {
			if err := s.ensureSubscriptionRecord(ctx, mapping.CustomerID); err != nil {
				return "", err
			}
		}
		return mapping.CustomerID, nil
	}
	if !errors.Is(err, payments.ErrCustomerMappingNotFound) {
		return "", payments.Upstream("fetch customer mapping", err)
	}

	cust, err := s.gw.CreateCustomer(ctx, gateway.CustomerParams{
		Email:    user.Email,
		Metadata: map[string]string{"userId": user.ID},
	})
	if err != nil {
		return "", payments.Upstream("create customer", err)
	}

	s.logger.Info("created gateway customer",
		payments.Field{Key: "customer_id", Value: cust.ID},
		payments.Field{Key: "user_id", Value: user.ID})

	newMapping := &payments.CustomerMapping{UserID: user.ID, CustomerID: cust.ID}
	if err := s.store.CreateCustomerMapping(ctx, newMapping); err != nil {
		s.compensate(ctx, cust.ID, err)
		return "", payments.Upstream("create customer mapping", err)
	}

	if mode == gateway.ModeSubscription {
		if err := s.store.UpsertSubscription(ctx, &payments.SubscriptionRecord{
			CustomerID: cust.ID,
			Status:     payments.SubscriptionNotStarted,
		}); err != nil {
			s.compensate(ctx, cust.ID, err)
			return "", payments.Upstream("seed subscription record", err)
		}
	}

	return cust.ID, nil
}

// ensureSubscriptionRecord seeds a not_started row for an existing customer
// so the webhook upsert always has a row to refresh.
func (s *Service) ensureSubscriptionRecord(ctx context.Context, customerID string) error {
	_, err := s.store.SubscriptionByCustomerID(ctx, customerID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, payments.ErrSubscriptionNotFound) {
		return payments.Upstream("fetch subscription record", err)
	}

	if err := s.store.UpsertSubscription(ctx, &payments.SubscriptionRecord{
		CustomerID: customerID,
		Status:     payments.SubscriptionNotStarted,
	}); err != nil {
		return payments.Upstream("seed subscription record", err)
	}
	return nil
}

func (s *Service) createSession(ctx context.Context, customerID string, req *SessionRequest, metadata map[string]string) (*gateway.Session, error) {
	session, err := s.gw.CreateCheckoutSession(ctx, gateway.SessionParams{
		Customer:   customerID,
		PriceID:    req.PriceID,
		Mode:       req.Mode,
		SuccessURL: req.SuccessURL,
		CancelURL:  req.CancelURL,
		Metadata:   metadata,
	})
	if err != nil {
		return nil, payments.Upstream("create checkout session", err)
	}
	return session, nil
}

// compensate deletes a remote customer after a local write failed. The
// outcome is typed and observable so leaked remote resources can be alerted
// on; a failed cleanup is never escalated past logging.
func (s *Service) compensate(ctx context.Context, customerID string, cause error) CleanupOutcome {
	outcome := CleanupSucceeded
	if err := s.gw.DeleteCustomer(ctx, customerID); err != nil {
		outcome = CleanupFailed
		s.logger.Error("failed to clean up gateway customer after write failure",
			payments.Field{Key: "customer_id", Value: customerID},
			payments.Field{Key: "cause", Value: fmt.Sprint(cause)},
			payments.Field{Key: "cleanup_error", Value: fmt.Sprint(err)})
	} else {
		s.logger.Warn("deleted gateway customer after write failure",
			payments.Field{Key: "customer_id", Value: customerID},
			payments.Field{Key: "cause", Value: fmt.Sprint(cause)})
	}
	s.metrics.RecordCompensation(string(outcome))
	return outcome
}
