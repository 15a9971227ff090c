package api

import (
	"fmt"
	"net/http"

	"github.com/hellotelle/payments/pkg/checkout"
	"github.com/hellotelle/payments/pkg/payments"
	"github.com/hellotelle/payments/pkg/reconcile"
)

// Config holds configuration for the HTTP API handler.
type Config struct {
	// Checkout is the checkout session service (required).
	Checkout *checkout.Service

	// Reconciler processes gateway webhook events (required).
	Reconciler *reconcile.Service

	// Store backs the waitlist endpoints (required).
	Store payments.Store

	// Logger is optional; defaults to NoopLogger.
	Logger payments.Logger

	// OnError handles errors. If nil, uses default error handling.
	OnError func(http.ResponseWriter, *http.Request, error)
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Checkout == nil {
		return fmt.Errorf("checkout service is required")
	}
	if c.Reconciler == nil {
		return fmt.Errorf("reconciler is required")
	}
	if c.Store == nil {
		return fmt.Errorf("store is required")
	}
	return nil
}

// NewHandler creates a new API handler with the given configuration.
func NewHandler(config Config) (*Handler, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if config.Logger == nil {
		config.Logger = &payments.NoopLogger{}
	}
	return &Handler{
		config:  config,
		webhook: config.Reconciler.Handler(),
	}, nil
}
