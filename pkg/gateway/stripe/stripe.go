// Package stripe implements gateway.Gateway on the Stripe client API.
package stripe

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v83"

	"github.com/hellotelle/payments/pkg/gateway"
	"github.com/hellotelle/payments/pkg/payments"
)

const subscriptionListLimit = 1

// Config holds Stripe gateway configuration.
type Config struct {
	// APIKey is the secret key for outbound API calls (required).
	APIKey string

	// WebhookSecret is the shared signing secret used to verify incoming
	// webhook payloads (required for ConstructEvent).
	WebhookSecret string

	// Metrics is an optional collector for gateway call metrics.
	// If nil, metrics are silently ignored.
	Metrics payments.Metrics
}

// Gateway implements gateway.Gateway using the Stripe SDK.
type Gateway struct {
	client        *stripe.Client
	webhookSecret string
	metrics       payments.Metrics
}

// New creates a Stripe gateway client.
func New(config Config) (*Gateway, error) {
	apiKey := strings.TrimSpace(config.APIKey)
	if apiKey == "" {
		return nil, errors.New("stripe API key is required")
	}

	metrics := config.Metrics
	if metrics == nil {
		metrics = &payments.NoopMetrics{}
	}

	return &Gateway{
		client:        stripe.NewClient(apiKey),
		webhookSecret: strings.TrimSpace(config.WebhookSecret),
		metrics:       metrics,
	}, nil
}

// CreateCustomer implements gateway.Gateway.
func (g *Gateway) CreateCustomer(ctx context.Context, params gateway.CustomerParams) (*gateway.Customer, error) {
	startTime := time.Now()

	createParams := &stripe.CustomerCreateParams{}
	if params.Email != "" {
		createParams.Email = stripe.String(params.Email)
	}
	for k, v := range params.Metadata {
		createParams.AddMetadata(k, v)
	}

	cust, err := g.client.V1Customers.Create(ctx, createParams)
	g.metrics.RecordGatewayCallDuration("/customers", time.Since(startTime))
	if err != nil {
		g.metrics.RecordGatewayCall("/customers", "error")
		return nil, fmt.Errorf("failed to create customer: %w", err)
	}
	g.metrics.RecordGatewayCall("/customers", "success")

	return &gateway.Customer{ID: cust.ID, Email: cust.Email}, nil
}

// DeleteCustomer implements gateway.Gateway.
func (g *Gateway) DeleteCustomer(ctx context.Context, customerID string) error {
	startTime := time.Now()

	_, err := g.client.V1Customers.Delete(ctx, customerID, nil)
	g.metrics.RecordGatewayCallDuration("/customers/delete", time.Since(startTime))
	if err != nil {
		g.metrics.RecordGatewayCall("/customers/delete", "error")
		return fmt.Errorf("failed to delete customer %s: %w", customerID, err)
	}
	g.metrics.RecordGatewayCall("/customers/delete", "success")

	return nil
}

// CreateCheckoutSession implements gateway.Gateway.
func (g *Gateway) CreateCheckoutSession(ctx context.Context, params gateway.SessionParams) (*gateway.Session, error) {
	startTime := time.Now()

	createParams := &stripe.CheckoutSessionCreateParams{
		Customer: stripe.String(params.Customer),
		Mode:     stripe.String(params.Mode),
		LineItems: []*stripe.CheckoutSessionCreateLineItemParams{
			{
				Price:    stripe.String(params.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL:         stripe.String(params.SuccessURL),
		CancelURL:          stripe.String(params.CancelURL),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
	}
	for k, v := range params.Metadata {
		createParams.AddMetadata(k, v)
	}

	session, err := g.client.V1CheckoutSessions.Create(ctx, createParams)
	g.metrics.RecordGatewayCallDuration("/checkout/sessions", time.Since(startTime))
	if err != nil {
		g.metrics.RecordGatewayCall("/checkout/sessions", "error")
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}
	g.metrics.RecordGatewayCall("/checkout/sessions", "success")

	return &gateway.Session{ID: session.ID, URL: session.URL}, nil
}

// LatestSubscription implements gateway.Gateway. It lists the customer's
// most recent subscription regardless of status, expanding the default
// payment method so card details can be cached locally.
func (g *Gateway) LatestSubscription(ctx context.Context, customerID string) (*gateway.Subscription, error) {
	startTime := time.Now()

	params := &stripe.SubscriptionListParams{}
	params.Customer = stripe.String(customerID)
	params.Status = stripe.String("all")
	params.Limit = stripe.Int64(subscriptionListLimit)
	params.AddExpand("data.default_payment_method")

	var latest *stripe.Subscription
	for sub, err := range g.client.V1Subscriptions.List(ctx, params) {
		if err != nil {
			g.metrics.RecordGatewayCall("/subscriptions/list", "error")
			g.metrics.RecordGatewayCallDuration("/subscriptions/list", time.Since(startTime))
			return nil, fmt.Errorf("failed to list subscriptions: %w", err)
		}
		latest = sub
		break
	}

	g.metrics.RecordGatewayCall("/subscriptions/list", "success")
	g.metrics.RecordGatewayCallDuration("/subscriptions/list", time.Since(startTime))

	if latest == nil {
		return nil, gateway.ErrNoSubscription
	}

	return mapSubscription(latest), nil
}

// ConstructEvent implements gateway.Gateway.
func (g *Gateway) ConstructEvent(payload []byte, sigHeader string) (*gateway.Event, error) {
	event, err := stripe.ConstructEvent(payload, sigHeader, g.webhookSecret)
	if err != nil {
		return nil, &payments.SignatureVerificationError{Err: err}
	}

	return &gateway.Event{
		ID:        event.ID,
		Type:      string(event.Type),
		Created:   event.Created,
		ObjectRaw: event.Data.Raw,
	}, nil
}

func mapSubscription(sub *stripe.Subscription) *gateway.Subscription {
	out := &gateway.Subscription{
		ID:                sub.ID,
		Status:            payments.SubscriptionStatus(sub.Status),
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
	}

	// Period bounds live on the subscription items in the current API.
	if sub.Items != nil && len(sub.Items.Data) > 0 {
		item := sub.Items.Data[0]
		if item.Price != nil {
			out.PriceID = item.Price.ID
		}
		out.CurrentPeriodStart = item.CurrentPeriodStart
		out.CurrentPeriodEnd = item.CurrentPeriodEnd
	}

	if pm := sub.DefaultPaymentMethod; pm != nil && pm.Card != nil {
		out.PaymentMethodBrand = string(pm.Card.Brand)
		out.PaymentMethodLast4 = pm.Card.Last4
	}

	return out
}
