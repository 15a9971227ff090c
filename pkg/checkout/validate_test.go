package checkout

import (
	"errors"
	"testing"

	"github.com/hellotelle/payments/pkg/payments"
)

func TestParseSessionRequestValid(t *testing.T) {
	body := []byte(`{
		"price_id": "price_123",
		"mode": "subscription",
		"success_url": "https://example.com/success",
		"cancel_url": "https://example.com/cancel"
	}`)

	req, err := ParseSessionRequest(body, false)
	if err != nil {
		t.Fatalf("ParseSessionRequest failed: %v", err)
	}
	if req.PriceID != "price_123" {
		t.Errorf("expected price_123, got %s", req.PriceID)
	}
	if req.Mode != "subscription" {
		t.Errorf("expected subscription, got %s", req.Mode)
	}
}

func TestParseSessionRequestErrors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		public  bool
		wantMsg string
	}{
		{
			name:    "missing price_id",
			body:    `{"mode": "payment", "success_url": "https://a", "cancel_url": "https://b"}`,
			wantMsg: "Missing required parameter price_id",
		},
		{
			name:    "null price_id",
			body:    `{"price_id": null, "mode": "payment", "success_url": "https://a", "cancel_url": "https://b"}`,
			wantMsg: "Missing required parameter price_id",
		},
		{
			name:    "numeric price_id",
			body:    `{"price_id": 123, "mode": "payment", "success_url": "https://a", "cancel_url": "https://b"}`,
			wantMsg: "Expected parameter price_id to be a string got 123",
		},
		{
			name:    "missing success_url",
			body:    `{"price_id": "price_1", "mode": "payment", "cancel_url": "https://b"}`,
			wantMsg: "Missing required parameter success_url",
		},
		{
			name:    "boolean cancel_url",
			body:    `{"price_id": "price_1", "mode": "payment", "success_url": "https://a", "cancel_url": true}`,
			wantMsg: "Expected parameter cancel_url to be a string got true",
		},
		{
			name:    "missing mode",
			body:    `{"price_id": "price_1", "success_url": "https://a", "cancel_url": "https://b"}`,
			wantMsg: "Expected parameter mode to be one of payment, subscription",
		},
		{
			name:    "unknown mode",
			body:    `{"price_id": "price_1", "mode": "setup", "success_url": "https://a", "cancel_url": "https://b"}`,
			wantMsg: "Expected parameter mode to be one of payment, subscription",
		},
		{
			name:    "price_id reported before mode",
			body:    `{"mode": "setup", "success_url": "https://a", "cancel_url": "https://b"}`,
			wantMsg: "Missing required parameter price_id",
		},
		{
			name:    "public without customer_email",
			body:    `{"price_id": "price_1", "mode": "payment", "success_url": "https://a", "cancel_url": "https://b"}`,
			public:  true,
			wantMsg: "customer_email is required",
		},
		{
			name:    "public with empty customer_email",
			body:    `{"price_id": "price_1", "mode": "payment", "success_url": "https://a", "cancel_url": "https://b", "customer_email": ""}`,
			public:  true,
			wantMsg: "customer_email is required",
		},
		{
			name:    "invalid json",
			body:    `{`,
			wantMsg: "Invalid request body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSessionRequest([]byte(tt.body), tt.public)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			var validationErr *payments.ValidationError
			if !errors.As(err, &validationErr) {
				t.Fatalf("expected ValidationError, got %T", err)
			}
			if validationErr.Message != tt.wantMsg {
				t.Errorf("expected %q, got %q", tt.wantMsg, validationErr.Message)
			}
		})
	}
}

func TestParseSessionRequestPublicKeepsMetadata(t *testing.T) {
	body := []byte(`{
		"price_id": "price_123",
		"mode": "payment",
		"success_url": "https://example.com/success",
		"cancel_url": "https://example.com/cancel",
		"customer_email": "user@example.com",
		"metadata": {"type": "waitlist_deposit", "waitlist_id": "wl_1"}
	}`)

	req, err := ParseSessionRequest(body, true)
	if err != nil {
		t.Fatalf("ParseSessionRequest failed: %v", err)
	}
	if req.CustomerEmail != "user@example.com" {
		t.Errorf("expected user@example.com, got %s", req.CustomerEmail)
	}
	if req.Metadata["type"] != "waitlist_deposit" {
		t.Errorf("metadata not preserved: %v", req.Metadata)
	}
	if req.Metadata["waitlist_id"] != "wl_1" {
		t.Errorf("metadata not preserved: %v", req.Metadata)
	}
}
