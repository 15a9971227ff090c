// Package supabase implements identity.Resolver against the Supabase auth
// API.
package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hellotelle/payments/pkg/identity"
	"github.com/hellotelle/payments/pkg/payments"
)

const (
	defaultHTTPTimeout = 10 * time.Second
	userEndpoint       = "/auth/v1/user"
	maxResponseBytes   = 64 * 1024
)

// Config holds Supabase auth client configuration.
type Config struct {
	// BaseURL is the project URL, e.g. https://xyzcompany.supabase.co
	// (required).
	BaseURL string

	// ServiceRoleKey is sent as the apikey header (required).
	ServiceRoleKey string

	// HTTPClient is an optional HTTP client. If nil, a default client with a
	// 10s timeout is used.
	HTTPClient *http.Client
}

// Resolver resolves bearer tokens via the Supabase auth user endpoint.
type Resolver struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New creates a Supabase token resolver.
func New(config Config) (*Resolver, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(config.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("supabase base URL is required")
	}

	apiKey := strings.TrimSpace(config.ServiceRoleKey)
	if apiKey == "" {
		return nil, errors.New("supabase service role key is required")
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}

	return &Resolver{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: httpClient,
	}, nil
}

type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Resolve implements identity.Resolver.
func (r *Resolver) Resolve(ctx context.Context, token string) (*identity.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, &payments.AuthenticationError{Message: "Authentication required"}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+userEndpoint, nil)
	if err != nil {
		return nil, payments.Upstream("build auth request", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("apikey", r.apiKey)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, payments.Upstream("resolve token", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, payments.Upstream("read auth response", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		// fallthrough to decode
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, &payments.AuthenticationError{Message: "Failed to authenticate user"}
	default:
		return nil, payments.Upstream("resolve token",
			fmt.Errorf("auth provider returned status %d", resp.StatusCode))
	}

	var user userResponse
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, payments.Upstream("decode auth response", err)
	}
	if user.ID == "" {
		return nil, &payments.AuthenticationError{Message: "Failed to authenticate user"}
	}

	return &identity.User{ID: user.ID, Email: user.Email}, nil
}
