// Package identity defines the interface to the external auth provider.
package identity

import "context"

// User is an authenticated identity resolved from a bearer token.
type User struct {
	ID    string
	Email string
}

// Resolver resolves bearer tokens to user records.
type Resolver interface {
	// Resolve validates token and returns the user it belongs to. A missing
	// or invalid token yields *payments.AuthenticationError; provider
	// outages yield *payments.UpstreamError.
	Resolve(ctx context.Context, token string) (*User, error)
}
