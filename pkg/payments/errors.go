package payments

import (
	"errors"
	"fmt"
)

var (
	// ErrCustomerMappingNotFound is returned when no active customer mapping
	// exists for a user.
	ErrCustomerMappingNotFound = errors.New("customer mapping not found")

	// ErrSubscriptionNotFound is returned when no subscription record exists
	// for a customer.
	ErrSubscriptionNotFound = errors.New("subscription record not found")

	// ErrWaitlistEntryNotFound is returned when a waitlist entry cannot be
	// located by id or email.
	ErrWaitlistEntryNotFound = errors.New("waitlist entry not found")

	// ErrEmailAlreadyOnWaitlist is returned when a signup email already has a
	// waitlist entry.
	ErrEmailAlreadyOnWaitlist = errors.New("email already on waitlist")

	// ErrDuplicateOrder is returned when an order with the same checkout
	// session id was already recorded (webhook redelivery).
	ErrDuplicateOrder = errors.New("order already recorded")
)

// ValidationError reports the first offending request parameter. Client
// input is malformed; the request is never retried server-side.
type ValidationError struct {
	Parameter string
	Message   string
}

func (e *ValidationError) Error() string { return e.Message }

// AuthenticationError reports a missing or invalid credential.
type AuthenticationError struct {
	Message string
}

func (e *AuthenticationError) Error() string { return e.Message }

// SignatureVerificationError reports a webhook whose signature could not be
// verified against the shared signing secret. The event must not be
// processed; the gateway retries delivery per its own policy.
type SignatureVerificationError struct {
	Err error
}

func (e *SignatureVerificationError) Error() string {
	return fmt.Sprintf("webhook signature verification failed: %v", e.Err)
}

func (e *SignatureVerificationError) Unwrap() error { return e.Err }

// UpstreamError reports a failed call to the payment gateway or the record
// store. The caller may retry the whole request.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Upstream wraps err as an UpstreamError for the given operation.
func Upstream(op string, err error) *UpstreamError {
	return &UpstreamError{Op: op, Err: err}
}
