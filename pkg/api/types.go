package api

// SessionResponse is returned by the checkout endpoints.
type SessionResponse struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}

// WaitlistRequest is the body of POST /api/waitlist.
type WaitlistRequest struct {
	Email string `json:"email"`
}

// WaitlistResponse is returned by the waitlist endpoints.
type WaitlistResponse struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	Position    int64  `json:"position"`
	DepositPaid bool   `json:"depositPaid"`
}
