// Package api exposes the HTTP surface: checkout session creation (bearer
// authenticated and public), the gateway webhook, and waitlist signup.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hellotelle/payments/internal/httpx"
	"github.com/hellotelle/payments/pkg/checkout"
	"github.com/hellotelle/payments/pkg/payments"
)

const maxRequestBody = 64 * 1024

// Handler provides the HTTP endpoints.
type Handler struct {
	config  Config
	webhook http.Handler
}

// Routes returns the full router. Public endpoints are rate limited per
// client IP; the webhook carries its own limiter.
func (h *Handler) Routes() http.Handler {
	publicLimiter := httpx.NewRateLimiter(60, time.Minute)

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Route("/stripe", func(r chi.Router) {
			r.Post("/checkout", h.handleCheckout)
			r.With(publicLimiter.Middleware).HandleFunc("/checkout-public", h.handleCheckoutPublic)
			r.Handle("/webhook", h.webhook)
		})
		r.Route("/waitlist", func(r chi.Router) {
			r.With(publicLimiter.Middleware).Post("/", h.handleWaitlistJoin)
			r.Get("/{email}", h.handleWaitlistLookup)
		})
	})
	return r
}

// handleCheckout serves the authenticated checkout path.
func (h *Handler) handleCheckout(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)

	body, err := httpx.ReadBodyStrict(w, r, maxRequestBody)
	if err != nil {
		h.handleError(w, r, &payments.ValidationError{Message: "Invalid request body"})
		return
	}

	req, err := checkout.ParseSessionRequest(body, false)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	session, err := h.config.Checkout.CreateSession(r.Context(), token, req)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	_ = httpx.WriteJSON(w, http.StatusOK, SessionResponse{SessionID: session.ID, URL: session.URL})
}

// handleCheckoutPublic serves the email-only checkout path used by the
// waitlist deposit page. It answers browser preflight directly because the
// page posts from another origin.
func (h *Handler) handleCheckoutPublic(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusNoContent)
		return
	case http.MethodPost:
	default:
		_ = httpx.WriteJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "Method not allowed"})
		return
	}

	body, err := httpx.ReadBodyStrict(w, r, maxRequestBody)
	if err != nil {
		h.handleError(w, r, &payments.ValidationError{Message: "Invalid request body"})
		return
	}

	req, err := checkout.ParseSessionRequest(body, true)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	session, err := h.config.Checkout.CreatePublicSession(r.Context(), req)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	_ = httpx.WriteJSON(w, http.StatusOK, SessionResponse{SessionID: session.ID, URL: session.URL})
}

// handleWaitlistJoin adds an email to the waitlist.
func (h *Handler) handleWaitlistJoin(w http.ResponseWriter, r *http.Request) {
	body, err := httpx.ReadBodyStrict(w, r, maxRequestBody)
	if err != nil {
		h.handleError(w, r, &payments.ValidationError{Message: "Invalid request body"})
		return
	}

	req, err := parseWaitlistRequest(body)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	entry := &payments.WaitlistEntry{Email: req.Email}
	if err := h.config.Store.CreateWaitlistEntry(r.Context(), entry); err != nil {
		h.handleError(w, r, err)
		return
	}

	h.config.Logger.Info("waitlist signup",
		payments.Field{Key: "email", Value: entry.Email},
		payments.Field{Key: "position", Value: entry.Position})

	_ = httpx.WriteJSON(w, http.StatusCreated, WaitlistResponse{
		ID:       entry.ID,
		Email:    entry.Email,
		Position: entry.Position,
	})
}

// handleWaitlistLookup returns a waitlist entry by email.
func (h *Handler) handleWaitlistLookup(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")

	entry, err := h.config.Store.WaitlistEntryByEmail(r.Context(), email)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	_ = httpx.WriteJSON(w, http.StatusOK, WaitlistResponse{
		ID:          entry.ID,
		Email:       entry.Email,
		Position:    entry.Position,
		DepositPaid: entry.DepositPaid,
	})
}

func parseWaitlistRequest(body []byte) (*WaitlistRequest, error) {
	var req WaitlistRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, &payments.ValidationError{Message: "Invalid request body"}
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" {
		return nil, &payments.ValidationError{Parameter: "email", Message: "Missing required parameter email"}
	}
	if !strings.Contains(req.Email, "@") {
		return nil, &payments.ValidationError{Parameter: "email", Message: "Invalid email address"}
	}
	return &req, nil
}

// bearerToken extracts the token from the Authorization header. An empty
// result is handed to the identity resolver as-is so the unauthenticated
// error path stays in one place.
func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if after, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return after
	}
	return ""
}

// handleError maps domain errors onto HTTP status codes.
func (h *Handler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	if h.config.OnError != nil {
		h.config.OnError(w, r, err)
		return
	}

	var validationErr *payments.ValidationError
	var authErr *payments.AuthenticationError

	switch {
	case errors.As(err, &validationErr):
		_ = httpx.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": validationErr.Message})
	case errors.As(err, &authErr):
		_ = httpx.WriteJSON(w, http.StatusUnauthorized, map[string]string{"error": authErr.Message})
	case errors.Is(err, payments.ErrEmailAlreadyOnWaitlist):
		_ = httpx.WriteJSON(w, http.StatusConflict, map[string]string{"error": "Email already on waitlist"})
	case errors.Is(err, payments.ErrWaitlistEntryNotFound):
		_ = httpx.WriteJSON(w, http.StatusNotFound, map[string]string{"error": "Not found"})
	default:
		h.config.Logger.Error("request failed",
			payments.Field{Key: "path", Value: r.URL.Path},
			payments.Field{Key: "error", Value: err.Error()})
		_ = httpx.WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}
}
