package checkout

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hellotelle/payments/pkg/gateway"
	"github.com/hellotelle/payments/pkg/payments"
)

// SessionRequest is a validated checkout-session request.
type SessionRequest struct {
	PriceID       string
	Mode          string
	SuccessURL    string
	CancelURL     string
	CustomerEmail string
	Metadata      map[string]string
}

// rawSessionRequest keeps each parameter as raw JSON so type mismatches can
// be reported per parameter instead of failing the whole decode.
type rawSessionRequest struct {
	PriceID       json.RawMessage   `json:"price_id"`
	Mode          json.RawMessage   `json:"mode"`
	SuccessURL    json.RawMessage   `json:"success_url"`
	CancelURL     json.RawMessage   `json:"cancel_url"`
	CustomerEmail json.RawMessage   `json:"customer_email"`
	Metadata      map[string]string `json:"metadata"`
}

var allowedModes = []string{gateway.ModePayment, gateway.ModeSubscription}

// ParseSessionRequest decodes and validates a checkout-session request body.
// Parameters are checked one by one in a fixed order (price_id, success_url,
// cancel_url, mode) so the first offending parameter is reported with a
// deterministic message. When public is set, customer_email is also
// required.
func ParseSessionRequest(body []byte, public bool) (*SessionRequest, error) {
	var raw rawSessionRequest
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &payments.ValidationError{Message: "Invalid request body"}
	}

	req := &SessionRequest{Metadata: raw.Metadata}

	ordered := []struct {
		name  string
		value json.RawMessage
		dest  *string
	}{
		{"price_id", raw.PriceID, &req.PriceID},
		{"success_url", raw.SuccessURL, &req.SuccessURL},
		{"cancel_url", raw.CancelURL, &req.CancelURL},
	}
	for _, p := range ordered {
		if err := requireString(p.name, p.value, p.dest); err != nil {
			return nil, err
		}
	}

	if err := requireOneOf("mode", raw.Mode, allowedModes, &req.Mode); err != nil {
		return nil, err
	}

	if public {
		if isMissing(raw.CustomerEmail) || !isJSONString(raw.CustomerEmail) {
			return nil, &payments.ValidationError{
				Parameter: "customer_email",
				Message:   "customer_email is required",
			}
		}
		if err := json.Unmarshal(raw.CustomerEmail, &req.CustomerEmail); err != nil || req.CustomerEmail == "" {
			return nil, &payments.ValidationError{
				Parameter: "customer_email",
				Message:   "customer_email is required",
			}
		}
	}

	return req, nil
}

func requireString(name string, value json.RawMessage, dest *string) error {
	if isMissing(value) {
		return &payments.ValidationError{
			Parameter: name,
			Message:   fmt.Sprintf("Missing required parameter %s", name),
		}
	}
	if !isJSONString(value) {
		return &payments.ValidationError{
			Parameter: name,
			Message:   fmt.Sprintf("Expected parameter %s to be a string got %s", name, compactJSON(value)),
		}
	}
	return json.Unmarshal(value, dest)
}

func requireOneOf(name string, value json.RawMessage, allowed []string, dest *string) error {
	var got string
	if !isMissing(value) && isJSONString(value) {
		if err := json.Unmarshal(value, &got); err == nil {
			for _, a := range allowed {
				if got == a {
					*dest = got
					return nil
				}
			}
		}
	}
	return &payments.ValidationError{
		Parameter: name,
		Message:   fmt.Sprintf("Expected parameter %s to be one of %s", name, strings.Join(allowed, ", ")),
	}
}

func isMissing(value json.RawMessage) bool {
	return len(value) == 0 || string(value) == "null"
}

func isJSONString(value json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(value))
	return strings.HasPrefix(trimmed, `"`)
}

func compactJSON(value json.RawMessage) string {
	var buf strings.Builder
	dec := json.NewDecoder(strings.NewReader(string(value)))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return string(value)
	}
	enc := json.NewEncoder(&buf)
	if err := enc.Encode(v); err != nil {
		return string(value)
	}
	return strings.TrimSuffix(buf.String(), "\n")
}
