package provider

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// CompletionEvent is a parsed webhook callback from the external payout
// rail, reporting that a previously-initiated payout finished or failed.
type CompletionEvent struct {
	ExternalPayoutID string `json:"external_payout_id"`
	IdempotencyKey   string `json:"idempotency_key"`
	Status           string `json:"status"`
	FailureReason    string `json:"failure_reason,omitempty"`
}

// VerifyWebhookSignature verifies a payout-rail webhook signature in the
// same t=timestamp,v1=signature form and 5-minute tolerance window as
// internal/provider/stripe.go's VerifyWebhookSignature (teacher repo),
// generalized from Stripe's checkout-session payload to CompletionEvent.
func VerifyWebhookSignature(secret string, payload []byte, sigHeader string) (*CompletionEvent, error) {
	if secret == "" {
		return nil, fmt.Errorf("webhook secret not configured")
	}

	var timestamp string
	var signatures []string
	for _, part := range strings.Split(sigHeader, ",") {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			timestamp = kv[1]
		case "v1":
			signatures = append(signatures, kv[1])
		}
	}
	if timestamp == "" || len(signatures) == 0 {
		return nil, fmt.Errorf("invalid signature header format")
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid timestamp: %w", err)
	}
	if time.Now().Unix()-ts > 300 {
		return nil, fmt.Errorf("webhook timestamp too old")
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp + "." + string(payload)))
	expected := hex.EncodeToString(mac.Sum(nil))

	valid := false
	for _, sig := range signatures {
		if hmac.Equal([]byte(expected), []byte(sig)) {
			valid = true
			break
		}
	}
	if !valid {
		return nil, fmt.Errorf("invalid webhook signature")
	}

	var event CompletionEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("decode webhook event: %w", err)
	}
	return &event, nil
}
