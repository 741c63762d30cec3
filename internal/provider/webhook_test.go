package provider

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signPayload(secret string, payload []byte, ts int64) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(fmt.Sprintf("%d.%s", ts, payload)))
	sig := hex.EncodeToString(mac.Sum(nil))
	return fmt.Sprintf("t=%d,v1=%s", ts, sig)
}

func TestVerifyWebhookSignature_Valid(t *testing.T) {
	payload := []byte(`{"external_payout_id":"ext_1","idempotency_key":"k1","status":"completed"}`)
	header := signPayload("whsec_test", payload, time.Now().Unix())

	event, err := VerifyWebhookSignature("whsec_test", payload, header)
	require.NoError(t, err)
	assert.Equal(t, "ext_1", event.ExternalPayoutID)
	assert.Equal(t, "completed", event.Status)
}

func TestVerifyWebhookSignature_WrongSecret(t *testing.T) {
	payload := []byte(`{"external_payout_id":"ext_1"}`)
	header := signPayload("whsec_test", payload, time.Now().Unix())

	_, err := VerifyWebhookSignature("whsec_other", payload, header)
	assert.Error(t, err)
}

func TestVerifyWebhookSignature_TamperedPayload(t *testing.T) {
	payload := []byte(`{"external_payout_id":"ext_1"}`)
	header := signPayload("whsec_test", payload, time.Now().Unix())

	_, err := VerifyWebhookSignature("whsec_test", []byte(`{"external_payout_id":"ext_2"}`), header)
	assert.Error(t, err)
}

func TestVerifyWebhookSignature_Expired(t *testing.T) {
	payload := []byte(`{"external_payout_id":"ext_1"}`)
	header := signPayload("whsec_test", payload, time.Now().Add(-10*time.Minute).Unix())

	_, err := VerifyWebhookSignature("whsec_test", payload, header)
	assert.Error(t, err)
}

func TestVerifyWebhookSignature_MissingSecret(t *testing.T) {
	payload := []byte(`{"external_payout_id":"ext_1"}`)
	header := signPayload("whsec_test", payload, time.Now().Unix())

	_, err := VerifyWebhookSignature("", payload, header)
	assert.Error(t, err)
}

func TestVerifyWebhookSignature_MalformedHeader(t *testing.T) {
	payload := []byte(`{"external_payout_id":"ext_1"}`)
	_, err := VerifyWebhookSignature("whsec_test", payload, "not-a-valid-header")
	assert.Error(t, err)
}
