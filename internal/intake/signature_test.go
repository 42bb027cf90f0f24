package intake

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func sign(secret string, data []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(data)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyChatSignatureAcceptsCorrectHeader(t *testing.T) {
	body := []byte(`{"from":"+15551234"}`)
	header := "sha256=" + sign("chat-secret", body)
	assert.True(t, VerifyChatSignature("chat-secret", body, header))
}

func TestVerifyChatSignatureRejectsWrongSecret(t *testing.T) {
	body := []byte(`{"from":"+15551234"}`)
	header := "sha256=" + sign("other-secret", body)
	assert.False(t, VerifyChatSignature("chat-secret", body, header))
}

func TestVerifyChatSignatureRejectsMissingPrefix(t *testing.T) {
	body := []byte(`{"from":"+15551234"}`)
	assert.False(t, VerifyChatSignature("chat-secret", body, sign("chat-secret", body)))
}

func TestVerifyChatSignatureRejectsTamperedBody(t *testing.T) {
	original := []byte(`{"amount":100}`)
	header := "sha256=" + sign("chat-secret", original)
	tampered := []byte(`{"amount":100000}`)
	assert.False(t, VerifyChatSignature("chat-secret", tampered, header))
}

func TestVerifyPaymentSignatureAcceptsWithinTolerance(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	ts := strconv.FormatInt(now.Add(-2*time.Minute).Unix(), 10)
	body := []byte(`{"booking_id":7}`)
	signed := []byte(fmt.Sprintf("%s.%s", ts, body))
	header := sign("pay-secret", signed)

	ok := VerifyPaymentSignature("pay-secret", ts, body, header, 5*time.Minute, now)
	assert.True(t, ok)
}

func TestVerifyPaymentSignatureRejectsOutsideTolerance(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	ts := strconv.FormatInt(now.Add(-10*time.Minute).Unix(), 10)
	body := []byte(`{"booking_id":7}`)
	signed := []byte(fmt.Sprintf("%s.%s", ts, body))
	header := sign("pay-secret", signed)

	ok := VerifyPaymentSignature("pay-secret", ts, body, header, 5*time.Minute, now)
	assert.False(t, ok, "a signature older than the tolerance window must be rejected")
}

func TestVerifyPaymentSignatureRejectsFutureTimestampBeyondTolerance(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	ts := strconv.FormatInt(now.Add(10*time.Minute).Unix(), 10)
	body := []byte(`{"booking_id":7}`)
	signed := []byte(fmt.Sprintf("%s.%s", ts, body))
	header := sign("pay-secret", signed)

	ok := VerifyPaymentSignature("pay-secret", ts, body, header, 5*time.Minute, now)
	assert.False(t, ok)
}

func TestVerifyPaymentSignatureRejectsMalformedTimestamp(t *testing.T) {
	body := []byte(`{"booking_id":7}`)
	ok := VerifyPaymentSignature("pay-secret", "not-a-number", body, "deadbeef", time.Minute, time.Now())
	assert.False(t, ok)
}

func TestVerifyPaymentSignatureRejectsWrongSecret(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	ts := strconv.FormatInt(now.Unix(), 10)
	body := []byte(`{"booking_id":7}`)
	signed := []byte(fmt.Sprintf("%s.%s", ts, body))
	header := sign("wrong-secret", signed)

	ok := VerifyPaymentSignature("pay-secret", ts, body, header, 5*time.Minute, now)
	assert.False(t, ok)
}
