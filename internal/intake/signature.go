// Package intake holds the cryptographic verification primitives the two
// webhook surfaces (C7) use before a payload ever reaches the idempotency
// envelope. HMAC-SHA256 is stdlib (crypto/hmac, crypto/sha256): no example
// in this codebase's lineage imports a dedicated webhook-signature library,
// and the construction itself is a few lines over stdlib primitives, so
// this is one of the few concerns implemented without a third-party dep.
package intake

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// VerifyChatSignature checks the `x-hub-signature-256: sha256=<hex>` header
// against an HMAC-SHA256 of the raw body under secret, constant-time.
func VerifyChatSignature(secret string, body []byte, header string) bool {
	const prefix = "sha256="
	if !strings.HasPrefix(header, prefix) {
		return false
	}
	want := strings.TrimPrefix(header, prefix)
	got := hmacHex(secret, body)
	return hmac.Equal([]byte(want), []byte(got))
}

// VerifyPaymentSignature checks a timestamped HMAC
// (SHA256(timestamp "." raw_body)) against header, within a ±tolerance
// window of now to bound replay of old, previously-valid signatures.
func VerifyPaymentSignature(secret string, timestamp string, body []byte, header string, tolerance time.Duration, now time.Time) bool {
	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return false
	}
	signedAt := time.Unix(ts, 0)
	delta := now.Sub(signedAt)
	if delta < 0 {
		delta = -delta
	}
	if delta > tolerance {
		return false
	}

	signed := []byte(fmt.Sprintf("%s.%s", timestamp, body))
	got := hmacHex(secret, signed)
	return hmac.Equal([]byte(header), []byte(got))
}

func hmacHex(secret string, data []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(data)
	return hex.EncodeToString(mac.Sum(nil))
}
