// Package webhookintake verifies, parses, and normalizes provider
// webhook payloads into domain.NormalizedWebhookEvent values. Nothing
// here does I/O: callers own the HTTP request/response and the snapshot
// fetch that follows normalization.
package webhookintake

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"github.com/Ap3pp3rs94/escrow-timer/pkg/errorsx"
)

// VerifySignature reports whether sigHex is the hex-encoded HMAC-SHA256
// of body under secret. Comparison is constant-time over the hex
// digests once both are equal length; a length mismatch (or an empty
// secret/sigHex) is rejected without a timing-sensitive compare.
func VerifySignature(body []byte, sigHex, secret string) bool {
	if secret == "" || sigHex == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	if len(expected) != len(sigHex) {
		return false
	}
	return hmac.Equal([]byte(expected), []byte(sigHex))
}

// VerifyErr returns the stable error code for a failed verification,
// distinguishing a missing signature header from a mismatched one so
// callers can log accordingly; both map to HTTP 401.
func VerifyErr(sigHex string) errorsx.Code {
	if sigHex == "" {
		return errorsx.IntakeSignatureMissing
	}
	return errorsx.IntakeSignatureInvalid
}
