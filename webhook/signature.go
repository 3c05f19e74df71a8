package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
)

var (
	// ErrMissingSignature is returned when the X-Line-Signature header is absent.
	ErrMissingSignature = errors.New("missing x-line-signature header")
	// ErrInvalidSignature is returned when the header does not match the body digest.
	ErrInvalidSignature = errors.New("invalid signature - webhook request is not from LINE")
)

// VerifySignature checks that signature is the base64-encoded HMAC-SHA256 of
// body keyed by the channel secret. The body must be the exact bytes as
// received on the wire; re-serializing a parsed value breaks the comparison.
//
// The comparison is constant time. Verification runs before any parsing so
// unauthenticated input is never interpreted.
// An empty signature is treated as a mismatch, not as absent; callers that
// can distinguish a missing header report ErrMissingSignature themselves.
func VerifySignature(body []byte, secret, signature string) error {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	if subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) != 1 {
		return ErrInvalidSignature
	}
	return nil
}

// Sign computes the signature LINE would send for body.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
