package webhook

import (
	"errors"
	"testing"
)

// TestVerifySignatureValid tests that a correctly signed body passes.
func TestVerifySignatureValid(t *testing.T) {
	body := []byte(`{"destination":"U0","events":[]}`)
	secret := "channel-secret"

	if err := VerifySignature(body, secret, Sign(body, secret)); err != nil {
		t.Fatalf("expected valid signature, got %v", err)
	}
}

// TestVerifySignatureTamperedBody tests that the original signature is rejected after the body changes.
func TestVerifySignatureTamperedBody(t *testing.T) {
	body := []byte(`{"destination":"U0","events":[]}`)
	secret := "channel-secret"
	signature := Sign(body, secret)

	tampered := []byte(`{"destination":"U0","events":[{"type":"follow"}]}`)
	err := VerifySignature(tampered, secret, signature)
	if !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

// TestVerifySignatureWrongSecret tests that a signature made with another secret is rejected.
func TestVerifySignatureWrongSecret(t *testing.T) {
	body := []byte(`{"events":[]}`)

	err := VerifySignature(body, "right-secret", Sign(body, "wrong-secret"))
	if !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

// TestVerifySignatureEmpty tests that an empty signature is a mismatch, not a pass.
func TestVerifySignatureEmpty(t *testing.T) {
	err := VerifySignature([]byte(`{}`), "secret", "")
	if !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

// TestVerifySignatureExactBytes tests that whitespace differences in the body break verification.
func TestVerifySignatureExactBytes(t *testing.T) {
	body := []byte(`{"events": []}`)
	reserialized := []byte(`{"events":[]}`)
	secret := "secret"

	if err := VerifySignature(reserialized, secret, Sign(body, secret)); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected reserialized body to fail verification, got %v", err)
	}
}
