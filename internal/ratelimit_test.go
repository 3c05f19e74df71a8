package internal

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func doRequest(handler http.Handler, remoteAddr string) int {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/line", nil)
	req.RemoteAddr = remoteAddr
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec.Code
}

// TestRateLimitDisabled tests that a non-positive rps passes everything through.
func TestRateLimitDisabled(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := NewRateLimitHandler(next, 0, 0, time.Minute)

	for i := 0; i < 50; i++ {
		if code := doRequest(handler, "10.0.0.1:1234"); code != http.StatusOK {
			t.Fatalf("expected 200, got %d", code)
		}
	}
}

// TestRateLimitBurstExhaustion tests that requests beyond the burst are rejected.
func TestRateLimitBurstExhaustion(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := NewRateLimitHandler(next, 1, 3, time.Minute)

	for i := 0; i < 3; i++ {
		if code := doRequest(handler, "10.0.0.1:1234"); code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, code)
		}
	}
	if code := doRequest(handler, "10.0.0.1:1234"); code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after burst, got %d", code)
	}

	// A different client has its own bucket.
	if code := doRequest(handler, "10.0.0.2:1234"); code != http.StatusOK {
		t.Fatalf("expected independent bucket per client, got %d", code)
	}
}

// TestClientIPHeaders tests the forwarded-header precedence.
func TestClientIPHeaders(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	if ip := clientIP(req); ip != "10.0.0.1" {
		t.Fatalf("expected remote addr host, got %q", ip)
	}

	req.Header.Set("X-Real-Ip", "203.0.113.9")
	if ip := clientIP(req); ip != "203.0.113.9" {
		t.Fatalf("expected X-Real-Ip, got %q", ip)
	}

	req.Header.Set("X-Forwarded-For", "198.51.100.7, 203.0.113.9")
	if ip := clientIP(req); ip != "198.51.100.7" {
		t.Fatalf("expected first X-Forwarded-For entry, got %q", ip)
	}
}
