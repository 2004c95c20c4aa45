package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiterAllow(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)

	if !rl.Allow("a") {
		t.Fatal("first call should pass")
	}
	if !rl.Allow("a") {
		t.Fatal("second call should pass")
	}
	if rl.Allow("a") {
		t.Fatal("third call should be limited")
	}
	if !rl.Allow("b") {
		t.Fatal("other keys have their own bucket")
	}
}

func TestRateLimiterWindowReset(t *testing.T) {
	rl := NewRateLimiter(1, 20*time.Millisecond)

	if !rl.Allow("a") {
		t.Fatal("first call should pass")
	}
	if rl.Allow("a") {
		t.Fatal("second call should be limited")
	}
	time.Sleep(30 * time.Millisecond)
	if !rl.Allow("a") {
		t.Fatal("call after window reset should pass")
	}
}

func TestRateLimiterMiddleware(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/appointments", nil)
	req.RemoteAddr = "10.0.0.1:1234"

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("first request: status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: status = %d", rec.Code)
	}
	if got := rec.Body.String(); got != `{"message":"rate limit exceeded"}` {
		t.Errorf("body = %s", got)
	}

	// A different client path is a different bucket.
	other := httptest.NewRequest(http.MethodPost, "/api/contact", nil)
	other.RemoteAddr = "10.0.0.1:1234"
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, other)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("other path: status = %d", rec.Code)
	}
}
