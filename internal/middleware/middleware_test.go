package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiterBucket(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 11, 10, 9, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(60, 2)
	rl.now = func() time.Time { return now }

	if !rl.Allow("a") || !rl.Allow("a") {
		t.Fatalf("burst of 2 should be allowed")
	}
	if rl.Allow("a") {
		t.Fatalf("third request should be limited")
	}
	if !rl.Allow("b") {
		t.Fatalf("clients are limited independently")
	}

	now = now.Add(time.Second)
	if !rl.Allow("a") {
		t.Fatalf("one token should refill after a second at 60/min")
	}
	if rl.Allow("a") {
		t.Fatalf("only one token should have refilled")
	}
}

func TestRateLimiterSweepsIdleClients(t *testing.T) {
	t.Parallel()

	now := time.Now()
	rl := NewRateLimiter(60, 1)
	rl.now = func() time.Time { return now }
	rl.Allow("old")

	now = now.Add(2 * staleClientAfter)
	rl.Allow("new")

	if _, ok := rl.clients["old"]; ok {
		t.Fatalf("idle client should have been swept")
	}
}

func TestRateLimitHandler(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(1, 1)
	h := rl.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.RemoteAddr = "10.0.0.1:5555"

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("first request status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests || rec.Header().Get("Retry-After") != "60" {
		t.Fatalf("second request status = %d retry-after = %q", rec.Code, rec.Header().Get("Retry-After"))
	}
	var body ErrorBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil || body.Error.Code != "RATE_LIMIT" {
		t.Fatalf("body = %+v (%v)", body, err)
	}
}

func TestRecovery(t *testing.T) {
	t.Parallel()

	h := Recovery(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	var body ErrorBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil || body.Error.Code != "INTERNAL_ERROR" {
		t.Fatalf("body = %+v (%v)", body, err)
	}
}

func TestLoggingPassesThrough(t *testing.T) {
	t.Parallel()

	h := Logging(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusTeapot {
		t.Fatalf("status = %d", rec.Code)
	}
}
