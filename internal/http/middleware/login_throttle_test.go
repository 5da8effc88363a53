package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestLoginThrottleAllowsUpToBurst(t *testing.T) {
	throttle := NewLoginThrottle(3)
	h := throttle.Middleware()(okHandler())

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPut, "/api/auth/login", nil)
		req.RemoteAddr = "10.0.0.1:12345"
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("attempt %d: expected 200 within burst, got %d", i+1, rr.Code)
		}
	}

	req := httptest.NewRequest(http.MethodPut, "/api/auth/login", nil)
	req.RemoteAddr = "10.0.0.1:12345"
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 past the burst, got %d", rr.Code)
	}
	if got := errorStatus(t, rr); got != "TooManyRequestsError" {
		t.Fatalf("expected TooManyRequestsError, got %q", got)
	}
}

func TestLoginThrottleIsolatesClients(t *testing.T) {
	throttle := NewLoginThrottle(1)
	h := throttle.Middleware()(okHandler())

	first := httptest.NewRequest(http.MethodPut, "/api/auth/login", nil)
	first.RemoteAddr = "10.0.0.1:12345"
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, first)
	if rr.Code != http.StatusOK {
		t.Fatalf("first client should pass, got %d", rr.Code)
	}

	blocked := httptest.NewRequest(http.MethodPut, "/api/auth/login", nil)
	blocked.RemoteAddr = "10.0.0.1:54321"
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, blocked)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("same ip on a new port should be throttled, got %d", rr.Code)
	}

	other := httptest.NewRequest(http.MethodPut, "/api/auth/login", nil)
	other.RemoteAddr = "10.0.0.2:12345"
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, other)
	if rr.Code != http.StatusOK {
		t.Fatalf("a different ip must not share the limiter, got %d", rr.Code)
	}
}
