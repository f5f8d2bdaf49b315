package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestLimiter(rate int, whitelist []string, blocked *int) *RateLimiter {
	return NewRateLimiter(rate, time.Minute, whitelist, []string{"192.0.2.9"}, func() { *blocked++ },
		slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestAllowWindow(t *testing.T) {
	var blocked int
	rl := newTestLimiter(2, nil, &blocked)
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		if ok, _ := rl.Allow("1.2.3.4"); !ok {
			t.Fatalf("request %d should be allowed", i)
		}
	}
	ok, retry := rl.Allow("1.2.3.4")
	if ok {
		t.Fatal("third request should be limited")
	}
	if retry != time.Minute {
		t.Errorf("retry = %v, want 1m", retry)
	}

	if ok, _ := rl.Allow("5.6.7.8"); !ok {
		t.Error("other IPs have their own window")
	}

	now = now.Add(time.Minute)
	if ok, _ := rl.Allow("1.2.3.4"); !ok {
		t.Error("window should reset")
	}
}

func TestMiddleware(t *testing.T) {
	var blocked int
	rl := newTestLimiter(1, []string{"10.0.0.1"}, &blocked)
	h := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	do := func(remote, xff string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/resolve-map", nil)
		req.RemoteAddr = remote
		if xff != "" {
			req.Header.Set("X-Forwarded-For", xff)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	if rec := do("192.0.2.1:5555", ""); rec.Code != http.StatusNoContent {
		t.Fatalf("first request: status %d", rec.Code)
	}
	rec := do("192.0.2.1:5555", "")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: status %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After")
	}
	if blocked != 1 {
		t.Errorf("blocked = %d, want 1", blocked)
	}

	for i := 0; i < 3; i++ {
		if rec := do("192.0.2.9:1", "10.0.0.1, 172.16.0.1"); rec.Code != http.StatusNoContent {
			t.Fatalf("whitelisted request %d: status %d", i, rec.Code)
		}
	}
}

func TestMiddlewareIgnoresSpoofedForwardedFor(t *testing.T) {
	var blocked int
	rl := newTestLimiter(1, nil, &blocked)
	h := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	codes := make([]int, 0, 3)
	for _, xff := range []string{"203.0.113.1", "203.0.113.2", "203.0.113.3"} {
		req := httptest.NewRequest(http.MethodPost, "/api/resolve-map", nil)
		req.RemoteAddr = "198.51.100.20:4000"
		req.Header.Set("X-Forwarded-For", xff)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	if codes[0] != http.StatusNoContent || codes[1] != http.StatusTooManyRequests || codes[2] != http.StatusTooManyRequests {
		t.Errorf("rotating X-Forwarded-For should not reset the limit, got %v", codes)
	}
}

func TestClientIP(t *testing.T) {
	var blocked int
	rl := newTestLimiter(1, nil, &blocked)

	tests := []struct {
		name   string
		remote string
		xff    string
		xri    string
		want   string
	}{
		{"remote addr", "192.0.2.1:80", "", "", "192.0.2.1"},
		{"untrusted peer ignores forwarded", "192.0.2.1:80", "203.0.113.5", "", "192.0.2.1"},
		{"untrusted peer ignores real ip", "192.0.2.1:80", "", "198.51.100.7", "192.0.2.1"},
		{"proxy forwarded first hop", "192.0.2.9:80", "203.0.113.5, 10.0.0.1", "", "203.0.113.5"},
		{"proxy forwarded with port", "192.0.2.9:80", "203.0.113.5:443", "", "203.0.113.5"},
		{"proxy real ip", "192.0.2.9:80", "", "198.51.100.7", "198.51.100.7"},
		{"proxy without headers", "192.0.2.9:80", "", "", "192.0.2.9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				req.Header.Set("X-Real-IP", tt.xri)
			}
			if got := rl.ClientIP(req); got != tt.want {
				t.Errorf("ClientIP = %q, want %q", got, tt.want)
			}
		})
	}
}
