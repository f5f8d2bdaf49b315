package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimiter is a fixed-window request limiter keyed by client IP.
type RateLimiter struct {
	mu        sync.Mutex
	clients   map[string]*window
	rate      int
	window    time.Duration
	whitelist map[string]struct{}
	proxies   map[string]struct{}
	onBlocked func()
	now       func() time.Time
	logger    *slog.Logger
}

type window struct {
	remaining int
	startedAt time.Time
}

// NewRateLimiter allows rate requests per window for each IP. IPs in
// whitelist bypass the limiter. Forwarding headers are read only from peers
// listed in trustedProxies. onBlocked, if set, runs for every rejected
// request.
func NewRateLimiter(rate int, window time.Duration, whitelist, trustedProxies []string, onBlocked func(), logger *slog.Logger) *RateLimiter {
	if onBlocked == nil {
		onBlocked = func() {}
	}

	return &RateLimiter{
		clients:   make(map[string]*window),
		rate:      rate,
		window:    window,
		whitelist: ipSet(whitelist),
		proxies:   ipSet(trustedProxies),
		onBlocked: onBlocked,
		now:       time.Now,
		logger:    logger.With("component", "rate_limiter"),
	}
}

// Run evicts idle clients until ctx is done.
func (rl *RateLimiter) Run(ctx context.Context) {
	ticker := time.NewTicker(rl.window * 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.evict()
		}
	}
}

func (rl *RateLimiter) evict() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-2 * rl.window)
	for ip, w := range rl.clients {
		if w.startedAt.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

// Allow consumes one request for ip. When the window is exhausted it returns
// false and the time left until the window resets.
func (rl *RateLimiter) Allow(ip string) (bool, time.Duration) {
	if _, ok := rl.whitelist[ip]; ok {
		return true, 0
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	w, ok := rl.clients[ip]
	if !ok || now.Sub(w.startedAt) >= rl.window {
		rl.clients[ip] = &window{remaining: rl.rate - 1, startedAt: now}
		return true, 0
	}
	if w.remaining > 0 {
		w.remaining--
		return true, 0
	}
	return false, rl.window - now.Sub(w.startedAt)
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := rl.ClientIP(r)
		ok, retryAfter := rl.Allow(ip)
		if !ok {
			rl.onBlocked()
			rl.logger.Warn("rate limit exceeded", "ip", ip, "path", r.URL.Path)
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]string{"error": "Too Many Requests"})
			return
		}

		next.ServeHTTP(w, r)
	})
}

// ClientIP returns the connection address. When the peer is a trusted
// proxy, the first X-Forwarded-For hop or X-Real-IP is used instead.
func (rl *RateLimiter) ClientIP(r *http.Request) string {
	peer, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		peer = r.RemoteAddr
	}
	if _, ok := rl.proxies[peer]; !ok {
		return peer
	}

	if xff := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); xff != "" {
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		if host, _, err := net.SplitHostPort(first); err == nil {
			return host
		}
		return first
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	return peer
}

func ipSet(ips []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ips))
	for _, ip := range ips {
		if ip = strings.TrimSpace(ip); ip != "" {
			set[ip] = struct{}{}
		}
	}
	return set
}
