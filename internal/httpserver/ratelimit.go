package httpserver

import (
	"net"
	"net/http"
	"sync"

	"golang.org/x/time/rate"
)

// ipLimiters hands out one token-bucket limiter per client IP, matching the
// server.rate_limit_per_minute / server.rate_limit_burst config. Entries are
// never evicted — acceptable for a single-process demo server handling a
// bounded set of clients, unlike a long-lived multi-tenant gateway.
type ipLimiters struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      rate.Limit
	burst    int
}

func newIPLimiters(perMinute, burst int) *ipLimiters {
	if perMinute <= 0 {
		perMinute = 30
	}
	if burst <= 0 {
		burst = 5
	}
	return &ipLimiters{
		limiters: make(map[string]*rate.Limiter),
		rps:      rate.Limit(float64(perMinute) / 60.0),
		burst:    burst,
	}
}

func (l *ipLimiters) allow(ip string) bool {
	l.mu.Lock()
	lim, ok := l.limiters[ip]
	if !ok {
		lim = rate.NewLimiter(l.rps, l.burst)
		l.limiters[ip] = lim
	}
	l.mu.Unlock()
	return lim.Allow()
}

// RateLimit wraps next with per-IP rate limiting, rejecting over-quota
// requests with RATE_LIMITED before the pipeline is ever started.
func RateLimit(perMinute, burst int, next http.Handler) http.Handler {
	limiters := newIPLimiters(perMinute, burst)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if !limiters.allow(ip) {
			writeJSONError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
