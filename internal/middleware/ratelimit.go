package middleware

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const staleClientAfter = 10 * time.Minute

// RateLimiter is a per-client-IP token bucket. Buckets live in memory, so
// limits are per process.
type RateLimiter struct {
	mu        sync.Mutex
	perMinute int
	perSecond float64
	burst     float64
	clients   map[string]*bucket
	lastSweep time.Time
	now       func() time.Time
}

type bucket struct {
	tokens   float64
	lastSeen time.Time
}

// NewRateLimiter allows perMinute requests per client with bursts up to
// burst.
func NewRateLimiter(perMinute, burst int) *RateLimiter {
	return &RateLimiter{
		perMinute: perMinute,
		perSecond: float64(perMinute) / 60,
		burst:     float64(burst),
		clients:   make(map[string]*bucket),
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

// Allow takes a token for client and reports whether one was available.
func (rl *RateLimiter) Allow(client string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.lastSweep) > staleClientAfter {
		for ip, b := range rl.clients {
			if now.Sub(b.lastSeen) > staleClientAfter {
				delete(rl.clients, ip)
			}
		}
		rl.lastSweep = now
	}

	// Refill the bucket for the time since the last request
	b, ok := rl.clients[client]
	if !ok {
		b = &bucket{tokens: rl.burst, lastSeen: now}
		rl.clients[client] = b
	}

	b.tokens = min(b.tokens+now.Sub(b.lastSeen).Seconds()*rl.perSecond, rl.burst)
	b.lastSeen = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// Handler rejects over-limit requests with 429. It expects RemoteAddr to
// have been resolved by chi's RealIP middleware.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	retryAfter := strconv.Itoa(max(60/max(rl.perMinute, 1), 1))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Get client IP
		ip := clientIP(r)
		if !rl.Allow(ip) {
			log.Warn().Str("client_ip", ip).Str("path", r.URL.Path).Msg("Rate limit exceeded")
			w.Header().Set("Retry-After", retryAfter)
			WriteError(w, http.StatusTooManyRequests, "RATE_LIMIT", "Rate limit exceeded. Please try again later.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
