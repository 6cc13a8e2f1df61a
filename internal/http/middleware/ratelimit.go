package middleware

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// clientLimiter tracks per-client token buckets. Tokens refill continuously
// at refillRate per second up to burst.
type clientLimiter struct {
	mu         sync.Mutex
	clients    map[string]*tokenBucket
	refillRate float64
	burst      int
}

type tokenBucket struct {
	tokens float64
	seen   time.Time
}

func newClientLimiter(refillRate float64, burst int) *clientLimiter {
	if burst <= 0 {
		burst = 1
	}
	cl := &clientLimiter{
		clients:    make(map[string]*tokenBucket),
		refillRate: refillRate,
		burst:      burst,
	}
	go cl.evictStale()
	return cl
}

// allow takes one token for the client, refilling based on elapsed time.
func (cl *clientLimiter) allow(client string) bool {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	now := time.Now()
	b, ok := cl.clients[client]
	if !ok {
		b = &tokenBucket{tokens: float64(cl.burst), seen: now}
		cl.clients[client] = b
	}

	b.tokens += now.Sub(b.seen).Seconds() * cl.refillRate
	if b.tokens > float64(cl.burst) {
		b.tokens = float64(cl.burst)
	}
	b.seen = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// evictStale drops buckets idle long enough to be full again, bounding the
// map for churny client populations.
func (cl *clientLimiter) evictStale() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		cutoff := time.Now().Add(-10 * time.Minute)
		cl.mu.Lock()
		for client, b := range cl.clients {
			if b.seen.Before(cutoff) {
				delete(cl.clients, client)
			}
		}
		cl.mu.Unlock()
	}
}

// RateLimit rejects clients exceeding refillRate requests per second with a
// 429 carrying the gateway's error envelope.
func RateLimit(refillRate float64, burst int) func(http.Handler) http.Handler {
	limiter := newClientLimiter(refillRate, burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client := r.RemoteAddr
			// Prefer X-Real-Ip set by chi's RealIP middleware.
			if xri := r.Header.Get("X-Real-Ip"); xri != "" {
				client = xri
			}
			if !limiter.allow(client) {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", "1")
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(struct {
					Error   string `json:"error"`
					Details string `json:"details,omitempty"`
				}{Error: "Too many requests"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
