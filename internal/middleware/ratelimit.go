// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// clientWindow holds the times of one client's requests inside the
// current window, oldest first.
type clientWindow struct {
	mu   sync.Mutex
	hits []time.Time
}

// prune drops hits at or before cutoff.
func (cw *clientWindow) prune(cutoff time.Time) {
	i := 0
	for i < len(cw.hits) && !cw.hits[i].After(cutoff) {
		i++
	}
	cw.hits = cw.hits[i:]
}

// decision is the outcome of one rate limit check.
type decision struct {
	allowed   bool
	remaining int
	// retryAfter is how long until the oldest hit leaves the window.
	// Zero when allowed.
	retryAfter time.Duration
}

// RateLimiter limits requests per client IP over a sliding window. It
// guards the routes that fan out to upstream vocabulary sources.
type RateLimiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu      sync.RWMutex
	clients map[string]*clientWindow
	stopCh  chan struct{}
}

// NewRateLimiter creates a rate limiter that allows limit requests per
// window and client. Idle clients are forgotten by a background sweep
// until Stop is called.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		limit:   limit,
		window:  window,
		now:     time.Now,
		clients: make(map[string]*clientWindow),
		stopCh:  make(chan struct{}),
	}

	go func() {
		ticker := time.NewTicker(max(window, time.Minute))
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				rl.sweep()
			case <-rl.stopCh:
				return
			}
		}
	}()

	return rl
}

// Stop ends the background sweep.
func (rl *RateLimiter) Stop() {
	close(rl.stopCh)
}

func (rl *RateLimiter) client(key string) *clientWindow {
	rl.mu.RLock()
	cw, ok := rl.clients[key]
	rl.mu.RUnlock()
	if ok {
		return cw
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if cw, ok = rl.clients[key]; !ok {
		cw = &clientWindow{}
		rl.clients[key] = cw
	}
	return cw
}

// check records a request for key if the client has budget left.
func (rl *RateLimiter) check(key string) decision {
	now := rl.now()
	cw := rl.client(key)

	cw.mu.Lock()
	defer cw.mu.Unlock()

	cw.prune(now.Add(-rl.window))
	if len(cw.hits) >= rl.limit {
		return decision{retryAfter: cw.hits[0].Add(rl.window).Sub(now)}
	}
	cw.hits = append(cw.hits, now)
	return decision{allowed: true, remaining: rl.limit - len(cw.hits)}
}

// sweep forgets clients whose newest request has left the window.
func (rl *RateLimiter) sweep() {
	cutoff := rl.now().Add(-rl.window)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	for key, cw := range rl.clients {
		cw.mu.Lock()
		idle := len(cw.hits) == 0 || !cw.hits[len(cw.hits)-1].After(cutoff)
		cw.mu.Unlock()
		if idle {
			delete(rl.clients, key)
		}
	}
}

// Middleware rate-limits by client IP. Every response carries the limit
// and the remaining budget; rejected requests also get Retry-After in
// whole seconds.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	limit := strconv.Itoa(rl.limit)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d := rl.check(clientIP(r))
		w.Header().Set("X-RateLimit-Limit", limit)
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.remaining))
		if !d.allowed {
			secs := max(1, int(math.Ceil(d.retryAfter.Seconds())))
			w.Header().Set("Retry-After", strconv.Itoa(secs))
			http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP extracts the client's IP address. Proxy headers win over the
// connection address: the first X-Forwarded-For hop, then X-Real-IP.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
