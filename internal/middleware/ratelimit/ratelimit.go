// Package ratelimit throttles record writes per client with a token bucket
// from golang.org/x/time/rate.
package ratelimit

import (
	"encoding/json"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// staleAfter is how long an idle client keeps its bucket.
const staleAfter = 10 * time.Minute

// Config holds rate limiter configuration
type Config struct {
	// RequestsPerMinute is both the burst and the refill rate.
	RequestsPerMinute int
	CleanupInterval   time.Duration
	// Methods limits which requests are counted. Empty means all.
	Methods []string
}

// DefaultConfig limits writes to 60 per minute.
func DefaultConfig() Config {
	return Config{
		RequestsPerMinute: 60,
		CleanupInterval:   5 * time.Minute,
		Methods:           []string{http.MethodPost, http.MethodDelete},
	}
}

// Limiter keeps one token bucket per client address. A client may spend
// RequestsPerMinute requests at once and earns them back evenly over a
// minute.
type Limiter struct {
	mu      sync.Mutex
	clients map[string]*client
	limit   rate.Limit
	burst   int
	methods map[string]bool
	now     func() time.Time
	hits    int64

	stop     chan struct{}
	stopOnce sync.Once
}

type client struct {
	bucket   *rate.Limiter
	lastSeen time.Time
}

// NewLimiter creates a rate limiter and starts its cleanup goroutine.
func NewLimiter(config Config) *Limiter {
	if config.RequestsPerMinute <= 0 {
		config.RequestsPerMinute = DefaultConfig().RequestsPerMinute
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = DefaultConfig().CleanupInterval
	}

	rl := &Limiter{
		clients: make(map[string]*client),
		limit:   rate.Limit(float64(config.RequestsPerMinute) / 60),
		burst:   config.RequestsPerMinute,
		methods: make(map[string]bool, len(config.Methods)),
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	for _, m := range config.Methods {
		rl.methods[m] = true
	}
	go rl.cleanupLoop(config.CleanupInterval)
	return rl
}

func (rl *Limiter) bucket(clientIP string, now time.Time) *rate.Limiter {
	c, ok := rl.clients[clientIP]
	if !ok {
		c = &client{bucket: rate.NewLimiter(rl.limit, rl.burst)}
		rl.clients[clientIP] = c
	}
	c.lastSeen = now
	return c.bucket
}

// Allow spends one token of clientIP's bucket, reporting false when it is
// empty.
func (rl *Limiter) Allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if rl.bucket(clientIP, now).AllowN(now, 1) {
		return true
	}
	atomic.AddInt64(&rl.hits, 1)
	return false
}

// RetryAfter returns how long clientIP must wait for its next token.
func (rl *Limiter) RetryAfter(clientIP string) time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	c, ok := rl.clients[clientIP]
	if !ok {
		return 0
	}
	now := rl.now()
	r := c.bucket.ReserveN(now, 1)
	defer r.CancelAt(now)
	return r.DelayFrom(now)
}

func (rl *Limiter) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := rl.cleanupStaleEntries(); n > 0 {
				slog.Debug("Rate limit buckets dropped", "count", n)
			}
		case <-rl.stop:
			return
		}
	}
}

// cleanupStaleEntries drops buckets of clients idle for staleAfter. A
// dropped bucket would have refilled completely by then.
func (rl *Limiter) cleanupStaleEntries() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	removed := 0
	cutoff := rl.now().Add(-staleAfter)
	for ip, c := range rl.clients {
		if c.lastSeen.Before(cutoff) {
			delete(rl.clients, ip)
			removed++
		}
	}
	return removed
}

// ActiveClients returns the number of currently tracked clients
func (rl *Limiter) ActiveClients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

// Stop ends the cleanup goroutine. It is safe to call more than once.
func (rl *Limiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

// Metrics for monitoring rate limit performance
type Metrics struct {
	TotalHits   int64
	ClientCount int64
}

// GetMetrics returns current rate limiting metrics
func (rl *Limiter) GetMetrics() Metrics {
	return Metrics{
		TotalHits:   atomic.LoadInt64(&rl.hits),
		ClientCount: int64(rl.ActiveClients()),
	}
}

// Middleware rejects over-limit requests with a JSON 429 and a Retry-After
// header. Requests whose method is not configured pass uncounted.
func (rl *Limiter) Middleware(extractIP func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(rl.methods) > 0 && !rl.methods[r.Method] {
				next.ServeHTTP(w, r)
				return
			}

			clientIP := extractIP(r)
			if !rl.Allow(clientIP) {
				retry := int(math.Ceil(rl.RetryAfter(clientIP).Seconds()))
				if retry < 1 {
					retry = 1
				}
				slog.WarnContext(r.Context(), "Rate limit exceeded",
					"client_ip", clientIP,
					"method", r.Method,
					"path", r.URL.Path,
					"retry_after_s", retry)
				w.Header().Set("Retry-After", strconv.Itoa(retry))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "rate limit exceeded, please try again later"})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
