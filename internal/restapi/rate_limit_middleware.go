package restapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
	"peatus.ee/internal/clock"
	"peatus.ee/internal/models"
)

// keyLimiter pairs a token bucket with the moment it was last used, so
// idle entries can be evicted without touching active ones.
type keyLimiter struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64 // unix nanoseconds
}

// RateLimitMiddleware applies a per-API-key token bucket to incoming
// requests. Requests without a key share a single bucket.
type RateLimitMiddleware struct {
	limiters       map[string]*keyLimiter
	mu             sync.RWMutex
	rateLimit      rate.Limit
	refillInterval time.Duration
	burstSize      int
	cleanupTick    *time.Ticker
	exemptKeys     map[string]bool
	stopChan       chan struct{}
	stopOnce       sync.Once
	clock          clock.Clock
}

// NewRateLimitMiddleware builds a limiter allowing ratePerSecond
// requests per interval per API key. A zero rate blocks everything;
// a negative rate disables limiting.
func NewRateLimitMiddleware(ratePerSecond int, interval time.Duration, exemptKeys []string, clock clock.Clock) *RateLimitMiddleware {
	var rateLimit rate.Limit
	var refillInterval time.Duration
	switch {
	case ratePerSecond == 0:
		rateLimit = 0
		refillInterval = time.Hour
	case ratePerSecond < 0:
		rateLimit = rate.Inf
		refillInterval = time.Second
	default:
		refillInterval = interval / time.Duration(ratePerSecond)
		rateLimit = rate.Every(refillInterval)
	}

	exemptMap := make(map[string]bool)
	for _, key := range exemptKeys {
		if trimmed := strings.TrimSpace(key); trimmed != "" {
			exemptMap[trimmed] = true
		}
	}

	middleware := &RateLimitMiddleware{
		limiters:       make(map[string]*keyLimiter),
		rateLimit:      rateLimit,
		refillInterval: refillInterval,
		burstSize:      ratePerSecond,
		cleanupTick:    time.NewTicker(5 * time.Minute),
		exemptKeys:     exemptMap,
		stopChan:       make(chan struct{}),
		clock:          clock,
	}

	go middleware.cleanup()

	return middleware
}

func (rl *RateLimitMiddleware) Handler() func(http.Handler) http.Handler {
	return rl.rateLimitHandler
}

// getLimiter returns the bucket for apiKey, creating it on first use.
// The fast path takes only the read lock.
func (rl *RateLimitMiddleware) getLimiter(apiKey string) *rate.Limiter {
	rl.mu.RLock()
	if entry, exists := rl.limiters[apiKey]; exists {
		entry.lastSeen.Store(rl.clock.Now().UnixNano())
		rl.mu.RUnlock()
		return entry.limiter
	}
	rl.mu.RUnlock()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	// Recheck: another request may have created the entry while we
	// waited for the write lock.
	if entry, exists := rl.limiters[apiKey]; exists {
		entry.lastSeen.Store(rl.clock.Now().UnixNano())
		return entry.limiter
	}

	entry := &keyLimiter{
		limiter: rate.NewLimiter(rl.rateLimit, rl.burstSize),
	}
	entry.lastSeen.Store(rl.clock.Now().UnixNano())
	rl.limiters[apiKey] = entry

	return entry.limiter
}

func (rl *RateLimitMiddleware) rateLimitHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey := r.URL.Query().Get("key")
		if apiKey == "" {
			apiKey = "__no_key__"
		}

		if rl.exemptKeys[apiKey] {
			next.ServeHTTP(w, r)
			return
		}

		if !rl.getLimiter(apiKey).Allow() {
			rl.sendRateLimitExceeded(w, r)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimitMiddleware) sendRateLimitExceeded(w http.ResponseWriter, r *http.Request) {
	// Retry-After carries whole seconds, so round sub-second refill
	// intervals up to one second rather than down to zero.
	retrySeconds := int((rl.refillInterval + time.Second - 1) / time.Second)
	if retrySeconds < 1 {
		retrySeconds = 1
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", strconv.Itoa(retrySeconds))
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.burstSize))
	w.Header().Set("X-RateLimit-Remaining", "0")
	w.WriteHeader(http.StatusTooManyRequests)

	errorResponse := models.ResponseModel{
		Code:        http.StatusTooManyRequests,
		CurrentTime: rl.clock.Now().UnixMilli(),
		Text:        "Rate limit exceeded. Please try again later.",
		Version:     2,
	}

	if err := json.NewEncoder(w).Encode(errorResponse); err != nil {
		slog.Error("failed to encode rate limit response", "error", err)
	}
}

// cleanupOnce evicts buckets idle for more than ten minutes. Kept
// separate from the background loop so tests can call it directly.
func (rl *RateLimitMiddleware) cleanupOnce() {
	const idleThreshold = 10 * time.Minute

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.clock.Now()
	for key, entry := range rl.limiters {
		if rl.exemptKeys[key] {
			continue
		}
		lastSeenNano := entry.lastSeen.Load()
		if lastSeenNano == 0 {
			continue
		}
		if now.Sub(time.Unix(0, lastSeenNano)) > idleThreshold {
			delete(rl.limiters, key)
		}
	}
}

func (rl *RateLimitMiddleware) cleanup() {
	for {
		select {
		case <-rl.cleanupTick.C:
			rl.cleanupOnce()
		case <-rl.stopChan:
			return
		}
	}
}

// Stop halts the background eviction loop. Safe to call more than once;
// in-flight requests are not affected.
func (rl *RateLimitMiddleware) Stop() {
	rl.stopOnce.Do(func() {
		close(rl.stopChan)
		rl.cleanupTick.Stop()
	})
}
