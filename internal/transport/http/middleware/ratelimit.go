package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"leaveflow/internal/transport/http/api"
	"leaveflow/internal/transport/http/shared"
)

type RateLimitKeyFunc func(r *http.Request) string

type RateLimitOption func(*rateLimiter)

const (
	staleClientAfter = 10 * time.Minute
	sweepThreshold   = 4096
)

type rateClient struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiter is a token bucket per key: limit tokens, refilled evenly across
// window.
type rateLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	every   rate.Limit
	keyFn   RateLimitKeyFunc
	now     func() time.Time
	logger  *zap.Logger
	clients map[string]*rateClient
}

func WithKeyFunc(fn RateLimitKeyFunc) RateLimitOption {
	return func(rl *rateLimiter) {
		if fn != nil {
			rl.keyFn = fn
		}
	}
}

func WithClock(now func() time.Time) RateLimitOption {
	return func(rl *rateLimiter) {
		if now != nil {
			rl.now = now
		}
	}
}

func WithLogger(l *zap.Logger) RateLimitOption {
	return func(rl *rateLimiter) {
		if l != nil {
			rl.logger = l.Named("http.ratelimit")
		}
	}
}

func RateLimit(limit int, window time.Duration, opts ...RateLimitOption) func(http.Handler) http.Handler {
	rl := newRateLimiter(limit, window, opts...)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rl.enforce(w, r) {
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// MutationRateLimit throttles write methods at half the base rate, keyed by
// actor. Reads pass through.
func MutationRateLimit(baseLimit int, window time.Duration, opts ...RateLimitOption) func(http.Handler) http.Handler {
	rl := newRateLimiter(max(baseLimit/2, 1), window, opts...)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
				if !rl.enforce(w, r) {
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func actorOrIPKey(r *http.Request) string {
	if actor, ok := GetActor(r.Context()); ok {
		return "actor:" + actor.ID
	}
	return "ip:" + shared.ClientIP(r)
}

func newRateLimiter(limit int, window time.Duration, opts ...RateLimitOption) *rateLimiter {
	rl := &rateLimiter{
		limit:   limit,
		window:  window,
		keyFn:   actorOrIPKey,
		now:     time.Now,
		logger:  zap.L().Named("http.ratelimit"),
		clients: map[string]*rateClient{},
	}
	if limit > 0 && window > 0 {
		rl.every = rate.Every(window / time.Duration(limit))
	}
	for _, opt := range opts {
		opt(rl)
	}
	return rl
}

func (rl *rateLimiter) enforce(w http.ResponseWriter, r *http.Request) bool {
	if rl.limit <= 0 || rl.window <= 0 {
		return true
	}

	key := rl.keyFn(r)
	if key == "" {
		key = "ip:" + shared.ClientIP(r)
	}
	now := rl.now()

	rl.mu.Lock()
	client, ok := rl.clients[key]
	if !ok {
		if len(rl.clients) >= sweepThreshold {
			rl.sweepLocked(now)
		}
		client = &rateClient{limiter: rate.NewLimiter(rl.every, rl.limit)}
		rl.clients[key] = client
	}
	client.lastSeen = now
	allowed := client.limiter.AllowN(now, 1)
	remaining := int(math.Max(0, math.Floor(client.limiter.TokensAt(now))))
	rl.mu.Unlock()

	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

	if !allowed {
		retry := int(math.Ceil((rl.window / time.Duration(rl.limit)).Seconds()))
		w.Header().Set("Retry-After", strconv.Itoa(max(retry, 1)))
		rl.logger.Warn("rate limit exceeded",
			zap.String("key", key),
			zap.String("path", r.URL.Path),
			zap.String("method", r.Method),
			zap.Int("limit", rl.limit),
			zap.Duration("window", rl.window),
		)
		api.Fail(w, http.StatusTooManyRequests, "rate_limited", "too many requests", GetRequestID(r.Context()))
		return false
	}
	return true
}

func (rl *rateLimiter) sweepLocked(now time.Time) {
	for key, client := range rl.clients {
		if now.Sub(client.lastSeen) > staleClientAfter {
			delete(rl.clients, key)
		}
	}
}
