// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements a per-identity token-bucket rate limiter. Buckets
// (golang.org/x/time/rate) live in a go-cache with sliding expiry, so idle
// callers are evicted by the cache janitor rather than by a hand-rolled sweep.
// The limiter is process-local.
package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// KeyFunc selects the identity used to key a rate-limit bucket.
type KeyFunc func(*gin.Context) string

// KeyByActorOrIP prefers the X-Actor-ID identity and falls back to the
// client IP. Prefixes keep the two namespaces apart.
func KeyByActorOrIP() KeyFunc {
	return func(c *gin.Context) string {
		if id := ActorID(c); id != AnonymousActor {
			return "actor:" + id
		}
		return "ip:" + c.ClientIP()
	}
}

// DefaultBucketTTL is how long an idle bucket is kept.
const DefaultBucketTTL = 10 * time.Minute

// RateLimiter is safe for concurrent use.
type RateLimiter struct {
	rps     rate.Limit
	burst   int
	keyFn   KeyFunc
	ttl     time.Duration
	buckets *cache.Cache
}

// NewRateLimiter builds a limiter refilling rps tokens per second up to
// burst (coerced to at least 1).
func NewRateLimiter(rps float64, burst int, keyFn KeyFunc) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	if keyFn == nil {
		keyFn = KeyByActorOrIP()
	}
	return &RateLimiter{
		rps:     rate.Limit(rps),
		burst:   burst,
		keyFn:   keyFn,
		ttl:     DefaultBucketTTL,
		buckets: cache.New(DefaultBucketTTL, DefaultBucketTTL),
	}
}

// limiter returns the bucket for key. Every hit pushes the expiry forward.
// A lost Add race falls back to the winner's bucket.
func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	if v, ok := rl.buckets.Get(key); ok {
		lim := v.(*rate.Limiter)
		rl.buckets.Set(key, lim, rl.ttl)
		return lim
	}
	lim := rate.NewLimiter(rl.rps, rl.burst)
	if err := rl.buckets.Add(key, lim, rl.ttl); err != nil {
		if v, ok := rl.buckets.Get(key); ok {
			return v.(*rate.Limiter)
		}
	}
	return lim
}

// Len reports the number of live buckets.
func (rl *RateLimiter) Len() int { return rl.buckets.ItemCount() }

// IsRateBypass reports whether an earlier middleware exempted the request.
func IsRateBypass(c *gin.Context) bool {
	v, ok := c.Get(ctxKeyRateBypass)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// Handler enforces the limit. Rejected requests get 429 with Retry-After
// set to the wait for the next token, rounded up to a whole second.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsRateBypass(c) {
			c.Next()
			return
		}

		lim := rl.limiter(rl.keyFn(c))
		r := lim.Reserve()
		if r.OK() && r.Delay() == 0 {
			c.Next()
			return
		}
		wait := time.Second
		if r.OK() {
			wait = r.Delay()
			r.Cancel()
		}
		secs := int((wait + time.Second - 1) / time.Second)
		c.Header("Retry-After", strconv.Itoa(secs))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"request_id": RequestIDFrom(c),
			"code":       "too_many_requests",
			"message":    "rate limit exceeded",
		})
	}
}
