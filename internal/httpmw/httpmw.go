// Package httpmw carries the ambient HTTP concerns (CORS, security
// headers, per-IP rate limiting) that sit in front of the thin façade
// in internal/webhook, per §9's redesign flag that the transport layer
// itself carries no business logic.
package httpmw

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// CORS mirrors middlewares.CORSMiddlewares, generalized to any origin
// since this core has no browser-hosted frontend of its own — callers
// embedding it behind their own gateway can tighten this further.
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// SecurityHeaders mirrors middlewares.SecurityHeaders verbatim in
// intent: a fixed set of defensive response headers with no request
// inspection, so it needs no adaptation beyond the package move.
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Next()
	}
}

// RateLimiter throttles per client IP with a token-bucket limiter via
// golang.org/x/time/rate, the same library internal/vision/classifier
// uses to throttle dispatch attempts — one *rate.Limiter per IP rather
// than a hand-rolled timestamp slice.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	r        rate.Limit
	burst    int
}

// NewRateLimiter builds a limiter allowing `perSecond` requests/sec
// per IP with a burst of `burst`.
func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		r:        rate.Limit(perSecond),
		burst:    burst,
	}
}

func (rl *RateLimiter) limiterFor(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	l, ok := rl.limiters[ip]
	if !ok {
		l = rate.NewLimiter(rl.r, rl.burst)
		rl.limiters[ip] = l
	}
	return l
}

func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.limiterFor(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"status": false, "message": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
