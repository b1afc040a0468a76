package middleware

import (
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/autotraderhub/autotrader/internal/infrastructure/ratelimit"
	"github.com/autotraderhub/autotrader/internal/shared/authorization"
	"github.com/autotraderhub/autotrader/internal/shared/logger"
	"github.com/autotraderhub/autotrader/internal/shared/utils"
)

// RateLimiter throttles expensive endpoints per user and route using a
// shared sliding-window limiter. Requests without a user fall back to the
// client IP.
type RateLimiter struct {
	limiter ratelimit.RateLimiter
	limits  ratelimit.Limits
	logger  logger.Interface
}

// NewRateLimiter creates the middleware factory. A nil limiter disables limiting.
func NewRateLimiter(limiter ratelimit.RateLimiter, limits ratelimit.Limits, log logger.Interface) *RateLimiter {
	return &RateLimiter{
		limiter: limiter,
		limits:  limits,
		logger:  log,
	}
}

// Limit returns a Gin middleware enforcing the configured limits for the matched route.
func (rl *RateLimiter) Limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.limiter == nil {
			c.Next()
			return
		}

		key := rateLimitKey(c)
		decision, err := rl.limiter.Allow(c.Request.Context(), key, rl.limits)
		if err != nil {
			// If Redis is unavailable, allow the request to avoid blocking all traffic
			rl.logger.Warnw("rate limiter unavailable, allowing request", "key", key, "error", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))

		if !decision.Allowed {
			retryAfter := int(math.Ceil(decision.RetryAfter.Seconds()))
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			rl.logger.Infow("rate limit exceeded", "key", key, "retry_after", retryAfter)
			utils.ErrorResponse(c, http.StatusTooManyRequests, "rate limit exceeded, please try again later")
			c.Abort()
			return
		}

		c.Next()
	}
}

func rateLimitKey(c *gin.Context) string {
	route := c.FullPath()
	if route == "" {
		route = c.Request.URL.Path
	}
	if userID, _, ok := authorization.UserFromContext(c); ok {
		return fmt.Sprintf("user:%d:%s:%s", userID, c.Request.Method, route)
	}
	return fmt.Sprintf("ip:%s:%s:%s", c.ClientIP(), c.Request.Method, route)
}
