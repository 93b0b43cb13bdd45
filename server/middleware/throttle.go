package middleware

import (
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/recoverykit/errors"
	"github.com/kbukum/recoverykit/resilience"
)

// Throttle rejects requests with 429 while rl has no tokens. All routes it
// wraps share one bucket.
func Throttle(rl *resilience.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.Allow() {
			c.Next()
			return
		}
		wait := rl.RetryAfter()
		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
		appErr := errors.RateLimited()
		c.AbortWithStatusJSON(http.StatusTooManyRequests, appErr.ToResponse())
	}
}
