package middleware

import (
	"net/http"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// CallerLimiter hands out one token bucket per caller address.
type CallerLimiter struct {
	mu       sync.Mutex
	qps      rate.Limit
	burst    int
	limiters map[common.Address]*rate.Limiter
}

func NewCallerLimiter(qps float64, burst int) *CallerLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &CallerLimiter{
		qps:      rate.Limit(qps),
		burst:    burst,
		limiters: make(map[common.Address]*rate.Limiter),
	}
}

func (l *CallerLimiter) get(caller common.Address) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	limiter, ok := l.limiters[caller]
	if !ok {
		limiter = rate.NewLimiter(l.qps, l.burst)
		l.limiters[caller] = limiter
	}
	return limiter
}

func RateLimitMiddleware(limiter *CallerLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 1. 获取调用方 (必须在 CallerMiddleware 之后使用)
		caller, ok := CallerFrom(c)
		if !ok || limiter == nil || limiter.qps <= 0 {
			c.Next()
			return
		}

		// 2. 尝试获取令牌
		if !limiter.get(caller).Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"retry_after": "1s",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
