package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/inkpress/inkpress/config"
	"github.com/inkpress/inkpress/utils"
)

type rateLimiter struct {
	limiter *rate.Limiter
	expires time.Time
}

// limiterSet keeps one token bucket per client IP.
type limiterSet struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters map[string]*rateLimiter
}

// RateLimitMiddleware applies a simple IP based rate limiter using a token bucket.
func RateLimitMiddleware() gin.HandlerFunc {
	perMinute := max(config.Get().RateLimitPerMinute, 1)
	set := &limiterSet{
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    max(perMinute/2, 1),
		limiters: map[string]*rateLimiter{},
	}

	return Pipeline(func(ctx *gin.Context) error {
		if !set.allow(ctx.ClientIP()) {
			return &utils.APIError{Status: http.StatusTooManyRequests, Code: 42901, Message: "Too many requests, please try again later"}
		}
		return nil
	})
}

func (s *limiterSet) allow(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for k, l := range s.limiters {
		if now.After(l.expires) {
			delete(s.limiters, k)
		}
	}

	l, ok := s.limiters[key]
	if !ok {
		l = &rateLimiter{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.limiters[key] = l
	}
	l.expires = now.Add(5 * time.Minute)
	return l.limiter.Allow()
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
