package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/soaringjerry/epds/internal/utils"
)

const limiterIdle = 2 * time.Hour

type ipLimiter struct {
	limiter    *rate.Limiter
	lastActive time.Time
}

// IPLimiters hands out one token bucket per client IP. Idle buckets are
// dropped during a periodic sweep piggybacked on requests.
type IPLimiters struct {
	mu        sync.Mutex
	m         map[string]*ipLimiter
	limit     rate.Limit
	burst     int
	lastSweep time.Time
	now       func() time.Time
}

func NewIPLimiters(perSecond float64, burst int) *IPLimiters {
	return &IPLimiters{
		m:     map[string]*ipLimiter{},
		limit: rate.Limit(perSecond),
		burst: burst,
		now:   time.Now,
	}
}

// Allow reports whether ip may make a request now.
func (l *IPLimiters) Allow(ip string) bool {
	l.mu.Lock()
	now := l.now()
	if now.Sub(l.lastSweep) > time.Hour {
		for k, v := range l.m {
			if now.Sub(v.lastActive) > limiterIdle {
				delete(l.m, k)
			}
		}
		l.lastSweep = now
	}
	entry, ok := l.m[ip]
	if !ok {
		entry = &ipLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.m[ip] = entry
	}
	entry.lastActive = now
	l.mu.Unlock()
	return entry.limiter.AllowN(now, 1)
}

// RateLimit rejects clients that exceed their bucket with 429.
func RateLimit(limiters *IPLimiters) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiters.Allow(c.ClientIP()) {
			locale := LocaleFromContext(c.Request.Context())
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": gin.H{"message": utils.T(locale, "request.rate_limited"), "code": "rate_limited"},
			})
			return
		}
		c.Next()
	}
}
