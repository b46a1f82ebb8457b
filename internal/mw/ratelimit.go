package mw

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// ClientRateLimiter keeps one token bucket per client. Buckets of clients
// that stay quiet for the idle period are evicted.
type ClientRateLimiter struct {
	buckets *cache.Cache
	r       rate.Limit
	b       int
}

// NewClientRateLimiter creates a new ClientRateLimiter.
func NewClientRateLimiter(r rate.Limit, b int, idle time.Duration) *ClientRateLimiter {
	return &ClientRateLimiter{
		buckets: cache.New(idle, 2*idle),
		r:       r,
		b:       b,
	}
}

// GetLimiter returns the bucket for a client, creating it on first use.
func (l *ClientRateLimiter) GetLimiter(key string) *rate.Limiter {
	if v, found := l.buckets.Get(key); found {
		limiter := v.(*rate.Limiter)
		l.buckets.SetDefault(key, limiter)
		return limiter
	}

	limiter := rate.NewLimiter(l.r, l.b)
	if err := l.buckets.Add(key, limiter, cache.DefaultExpiration); err != nil {
		// Another request created it first.
		if v, found := l.buckets.Get(key); found {
			return v.(*rate.Limiter)
		}
	}
	return limiter
}

// ClientKey identifies the caller by the given header when it is set, for
// deployments behind a proxy, and by the connection's client IP otherwise.
func ClientKey(c *gin.Context, header string) string {
	if header != "" {
		if v := strings.TrimSpace(c.GetHeader(header)); v != "" {
			// X-Forwarded-For style lists: the first entry is the client.
			if i := strings.IndexByte(v, ','); i >= 0 {
				v = strings.TrimSpace(v[:i])
			}
			return v
		}
	}
	return c.ClientIP()
}

// RateLimiter is a middleware for per-client rate limiting.
func RateLimiter(r rate.Limit, b int, ipHeader string) gin.HandlerFunc {
	limiter := NewClientRateLimiter(r, b, 10*time.Minute)
	return func(c *gin.Context) {
		if !limiter.GetLimiter(ClientKey(c, ipHeader)).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}
