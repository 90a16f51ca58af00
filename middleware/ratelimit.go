package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// KeyFunc picks the bucket a request is charged to.
type KeyFunc func(c *gin.Context) string

// ByIP charges requests to the client address.
func ByIP(c *gin.Context) string { return c.ClientIP() }

// ByActor charges authenticated requests to the user, so a household
// sharing one address is not throttled as a single client. Unauthenticated
// requests fall back to the address.
func ByActor(c *gin.Context) string {
	if a, ok := GetActor(c); ok {
		return "user:" + strconv.FormatInt(a.UserID, 10)
	}
	return ByIP(c)
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimit provides per-key token-bucket rate limiting.
// r = requests per second, b = burst size.
func RateLimit(r rate.Limit, b int, key KeyFunc) gin.HandlerFunc {
	var (
		mu      sync.Mutex
		buckets = make(map[string]*bucket)
	)

	// Remove buckets idle for ten minutes.
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			cutoff := time.Now().Add(-10 * time.Minute)
			mu.Lock()
			for k, bk := range buckets {
				if bk.lastSeen.Before(cutoff) {
					delete(buckets, k)
				}
			}
			mu.Unlock()
		}
	}()

	allow := func(k string) bool {
		mu.Lock()
		defer mu.Unlock()
		bk, ok := buckets[k]
		if !ok {
			bk = &bucket{limiter: rate.NewLimiter(r, b)}
			buckets[k] = bk
		}
		bk.lastSeen = time.Now()
		return bk.limiter.Allow()
	}

	return func(c *gin.Context) {
		if !allow(key(c)) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
