package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// Each IP gets its own limiter; lastSeen drives cleanup of idle entries.
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type IPRateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor

	reqPerMin int
	burst     int
	ttl       time.Duration
}

func NewIPRateLimiter(reqPerMin, burst int, ttl time.Duration) *IPRateLimiter {
	rl := &IPRateLimiter{
		visitors:  make(map[string]*visitor),
		reqPerMin: reqPerMin,
		burst:     burst,
		ttl:       ttl,
	}
	go rl.cleanupVisitors()
	return rl
}

func (rl *IPRateLimiter) getLimiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if v, ok := rl.visitors[ip]; ok {
		v.lastSeen = time.Now()
		return v.limiter
	}

	rps := float64(rl.reqPerMin) / 60.0
	limiter := rate.NewLimiter(rate.Limit(rps), rl.burst)
	rl.visitors[ip] = &visitor{limiter: limiter, lastSeen: time.Now()}
	return limiter
}

func (rl *IPRateLimiter) cleanupVisitors() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		rl.mu.Lock()
		for ip, v := range rl.visitors {
			if time.Since(v.lastSeen) > rl.ttl {
				delete(rl.visitors, ip)
			}
		}
		rl.mu.Unlock()
	}
}

func RateLimitByIP(rl *IPRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		limiter := rl.getLimiter(c.ClientIP())
		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"message": "Too Many Requests",
			})
			return
		}
		c.Next()
	}
}

// 10 form creations per minute per IP, burst 5.
var formsCreateLimiter = NewIPRateLimiter(10, 5, 5*time.Minute)

// 30 submissions per minute per IP, burst 10. The public submission
// endpoint is the only unauthenticated write path.
var submitLimiter = NewIPRateLimiter(30, 10, 5*time.Minute)

func RateLimitFormsCreate() gin.HandlerFunc {
	return RateLimitByIP(formsCreateLimiter)
}

func RateLimitSubmissions() gin.HandlerFunc {
	return RateLimitByIP(submitLimiter)
}
