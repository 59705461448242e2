package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/yeisme/teamvault/pkg/configs"
)

const (
	limiterIdleTTL         = 10 * time.Minute
	limiterCleanupInterval = time.Minute
)

// keyedLimiter 每个 key 一个令牌桶，闲置超过 limiterIdleTTL 的桶在访问时顺带清理.
type keyedLimiter struct {
	mu       sync.Mutex
	rps      rate.Limit
	burst    int
	entries  map[string]*limiterEntry
	lastScan time.Time
	now      func() time.Time
}

type limiterEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

func newKeyedLimiter(rps float64, burst int) *keyedLimiter {
	return &keyedLimiter{
		rps:     rate.Limit(rps),
		burst:   burst,
		entries: map[string]*limiterEntry{},
		now:     time.Now,
	}
}

func (k *keyedLimiter) allow(key string) bool {
	k.mu.Lock()
	defer k.mu.Unlock()

	now := k.now()
	if now.Sub(k.lastScan) > limiterCleanupInterval {
		for key, e := range k.entries {
			if now.Sub(e.lastSeen) > limiterIdleTTL {
				delete(k.entries, key)
			}
		}

		k.lastScan = now
	}

	e, ok := k.entries[key]
	if !ok {
		e = &limiterEntry{lim: rate.NewLimiter(k.rps, k.burst)}
		k.entries[key] = e
	}

	e.lastSeen = now

	return e.lim.AllowN(now, 1)
}

// RateLimitMiddleware 返回一个基于配置的限流中间件.
func RateLimitMiddleware(cfg configs.RateLimitConfig) gin.HandlerFunc {
	if !cfg.Enabled || cfg.RPS <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	keyMode := strings.ToLower(strings.TrimSpace(cfg.Key))
	if keyMode == "global" || keyMode == "" {
		limiter := rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst)

		return func(c *gin.Context) {
			if !limiter.Allow() {
				tooMany(c)
				return
			}

			c.Next()
		}
	}

	kl := newKeyedLimiter(cfg.RPS, cfg.Burst)

	return func(c *gin.Context) {
		if !kl.allow(limitKey(c, keyMode)) {
			tooMany(c)
			return
		}

		c.Next()
	}
}

// AuthRateLimitMiddleware 认证接口按 IP 的独立限流，不受全局开关影响.
func AuthRateLimitMiddleware(cfg configs.RateLimitConfig) gin.HandlerFunc {
	if cfg.AuthRPS <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	burst := cfg.AuthBurst
	if burst <= 0 {
		burst = 1
	}

	kl := newKeyedLimiter(cfg.AuthRPS, burst)

	return func(c *gin.Context) {
		if !kl.allow(clientIP(c)) {
			tooMany(c)
			return
		}

		c.Next()
	}
}

func limitKey(c *gin.Context, keyMode string) string {
	var key string

	switch {
	case strings.HasPrefix(keyMode, "header:"):
		key = c.GetHeader(strings.TrimPrefix(keyMode, "header:"))
	case keyMode == "user":
		// 限流在认证之后挂载时才能取到用户
		key = UserID(c)
	}

	if key == "" {
		key = clientIP(c)
	}

	if key == "" {
		key = "unknown"
	}

	return key
}

func tooMany(c *gin.Context) {
	abortJSON(c, http.StatusTooManyRequests, "Too many requests, please try again later")
}

func clientIP(c *gin.Context) string {
	ip := c.ClientIP()
	if ip == "" {
		host, _, err := net.SplitHostPort(c.Request.RemoteAddr)
		if err == nil {
			ip = host
		} else {
			ip = c.Request.RemoteAddr
		}
	}

	return ip
}
