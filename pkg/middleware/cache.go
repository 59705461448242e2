package middleware

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/gin-gonic/gin"

	appcache "github.com/yeisme/teamvault/pkg/cache"
	"github.com/yeisme/teamvault/pkg/log"
)

const (
	DefaultMaxBodyBytes = 1 << 20 // 1MB
	defaultCacheTTL     = 5 * time.Minute
	responseKeyPrefix   = "rc:"
	cacheBypassHeader   = "X-Cache-Bypass"
)

// CacheConfig 响应缓存配置，只缓存匿名 GET/HEAD 的 200 响应.
type CacheConfig struct {
	Cache        *appcache.Cache
	TTL          time.Duration
	MaxBodyBytes int
	// PerUser 为 true 时 key 包含当前用户，用于需要登录但结果按用户区分的接口
	PerUser bool
}

// responseCacheEntry 序列化存储结构.
type responseCacheEntry struct {
	Status      int    `json:"s"`
	ContentType string `json:"c,omitempty"`
	Body        []byte `json:"b,omitempty"`
	ETag        string `json:"e"`
	StoredAt    int64  `json:"t"` // unix nano，用于 Age
}

// CacheMiddleware 缓存只读且低频变化的接口（计划列表等）.
// Cache 为 nil 时直接放行；请求头 X-Cache-Bypass 可跳过缓存.
// 命中时支持 If-None-Match 返回 304.
func CacheMiddleware(cfg CacheConfig) gin.HandlerFunc {
	if cfg.Cache == nil {
		return func(c *gin.Context) { c.Next() }
	}

	if cfg.TTL <= 0 {
		cfg.TTL = defaultCacheTTL
	}

	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}

	return func(c *gin.Context) {
		m := c.Request.Method
		if (m != http.MethodGet && m != http.MethodHead) || c.GetHeader(cacheBypassHeader) != "" {
			c.Next()
			return
		}

		key := responseKey(c, cfg.PerUser)
		if serveCached(c, cfg.Cache, key) {
			return
		}

		bw := &bodyCaptureWriter{ResponseWriter: c.Writer, max: cfg.MaxBodyBytes}
		c.Writer = bw
		c.Next()

		if c.Writer.Status() != http.StatusOK || bw.truncated || noStore(c.Writer.Header()) {
			return
		}

		body := append([]byte(nil), bw.buf.Bytes()...)
		entry := responseCacheEntry{
			Status:      http.StatusOK,
			ContentType: c.Writer.Header().Get("Content-Type"),
			Body:        body,
			ETag:        fmt.Sprintf("\"%x\"", xxhash.Sum64(body)),
			StoredAt:    time.Now().UnixNano(),
		}

		// 响应已写出，使用脱离请求生命周期的 context 写缓存
		go func(ctx context.Context) {
			if err := appcache.Set(ctx, cfg.Cache, key, entry, cfg.TTL); err != nil {
				log.Ctx(ctx).Debug().Err(err).Str("key", key).Msg("store response cache")
			}
		}(context.WithoutCancel(c.Request.Context()))
	}
}

// responseKey 方法 + 路由模板 + 路径参数 + 排序后的 query.
func responseKey(c *gin.Context, perUser bool) string {
	var b strings.Builder

	b.WriteString(c.Request.Method)
	b.WriteByte(':')

	if full := c.FullPath(); full != "" {
		b.WriteString(full)

		for _, p := range c.Params {
			b.WriteByte('|')
			b.WriteString(p.Key)
			b.WriteByte('=')
			b.WriteString(p.Value)
		}
	} else {
		b.WriteString(c.Request.URL.Path)
	}

	if q := c.Request.URL.Query(); len(q) > 0 {
		keys := make([]string, 0, len(q))
		for k := range q {
			keys = append(keys, k)
		}

		sort.Strings(keys)
		b.WriteByte('?')

		for i, k := range keys {
			if i > 0 {
				b.WriteByte('&')
			}

			b.WriteString(k)
			b.WriteByte('=')
			b.WriteString(strings.Join(q[k], ","))
		}
	}

	if perUser {
		b.WriteString("|u=")
		b.WriteString(UserID(c))
	}

	return fmt.Sprintf("%s%x", responseKeyPrefix, xxhash.Sum64String(b.String()))
}

func serveCached(c *gin.Context, store *appcache.Cache, key string) bool {
	entry, err := appcache.Get[responseCacheEntry](c.Request.Context(), store, key)
	if err != nil {
		return false
	}

	h := c.Writer.Header()
	h.Set("ETag", entry.ETag)
	h.Set("Age", fmt.Sprintf("%.0f", time.Since(time.Unix(0, entry.StoredAt)).Seconds()))
	h.Set("X-Cache", "HIT")

	if inm := c.GetHeader("If-None-Match"); inm != "" && inm == entry.ETag {
		c.AbortWithStatus(http.StatusNotModified)
		return true
	}

	if entry.ContentType != "" {
		h.Set("Content-Type", entry.ContentType)
	}

	c.Status(entry.Status)

	if c.Request.Method != http.MethodHead {
		_, _ = c.Writer.Write(entry.Body)
	}

	c.Abort()

	return true
}

func noStore(h http.Header) bool {
	cc := strings.ToLower(h.Get("Cache-Control"))
	return strings.Contains(cc, "no-store") || strings.Contains(cc, "private")
}

// bodyCaptureWriter 包装响应写入用于捕获 body，超过 max 时放弃缓存.
type bodyCaptureWriter struct {
	gin.ResponseWriter

	buf       bytes.Buffer
	max       int
	truncated bool
}

func (w *bodyCaptureWriter) Write(b []byte) (int, error) {
	if !w.truncated {
		if w.buf.Len()+len(b) > w.max {
			w.truncated = true
			w.buf.Reset()
		} else {
			w.buf.Write(b)
		}
	}

	return w.ResponseWriter.Write(b)
}

// InvalidateResponses 清空所有响应缓存，计划配置变更后调用.
func InvalidateResponses(ctx context.Context, store *appcache.Cache) error {
	if store == nil {
		return nil
	}

	return store.DeletePrefix(ctx, responseKeyPrefix)
}
