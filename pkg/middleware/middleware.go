// Package middleware 提供 gin 中间件：认证、工作区权限、限流、熔断、响应缓存、日志、追踪与指标.
package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/teamvault/pkg/metrics"
)

// PrometheusMiddleware 按 方法/路由模板/状态码 统计请求.
// 使用 FullPath 避免路径参数（工作区 ID、邀请令牌）造成标签基数膨胀.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		metrics.ActiveConnections.Inc()
		defer metrics.ActiveConnections.Dec()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		method := c.Request.Method
		status := strconv.Itoa(c.Writer.Status())

		metrics.RequestCounter.WithLabelValues(method, path, status).Inc()
		metrics.RequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}
