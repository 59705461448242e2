package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/teamvault/pkg/internal/handle"
)

// RegisterHealthCheckRoute /health 汇总就绪状态，子路径逐个组件检查. 均无需登录.
func RegisterHealthCheckRoute(g *gin.RouterGroup) {
	h := g.Group("/health")

	h.GET("", handle.HealthReady)
	h.GET("/db", handle.HealthDB)
	h.GET("/s3", handle.HealthS3)
	h.GET("/kv", handle.HealthKV)
	h.GET("/mq", handle.HealthMQ)
}
