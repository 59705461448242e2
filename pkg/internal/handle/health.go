package handle

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	ctxPkg "github.com/yeisme/teamvault/pkg/context"
	"github.com/yeisme/teamvault/pkg/internal/storage"
)

const probeTimeout = 2 * time.Second

// probe 带超时探测单个组件并输出结果，extra 只在正常时附加.
func probe(c *gin.Context, component string, extra func(*storage.Manager) gin.H) {
	mgr := ctxPkg.GetManager(c.Request.Context())

	ctx, cancel := context.WithTimeout(c.Request.Context(), probeTimeout)
	defer cancel()

	if err := mgr.Probe(ctx, component); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"component": component, "status": "unhealthy", "error": err.Error()})
		return
	}

	body := gin.H{"component": component, "status": "ok"}
	if extra != nil {
		for k, v := range extra(mgr) {
			body[k] = v
		}
	}

	c.JSON(http.StatusOK, body)
}

// HealthReady 汇总全部组件，任一异常返回 503.
//
//	@Summary	就绪检查
//	@Tags		健康检查
//	@Produce	json
//	@Success	200	{object}	map[string]any
//	@Failure	503	{object}	map[string]any
//	@Router		/health [get]
func HealthReady(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), probeTimeout)
	defer cancel()

	status := http.StatusOK
	components := gin.H{}

	for name, err := range ctxPkg.GetManager(ctx).ProbeAll(ctx) {
		if err != nil {
			status = http.StatusServiceUnavailable
			components[name] = err.Error()

			continue
		}

		components[name] = "ok"
	}

	overall := "ok"
	if status != http.StatusOK {
		overall = "degraded"
	}

	c.JSON(status, gin.H{"status": overall, "components": components})
}

// HealthDB 数据库健康检查.
//
//	@Summary	数据库健康检查
//	@Tags		健康检查
//	@Produce	json
//	@Success	200	{object}	map[string]string
//	@Failure	503	{object}	map[string]string
//	@Router		/health/db [get]
func HealthDB(c *gin.Context) {
	probe(c, storage.ComponentDB, nil)
}

// HealthS3 对象存储健康检查.
//
//	@Summary	对象存储健康检查
//	@Tags		健康检查
//	@Produce	json
//	@Success	200	{object}	map[string]string
//	@Failure	503	{object}	map[string]string
//	@Router		/health/s3 [get]
func HealthS3(c *gin.Context) {
	probe(c, storage.ComponentS3, func(m *storage.Manager) gin.H {
		return gin.H{"bucket": m.S3.Bucket()}
	})
}

// HealthMQ 事件总线，同时报告消费者是否在运行.
//
//	@Summary	消息队列健康检查
//	@Tags		健康检查
//	@Produce	json
//	@Success	200	{object}	map[string]any
//	@Failure	503	{object}	map[string]string
//	@Router		/health/mq [get]
func HealthMQ(c *gin.Context) {
	probe(c, storage.ComponentMQ, func(m *storage.Manager) gin.H {
		running := false
		select {
		case <-m.MQ.Running():
			running = true
		default:
		}

		return gin.H{"type": string(m.MQ.Type()), "consumers": running, "handlers": m.MQ.Handlers()}
	})
}

// HealthKV 写入并读回探针键.
//
//	@Summary	缓存健康检查
//	@Tags		健康检查
//	@Produce	json
//	@Success	200	{object}	map[string]string
//	@Failure	503	{object}	map[string]string
//	@Router		/health/kv [get]
func HealthKV(c *gin.Context) {
	probe(c, storage.ComponentKV, func(m *storage.Manager) gin.H {
		return gin.H{"type": string(m.KV.Type())}
	})
}
