package middleware

import (
	"github.com/gin-gonic/gin"

	ctxPkg "github.com/yeisme/teamvault/pkg/context"
	"github.com/yeisme/teamvault/pkg/scheduler"
)

// SchedulerMiddleware 供管理接口取用调度器.
func SchedulerMiddleware(sched *scheduler.Scheduler) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(ctxPkg.WithScheduler(c.Request.Context(), sched))
		c.Next()
	}
}

// GetScheduler 未注入时返回 nil.
func GetScheduler(c *gin.Context) *scheduler.Scheduler {
	return ctxPkg.GetScheduler(c.Request.Context())
}
