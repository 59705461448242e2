package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/teamvault/pkg/internal/handle"
)

// RegisterSchedulerRoutes /scheduler/jobs 下的任务管理，调用方负责挂载 AdminMiddleware.
func RegisterSchedulerRoutes(g *gin.RouterGroup) {
	jobs := g.Group("/scheduler/jobs")

	jobs.GET("", handle.SchedulerJobs)
	jobs.POST("/stop", handle.SchedulerStopJobs)
	jobs.POST("/:name/run", handle.SchedulerRunJob)
	jobs.DELETE("/:id", handle.SchedulerRemoveJob)
}
