package handle

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yeisme/teamvault/pkg/middleware"
	"github.com/yeisme/teamvault/pkg/scheduler"
)

func schedulerOrFail(c *gin.Context) (*scheduler.Scheduler, bool) {
	sched := middleware.GetScheduler(c)
	if sched == nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, ErrorResponse{Error: "scheduler not running"})
		return nil, false
	}

	return sched, true
}

func schedulerFail(c *gin.Context, err error) {
	if errors.Is(err, scheduler.ErrJobNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
		return
	}

	fail(c, err)
}

// SchedulerJobs 返回所有后台任务信息.
//
//	@Summary	后台任务列表
//	@Tags		管理
//	@Produce	json
//	@Param		X-Admin-Token	header		string	true	"管理令牌"
//	@Success	200				{object}	map[string]any
//	@Router		/admin/scheduler/jobs [get]
func SchedulerJobs(c *gin.Context) {
	sched, ok := schedulerOrFail(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{"jobs": sched.GetJobInfos(), "waiting": sched.JobsWaitingInQueue()})
}

// SchedulerRunJob 立即执行一次指定任务.
//
//	@Summary	立即执行任务
//	@Tags		管理
//	@Produce	json
//	@Param		X-Admin-Token	header		string	true	"管理令牌"
//	@Param		name			path		string	true	"任务名"
//	@Success	202				{object}	types.MessageResponse
//	@Failure	404				{object}	ErrorResponse
//	@Router		/admin/scheduler/jobs/{name}/run [post]
func SchedulerRunJob(c *gin.Context) {
	sched, ok := schedulerOrFail(c)
	if !ok {
		return
	}

	name := c.Param("name")
	if err := sched.RunNow(name); err != nil {
		schedulerFail(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"message": "job triggered", "job": name})
}

// SchedulerStopJobs 暂停所有任务.
//
//	@Summary	暂停所有任务
//	@Tags		管理
//	@Produce	json
//	@Param		X-Admin-Token	header		string	true	"管理令牌"
//	@Success	200				{object}	types.MessageResponse
//	@Router		/admin/scheduler/jobs/stop [post]
func SchedulerStopJobs(c *gin.Context) {
	sched, ok := schedulerOrFail(c)
	if !ok {
		return
	}

	if err := sched.StopJobs(); err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "jobs stopped"})
}

// SchedulerRemoveJob 根据 id 删除任务.
//
//	@Summary	删除任务
//	@Tags		管理
//	@Produce	json
//	@Param		X-Admin-Token	header		string	true	"管理令牌"
//	@Param		id				path		string	true	"任务 ID"
//	@Success	200				{object}	types.MessageResponse
//	@Failure	400				{object}	ErrorResponse
//	@Failure	404				{object}	ErrorResponse
//	@Router		/admin/scheduler/jobs/{id} [delete]
func SchedulerRemoveJob(c *gin.Context) {
	sched, ok := schedulerOrFail(c)
	if !ok {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid job id")
		return
	}

	if err := sched.RemoveJob(id); err != nil {
		schedulerFail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "job removed"})
}
