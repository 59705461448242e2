package handle

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/teamvault/pkg/internal/service"
	"github.com/yeisme/teamvault/pkg/internal/types"
	"github.com/yeisme/teamvault/pkg/rule"
)

// ListActivity 按时间倒序分页查询，权限由 WorkspaceRole 中间件校验.
//
//	@Summary	活动日志
//	@Tags		活动
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id			path		string	true	"工作区 ID"
//	@Param		eventType	query		string	false	"事件类型"
//	@Param		entityType	query		string	false	"实体类型"
//	@Param		entityId	query		string	false	"实体 ID"
//	@Param		limit		query		int		false	"每页数量（最大 100）"
//	@Param		offset		query		int		false	"偏移"
//	@Success	200			{object}	types.ActivityList
//	@Failure	400			{object}	ErrorResponse
//	@Router		/workspaces/{id}/activity [get]
func ListActivity(c *gin.Context) {
	var q types.ActivityQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, "Invalid query parameters")
		return
	}

	if err := rule.ValidateStruct(&q); err != nil {
		badRequest(c, rule.Message(err))
		return
	}

	ctx := c.Request.Context()

	res, err := service.NewActivityService(ctx).Query(ctx, c.Param("id"), q)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

// GetActivity 单条活动.
//
//	@Summary	活动详情
//	@Tags		活动
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id			path		string	true	"工作区 ID"
//	@Param		activityId	path		string	true	"活动 ID"
//	@Success	200			{object}	types.ActivityItem
//	@Failure	404			{object}	ErrorResponse
//	@Router		/workspaces/{id}/activity/{activityId} [get]
func GetActivity(c *gin.Context) {
	ctx := c.Request.Context()

	res, err := service.NewActivityService(ctx).GetByID(ctx, c.Param("id"), c.Param("activityId"))
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}
