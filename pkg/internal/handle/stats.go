package handle

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/teamvault/pkg/internal/service"
)

// GetWorkspaceStats 文件数量与大小汇总、按类型分布.
//
//	@Summary	工作区文件统计
//	@Tags		统计
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path		string	true	"工作区 ID"
//	@Success	200	{object}	types.WorkspaceStats
//	@Failure	403	{object}	ErrorResponse
//	@Router		/workspaces/{id}/stats [get]
func GetWorkspaceStats(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()

	res, err := service.NewStatsService(ctx).Workspace(ctx, uid, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}
