package handle

import (
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/teamvault/pkg/internal/service"
	"github.com/yeisme/teamvault/pkg/internal/types"
	"github.com/yeisme/teamvault/pkg/plan"
)

// Plans 所有计划及上限，结果按计划名排序.
//
//	@Summary	计划列表
//	@Tags		用量
//	@Produce	json
//	@Success	200	{array}	types.PlanInfo
//	@Router		/plans [get]
func Plans(c *gin.Context) {
	all := plan.All()

	out := make([]types.PlanInfo, 0, len(all))
	for p, l := range all {
		out = append(out, types.PlanInfo{Plan: p, Limits: l})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Plan < out[j].Plan })

	c.JSON(http.StatusOK, out)
}

// Usage 当前用户的存储用量.
//
//	@Summary	用量概览
//	@Tags		用量
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{object}	types.UsageResponse
//	@Failure	401	{object}	ErrorResponse
//	@Router		/usage [get]
func Usage(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()

	res, err := service.NewUsageService(ctx).GetUsage(ctx, uid)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}
