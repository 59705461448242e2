package handle

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/teamvault/pkg/internal/service"
	"github.com/yeisme/teamvault/pkg/internal/types"
)

// ListMembers 所有者与成员，所有者排在首位.
//
//	@Summary	成员列表
//	@Tags		成员
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path	string	true	"工作区 ID"
//	@Success	200	{array}	types.MemberInfo
//	@Router		/workspaces/{id}/members [get]
func ListMembers(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()

	res, err := service.NewMemberService(ctx).List(ctx, uid, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

// RemoveMember 仅所有者.
//
//	@Summary	移除成员
//	@Tags		成员
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id		path		string	true	"工作区 ID"
//	@Param		userId	path		string	true	"成员用户 ID"
//	@Success	200		{object}	types.MessageResponse
//	@Failure	403		{object}	ErrorResponse
//	@Router		/workspaces/{id}/members/{userId} [delete]
func RemoveMember(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if err := service.NewMemberService(ctx).Remove(ctx, uid, c.Param("id"), c.Param("userId")); err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, types.MessageResponse{Message: "Member removed"})
}
