package handle

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/teamvault/pkg/internal/service"
	"github.com/yeisme/teamvault/pkg/internal/types"
	"github.com/yeisme/teamvault/pkg/middleware"
)

// ListInvites 待处理邀请，仅所有者.
//
//	@Summary	邀请列表
//	@Tags		邀请
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path	string	true	"工作区 ID"
//	@Success	200	{array}	types.InviteInfo
//	@Router		/workspaces/{id}/invites [get]
func ListInvites(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()

	res, err := service.NewInviteService(ctx).ListPending(ctx, uid, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

// SendInvite 发送邀请邮件，令牌只出现在邮件中.
//
//	@Summary	邀请成员
//	@Tags		邀请
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id		path		string					true	"工作区 ID"
//	@Param		body	body		types.SendInviteRequest	true	"受邀邮箱"
//	@Success	201		{object}	types.InviteInfo
//	@Failure	400		{object}	ErrorResponse
//	@Failure	403		{object}	ErrorResponse
//	@Router		/workspaces/{id}/invites [post]
func SendInvite(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}

	var req types.SendInviteRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()

	res, err := service.NewInviteService(ctx).Send(ctx, uid, c.Param("id"), req.Email, req.Role)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, res.Invite)
}

// CancelInvite 仅所有者，只能取消待处理邀请.
//
//	@Summary	取消邀请
//	@Tags		邀请
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id			path		string	true	"工作区 ID"
//	@Param		inviteId	path		string	true	"邀请 ID"
//	@Success	200			{object}	types.MessageResponse
//	@Router		/workspaces/{id}/invites/{inviteId} [delete]
func CancelInvite(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if err := service.NewInviteService(ctx).Cancel(ctx, uid, c.Param("inviteId")); err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, types.MessageResponse{Message: "Invite cancelled"})
}

// PreviewInvite 邀请落地页，登录可选；无效令牌也返回 200 与状态.
//
//	@Summary	邀请预览
//	@Tags		邀请
//	@Produce	json
//	@Param		token	path		string	true	"邀请令牌"
//	@Success	200		{object}	types.InvitePreview
//	@Router		/invites/{token} [get]
func PreviewInvite(c *gin.Context) {
	ctx := c.Request.Context()

	res, err := service.NewInviteService(ctx).Preview(ctx, middleware.UserID(c), c.Param("token"))
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

// AcceptInvite 当前用户邮箱需与邀请一致.
//
//	@Summary	接受邀请
//	@Tags		邀请
//	@Produce	json
//	@Security	BearerAuth
//	@Param		token	path		string	true	"邀请令牌"
//	@Success	200		{object}	types.AcceptInviteResponse
//	@Failure	400		{object}	ErrorResponse
//	@Failure	403		{object}	ErrorResponse
//	@Failure	404		{object}	ErrorResponse
//	@Router		/invites/{token}/accept [post]
func AcceptInvite(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()

	res, err := service.NewInviteService(ctx).Accept(ctx, uid, c.Param("token"))
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

// DeclineInvite 拒绝邀请.
//
//	@Summary	拒绝邀请
//	@Tags		邀请
//	@Produce	json
//	@Security	BearerAuth
//	@Param		token	path		string	true	"邀请令牌"
//	@Success	200		{object}	types.MessageResponse
//	@Router		/invites/{token}/decline [post]
func DeclineInvite(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if err := service.NewInviteService(ctx).Decline(ctx, uid, c.Param("token")); err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, types.MessageResponse{Message: "Invite declined"})
}
