package handle

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/teamvault/pkg/internal/service"
	"github.com/yeisme/teamvault/pkg/internal/types"
)

// ListWorkspaces 当前用户拥有与加入的工作区.
//
//	@Summary	工作区列表
//	@Tags		工作区
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{object}	types.WorkspaceList
//	@Router		/workspaces [get]
func ListWorkspaces(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()

	res, err := service.NewWorkspaceService(ctx).List(ctx, uid)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

// CreateWorkspace 受计划的工作区数量上限约束.
//
//	@Summary	创建工作区
//	@Tags		工作区
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		body	body		types.CreateWorkspaceRequest	true	"工作区名称"
//	@Success	201		{object}	types.WorkspaceInfo
//	@Failure	400		{object}	ErrorResponse
//	@Router		/workspaces [post]
func CreateWorkspace(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}

	var req types.CreateWorkspaceRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()

	ws, err := service.NewWorkspaceService(ctx).Create(ctx, uid, req.Name)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, service.WorkspaceInfo(ws, service.Owner))
}

// GetWorkspace 单个工作区及当前用户的角色.
//
//	@Summary	工作区详情
//	@Tags		工作区
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path		string	true	"工作区 ID"
//	@Success	200	{object}	types.WorkspaceInfo
//	@Failure	403	{object}	ErrorResponse
//	@Failure	404	{object}	ErrorResponse
//	@Router		/workspaces/{id} [get]
func GetWorkspace(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()

	res, err := service.NewWorkspaceService(ctx).Get(ctx, uid, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

// RenameWorkspace 仅所有者.
//
//	@Summary	重命名工作区
//	@Tags		工作区
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id		path		string							true	"工作区 ID"
//	@Param		body	body		types.RenameWorkspaceRequest	true	"新名称"
//	@Success	200		{object}	types.WorkspaceInfo
//	@Failure	403		{object}	ErrorResponse
//	@Router		/workspaces/{id} [patch]
func RenameWorkspace(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}

	var req types.RenameWorkspaceRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()

	ws, err := service.NewWorkspaceService(ctx).Rename(ctx, uid, c.Param("id"), req.Name)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, service.WorkspaceInfo(ws, service.Owner))
}

// DeleteWorkspace 不能删除最后一个工作区，成功后返回跳转目标.
//
//	@Summary	删除工作区
//	@Tags		工作区
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path		string	true	"工作区 ID"
//	@Success	200	{object}	types.DeleteWorkspaceResponse
//	@Failure	400	{object}	ErrorResponse
//	@Failure	403	{object}	ErrorResponse
//	@Router		/workspaces/{id} [delete]
func DeleteWorkspace(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()

	res, err := service.NewWorkspaceService(ctx).Delete(ctx, uid, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

// ActivateWorkspace 记录最近访问的工作区.
//
//	@Summary	切换工作区
//	@Tags		工作区
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path		string	true	"工作区 ID"
//	@Success	200	{object}	types.MessageResponse
//	@Failure	403	{object}	ErrorResponse
//	@Router		/workspaces/{id}/activate [post]
func ActivateWorkspace(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if err := service.NewWorkspaceService(ctx).SetLastActive(ctx, uid, c.Param("id")); err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, types.MessageResponse{Message: "Workspace activated"})
}
