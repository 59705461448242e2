package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/teamvault/pkg/internal/handle"
	"github.com/yeisme/teamvault/pkg/internal/service"
	"github.com/yeisme/teamvault/pkg/middleware"
)

// RegisterWorkspaceRoutes 工作区及其成员、邀请、活动、文件与统计.
// 所有者/成员的判定在 service 中完成；活动日志查询本身不带权限，由 WorkspaceRole 把关.
func RegisterWorkspaceRoutes(g *gin.RouterGroup) {
	g.GET("", handle.ListWorkspaces)
	g.POST("", handle.CreateWorkspace)

	ws := g.Group("/:id")
	{
		ws.GET("", handle.GetWorkspace)
		ws.PATCH("", handle.RenameWorkspace)
		ws.DELETE("", handle.DeleteWorkspace)
		ws.POST("/activate", handle.ActivateWorkspace)

		ws.GET("/members", handle.ListMembers)
		ws.DELETE("/members/:userId", handle.RemoveMember)

		ws.GET("/invites", handle.ListInvites)
		ws.POST("/invites", handle.SendInvite)
		ws.DELETE("/invites/:inviteId", handle.CancelInvite)

		activity := ws.Group("/activity", middleware.WorkspaceRole("id", service.Member))
		activity.GET("", handle.ListActivity)
		activity.GET("/:activityId", handle.GetActivity)

		ws.GET("/files", handle.ListFiles)
		ws.POST("/files", handle.RequestUpload)

		ws.GET("/stats", handle.GetWorkspaceStats)
	}
}

// RegisterFileRoutes 按文件 ID 操作，权限取决于文件所在工作区.
func RegisterFileRoutes(g *gin.RouterGroup) {
	g.POST("/:fileId/confirm", handle.ConfirmUpload)
	g.POST("/:fileId/fail", handle.FailUpload)
	g.PATCH("/:fileId", handle.RenameFile)
	g.DELETE("/:fileId", handle.DeleteFile)
	g.GET("/:fileId/preview", handle.PreviewFile)
	g.GET("/:fileId/download", handle.DownloadFile)
}

// RegisterInviteRoutes 邀请落地页可匿名访问，接受与拒绝需要登录.
func RegisterInviteRoutes(g *gin.RouterGroup) {
	g.GET("/:token", handle.PreviewInvite)
	g.POST("/:token/accept", middleware.RequireUser(), handle.AcceptInvite)
	g.POST("/:token/decline", middleware.RequireUser(), handle.DeclineInvite)
}
