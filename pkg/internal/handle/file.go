package handle

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/teamvault/pkg/internal/service"
	"github.com/yeisme/teamvault/pkg/internal/types"
	"github.com/yeisme/teamvault/pkg/log"
)

// ListFiles 已完成上传的文件.
//
//	@Summary	文件列表
//	@Tags		文件
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path	string	true	"工作区 ID"
//	@Success	200	{array}	types.FileInfo
//	@Router		/workspaces/{id}/files [get]
func ListFiles(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()

	res, err := service.NewFileService(ctx).List(ctx, uid, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

// RequestUpload 校验限额后创建 pending 记录并返回预签名 PUT.
//
//	@Summary	请求上传
//	@Tags		文件
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id		path		string				true	"工作区 ID"
//	@Param		body	body		types.UploadRequest	true	"文件信息"
//	@Success	201		{object}	types.UploadResponse
//	@Failure	400		{object}	ErrorResponse	"超限时包含 limitType/currentUsage/limit"
//	@Router		/workspaces/{id}/files [post]
func RequestUpload(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}

	var req types.UploadRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()

	res, err := service.NewFileService(ctx).RequestUpload(ctx, uid, c.Param("id"), req)
	if err != nil {
		fail(c, err)
		return
	}

	l := log.Ctx(ctx)
	l.Debug().Str("file", res.FileID).Str("key", res.Key).Int64("size", req.Size).Msg("upload requested")

	c.JSON(http.StatusCreated, res)
}

// ConfirmUpload 客户端完成 PUT 后确认.
//
//	@Summary	确认上传
//	@Tags		文件
//	@Produce	json
//	@Security	BearerAuth
//	@Param		fileId	path		string	true	"文件 ID"
//	@Success	200		{object}	types.FileInfo
//	@Failure	400		{object}	ErrorResponse
//	@Router		/files/{fileId}/confirm [post]
func ConfirmUpload(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()

	res, err := service.NewFileService(ctx).Confirm(ctx, uid, c.Param("fileId"))
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

// FailUpload 客户端上传失败时回报.
//
//	@Summary	标记上传失败
//	@Tags		文件
//	@Produce	json
//	@Security	BearerAuth
//	@Param		fileId	path		string	true	"文件 ID"
//	@Success	200		{object}	types.MessageResponse
//	@Router		/files/{fileId}/fail [post]
func FailUpload(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if err := service.NewFileService(ctx).Fail(ctx, uid, c.Param("fileId")); err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, types.MessageResponse{Message: "Upload marked as failed"})
}

// RenameFile 只修改显示名称，存储键不变.
//
//	@Summary	重命名文件
//	@Tags		文件
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		fileId	path		string					true	"文件 ID"
//	@Param		body	body		types.RenameFileRequest	true	"新文件名"
//	@Success	200		{object}	types.FileInfo
//	@Router		/files/{fileId} [patch]
func RenameFile(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}

	var req types.RenameFileRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()

	res, err := service.NewFileService(ctx).Rename(ctx, uid, c.Param("fileId"), req.Filename)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

// DeleteFile 软删除，对象在保留期后由后台任务清理.
//
//	@Summary	删除文件
//	@Tags		文件
//	@Produce	json
//	@Security	BearerAuth
//	@Param		fileId	path		string	true	"文件 ID"
//	@Success	200		{object}	types.MessageResponse
//	@Router		/files/{fileId} [delete]
func DeleteFile(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if err := service.NewFileService(ctx).Delete(ctx, uid, c.Param("fileId")); err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, types.MessageResponse{Message: "File deleted"})
}

// PreviewFile inline 预览链接.
//
//	@Summary	预览链接
//	@Tags		文件
//	@Produce	json
//	@Security	BearerAuth
//	@Param		fileId	path		string	true	"文件 ID"
//	@Success	200		{object}	types.URLResponse
//	@Failure	400		{object}	ErrorResponse	"上传未完成"
//	@Failure	410		{object}	ErrorResponse	"文件已删除"
//	@Router		/files/{fileId}/preview [get]
func PreviewFile(c *gin.Context) {
	fileURL(c, (*service.FileService).PreviewURL)
}

// DownloadFile attachment 下载链接.
//
//	@Summary	下载链接
//	@Tags		文件
//	@Produce	json
//	@Security	BearerAuth
//	@Param		fileId	path		string	true	"文件 ID"
//	@Success	200		{object}	types.URLResponse
//	@Failure	400		{object}	ErrorResponse	"上传未完成"
//	@Failure	410		{object}	ErrorResponse	"文件已删除"
//	@Router		/files/{fileId}/download [get]
func DownloadFile(c *gin.Context) {
	fileURL(c, (*service.FileService).DownloadURL)
}

type urlFunc func(s *service.FileService, ctx context.Context, userID, fileID string) (*types.URLResponse, error)

func fileURL(c *gin.Context, fn urlFunc) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()

	res, err := fn(service.NewFileService(ctx), ctx, uid, c.Param("fileId"))
	if err != nil {
		fail(c, err)
		return
	}

	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, res)
}
