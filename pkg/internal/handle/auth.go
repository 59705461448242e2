package handle

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/teamvault/pkg/internal/service"
	"github.com/yeisme/teamvault/pkg/internal/types"
)

// Register 注册并创建默认工作区.
//
//	@Summary	注册
//	@Tags		认证
//	@Accept		json
//	@Produce	json
//	@Param		body	body		types.RegisterRequest	true	"注册信息"
//	@Success	201		{object}	types.AuthResponse
//	@Failure	400		{object}	ErrorResponse
//	@Router		/auth/register [post]
func Register(c *gin.Context) {
	var req types.RegisterRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()

	res, err := service.NewUserService(ctx).Register(ctx, req)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, res)
}

// Login 邮箱密码登录.
//
//	@Summary	登录
//	@Tags		认证
//	@Accept		json
//	@Produce	json
//	@Param		body	body		types.LoginRequest	true	"登录信息"
//	@Success	200		{object}	types.AuthResponse
//	@Failure	401		{object}	ErrorResponse
//	@Router		/auth/login [post]
func Login(c *gin.Context) {
	var req types.LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()

	res, err := service.NewUserService(ctx).Login(ctx, req)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

// VerifyEmail 使用邮件中的令牌验证邮箱.
//
//	@Summary	验证邮箱
//	@Tags		认证
//	@Accept		json
//	@Produce	json
//	@Param		body	body		types.TokenRequest	true	"验证令牌"
//	@Success	200		{object}	types.MessageResponse
//	@Failure	400		{object}	ErrorResponse
//	@Router		/auth/verify-email [post]
func VerifyEmail(c *gin.Context) {
	var req types.TokenRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()
	if err := service.NewUserService(ctx).VerifyEmail(ctx, req.Token); err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, types.MessageResponse{Message: "Email verified"})
}

// ForgotPassword 无论邮箱是否存在都返回相同响应.
//
//	@Summary	请求重置密码
//	@Tags		认证
//	@Accept		json
//	@Produce	json
//	@Param		body	body		types.ForgotPasswordRequest	true	"邮箱"
//	@Success	200		{object}	types.MessageResponse
//	@Router		/auth/forgot-password [post]
func ForgotPassword(c *gin.Context) {
	var req types.ForgotPasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()
	if err := service.NewUserService(ctx).ForgotPassword(ctx, req.Email); err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, types.MessageResponse{Message: "If the email is registered, a reset link has been sent"})
}

// ResetPassword 使用重置令牌设置新密码.
//
//	@Summary	重置密码
//	@Tags		认证
//	@Accept		json
//	@Produce	json
//	@Param		body	body		types.ResetPasswordRequest	true	"令牌与新密码"
//	@Success	200		{object}	types.MessageResponse
//	@Failure	400		{object}	ErrorResponse
//	@Router		/auth/reset-password [post]
func ResetPassword(c *gin.Context) {
	var req types.ResetPasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()
	if err := service.NewUserService(ctx).ResetPassword(ctx, req.Token, req.Password); err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, types.MessageResponse{Message: "Password updated"})
}

// Me 当前用户.
//
//	@Summary	当前用户
//	@Tags		用户
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{object}	types.MeResponse
//	@Failure	401	{object}	ErrorResponse
//	@Router		/me [get]
func Me(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()

	res, err := service.NewUserService(ctx).Me(ctx, uid)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}
