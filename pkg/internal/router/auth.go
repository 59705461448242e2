package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/teamvault/pkg/internal/handle"
	"github.com/yeisme/teamvault/pkg/middleware"
)

// RegisterAuthRoutes 注册认证路由（匿名访问）.
func RegisterAuthRoutes(g *gin.RouterGroup) {
	g.POST("/register", handle.Register)
	g.POST("/login", handle.Login)
	g.POST("/verify-email", handle.VerifyEmail)
	g.POST("/forgot-password", handle.ForgotPassword)
	g.POST("/reset-password", handle.ResetPassword)
}

// RegisterAccountRoutes 当前用户、用量与计划.
func RegisterAccountRoutes(g *gin.RouterGroup, opts Options) {
	g.GET("/me", middleware.RequireUser(), handle.Me)
	g.GET("/usage", middleware.RequireUser(), handle.Usage)
	g.GET("/plans", middleware.CacheMiddleware(middleware.CacheConfig{Cache: opts.Cache, TTL: plansCacheTTL}), handle.Plans)
}
