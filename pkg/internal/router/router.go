// Package router 把 handle 中的处理器绑定到 /api/v1 路由组.
package router

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/teamvault/pkg/cache"
	"github.com/yeisme/teamvault/pkg/configs"
	"github.com/yeisme/teamvault/pkg/middleware"
)

const plansCacheTTL = 10 * time.Minute

// Options 路由需要的外部依赖.
type Options struct {
	Cache     *cache.Cache // 为 nil 时不缓存 /plans
	Auth      configs.AuthConfig
	RateLimit configs.RateLimitConfig
}

// Register 绑定全部业务路由. 认证中间件由上层挂在 api 组上：
//
//	POST   /auth/{register,login,verify-email,forgot-password,reset-password}
//	GET    /me  /usage  /plans
//	/workspaces/...  /files/:fileId/...  /invites/:token/...
//	GET    /health/{db,s3,mq,kv}
//	/admin/scheduler/...（管理令牌）
func Register(api *gin.RouterGroup, opts Options) {
	RegisterAuthRoutes(api.Group("/auth", middleware.AuthRateLimitMiddleware(opts.RateLimit)))
	RegisterAccountRoutes(api, opts)
	RegisterWorkspaceRoutes(api.Group("/workspaces", middleware.RequireUser()))
	RegisterFileRoutes(api.Group("/files", middleware.RequireUser()))
	RegisterInviteRoutes(api.Group("/invites"))
	RegisterHealthCheckRoute(api)
	RegisterSchedulerRoutes(api.Group("/admin", middleware.AdminMiddleware(opts.Auth)))
}
