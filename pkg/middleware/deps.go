package middleware

import (
	"github.com/gin-gonic/gin"

	ctxPkg "github.com/yeisme/teamvault/pkg/context"
	"github.com/yeisme/teamvault/pkg/internal/service"
	"github.com/yeisme/teamvault/pkg/internal/storage"
)

// DepsMiddleware 把存储管理器与服务依赖注入 request.Context，服务层通过 service.NewXService(ctx) 取用.
func DepsMiddleware(manager *storage.Manager, deps *service.Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if manager != nil {
			ctx = ctxPkg.WithStorageManager(ctx, manager)
		}

		ctx = service.WithDeps(ctx, deps)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
