// Package api 对外 HTTP 接口的挂载入口.
package api

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/teamvault/pkg/configs"
	"github.com/yeisme/teamvault/pkg/internal/router"
)

// BasePath 业务接口前缀.
const BasePath = "/api/v1"

// RegisterGroup 把业务路由注册到 /api/v1，并在调试模式下挂载 Swagger.
func RegisterGroup(e *gin.Engine, opts router.Options) *gin.Engine {
	router.Register(e.Group(BasePath), opts)
	router.RegisterSwaggerRoute(e, configs.GetConfig(), BasePath)

	return e
}
