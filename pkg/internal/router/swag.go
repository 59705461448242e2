package router

import (
	"net/url"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/yeisme/teamvault/docs"
	"github.com/yeisme/teamvault/pkg/configs"
)

// RegisterSwaggerRoute 调试模式下挂载 /swagger，文档地址取自 app.base_url.
func RegisterSwaggerRoute(r *gin.Engine, cfg *configs.AppConfig, basePath string) {
	if !cfg.Server.Debug {
		return
	}

	if u, err := url.Parse(cfg.App.BaseURL); err == nil && u.Host != "" {
		docs.SwaggerInfo.Host = u.Host
		docs.SwaggerInfo.Schemes = []string{u.Scheme}
	}

	docs.SwaggerInfo.Title = cfg.App.Name + " API"
	docs.SwaggerInfo.Version = configs.AppVersion
	docs.SwaggerInfo.BasePath = basePath

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.DocExpansion("none")))
}
