package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yeisme/teamvault/pkg/configs"
)

// CORSMiddleware 允许前端携带 Authorization 访问 API；未配置来源时允许所有来源.
func CORSMiddleware(cfg configs.ServerConfig) gin.HandlerFunc {
	config := cors.DefaultConfig()
	config.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	config.AddAllowHeaders("Authorization", AdminTokenHeader, "X-Cache-Bypass")
	config.ExposeHeaders = []string{"ETag", "X-Cache"}
	config.MaxAge = 12 * time.Hour

	if len(cfg.CORSOrigins) == 0 || cfg.Debug {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = cfg.CORSOrigins
	}

	return cors.New(config)
}
