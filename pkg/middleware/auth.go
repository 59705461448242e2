package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/teamvault/pkg/auth"
	"github.com/yeisme/teamvault/pkg/configs"
)

const (
	userIDKey    = "user_id"
	userEmailKey = "user_email"

	// AdminTokenHeader 管理接口使用的静态令牌请求头.
	AdminTokenHeader = "X-Admin-Token"
)

type userKey struct{}

// AuthMiddleware 校验 Authorization: Bearer <jwt>，通过后把用户 ID 放入 gin.Context 与 request.Context.
//   - 跳过路径（如 /api/v1/health、/api/v1/invites）上认证是可选的：带了有效令牌仍会注入用户
//   - 未开启认证时直接放行，处理器会因取不到用户返回 401
func AuthMiddleware(conf configs.AuthConfig, tokens *auth.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !conf.Enabled || tokens == nil {
			c.Next()
			return
		}

		skipped := isSkippedPath(c.Request.URL.Path, conf.SkipPaths)

		raw := bearerToken(c.GetHeader("Authorization"))
		if raw == "" {
			if skipped {
				c.Next()
				return
			}

			abortJSON(c, http.StatusUnauthorized, "Unauthorized")

			return
		}

		claims, err := tokens.Parse(raw)
		if err != nil {
			if skipped {
				c.Next()
				return
			}

			abortJSON(c, http.StatusUnauthorized, "Unauthorized")

			return
		}

		setUser(c, claims.UserID(), claims.Email)
		c.Next()
	}
}

// AdminMiddleware 校验管理令牌；未配置令牌时管理接口整体关闭.
func AdminMiddleware(conf configs.AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if conf.AdminToken == "" {
			abortJSON(c, http.StatusNotFound, "Not found")
			return
		}

		got := c.GetHeader(AdminTokenHeader)
		if got == "" {
			got = bearerToken(c.GetHeader("Authorization"))
		}

		if subtle.ConstantTimeCompare([]byte(got), []byte(conf.AdminToken)) != 1 {
			abortJSON(c, http.StatusUnauthorized, "Unauthorized")
			return
		}

		c.Next()
	}
}

func setUser(c *gin.Context, userID, email string) {
	c.Set(userIDKey, userID)
	c.Set(userEmailKey, email)

	ctx := context.WithValue(c.Request.Context(), userKey{}, userID)
	c.Request = c.Request.WithContext(ctx)
}

// UserID 当前登录用户，未登录返回空串.
func UserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}

// UserEmail 令牌中的邮箱.
func UserEmail(c *gin.Context) string {
	return c.GetString(userEmailKey)
}

// UserIDFromContext 供日志等非 gin 代码读取当前用户.
func UserIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(userKey{}).(string); ok {
		return id
	}

	return ""
}

func bearerToken(h string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(h), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}

	return strings.TrimSpace(token)
}

func isSkippedPath(path string, skips []string) bool {
	if path == "" || len(skips) == 0 {
		return false
	}

	for _, p := range skips {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}

		if strings.HasPrefix(path, p) {
			return true
		}
	}

	return false
}

func abortJSON(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}
