package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/teamvault/pkg/internal/errs"
	"github.com/yeisme/teamvault/pkg/internal/service"
)

const (
	roleKey      = "workspace_role"
	workspaceKey = "workspace_id"
)

// RequireUser 要求已登录.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if UserID(c) == "" {
			abortJSON(c, http.StatusUnauthorized, "Unauthorized")
			return
		}

		c.Next()
	}
}

// WorkspaceRole 从路径参数 param 取工作区 ID，要求当前用户至少具备 min 权限.
// 解析出的角色写入 gin.Context，处理器可通过 GetWorkspaceRole 读取.
func WorkspaceRole(param string, min service.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := UserID(c)
		if uid == "" {
			abortJSON(c, http.StatusUnauthorized, "Unauthorized")
			return
		}

		wsID := c.Param(param)
		ctx := c.Request.Context()

		_, role, err := service.NewAccessService(ctx).Require(ctx, wsID, uid, min)
		if err != nil {
			abortJSON(c, errs.HTTPStatus(errs.KindOf(err)), publicMessage(err))
			return
		}

		c.Set(roleKey, role)
		c.Set(workspaceKey, wsID)
		c.Next()
	}
}

// GetWorkspaceRole 返回 WorkspaceRole 写入的角色，未经过该中间件时为 NoAccess.
func GetWorkspaceRole(c *gin.Context) service.Role {
	if v, ok := c.Get(roleKey); ok {
		if r, ok := v.(service.Role); ok {
			return r
		}
	}

	return service.NoAccess
}

func publicMessage(err error) string {
	var e *errs.Error
	if errors.As(err, &e) {
		return e.Message
	}

	return "Internal server error"
}
