// Package handle 提供 HTTP 请求处理器：解析与校验请求、调用 service、把业务错误映射为响应.
package handle

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/teamvault/pkg/internal/errs"
	"github.com/yeisme/teamvault/pkg/log"
	"github.com/yeisme/teamvault/pkg/middleware"
	"github.com/yeisme/teamvault/pkg/rule"
)

// ErrorResponse 错误响应；限额错误额外携带 limitType/currentUsage/limit.
type ErrorResponse struct {
	Error        string `json:"error"`
	LimitType    string `json:"limitType,omitempty"`
	CurrentUsage *int64 `json:"currentUsage,omitempty"`
	Limit        *int64 `json:"limit,omitempty"`
}

// fail 按错误分类写响应；内部错误只记录日志，不向调用方暴露原因.
func fail(c *gin.Context, err error) {
	var e *errs.Error
	if !errors.As(err, &e) {
		e = &errs.Error{Kind: errs.KindInternal, Message: "Internal server error", Err: err}
	}

	status := errs.HTTPStatus(e.Kind)
	if status >= http.StatusInternalServerError {
		l := log.Ctx(c.Request.Context())
		l.Error().Err(err).Str("route", c.FullPath()).Msg("request failed")
		_ = c.Error(err)
	}

	body := ErrorResponse{Error: e.Message}
	if e.Limit != nil {
		cur, lim := e.Limit.CurrentUsage, e.Limit.Limit
		body.LimitType = string(e.Limit.Type)
		body.CurrentUsage = &cur
		body.Limit = &lim
	}

	c.AbortWithStatusJSON(status, body)
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

// bindJSON 解析 JSON 并按 rule 标签校验，失败时已写出 400.
func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		if msg := rule.Message(err); rule.Errors(err) != nil {
			badRequest(c, msg)
		} else {
			badRequest(c, "Invalid request body")
		}

		return false
	}

	if err := rule.ValidateStruct(req); err != nil {
		badRequest(c, rule.Message(err))
		return false
	}

	return true
}

// currentUser 需要登录的接口统一入口；未登录时已写出 401.
func currentUser(c *gin.Context) (string, bool) {
	uid := middleware.UserID(c)
	if uid == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return "", false
	}

	return uid, true
}
