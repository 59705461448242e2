// Package types 定义 HTTP 请求与响应结构体，rule 标签用于 pkg/rule 校验.
package types

import "time"

// RegisterRequest 注册请求.
type RegisterRequest struct {
	Name     string `json:"name"     rule:"max=100"`
	Email    string `json:"email"    rule:"required,email,max=320"`
	Password string `json:"password" rule:"required,max=128"` // 最小长度取决于配置
}

// LoginRequest 登录请求.
type LoginRequest struct {
	Email    string `json:"email"    rule:"required,email"`
	Password string `json:"password" rule:"required"`
}

// TokenRequest 携带一次性令牌的请求（邮箱验证）.
type TokenRequest struct {
	Token string `json:"token" rule:"required"`
}

// ForgotPasswordRequest 请求重置密码.
type ForgotPasswordRequest struct {
	Email string `json:"email" rule:"required,email"`
}

// ResetPasswordRequest 重置密码.
type ResetPasswordRequest struct {
	Token    string `json:"token"    rule:"required"`
	Password string `json:"password" rule:"required,max=128"` // 最小长度取决于配置
}

// UserInfo 对外展示的用户信息.
type UserInfo struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	Name          string    `json:"name"`
	Image         string    `json:"image,omitempty"`
	EmailVerified bool      `json:"emailVerified"`
	Plan          string    `json:"plan"`
	CreatedAt     time.Time `json:"createdAt"`
}

// AuthResponse 注册/登录响应.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      UserInfo  `json:"user"`
	// WorkspaceID 注册时创建的默认工作区
	WorkspaceID string `json:"workspaceId,omitempty"`
}

// MeResponse 当前用户.
type MeResponse struct {
	User            UserInfo `json:"user"`
	LastWorkspaceID *string  `json:"lastWorkspaceId"`
}

// MessageResponse 通用成功消息.
type MessageResponse struct {
	Message string `json:"message"`
}
