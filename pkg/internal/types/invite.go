package types

import "time"

// SendInviteRequest 邀请成员.
type SendInviteRequest struct {
	Email string `json:"email" rule:"required,email,max=320"`
	Role  string `json:"role"  rule:"omitempty,oneof=member"`
}

// InviteInfo 邀请列表项，不包含令牌.
type InviteInfo struct {
	ID          string     `json:"id"`
	WorkspaceID string     `json:"workspaceId"`
	Email       string     `json:"email"`
	Role        string     `json:"role"`
	Status      string     `json:"status"`
	InvitedBy   string     `json:"invitedBy"`
	ExpiresAt   *time.Time `json:"expiresAt"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// InviteCreated 创建邀请的结果，Token 只在创建时返回一次.
type InviteCreated struct {
	Invite InviteInfo `json:"invite"`
	Token  string     `json:"-"`
}

// InvitePreviewStatus 邀请预览状态.
type InvitePreviewStatus string

const (
	InvitePreviewValid    InvitePreviewStatus = "valid"
	InvitePreviewInvalid  InvitePreviewStatus = "invalid"
	InvitePreviewExpired  InvitePreviewStatus = "expired"
	InvitePreviewAccepted InvitePreviewStatus = "accepted"
	InvitePreviewInactive InvitePreviewStatus = "inactive"
)

// InvitePreview 邀请落地页信息.
type InvitePreview struct {
	Status        InvitePreviewStatus `json:"status"`
	WorkspaceID   string              `json:"workspaceId,omitempty"`
	WorkspaceName string              `json:"workspaceName,omitempty"`
	InviterName   string              `json:"inviterName,omitempty"`
	InviterImage  string              `json:"inviterImage,omitempty"`
	Email         string              `json:"email,omitempty"`
	MemberCount   int64               `json:"memberCount,omitempty"`
	CreatedAt     *time.Time          `json:"createdAt,omitempty"`
}

// AcceptInviteResponse 接受邀请.
type AcceptInviteResponse struct {
	Success     bool   `json:"success"`
	WorkspaceID string `json:"workspaceId"`
}
