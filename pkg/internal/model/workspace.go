package model

import (
	"time"

	"gorm.io/gorm"
)

// Workspace 工作区，同一所有者下名称唯一.
type Workspace struct {
	ID        string    `gorm:"primaryKey;size:26"                                json:"id"`
	Name      string    `gorm:"size:50;not null;uniqueIndex:idx_workspace_owner_name" json:"name"`
	OwnerID   string    `gorm:"size:26;not null;uniqueIndex:idx_workspace_owner_name;index" json:"ownerId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (w *Workspace) BeforeCreate(*gorm.DB) error {
	if w.ID == "" {
		w.ID = NewID()
	}

	return nil
}

// MemberRole 成员角色，目前只有 member.
const MemberRole = "member"

// WorkspaceMember 非所有者成员关系.
type WorkspaceMember struct {
	ID          string    `gorm:"primaryKey;size:26"                               json:"id"`
	WorkspaceID string    `gorm:"size:26;not null;uniqueIndex:idx_member_workspace_user" json:"workspaceId"`
	UserID      string    `gorm:"size:26;not null;uniqueIndex:idx_member_workspace_user;index" json:"userId"`
	Role        string    `gorm:"size:16;not null;default:member"                  json:"role"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (m *WorkspaceMember) BeforeCreate(*gorm.DB) error {
	if m.ID == "" {
		m.ID = NewID()
	}

	if m.Role == "" {
		m.Role = MemberRole
	}

	return nil
}

// InviteStatus 邀请状态，只允许 pending 向其它状态迁移.
type InviteStatus string

const (
	InvitePending   InviteStatus = "pending"
	InviteAccepted  InviteStatus = "accepted"
	InviteExpired   InviteStatus = "expired"
	InviteCancelled InviteStatus = "cancelled"
)

// WorkspaceInvite 工作区邀请，TokenHash 为原始令牌的 SHA-256.
type WorkspaceInvite struct {
	ID          string       `gorm:"primaryKey;size:26"                       json:"id"`
	WorkspaceID string       `gorm:"size:26;not null;index:idx_invite_workspace_email" json:"workspaceId"`
	Email       string       `gorm:"size:320;not null;index:idx_invite_workspace_email" json:"email"`
	InvitedBy   string       `gorm:"size:26;not null"                         json:"invitedBy"`
	Role        string       `gorm:"size:16;not null;default:member"          json:"role"`
	TokenHash   string       `gorm:"size:64;not null;uniqueIndex"             json:"-"`
	ExpiresAt   *time.Time   `gorm:"index"                                    json:"expiresAt"`
	Status      InviteStatus `gorm:"size:16;not null;default:pending;index"   json:"status"`
	AcceptedAt  *time.Time   `json:"acceptedAt,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

func (i *WorkspaceInvite) BeforeCreate(*gorm.DB) error {
	if i.ID == "" {
		i.ID = NewID()
	}

	if i.Role == "" {
		i.Role = MemberRole
	}

	if i.Status == "" {
		i.Status = InvitePending
	}

	return nil
}

// Expired 判断邀请在 now 时刻是否已过期.
func (i *WorkspaceInvite) Expired(now time.Time) bool {
	return i.ExpiresAt != nil && now.After(*i.ExpiresAt)
}
