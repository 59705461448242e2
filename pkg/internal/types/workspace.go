package types

import "time"

// CreateWorkspaceRequest 创建工作区.
type CreateWorkspaceRequest struct {
	Name string `json:"name"` // 长度与重名由 service 校验
}

// RenameWorkspaceRequest 重命名工作区.
type RenameWorkspaceRequest struct {
	Name string `json:"name"` // 长度与重名由 service 校验
}

// WorkspaceInfo 工作区信息.
type WorkspaceInfo struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	OwnerID   string    `json:"ownerId"`
	Role      string    `json:"role"` // owner | member
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// WorkspaceList 用户可见的工作区.
type WorkspaceList struct {
	Owned  []WorkspaceInfo `json:"owned"`
	Member []WorkspaceInfo `json:"member"`
	All    []WorkspaceInfo `json:"all"`
}

// DeleteWorkspaceResponse 删除后跳转的工作区.
type DeleteWorkspaceResponse struct {
	Success    bool   `json:"success"`
	RedirectTo string `json:"redirectTo"`
}

// MemberInfo 成员列表项，所有者也作为一项返回.
type MemberInfo struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Image     string    `json:"image,omitempty"`
	Role      string    `json:"role"`
	IsOwner   bool      `json:"isOwner"`
	CreatedAt time.Time `json:"createdAt"`
}
