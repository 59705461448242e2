package types

import (
	"time"

	"github.com/yeisme/teamvault/pkg/internal/model"
)

// ActivityQuery 活动查询条件.
type ActivityQuery struct {
	EventType  string `form:"eventType"  rule:"omitempty,max=32"`
	EntityType string `form:"entityType" rule:"omitempty,oneof=workspace file member invite"`
	EntityID   string `form:"entityId"   rule:"omitempty,max=26"`
	Limit      int    `form:"limit"      rule:"min=0,max=100"`
	Offset     int    `form:"offset"     rule:"min=0"`
}

// ActivityActor 活动发起人，读取时关联用户表.
type ActivityActor struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Image string `json:"image,omitempty"`
}

// ActivityItem 单条活动.
type ActivityItem struct {
	ID          string         `json:"id"`
	WorkspaceID string         `json:"workspaceId"`
	EventType   string         `json:"eventType"`
	EntityType  string         `json:"entityType,omitempty"`
	EntityID    string         `json:"entityId,omitempty"`
	Metadata    model.Metadata `json:"metadata"`
	CreatedAt   time.Time      `json:"createdAt"`
	Actor       ActivityActor  `json:"actor"`
}

// ActivityList 活动列表.
type ActivityList struct {
	Items  []ActivityItem `json:"items"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}
