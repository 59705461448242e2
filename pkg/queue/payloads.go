package queue

import "time"

// EventHeader 定义所有事件的通用头部元数据.
type EventHeader struct {
	// Topic 冗余记录消息主题，便于离线处理或转储后定位来源主题.
	Topic string `json:"topic"`
	// TraceID 分布式追踪 ID.
	TraceID string `json:"trace_id,omitempty"`
	// Producer 生产者服务名或节点标识.
	Producer string `json:"producer,omitempty"`
	// OccurredAt 事件发生时间（UTC）.
	OccurredAt time.Time `json:"occurred_at"`
	// Version 事件负载版本.
	Version string `json:"version,omitempty"`
}

// Message 是统一的消息封装，Header + Payload.
type Message[T any] struct {
	Header  EventHeader `json:"header"`
	Payload T           `json:"payload"`
}

// ActivityPayload 活动记录提交后广播的事件.
// OwnerID 为工作区所有者，用量按所有者统计.
type ActivityPayload struct {
	ActivityID  string         `json:"activity_id"`
	WorkspaceID string         `json:"workspace_id"`
	OwnerID     string         `json:"owner_id,omitempty"`
	ActorID     string         `json:"actor_id"`
	EventType   string         `json:"event_type"`
	EntityType  string         `json:"entity_type,omitempty"`
	EntityID    string         `json:"entity_id,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// MessageID 使用活动记录 ID 作为消息 ID.
func (p ActivityPayload) MessageID() string {
	return p.ActivityID
}

// FilePurgedPayload 清理任务物理删除文件.
type FilePurgedPayload struct {
	FileID      string `json:"file_id"`
	WorkspaceID string `json:"workspace_id"`
	OwnerID     string `json:"owner_id,omitempty"`
	StorageKey  string `json:"storage_key"`
	Size        int64  `json:"size"`
}

// InvitesExpiredPayload 过期清理批量事件.
type InvitesExpiredPayload struct {
	Count int64 `json:"count"`
}
