package model

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"gorm.io/gorm"
)

// EventType 活动事件类型（封闭枚举）.
type EventType string

const (
	EventWorkspaceCreated EventType = "workspace.created"
	EventWorkspaceRenamed EventType = "workspace.renamed"
	EventWorkspaceDeleted EventType = "workspace.deleted"
	EventFileUploaded     EventType = "file.uploaded"
	EventFileRenamed      EventType = "file.renamed"
	EventFileDeleted      EventType = "file.deleted"
	EventFileDownloaded   EventType = "file.downloaded"
	EventMemberAdded      EventType = "member.added"
	EventMemberRemoved    EventType = "member.removed"
	EventInviteSent       EventType = "invite.sent"
	EventInviteAccepted   EventType = "invite.accepted"
	EventInviteCancelled  EventType = "invite.cancelled"
)

var eventTypes = map[EventType]EntityType{
	EventWorkspaceCreated: EntityWorkspace,
	EventWorkspaceRenamed: EntityWorkspace,
	EventWorkspaceDeleted: EntityWorkspace,
	EventFileUploaded:     EntityFile,
	EventFileRenamed:      EntityFile,
	EventFileDeleted:      EntityFile,
	EventFileDownloaded:   EntityFile,
	EventMemberAdded:      EntityMember,
	EventMemberRemoved:    EntityMember,
	EventInviteSent:       EntityInvite,
	EventInviteAccepted:   EntityInvite,
	EventInviteCancelled:  EntityInvite,
}

// Valid 判断事件类型是否属于枚举.
func (e EventType) Valid() bool {
	_, ok := eventTypes[e]

	return ok
}

// Entity 返回事件对应的实体类型.
func (e EventType) Entity() EntityType {
	return eventTypes[e]
}

// EntityType 事件关联实体的类型.
type EntityType string

const (
	EntityWorkspace EntityType = "workspace"
	EntityFile      EntityType = "file"
	EntityMember    EntityType = "member"
	EntityInvite    EntityType = "invite"
)

// Valid 判断实体类型是否合法.
func (e EntityType) Valid() bool {
	switch e {
	case EntityWorkspace, EntityFile, EntityMember, EntityInvite:
		return true
	default:
		return false
	}
}

// Metadata 活动附加信息，以 JSON 文本存储.
type Metadata map[string]any

// Value 实现 driver.Valuer.
func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}

	b, err := sonic.Marshal(map[string]any(m))
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}

	return string(b), nil
}

// Scan 实现 sql.Scanner.
func (m *Metadata) Scan(src any) error {
	var raw []byte

	switch v := src.(type) {
	case nil:
		*m = nil

		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("unsupported metadata type %T", src)
	}

	if len(raw) == 0 {
		*m = nil

		return nil
	}

	out := map[string]any{}
	if err := sonic.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("unmarshal metadata: %w", err)
	}

	*m = out

	return nil
}

// WorkspaceActivity 只追加的活动记录，写入后不再修改或删除.
// 不与 workspaces 建立外键，工作区删除后记录仍作为审计保留.
type WorkspaceActivity struct {
	ID          string     `gorm:"primaryKey;size:26"                                         json:"id"`
	WorkspaceID string     `gorm:"size:26;not null;index:idx_activity_ws_created,priority:1;index:idx_activity_ws_event,priority:1" json:"workspaceId"`
	ActorID     string     `gorm:"size:26;not null;index"                                     json:"actorId"`
	EventType   EventType  `gorm:"size:32;not null;index:idx_activity_ws_event,priority:2"   json:"eventType"`
	EntityType  EntityType `gorm:"size:16;index:idx_activity_entity,priority:1"              json:"entityType,omitempty"`
	EntityID    string     `gorm:"size:26;index:idx_activity_entity,priority:2"              json:"entityId,omitempty"`
	Metadata    Metadata   `gorm:"type:text"                                                  json:"metadata,omitempty"`
	CreatedAt   time.Time  `gorm:"index:idx_activity_ws_created,priority:2"                  json:"createdAt"`
}

func (a *WorkspaceActivity) BeforeCreate(*gorm.DB) error {
	if a.ID == "" {
		a.ID = NewID()
	}

	return nil
}

// BeforeUpdate 禁止修改活动记录.
func (a *WorkspaceActivity) BeforeUpdate(*gorm.DB) error {
	return ErrImmutableActivity
}

// BeforeDelete 禁止删除活动记录.
func (a *WorkspaceActivity) BeforeDelete(*gorm.DB) error {
	return ErrImmutableActivity
}
