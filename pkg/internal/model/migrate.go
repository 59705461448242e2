package model

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ErrImmutableActivity 活动记录只允许追加.
var ErrImmutableActivity = errors.New("workspace activity is append-only")

// pendingInviteIndex 保证同一工作区同一邮箱最多一条 pending 邀请.
const pendingInviteIndex = "CREATE UNIQUE INDEX IF NOT EXISTS idx_invite_pending_unique " +
	"ON workspace_invites (workspace_id, email) WHERE status = 'pending'"

// All 返回需要迁移的全部模型.
func All() []any {
	return []any{
		&User{},
		&UserPreferences{},
		&VerificationToken{},
		&Workspace{},
		&WorkspaceMember{},
		&WorkspaceInvite{},
		&File{},
		&WorkspaceActivity{},
		&UserUsage{},
	}
}

// Migrate 自动迁移表结构；partialIndex 为 false 时（MySQL 家族）跳过部分唯一索引，
// 此时重复 pending 邀请依赖事务内检查.
func Migrate(db *gorm.DB, partialIndex bool) error {
	if err := db.AutoMigrate(All()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	if partialIndex {
		if err := db.Exec(pendingInviteIndex).Error; err != nil {
			return fmt.Errorf("create pending invite index: %w", err)
		}
	}

	return nil
}
