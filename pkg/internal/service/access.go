package service

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/yeisme/teamvault/pkg/internal/errs"
	"github.com/yeisme/teamvault/pkg/internal/model"
)

// Role 用户相对工作区的访问级别.
type Role int

const (
	NoAccess Role = iota
	Member
	Owner
)

func (r Role) String() string {
	switch r {
	case Owner:
		return "owner"
	case Member:
		return "member"
	default:
		return "none"
	}
}

// AccessService 只读的成员关系判定，数据库错误原样返回.
type AccessService struct {
	*Deps
}

func NewAccessService(c context.Context) *AccessService {
	return &AccessService{Deps: mustDeps(c)}
}

// IsOwner 工作区不存在时返回 false.
func (s *AccessService) IsOwner(ctx context.Context, workspaceID, userID string) (bool, error) {
	return isOwner(s.db(ctx), workspaceID, userID)
}

// IsMember 只判断成员表，所有者不算成员.
func (s *AccessService) IsMember(ctx context.Context, workspaceID, userID string) (bool, error) {
	return isMember(s.db(ctx), workspaceID, userID)
}

// HasAccess 所有者或成员.
func (s *AccessService) HasAccess(ctx context.Context, workspaceID, userID string) (bool, error) {
	role, err := s.Resolve(ctx, workspaceID, userID)

	return role != NoAccess, err
}

// Resolve 合并判定，所有者优先.
func (s *AccessService) Resolve(ctx context.Context, workspaceID, userID string) (Role, error) {
	return resolveRole(s.db(ctx), workspaceID, userID)
}

// Require 要求至少 min 级别的访问权限，返回工作区.
// 工作区不存在为 NotFound，权限不足为 Forbidden.
func (s *AccessService) Require(ctx context.Context, workspaceID, userID string, min Role) (*model.Workspace, Role, error) {
	return requireRole(s.db(ctx), workspaceID, userID, min, "")
}

func isOwner(db *gorm.DB, workspaceID, userID string) (bool, error) {
	var n int64
	err := db.Model(&model.Workspace{}).
		Where("id = ? AND owner_id = ?", workspaceID, userID).
		Count(&n).Error

	return n > 0, err
}

func isMember(db *gorm.DB, workspaceID, userID string) (bool, error) {
	var n int64
	err := db.Model(&model.WorkspaceMember{}).
		Where("workspace_id = ? AND user_id = ?", workspaceID, userID).
		Count(&n).Error

	return n > 0, err
}

func resolveRole(db *gorm.DB, workspaceID, userID string) (Role, error) {
	owner, err := isOwner(db, workspaceID, userID)
	if err != nil || owner {
		return roleIf(owner, Owner), err
	}

	member, err := isMember(db, workspaceID, userID)

	return roleIf(member, Member), err
}

func roleIf(ok bool, r Role) Role {
	if ok {
		return r
	}

	return NoAccess
}

// findWorkspace 不存在时返回 NotFound.
func findWorkspace(db *gorm.DB, workspaceID string) (*model.Workspace, error) {
	var ws model.Workspace
	if err := db.Where("id = ?", workspaceID).Take(&ws).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("Workspace not found")
		}

		return nil, errs.Internal(err)
	}

	return &ws, nil
}

// requireRole forbidden 为空时使用默认拒绝信息.
func requireRole(db *gorm.DB, workspaceID, userID string, min Role, forbidden string) (*model.Workspace, Role, error) {
	ws, err := findWorkspace(db, workspaceID)
	if err != nil {
		return nil, NoAccess, err
	}

	role := Owner
	if ws.OwnerID != userID {
		member, err := isMember(db, workspaceID, userID)
		if err != nil {
			return nil, NoAccess, errs.Internal(err)
		}

		role = roleIf(member, Member)
	}

	if role < min {
		if forbidden == "" {
			forbidden = "Forbidden"
			if min == Member {
				forbidden = "You don't have access to this workspace"
			}
		}

		return ws, role, errs.Forbidden(forbidden)
	}

	return ws, role, nil
}
