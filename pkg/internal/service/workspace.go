package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yeisme/teamvault/pkg/internal/errs"
	"github.com/yeisme/teamvault/pkg/internal/model"
	"github.com/yeisme/teamvault/pkg/internal/storage/db"
	"github.com/yeisme/teamvault/pkg/internal/types"
	nlog "github.com/yeisme/teamvault/pkg/log"
	"github.com/yeisme/teamvault/pkg/tracing"
)

const (
	// DefaultWorkspaceName 注册时自动创建的工作区.
	DefaultWorkspaceName = "Personal"
	maxWorkspaceName     = 50
)

// WorkspaceService 工作区增删改查与最近访问记录.
type WorkspaceService struct {
	*Deps
}

func NewWorkspaceService(c context.Context) *WorkspaceService {
	return &WorkspaceService{Deps: mustDeps(c)}
}

func cleanWorkspaceName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errs.Invalid("Workspace name is required")
	}

	if utf8.RuneCountInString(name) > maxWorkspaceName {
		return "", errs.Invalid(fmt.Sprintf("Workspace name must be %d characters or less", maxWorkspaceName))
	}

	return name, nil
}

var errDuplicateWorkspace = errs.Invalid("A workspace with this name already exists")

func nameTaken(tx *gorm.DB, ownerID, name, exceptID string) (bool, error) {
	q := tx.Model(&model.Workspace{}).Where("owner_id = ? AND name = ?", ownerID, name)
	if exceptID != "" {
		q = q.Where("id <> ?", exceptID)
	}

	var n int64
	err := q.Count(&n).Error

	return n > 0, err
}

// Create 校验工作区数量上限与同名后创建，记录 workspace.created.
func (s *WorkspaceService) Create(ctx context.Context, userID, name string) (*model.Workspace, error) {
	ctx, span := tracing.StartSpan(ctx, "workspace.create")
	defer span.End()

	name, err := cleanWorkspaceName(name)
	if err != nil {
		return nil, err
	}

	p, err := loadPlan(s.db(ctx), userID)
	if err != nil {
		return nil, err
	}

	var owned int64
	if err := s.db(ctx).Model(&model.Workspace{}).Where("owner_id = ?", userID).Count(&owned).Error; err != nil {
		return nil, errs.Internal(err)
	}

	if err := CheckWorkspaceLimit(p, owned); err != nil {
		return nil, err
	}

	return s.create(ctx, userID, name)
}

func (s *WorkspaceService) create(ctx context.Context, userID, name string) (*model.Workspace, error) {
	var ws *model.Workspace

	err := s.inTx(ctx, func(tx *txScope) error {
		var err error
		ws, err = createWorkspace(tx, userID, name)

		return err
	})
	if err != nil {
		return nil, errs.Internal(err)
	}

	return ws, nil
}

// createWorkspace 在调用方事务中插入工作区并记录 workspace.created.
func createWorkspace(tx *txScope, userID, name string) (*model.Workspace, error) {
	taken, err := nameTaken(tx.tx, userID, name, "")
	if err != nil {
		return nil, err
	}

	if taken {
		return nil, errDuplicateWorkspace
	}

	ws := &model.Workspace{Name: name, OwnerID: userID}
	if err := tx.tx.Create(ws).Error; err != nil {
		if db.IsUniqueViolation(err) {
			return nil, errDuplicateWorkspace
		}

		return nil, err
	}

	if _, err := tx.record(RecordInput{
		WorkspaceID: ws.ID,
		ActorID:     userID,
		EventType:   model.EventWorkspaceCreated,
		EntityID:    ws.ID,
	}, userID); err != nil {
		return nil, err
	}

	return ws, nil
}

// createDefault 注册事务内创建 Personal 工作区并设为最近访问.
func createDefault(tx *txScope, userID string) (*model.Workspace, error) {
	ws, err := createWorkspace(tx, userID, DefaultWorkspaceName)
	if err != nil {
		return nil, err
	}

	if err := setLastWorkspace(tx.tx, userID, &ws.ID); err != nil {
		return nil, err
	}

	return ws, nil
}

// Rename 仅所有者，记录 workspace.renamed {oldName,newName}.
func (s *WorkspaceService) Rename(ctx context.Context, userID, workspaceID, name string) (*model.Workspace, error) {
	name, err := cleanWorkspaceName(name)
	if err != nil {
		return nil, err
	}

	ws, _, err := requireRole(s.db(ctx), workspaceID, userID, Owner, "")
	if err != nil {
		return nil, err
	}

	if ws.Name == name {
		return ws, nil
	}

	oldName := ws.Name

	err = s.inTx(ctx, func(tx *txScope) error {
		taken, err := nameTaken(tx.tx, ws.OwnerID, name, ws.ID)
		if err != nil {
			return err
		}

		if taken {
			return errDuplicateWorkspace
		}

		if err := tx.tx.Model(ws).Update("name", name).Error; err != nil {
			if db.IsUniqueViolation(err) {
				return errDuplicateWorkspace
			}

			return err
		}

		_, err = tx.record(RecordInput{
			WorkspaceID: ws.ID,
			ActorID:     userID,
			EventType:   model.EventWorkspaceRenamed,
			EntityID:    ws.ID,
			Metadata:    model.Metadata{"oldName": oldName, "newName": name},
		}, ws.OwnerID)

		return err
	})
	if err != nil {
		return nil, errs.Internal(err)
	}

	return ws, nil
}

// Delete 仅所有者且不能删除最后一个工作区；级联删除成员、邀请与文件记录，
// 对象本体在提交后尽力删除. 返回跳转地址.
func (s *WorkspaceService) Delete(ctx context.Context, userID, workspaceID string) (*types.DeleteWorkspaceResponse, error) {
	ctx, span := tracing.StartSpan(ctx, "workspace.delete")
	defer span.End()

	ws, _, err := requireRole(s.db(ctx), workspaceID, userID, Owner, "")
	if err != nil {
		return nil, err
	}

	var owned []model.Workspace
	if err := s.db(ctx).Where("owner_id = ?", userID).Order("created_at").Order("id").Find(&owned).Error; err != nil {
		return nil, errs.Internal(err)
	}

	if len(owned) <= 1 {
		return nil, errs.Invalid("Cannot delete your last workspace. Create a new workspace first.")
	}

	var next string
	for _, w := range owned {
		if w.ID != ws.ID {
			next = w.ID

			break
		}
	}

	var keys []string

	err = s.inTx(ctx, func(tx *txScope) error {
		if err := tx.tx.Unscoped().Model(&model.File{}).
			Where("workspace_id = ?", ws.ID).Pluck("storage_key", &keys).Error; err != nil {
			return err
		}

		if _, err := tx.record(RecordInput{
			WorkspaceID: ws.ID,
			ActorID:     userID,
			EventType:   model.EventWorkspaceDeleted,
			EntityID:    ws.ID,
		}, ws.OwnerID); err != nil {
			return err
		}

		return deleteWorkspaceRows(tx.tx, ws.ID, userID, next)
	})
	if err != nil {
		return nil, errs.Internal(err)
	}

	s.deleteObjects(ctx, keys)

	return &types.DeleteWorkspaceResponse{
		Success:    true,
		RedirectTo: "/dashboard/workspace/" + next,
	}, nil
}

func deleteWorkspaceRows(tx *gorm.DB, workspaceID, ownerID, next string) error {
	steps := []struct {
		name string
		run  func() error
	}{
		{"files", func() error {
			return tx.Unscoped().Where("workspace_id = ?", workspaceID).Delete(&model.File{}).Error
		}},
		{"members", func() error {
			return tx.Where("workspace_id = ?", workspaceID).Delete(&model.WorkspaceMember{}).Error
		}},
		{"invites", func() error {
			return tx.Where("workspace_id = ?", workspaceID).Delete(&model.WorkspaceInvite{}).Error
		}},
		{"owner preference", func() error {
			return tx.Model(&model.UserPreferences{}).
				Where("user_id = ? AND last_workspace_id = ?", ownerID, workspaceID).
				Update("last_workspace_id", next).Error
		}},
		{"preferences", func() error {
			return tx.Model(&model.UserPreferences{}).
				Where("last_workspace_id = ?", workspaceID).
				Update("last_workspace_id", nil).Error
		}},
		{"workspace", func() error {
			return tx.Where("id = ?", workspaceID).Delete(&model.Workspace{}).Error
		}},
	}

	for _, st := range steps {
		if err := st.run(); err != nil {
			return fmt.Errorf("delete workspace %s: %w", st.name, err)
		}
	}

	return nil
}

// deleteObjects 尽力删除对象，失败的对象留给清理任务之外的人工处理.
func (s *WorkspaceService) deleteObjects(ctx context.Context, keys []string) {
	if s.Store == nil {
		return
	}

	for _, key := range keys {
		if err := s.Store.DeleteObject(ctx, key); err != nil {
			nlog.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("delete object after workspace removal")
		}
	}
}

// SetLastActive 所有者或成员.
func (s *WorkspaceService) SetLastActive(ctx context.Context, userID, workspaceID string) error {
	if _, _, err := requireRole(s.db(ctx), workspaceID, userID, Member, "Forbidden"); err != nil {
		return err
	}

	if err := setLastWorkspace(s.db(ctx), userID, &workspaceID); err != nil {
		return errs.Internal(err)
	}

	return nil
}

func setLastWorkspace(tx *gorm.DB, userID string, workspaceID *string) error {
	pref := model.UserPreferences{UserID: userID, LastWorkspaceID: workspaceID}

	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_workspace_id", "updated_at"}),
	}).Create(&pref).Error
}

// LastActive 最近访问的工作区 ID，没有记录时为 nil.
func (s *WorkspaceService) LastActive(ctx context.Context, userID string) (*string, error) {
	var pref model.UserPreferences

	err := s.db(ctx).Where("user_id = ?", userID).Take(&pref).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if err != nil {
		return nil, errs.Internal(err)
	}

	return pref.LastWorkspaceID, nil
}

// List 返回 {owned, member, all}，均按创建时间升序.
func (s *WorkspaceService) List(ctx context.Context, userID string) (*types.WorkspaceList, error) {
	var owned, member []model.Workspace

	if err := s.db(ctx).Where("owner_id = ?", userID).Order("created_at").Order("id").Find(&owned).Error; err != nil {
		return nil, errs.Internal(err)
	}

	if err := s.db(ctx).
		Joins("JOIN workspace_members ON workspace_members.workspace_id = workspaces.id").
		Where("workspace_members.user_id = ?", userID).
		Order("workspaces.created_at").Order("workspaces.id").
		Find(&member).Error; err != nil {
		return nil, errs.Internal(err)
	}

	out := &types.WorkspaceList{
		Owned:  workspaceInfos(owned, Owner),
		Member: workspaceInfos(member, Member),
	}
	out.All = append(append(make([]types.WorkspaceInfo, 0, len(owned)+len(member)), out.Owned...), out.Member...)

	return out, nil
}

// Get 所有者或成员可见.
func (s *WorkspaceService) Get(ctx context.Context, userID, workspaceID string) (*types.WorkspaceInfo, error) {
	ws, role, err := requireRole(s.db(ctx), workspaceID, userID, Member, "")
	if err != nil {
		return nil, err
	}

	info := WorkspaceInfo(ws, role)

	return &info, nil
}

// WorkspaceInfo 转换为响应结构.
func WorkspaceInfo(ws *model.Workspace, role Role) types.WorkspaceInfo {
	return types.WorkspaceInfo{
		ID:        ws.ID,
		Name:      ws.Name,
		OwnerID:   ws.OwnerID,
		Role:      role.String(),
		CreatedAt: ws.CreatedAt,
		UpdatedAt: ws.UpdatedAt,
	}
}

func workspaceInfos(list []model.Workspace, role Role) []types.WorkspaceInfo {
	out := make([]types.WorkspaceInfo, 0, len(list))
	for i := range list {
		out = append(out, WorkspaceInfo(&list[i], role))
	}

	return out
}
