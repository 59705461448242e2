package service

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/yeisme/teamvault/pkg/internal/errs"
	"github.com/yeisme/teamvault/pkg/internal/model"
	"github.com/yeisme/teamvault/pkg/internal/types"
)

// MemberService 成员列表与移除；成员只能通过接受邀请加入.
type MemberService struct {
	*Deps
}

func NewMemberService(c context.Context) *MemberService {
	return &MemberService{Deps: mustDeps(c)}
}

type memberRow struct {
	ID        string    `gorm:"column:id"`
	UserID    string    `gorm:"column:user_id"`
	Role      string    `gorm:"column:role"`
	CreatedAt time.Time `gorm:"column:created_at"`
	Email     string    `gorm:"column:email"`
	Name      string    `gorm:"column:name"`
	Image     string    `gorm:"column:image"`
}

// List 所有者排在首位，其余成员按加入时间升序.
func (s *MemberService) List(ctx context.Context, userID, workspaceID string) ([]types.MemberInfo, error) {
	ws, _, err := requireRole(s.db(ctx), workspaceID, userID, Member, "")
	if err != nil {
		return nil, err
	}

	var owner model.User
	if err := s.db(ctx).Where("id = ?", ws.OwnerID).Take(&owner).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.Internal(err)
	}

	var rows []memberRow
	if err := s.db(ctx).Table("workspace_members AS m").
		Select("m.id, m.user_id, m.role, m.created_at, u.email, u.name, COALESCE(u.image, '') AS image").
		Joins("JOIN users AS u ON u.id = m.user_id").
		Where("m.workspace_id = ?", ws.ID).
		Order("m.created_at").Order("m.id").
		Scan(&rows).Error; err != nil {
		return nil, errs.Internal(err)
	}

	out := make([]types.MemberInfo, 0, len(rows)+1)
	out = append(out, types.MemberInfo{
		ID:        ws.ID,
		UserID:    ws.OwnerID,
		Email:     owner.Email,
		Name:      owner.Name,
		Image:     owner.Image,
		Role:      Owner.String(),
		IsOwner:   true,
		CreatedAt: ws.CreatedAt,
	})

	for _, r := range rows {
		out = append(out, types.MemberInfo{
			ID:        r.ID,
			UserID:    r.UserID,
			Email:     r.Email,
			Name:      r.Name,
			Image:     r.Image,
			Role:      r.Role,
			CreatedAt: r.CreatedAt,
		})
	}

	return out, nil
}

// Remove 仅所有者，所有者本身不可移除；记录 member.removed {memberEmail,memberName}.
func (s *MemberService) Remove(ctx context.Context, actorID, workspaceID, memberUserID string) error {
	ws, _, err := requireRole(s.db(ctx), workspaceID, actorID, Owner, "Only workspace owners can remove members")
	if err != nil {
		return err
	}

	if memberUserID == ws.OwnerID {
		return errs.Invalid("Cannot remove the workspace owner")
	}

	var m model.WorkspaceMember

	err = s.db(ctx).Where("workspace_id = ? AND user_id = ?", ws.ID, memberUserID).Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errs.NotFound("Member not found")
	}

	if err != nil {
		return errs.Internal(err)
	}

	var u model.User
	if err := s.db(ctx).Where("id = ?", memberUserID).Take(&u).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return errs.Internal(err)
	}

	err = s.inTx(ctx, func(tx *txScope) error {
		if err := tx.tx.Delete(&m).Error; err != nil {
			return err
		}

		if err := tx.tx.Model(&model.UserPreferences{}).
			Where("user_id = ? AND last_workspace_id = ?", memberUserID, ws.ID).
			Update("last_workspace_id", nil).Error; err != nil {
			return err
		}

		_, err := tx.record(RecordInput{
			WorkspaceID: ws.ID,
			ActorID:     actorID,
			EventType:   model.EventMemberRemoved,
			EntityID:    m.ID,
			Metadata:    model.Metadata{"memberEmail": u.Email, "memberName": u.Name},
		}, ws.OwnerID)

		return err
	})

	return errs.Internal(err)
}
