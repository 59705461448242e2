package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/yeisme/teamvault/pkg/auth"
	"github.com/yeisme/teamvault/pkg/internal/errs"
	"github.com/yeisme/teamvault/pkg/internal/model"
	"github.com/yeisme/teamvault/pkg/internal/storage/db"
	"github.com/yeisme/teamvault/pkg/internal/types"
	nlog "github.com/yeisme/teamvault/pkg/log"
	"github.com/yeisme/teamvault/pkg/mailer"
	"github.com/yeisme/teamvault/pkg/metrics"
	"github.com/yeisme/teamvault/pkg/queue"
	"github.com/yeisme/teamvault/pkg/tracing"
)

const (
	// DefaultInviteTTL 邀请默认有效期.
	DefaultInviteTTL = 7 * 24 * time.Hour
	// maxTokenAttempts 令牌摘要冲突时的最大重试次数.
	maxTokenAttempts = 10
)

// newInviteToken 返回原始令牌与摘要.
var newInviteToken = auth.NewOpaqueToken

var (
	errDuplicateInvite = errs.Invalid("A pending invite already exists for this email")
	errInviteNotFound  = errs.NotFound("Invite not found")
	errEmailMismatch   = errs.Invalid("This invitation was sent to a different email address")
	errInviteExpired   = errs.Invalid("Invite has expired")
)

// InviteService 邀请的创建、接受、取消与过期.
type InviteService struct {
	*Deps
}

func NewInviteService(c context.Context) *InviteService {
	return &InviteService{Deps: mustDeps(c)}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func inviteStatusErr(status model.InviteStatus) error {
	return errs.Invalid(fmt.Sprintf("Invite is %s", status))
}

// Send 发出邀请并异步发送邮件：仅所有者，不能邀请自己，计划需允许邀请.
func (s *InviteService) Send(ctx context.Context, inviterID, workspaceID, email, role string) (*types.InviteCreated, error) {
	ctx, span := tracing.StartSpan(ctx, "invite.send")
	defer span.End()

	ws, _, err := requireRole(s.db(ctx), workspaceID, inviterID, Owner, "Only workspace owners can invite members")
	if err != nil {
		return nil, err
	}

	inviter, err := loadUser(s.db(ctx), inviterID)
	if err != nil {
		return nil, err
	}

	email = normalizeEmail(email)
	if email == normalizeEmail(inviter.Email) {
		return nil, errs.Invalid("You cannot invite yourself")
	}

	if err := CheckInviteAllowed(planOf(inviter)); err != nil {
		return nil, err
	}

	created, err := s.Create(ctx, ws.ID, inviterID, email, role, DefaultInviteTTL)
	if err != nil {
		return nil, err
	}

	s.sendInviteEmail(ctx, inviter, ws, email, created.Token)

	return created, nil
}

func (s *InviteService) sendInviteEmail(ctx context.Context, inviter *model.User, ws *model.Workspace, email, token string) {
	if s.Mailer == nil {
		return
	}

	subject, body, err := mailer.RenderInvite(mailer.InviteData{
		AppName:       s.Config.App.Name,
		InviterName:   inviter.Name,
		WorkspaceName: ws.Name,
		URL:           strings.TrimRight(s.Config.App.BaseURL, "/") + "/invite/" + token,
		ExpiresIn:     "7 days",
	})
	if err != nil {
		nlog.Ctx(ctx).Error().Err(err).Msg("render invite email")

		return
	}

	mailer.SendAsync(ctx, s.Mailer, email, subject, body)
}

// Create 仅所有者；同一工作区同一邮箱只能有一条 pending 邀请；只保存令牌摘要.
// ttl <= 0 时使用默认有效期. 原始令牌只在返回值中出现一次.
func (s *InviteService) Create(ctx context.Context, workspaceID, inviterID, email, role string, ttl time.Duration) (*types.InviteCreated, error) {
	ws, _, err := requireRole(s.db(ctx), workspaceID, inviterID, Owner, "Only workspace owners can invite members")
	if err != nil {
		return nil, err
	}

	if role == "" {
		role = model.MemberRole
	}

	if role != model.MemberRole {
		return nil, errs.Invalid(fmt.Sprintf("Unsupported role %q", role))
	}

	if ttl <= 0 {
		ttl = DefaultInviteTTL
	}

	email = normalizeEmail(email)
	expiresAt := s.now().Add(ttl)
	inv := &model.WorkspaceInvite{
		WorkspaceID: ws.ID,
		Email:       email,
		InvitedBy:   inviterID,
		Role:        role,
		ExpiresAt:   &expiresAt,
		Status:      model.InvitePending,
	}

	var token string

	err = s.inTx(ctx, func(tx *txScope) error {
		var n int64
		if err := tx.tx.Model(&model.WorkspaceInvite{}).
			Where("workspace_id = ? AND email = ? AND status = ?", ws.ID, email, model.InvitePending).
			Count(&n).Error; err != nil {
			return err
		}

		if n > 0 {
			return errDuplicateInvite
		}

		raw, hash, err := uniqueInviteToken(tx.tx)
		if err != nil {
			return err
		}

		token = raw
		inv.TokenHash = hash

		if err := tx.tx.Create(inv).Error; err != nil {
			if db.IsUniqueViolation(err) {
				return errDuplicateInvite
			}

			return err
		}

		_, err = tx.record(RecordInput{
			WorkspaceID: ws.ID,
			ActorID:     inviterID,
			EventType:   model.EventInviteSent,
			EntityID:    inv.ID,
			Metadata:    model.Metadata{"inviteEmail": email, "role": role},
		}, ws.OwnerID)

		return err
	})
	if err != nil {
		return nil, errs.Internal(err)
	}

	metrics.InviteTransitions.WithLabelValues(string(model.InvitePending)).Inc()

	return &types.InviteCreated{Invite: InviteInfo(inv), Token: token}, nil
}

// uniqueInviteToken 有限次重试，全部冲突时明确失败.
func uniqueInviteToken(tx *gorm.DB) (string, string, error) {
	for range maxTokenAttempts {
		raw, hash, err := newInviteToken()
		if err != nil {
			return "", "", err
		}

		var n int64
		if err := tx.Model(&model.WorkspaceInvite{}).Where("token_hash = ?", hash).Count(&n).Error; err != nil {
			return "", "", err
		}

		if n == 0 {
			return raw, hash, nil
		}
	}

	return "", "", errors.New("failed to generate unique invite token")
}

func (s *InviteService) findByToken(ctx context.Context, token string) (*model.WorkspaceInvite, error) {
	if token == "" {
		return nil, errInviteNotFound
	}

	var inv model.WorkspaceInvite

	err := s.db(ctx).Where("token_hash = ?", auth.HashToken(token)).Take(&inv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errInviteNotFound
	}

	if err != nil {
		return nil, errs.Internal(err)
	}

	return &inv, nil
}

// markExpired 单独提交，保证随后的拒绝不会回滚状态.
func (s *InviteService) markExpired(ctx context.Context, inv *model.WorkspaceInvite) error {
	res := s.db(ctx).Model(&model.WorkspaceInvite{}).
		Where("id = ? AND status = ?", inv.ID, model.InvitePending).
		Updates(map[string]any{"status": model.InviteExpired, "updated_at": s.now()})
	if res.Error != nil {
		return errs.Internal(res.Error)
	}

	if res.RowsAffected > 0 {
		metrics.InviteTransitions.WithLabelValues(string(model.InviteExpired)).Inc()
	}

	inv.Status = model.InviteExpired

	return nil
}

// checkRedeemable 依次检查状态、过期与邮箱.
func (s *InviteService) checkRedeemable(ctx context.Context, inv *model.WorkspaceInvite, user *model.User) error {
	if inv.Status != model.InvitePending {
		return inviteStatusErr(inv.Status)
	}

	if inv.Expired(s.now()) {
		if err := s.markExpired(ctx, inv); err != nil {
			return err
		}

		return errInviteExpired
	}

	if !strings.EqualFold(user.Email, inv.Email) {
		return errEmailMismatch
	}

	return nil
}

// transition 仅当邀请仍为 pending 时迁移，并发下只有一方成功.
func transition(tx *gorm.DB, inv *model.WorkspaceInvite, to model.InviteStatus, now time.Time) error {
	updates := map[string]any{"status": to, "updated_at": now}
	if to == model.InviteAccepted {
		updates["accepted_at"] = now
	}

	res := tx.Model(&model.WorkspaceInvite{}).
		Where("id = ? AND status = ?", inv.ID, model.InvitePending).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}

	if res.RowsAffected == 0 {
		var cur model.WorkspaceInvite
		if err := tx.Select("status").Where("id = ?", inv.ID).Take(&cur).Error; err != nil {
			return err
		}

		return inviteStatusErr(cur.Status)
	}

	inv.Status = to

	return nil
}

// Accept 接受邀请：已是成员只记录 invite.accepted，否则同时创建成员并记录 member.added.
func (s *InviteService) Accept(ctx context.Context, userID, token string) (*types.AcceptInviteResponse, error) {
	ctx, span := tracing.StartSpan(ctx, "invite.accept")
	defer span.End()

	user, err := loadUser(s.db(ctx), userID)
	if err != nil {
		return nil, err
	}

	inv, err := s.findByToken(ctx, token)
	if err != nil {
		return nil, err
	}

	if err := s.checkRedeemable(ctx, inv, user); err != nil {
		return nil, err
	}

	ws, err := findWorkspace(s.db(ctx), inv.WorkspaceID)
	if err != nil {
		return nil, err
	}

	now := s.now()

	err = s.inTx(ctx, func(tx *txScope) error {
		if err := transition(tx.tx, inv, model.InviteAccepted, now); err != nil {
			return err
		}

		if _, err := tx.record(RecordInput{
			WorkspaceID: ws.ID,
			ActorID:     userID,
			EventType:   model.EventInviteAccepted,
			EntityID:    inv.ID,
			Metadata:    model.Metadata{"inviteEmail": inv.Email},
		}, ws.OwnerID); err != nil {
			return err
		}

		if ws.OwnerID == userID {
			return nil
		}

		member, err := isMember(tx.tx, ws.ID, userID)
		if err != nil || member {
			return err
		}

		m := &model.WorkspaceMember{WorkspaceID: ws.ID, UserID: userID, Role: inv.Role}
		if err := tx.tx.Create(m).Error; err != nil {
			return err
		}

		_, err = tx.record(RecordInput{
			WorkspaceID: ws.ID,
			ActorID:     userID,
			EventType:   model.EventMemberAdded,
			EntityID:    m.ID,
			Metadata:    model.Metadata{"memberEmail": user.Email, "memberName": user.Name, "role": m.Role},
		}, ws.OwnerID)

		return err
	})
	if err != nil {
		return nil, errs.Internal(err)
	}

	metrics.InviteTransitions.WithLabelValues(string(model.InviteAccepted)).Inc()

	return &types.AcceptInviteResponse{Success: true, WorkspaceID: ws.ID}, nil
}

// Decline 受邀人拒绝，状态记为 cancelled，活动发起人为受邀人.
func (s *InviteService) Decline(ctx context.Context, userID, token string) error {
	user, err := loadUser(s.db(ctx), userID)
	if err != nil {
		return err
	}

	inv, err := s.findByToken(ctx, token)
	if err != nil {
		return err
	}

	if err := s.checkRedeemable(ctx, inv, user); err != nil {
		return err
	}

	return s.cancel(ctx, userID, inv)
}

// Cancel 仅所有者取消 pending 邀请.
func (s *InviteService) Cancel(ctx context.Context, actorID, inviteID string) error {
	var inv model.WorkspaceInvite

	err := s.db(ctx).Where("id = ?", inviteID).Take(&inv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errInviteNotFound
	}

	if err != nil {
		return errs.Internal(err)
	}

	if _, _, err := requireRole(s.db(ctx), inv.WorkspaceID, actorID, Owner, "Only workspace owners can cancel invites"); err != nil {
		return err
	}

	if inv.Status != model.InvitePending {
		return inviteStatusErr(inv.Status)
	}

	return s.cancel(ctx, actorID, &inv)
}

func (s *InviteService) cancel(ctx context.Context, actorID string, inv *model.WorkspaceInvite) error {
	ws, err := findWorkspace(s.db(ctx), inv.WorkspaceID)
	if err != nil {
		return err
	}

	err = s.inTx(ctx, func(tx *txScope) error {
		if err := transition(tx.tx, inv, model.InviteCancelled, s.now()); err != nil {
			return err
		}

		_, err := tx.record(RecordInput{
			WorkspaceID: ws.ID,
			ActorID:     actorID,
			EventType:   model.EventInviteCancelled,
			EntityID:    inv.ID,
			Metadata:    model.Metadata{"inviteEmail": inv.Email},
		}, ws.OwnerID)

		return err
	})
	if err != nil {
		return errs.Internal(err)
	}

	metrics.InviteTransitions.WithLabelValues(string(model.InviteCancelled)).Inc()

	return nil
}

// ListPending 仅所有者，按创建时间升序.
func (s *InviteService) ListPending(ctx context.Context, userID, workspaceID string) ([]types.InviteInfo, error) {
	ws, _, err := requireRole(s.db(ctx), workspaceID, userID, Owner, "Only workspace owners can view invites")
	if err != nil {
		return nil, err
	}

	var list []model.WorkspaceInvite
	if err := s.db(ctx).Where("workspace_id = ? AND status = ?", ws.ID, model.InvitePending).
		Order("created_at").Order("id").Find(&list).Error; err != nil {
		return nil, errs.Internal(err)
	}

	out := make([]types.InviteInfo, 0, len(list))
	for i := range list {
		out = append(out, InviteInfo(&list[i]))
	}

	return out, nil
}

// Preview 邀请落地页. viewerID 为空表示未登录；登录用户邮箱不匹配时报告 invalid，不泄露邀请存在.
func (s *InviteService) Preview(ctx context.Context, viewerID, token string) (*types.InvitePreview, error) {
	invalid := &types.InvitePreview{Status: types.InvitePreviewInvalid}

	inv, err := s.findByToken(ctx, token)
	if errs.Is(err, errs.KindNotFound) {
		return invalid, nil
	}

	if err != nil {
		return nil, err
	}

	if viewerID != "" {
		viewer, err := loadUser(s.db(ctx), viewerID)
		if err != nil && !errs.Is(err, errs.KindUnauthenticated) {
			return nil, err
		}

		if viewer != nil && !strings.EqualFold(viewer.Email, inv.Email) {
			return invalid, nil
		}
	}

	ws, err := findWorkspace(s.db(ctx), inv.WorkspaceID)
	if errs.Is(err, errs.KindNotFound) {
		return invalid, nil
	}

	if err != nil {
		return nil, err
	}

	out := &types.InvitePreview{
		WorkspaceID:   ws.ID,
		WorkspaceName: ws.Name,
		Email:         inv.Email,
		CreatedAt:     &inv.CreatedAt,
	}

	switch {
	case inv.Status == model.InviteAccepted:
		out.Status = types.InvitePreviewAccepted
	case inv.Status == model.InviteCancelled:
		out.Status = types.InvitePreviewInactive
	case inv.Status == model.InviteExpired:
		out.Status = types.InvitePreviewExpired
	case inv.Expired(s.now()):
		if err := s.markExpired(ctx, inv); err != nil {
			return nil, err
		}

		out.Status = types.InvitePreviewExpired
	default:
		out.Status = types.InvitePreviewValid
	}

	var inviter model.User
	if err := s.db(ctx).Where("id = ?", inv.InvitedBy).Take(&inviter).Error; err == nil {
		out.InviterName = inviter.Name
		out.InviterImage = inviter.Image
	}

	var members int64
	if err := s.db(ctx).Model(&model.WorkspaceMember{}).Where("workspace_id = ?", ws.ID).Count(&members).Error; err != nil {
		return nil, errs.Internal(err)
	}

	// 所有者计入人数
	out.MemberCount = members + 1

	return out, nil
}

// ExpireSweep 把所有已过期的 pending 邀请置为 expired，幂等.
func (s *InviteService) ExpireSweep(ctx context.Context) (int64, error) {
	now := s.now()

	res := s.db(ctx).Model(&model.WorkspaceInvite{}).
		Where("status = ? AND expires_at IS NOT NULL AND expires_at < ?", model.InvitePending, now).
		Updates(map[string]any{"status": model.InviteExpired, "updated_at": now})
	if res.Error != nil {
		return 0, fmt.Errorf("expire invites: %w", res.Error)
	}

	n := res.RowsAffected
	if n == 0 {
		return 0, nil
	}

	metrics.InviteTransitions.WithLabelValues(string(model.InviteExpired)).Add(float64(n))

	if s.Events != nil && s.Config.Events.AllowsEntity(string(model.EntityInvite)) {
		if err := queue.PublishInvitesExpired(ctx, s.Events, n, s.headerOpts(ctx)...); err != nil {
			nlog.Ctx(ctx).Warn().Err(err).Msg("publish invites expired")
		}
	}

	return n, nil
}

// InviteInfo 转换为响应结构，不含令牌.
func InviteInfo(inv *model.WorkspaceInvite) types.InviteInfo {
	return types.InviteInfo{
		ID:          inv.ID,
		WorkspaceID: inv.WorkspaceID,
		Email:       inv.Email,
		Role:        inv.Role,
		Status:      string(inv.Status),
		InvitedBy:   inv.InvitedBy,
		ExpiresAt:   inv.ExpiresAt,
		CreatedAt:   inv.CreatedAt,
	}
}
