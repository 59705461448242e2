package service_test

import (
	"strings"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/yeisme/teamvault/pkg/internal/errs"
	"github.com/yeisme/teamvault/pkg/internal/model"
	"github.com/yeisme/teamvault/pkg/internal/service"
	"github.com/yeisme/teamvault/pkg/internal/storage/db"
	"github.com/yeisme/teamvault/pkg/internal/types"
	"github.com/yeisme/teamvault/pkg/plan"
)

// inviteFixture pro 计划所有者与两个待邀请用户.
type inviteFixture struct {
	*env
	owner, wsID string
	bob, carol  string
}

func newInviteFixture(t *testing.T) *inviteFixture {
	e := newEnv(t)
	owner, wsID := e.register("Alice", "alice@example.com")
	e.setPlan("alice@example.com", plan.Pro)
	bob, _ := e.register("Bob", "bob@example.com")
	carol, _ := e.register("Carol", "carol@example.com")

	return &inviteFixture{env: e, owner: owner, wsID: wsID, bob: bob, carol: carol}
}

// TestSendInviteRules 免费计划不能邀请，不能邀请自己，同一邮箱只能有一条 pending.
func TestSendInviteRules(t *testing.T) {
	e := newEnv(t)
	owner, wsID := e.register("Alice", "alice@example.com")
	member, _ := e.register("Bob", "bob@example.com")
	e.addMember(wsID, member)

	invites := service.NewInviteService(e.ctx)

	_, err := invites.Send(e.ctx, owner, wsID, "carol@example.com", "member")
	wantKind(t, err, errs.KindLimitExceeded)

	_, err = invites.Send(e.ctx, member, wsID, "carol@example.com", "member")
	wantMessage(t, err, "Only workspace owners can invite members")

	e.setPlan("alice@example.com", plan.Pro)

	_, err = invites.Send(e.ctx, owner, wsID, "ALICE@example.com", "member")
	wantMessage(t, err, "You cannot invite yourself")

	_, err = invites.Send(e.ctx, owner, wsID, "carol@example.com", "admin")
	wantKind(t, err, errs.KindInvalid)

	created, err := invites.Send(e.ctx, owner, wsID, "Carol@Example.com", "member")
	if err != nil {
		t.Fatal(err)
	}

	if created.Token == "" || created.Invite.Email != "carol@example.com" || created.Invite.Status != "pending" {
		t.Errorf("unexpected invite %+v", created.Invite)
	}

	_, err = invites.Send(e.ctx, owner, wsID, "carol@example.com", "member")
	wantMessage(t, err, "A pending invite already exists for this email")

	pending, err := invites.ListPending(e.ctx, owner, wsID)
	if err != nil || len(pending) != 1 {
		t.Fatalf("pending = %v %v", pending, err)
	}

	_, err = invites.ListPending(e.ctx, member, wsID)
	wantKind(t, err, errs.KindForbidden)

	// 邮件异步发送
	deadline := time.Now().Add(3 * time.Second)
	for !invited(e, "carol@example.com") {
		if time.Now().After(deadline) {
			t.Fatal("invite email not sent")
		}

		time.Sleep(10 * time.Millisecond)
	}
}

func invited(e *env, to string) bool {
	for _, m := range e.mail.Sent() {
		if m.To == to && strings.Contains(m.HTML, "/invite/") {
			return true
		}
	}

	return false
}

// TestAcceptInvite 接受后成为成员，记录 invite.accepted 与 member.added；不能重复接受.
func TestAcceptInvite(t *testing.T) {
	f := newInviteFixture(t)
	invites := service.NewInviteService(f.ctx)

	created, err := invites.Send(f.ctx, f.owner, f.wsID, "bob@example.com", "")
	if err != nil {
		t.Fatal(err)
	}

	_, err = invites.Accept(f.ctx, f.carol, created.Token)
	wantMessage(t, err, "This invitation was sent to a different email address")

	resp, err := invites.Accept(f.ctx, f.bob, created.Token)
	if err != nil {
		t.Fatal(err)
	}

	if !resp.Success || resp.WorkspaceID != f.wsID {
		t.Errorf("unexpected response %+v", resp)
	}

	ok, _ := service.NewAccessService(f.ctx).IsMember(f.ctx, f.wsID, f.bob)
	if !ok {
		t.Error("bob should be a member")
	}

	want := []model.EventType{
		model.EventWorkspaceCreated,
		model.EventInviteSent,
		model.EventInviteAccepted,
		model.EventMemberAdded,
	}

	got := f.activities(f.wsID)
	if len(got) != len(want) {
		t.Fatalf("activities = %v", got)
	}

	for i := range want {
		if got[i] != want[i] {
			t.Errorf("activity %d = %s, want %s", i, got[i], want[i])
		}
	}

	_, err = invites.Accept(f.ctx, f.bob, created.Token)
	wantMessage(t, err, "Invite is accepted")

	_, err = invites.Accept(f.ctx, f.bob, "unknown-token")
	wantKind(t, err, errs.KindNotFound)
}

// TestAcceptInviteAlreadyMember 已是成员时只记录 invite.accepted.
func TestAcceptInviteAlreadyMember(t *testing.T) {
	f := newInviteFixture(t)
	f.addMember(f.wsID, f.bob)

	created, err := service.NewInviteService(f.ctx).Send(f.ctx, f.owner, f.wsID, "bob@example.com", "member")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := service.NewInviteService(f.ctx).Accept(f.ctx, f.bob, created.Token); err != nil {
		t.Fatal(err)
	}

	got := f.activities(f.wsID)
	if got[len(got)-1] != model.EventInviteAccepted {
		t.Errorf("activities = %v", got)
	}

	var n int64
	f.db.Model(&model.WorkspaceMember{}).Where("workspace_id = ? AND user_id = ?", f.wsID, f.bob).Count(&n)

	if n != 1 {
		t.Errorf("membership rows = %d", n)
	}
}

// TestInviteExpiry 过期邀请被拒绝且状态持久化为 expired.
func TestInviteExpiry(t *testing.T) {
	f := newInviteFixture(t)
	invites := service.NewInviteService(f.ctx)

	created, err := invites.Create(f.ctx, f.wsID, f.owner, "bob@example.com", "member", time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	f.advance(2 * time.Hour)

	_, err = invites.Accept(f.ctx, f.bob, created.Token)
	wantMessage(t, err, "Invite has expired")

	var inv model.WorkspaceInvite
	if err := f.db.Where("id = ?", created.Invite.ID).Take(&inv).Error; err != nil {
		t.Fatal(err)
	}

	if inv.Status != model.InviteExpired {
		t.Errorf("status = %s", inv.Status)
	}

	_, err = invites.Accept(f.ctx, f.bob, created.Token)
	wantMessage(t, err, "Invite is expired")

	// 过期后可以重新邀请同一邮箱
	if _, err := invites.Create(f.ctx, f.wsID, f.owner, "bob@example.com", "member", 0); err != nil {
		t.Fatalf("re-invite after expiry: %v", err)
	}
}

// TestExpireSweep 批量过期只影响过期的 pending 邀请.
func TestExpireSweep(t *testing.T) {
	f := newInviteFixture(t)
	invites := service.NewInviteService(f.ctx)

	if _, err := invites.Create(f.ctx, f.wsID, f.owner, "bob@example.com", "member", time.Hour); err != nil {
		t.Fatal(err)
	}

	if _, err := invites.Create(f.ctx, f.wsID, f.owner, "carol@example.com", "member", 48*time.Hour); err != nil {
		t.Fatal(err)
	}

	f.advance(2 * time.Hour)

	n, err := invites.ExpireSweep(f.ctx)
	if err != nil || n != 1 {
		t.Fatalf("expired %d, %v", n, err)
	}

	n, err = invites.ExpireSweep(f.ctx)
	if err != nil || n != 0 {
		t.Fatalf("second sweep expired %d, %v", n, err)
	}
}

// TestCancelAndDecline 取消仅所有者；拒绝由受邀人发起.
func TestCancelAndDecline(t *testing.T) {
	f := newInviteFixture(t)
	invites := service.NewInviteService(f.ctx)

	toBob, err := invites.Send(f.ctx, f.owner, f.wsID, "bob@example.com", "member")
	if err != nil {
		t.Fatal(err)
	}

	toCarol, err := invites.Send(f.ctx, f.owner, f.wsID, "carol@example.com", "member")
	if err != nil {
		t.Fatal(err)
	}

	wantMessage(t, invites.Cancel(f.ctx, f.bob, toBob.Invite.ID), "Only workspace owners can cancel invites")
	wantKind(t, invites.Cancel(f.ctx, f.owner, "missing"), errs.KindNotFound)

	if err := invites.Cancel(f.ctx, f.owner, toBob.Invite.ID); err != nil {
		t.Fatal(err)
	}

	wantMessage(t, invites.Cancel(f.ctx, f.owner, toBob.Invite.ID), "Invite is cancelled")

	_, err = invites.Accept(f.ctx, f.bob, toBob.Token)
	wantMessage(t, err, "Invite is cancelled")

	if err := invites.Decline(f.ctx, f.carol, toCarol.Token); err != nil {
		t.Fatal(err)
	}

	list, err := service.NewActivityService(f.ctx).Query(f.ctx, f.wsID, typesQuery(string(model.EventInviteCancelled)))
	if err != nil {
		t.Fatal(err)
	}

	if len(list.Items) != 2 || list.Items[0].Actor.ID != f.carol {
		t.Errorf("unexpected cancel activities %+v", list.Items)
	}
}

// TestInvitePreview 落地页状态.
func TestInvitePreview(t *testing.T) {
	f := newInviteFixture(t)
	invites := service.NewInviteService(f.ctx)

	created, err := invites.Create(f.ctx, f.wsID, f.owner, "bob@example.com", "member", time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	p, err := invites.Preview(f.ctx, "", created.Token)
	if err != nil {
		t.Fatal(err)
	}

	if p.Status != types.InvitePreviewValid || p.WorkspaceName != "Personal" || p.InviterName != "Alice" || p.MemberCount != 1 {
		t.Errorf("unexpected preview %+v", p)
	}

	// 他人登录查看不泄露邀请信息
	p, _ = invites.Preview(f.ctx, f.carol, created.Token)
	if p.Status != types.InvitePreviewInvalid || p.WorkspaceID != "" {
		t.Errorf("mismatched viewer should see invalid, got %+v", p)
	}

	p, _ = invites.Preview(f.ctx, "", "unknown")
	if p.Status != types.InvitePreviewInvalid {
		t.Errorf("unknown token = %s", p.Status)
	}

	f.advance(2 * time.Hour)

	p, _ = invites.Preview(f.ctx, f.bob, created.Token)
	if p.Status != types.InvitePreviewExpired {
		t.Errorf("expired invite = %s", p.Status)
	}
}

// TestInviteTokenCollision 令牌冲突时重试，全部冲突则失败.
func TestInviteTokenCollision(t *testing.T) {
	f := newInviteFixture(t)
	invites := service.NewInviteService(f.ctx)

	fixed := func() (string, string, error) { return "fixed", "fixed-hash", nil }

	restore := service.SetInviteTokenGenerator(fixed)
	defer restore()

	if _, err := invites.Create(f.ctx, f.wsID, f.owner, "bob@example.com", "member", 0); err != nil {
		t.Fatal(err)
	}

	_, err := invites.Create(f.ctx, f.wsID, f.owner, "carol@example.com", "member", 0)
	wantKind(t, err, errs.KindInternal)

	calls := 0
	service.SetInviteTokenGenerator(func() (string, string, error) {
		calls++
		if calls < 3 {
			return fixed()
		}

		return "fresh", "fresh-hash", nil
	})

	if _, err := invites.Create(f.ctx, f.wsID, f.owner, "carol@example.com", "member", 0); err != nil {
		t.Fatalf("retry should succeed: %v", err)
	}

	if calls != 3 {
		t.Errorf("generator calls = %d", calls)
	}
}

// TestPendingInviteUniqueIndex 部分唯一索引只约束 pending 状态.
func TestPendingInviteUniqueIndex(t *testing.T) {
	f := newInviteFixture(t)

	if _, err := service.NewInviteService(f.ctx).Create(f.ctx, f.wsID, f.owner, "bob@example.com", "member", 0); err != nil {
		t.Fatal(err)
	}

	dup := &model.WorkspaceInvite{WorkspaceID: f.wsID, Email: "bob@example.com", InvitedBy: f.owner,
		TokenHash: "second-pending", Status: model.InvitePending}
	if err := f.db.Create(dup).Error; !db.IsUniqueViolation(err) {
		t.Fatalf("second pending invite: err = %v", err)
	}

	done := &model.WorkspaceInvite{WorkspaceID: f.wsID, Email: "bob@example.com", InvitedBy: f.owner,
		TokenHash: "old-cancelled", Status: model.InviteCancelled}
	if err := f.db.Create(done).Error; err != nil {
		t.Fatalf("cancelled invite rejected: %v", err)
	}
}

// TestCreateInviteInsertConflict 计数检查之后另一条 pending 抢先写入，插入时的唯一冲突映射为重复邀请.
func TestCreateInviteInsertConflict(t *testing.T) {
	f := newInviteFixture(t)
	invites := service.NewInviteService(f.ctx)

	const cb = "teamvault:racing_invite"

	raced := false
	err := f.db.Callback().Create().Before("gorm:create").Register(cb, func(tx *gorm.DB) {
		if raced || tx.Statement.Table != "workspace_invites" {
			return
		}

		raced = true
		now := time.Now().UTC()

		if err := tx.Session(&gorm.Session{NewDB: true}).Exec(
			"INSERT INTO workspace_invites (id, workspace_id, email, invited_by, role, token_hash, status, created_at, updated_at) "+
				"VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
			model.NewID(), f.wsID, "bob@example.com", f.owner, model.MemberRole, "racing-hash",
			string(model.InvitePending), now, now,
		).Error; err != nil {
			_ = tx.AddError(err)
		}
	})
	if err != nil {
		t.Fatal(err)
	}

	_, err = invites.Create(f.ctx, f.wsID, f.owner, "bob@example.com", "member", 0)

	if rmErr := f.db.Callback().Create().Remove(cb); rmErr != nil {
		t.Fatal(rmErr)
	}

	if !raced {
		t.Fatal("conflicting insert did not run")
	}

	wantKind(t, err, errs.KindInvalid)
	wantMessage(t, err, "A pending invite already exists for this email")

	var n int64
	f.db.Model(&model.WorkspaceInvite{}).Where("workspace_id = ? AND email = ?", f.wsID, "bob@example.com").Count(&n)

	if n != 0 {
		t.Fatalf("rolled back transaction left %d invites", n)
	}

	if _, err := invites.Create(f.ctx, f.wsID, f.owner, "bob@example.com", "member", 0); err != nil {
		t.Fatalf("create after conflict: %v", err)
	}
}
