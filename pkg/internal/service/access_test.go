package service_test

import (
	"testing"

	"github.com/yeisme/teamvault/pkg/internal/errs"
	"github.com/yeisme/teamvault/pkg/internal/service"
)

// TestResolveRole 所有者优先于成员，无关系为 NoAccess.
func TestResolveRole(t *testing.T) {
	e := newEnv(t)
	owner, wsID := e.register("Owner", "owner@example.com")
	member, _ := e.register("Member", "member@example.com")
	stranger, _ := e.register("Stranger", "stranger@example.com")
	e.addMember(wsID, member)

	access := service.NewAccessService(e.ctx)

	cases := []struct {
		user string
		want service.Role
	}{
		{owner, service.Owner},
		{member, service.Member},
		{stranger, service.NoAccess},
	}

	for _, c := range cases {
		got, err := access.Resolve(e.ctx, wsID, c.user)
		if err != nil {
			t.Fatal(err)
		}

		if got != c.want {
			t.Errorf("user %s: role %s, want %s", c.user, got, c.want)
		}
	}

	if ok, _ := access.IsMember(e.ctx, wsID, owner); ok {
		t.Error("owner should not count as member")
	}

	if ok, _ := access.HasAccess(e.ctx, wsID, member); !ok {
		t.Error("member should have access")
	}

	if ok, _ := access.IsOwner(e.ctx, "missing", owner); ok {
		t.Error("missing workspace has no owner")
	}
}

// TestRequire 不存在为 NotFound，无关系为 Forbidden.
func TestRequire(t *testing.T) {
	e := newEnv(t)
	_, wsID := e.register("Owner", "owner@example.com")
	member, _ := e.register("Member", "member@example.com")
	stranger, _ := e.register("Stranger", "stranger@example.com")
	e.addMember(wsID, member)

	access := service.NewAccessService(e.ctx)

	_, _, err := access.Require(e.ctx, "missing", member, service.Member)
	wantKind(t, err, errs.KindNotFound)

	_, _, err = access.Require(e.ctx, wsID, stranger, service.Member)
	wantKind(t, err, errs.KindForbidden)

	_, _, err = access.Require(e.ctx, wsID, member, service.Owner)
	wantKind(t, err, errs.KindForbidden)

	ws, role, err := access.Require(e.ctx, wsID, member, service.Member)
	if err != nil || ws.ID != wsID || role != service.Member {
		t.Fatalf("unexpected %v %v %v", ws, role, err)
	}
}
