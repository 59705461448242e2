package service_test

import (
	"testing"

	"github.com/yeisme/teamvault/pkg/internal/errs"
	"github.com/yeisme/teamvault/pkg/internal/model"
	"github.com/yeisme/teamvault/pkg/internal/service"
)

// TestMembers 所有者排在首位；只有所有者能移除成员.
func TestMembers(t *testing.T) {
	e := newEnv(t)
	owner, wsID := e.register("Alice", "alice@example.com")
	bob, _ := e.register("Bob", "bob@example.com")
	carol, _ := e.register("Carol", "carol@example.com")
	e.addMember(wsID, bob)
	e.addMember(wsID, carol)

	members := service.NewMemberService(e.ctx)

	list, err := members.List(e.ctx, carol, wsID)
	if err != nil {
		t.Fatal(err)
	}

	if len(list) != 3 || !list[0].IsOwner || list[0].UserID != owner || list[0].Role != "owner" {
		t.Fatalf("unexpected members %+v", list)
	}

	if list[1].Email != "bob@example.com" || list[1].Role != model.MemberRole {
		t.Errorf("unexpected member %+v", list[1])
	}

	wantMessage(t, members.Remove(e.ctx, bob, wsID, carol), "Only workspace owners can remove members")
	wantMessage(t, members.Remove(e.ctx, owner, wsID, owner), "Cannot remove the workspace owner")

	if err := service.NewWorkspaceService(e.ctx).SetLastActive(e.ctx, bob, wsID); err != nil {
		t.Fatal(err)
	}

	if err := members.Remove(e.ctx, owner, wsID, bob); err != nil {
		t.Fatal(err)
	}

	wantKind(t, members.Remove(e.ctx, owner, wsID, bob), errs.KindNotFound)

	if last, _ := service.NewWorkspaceService(e.ctx).LastActive(e.ctx, bob); last != nil {
		t.Errorf("removed member still points at workspace %s", *last)
	}

	_, err = members.List(e.ctx, bob, wsID)
	wantKind(t, err, errs.KindForbidden)

	list2, err := service.NewActivityService(e.ctx).Query(e.ctx, wsID, typesQuery(string(model.EventMemberRemoved)))
	if err != nil {
		t.Fatal(err)
	}

	if len(list2.Items) != 1 || list2.Items[0].Metadata["memberEmail"] != "bob@example.com" {
		t.Errorf("unexpected activity %+v", list2.Items)
	}
}
