package service_test

import (
	"errors"
	"testing"

	"github.com/yeisme/teamvault/pkg/internal/errs"
	"github.com/yeisme/teamvault/pkg/internal/model"
	"github.com/yeisme/teamvault/pkg/internal/service"
	"github.com/yeisme/teamvault/pkg/internal/types"
)

// TestRecordActivity 实体类型由事件推导，未知事件拒绝.
func TestRecordActivity(t *testing.T) {
	e := newEnv(t)
	uid, wsID := e.register("Alice", "alice@example.com")

	activity := service.NewActivityService(e.ctx)

	a, err := activity.Record(e.ctx, service.RecordInput{
		WorkspaceID: wsID,
		ActorID:     uid,
		EventType:   model.EventFileDownloaded,
		EntityID:    "f1",
		Metadata:    model.Metadata{"filename": "a.txt"},
	})
	if err != nil {
		t.Fatal(err)
	}

	if a.EntityType != model.EntityFile {
		t.Errorf("entity type = %s", a.EntityType)
	}

	_, err = activity.Record(e.ctx, service.RecordInput{WorkspaceID: wsID, ActorID: uid, EventType: "file.exploded"})
	wantKind(t, err, errs.KindInvalid)

	item, err := activity.GetByID(e.ctx, wsID, a.ID)
	if err != nil {
		t.Fatal(err)
	}

	if item.Actor.Name != "Alice" || item.Actor.Email != "alice@example.com" || item.Metadata["filename"] != "a.txt" {
		t.Errorf("unexpected item %+v", item)
	}

	_, otherWS := e.register("Bob", "bob@example.com")

	_, err = activity.GetByID(e.ctx, otherWS, a.ID)
	wantKind(t, err, errs.KindNotFound)
}

// TestActivityAppendOnly 活动记录不能修改或删除.
func TestActivityAppendOnly(t *testing.T) {
	e := newEnv(t)
	_, wsID := e.register("Alice", "alice@example.com")

	var a model.WorkspaceActivity
	if err := e.db.Where("workspace_id = ?", wsID).Take(&a).Error; err != nil {
		t.Fatal(err)
	}

	if err := e.db.Model(&a).Update("event_type", model.EventFileDeleted).Error; !errors.Is(err, model.ErrImmutableActivity) {
		t.Errorf("update should be rejected, got %v", err)
	}

	if err := e.db.Delete(&a).Error; !errors.Is(err, model.ErrImmutableActivity) {
		t.Errorf("delete should be rejected, got %v", err)
	}
}

// TestQueryActivity 过滤、倒序与分页上限.
func TestQueryActivity(t *testing.T) {
	e := newEnv(t)
	uid, wsID := e.register("Alice", "alice@example.com")

	activity := service.NewActivityService(e.ctx)

	for _, ev := range []model.EventType{model.EventFileUploaded, model.EventFileRenamed, model.EventInviteSent} {
		if _, err := activity.Record(e.ctx, service.RecordInput{WorkspaceID: wsID, ActorID: uid, EventType: ev}); err != nil {
			t.Fatal(err)
		}
	}

	all, err := activity.Query(e.ctx, wsID, types.ActivityQuery{})
	if err != nil {
		t.Fatal(err)
	}

	if all.Limit != 50 || len(all.Items) != 4 || all.Items[0].EventType != string(model.EventInviteSent) {
		t.Errorf("unexpected list %+v", all)
	}

	files, _ := activity.Query(e.ctx, wsID, types.ActivityQuery{EntityType: "file"})
	if len(files.Items) != 2 {
		t.Errorf("file activities = %d", len(files.Items))
	}

	page, _ := activity.Query(e.ctx, wsID, types.ActivityQuery{Limit: 1000, Offset: 3})
	if page.Limit != 100 || len(page.Items) != 1 || page.Items[0].EventType != string(model.EventWorkspaceCreated) {
		t.Errorf("unexpected page %+v", page)
	}

	_, err = activity.Query(e.ctx, wsID, types.ActivityQuery{EventType: "bogus"})
	wantKind(t, err, errs.KindInvalid)
}
