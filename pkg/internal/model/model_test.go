package model_test

import (
	"testing"
	"time"

	"github.com/yeisme/teamvault/pkg/internal/model"
)

// TestEventTypeEntity 每个事件类型都映射到实体类型.
func TestEventTypeEntity(t *testing.T) {
	cases := map[model.EventType]model.EntityType{
		model.EventWorkspaceDeleted: model.EntityWorkspace,
		model.EventFileDownloaded:   model.EntityFile,
		model.EventMemberRemoved:    model.EntityMember,
		model.EventInviteCancelled:  model.EntityInvite,
	}

	for ev, want := range cases {
		if !ev.Valid() || ev.Entity() != want {
			t.Errorf("%s: valid=%v entity=%s", ev, ev.Valid(), ev.Entity())
		}
	}

	if model.EventType("file.exploded").Valid() {
		t.Error("unknown event type should be invalid")
	}
}

// TestMetadataScan 测试从数据库文本读取.
func TestMetadataScan(t *testing.T) {
	var m model.Metadata
	if err := m.Scan(`{"filename":"a.txt","size":12}`); err != nil {
		t.Fatal(err)
	}

	if m["filename"] != "a.txt" {
		t.Errorf("unexpected metadata %v", m)
	}

	if err := m.Scan(nil); err != nil || m != nil {
		t.Errorf("nil should reset metadata, got %v %v", m, err)
	}

	if err := m.Scan(42); err == nil {
		t.Error("expected error for unsupported type")
	}

	v, err := model.Metadata(nil).Value()
	if err != nil || v != nil {
		t.Errorf("nil metadata should be NULL, got %v %v", v, err)
	}
}

// TestInviteExpired 测试过期判断.
func TestInviteExpired(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	if (&model.WorkspaceInvite{}).Expired(now) {
		t.Error("invite without expiry never expires")
	}

	if !(&model.WorkspaceInvite{ExpiresAt: &past}).Expired(now) {
		t.Error("past expiry should be expired")
	}

	if (&model.WorkspaceInvite{ExpiresAt: &future}).Expired(now) {
		t.Error("future expiry should not be expired")
	}
}

// TestNewID ULID 为 26 位且单调可排序.
func TestNewID(t *testing.T) {
	a := model.NewID()

	time.Sleep(2 * time.Millisecond)

	b := model.NewID()
	if len(a) != 26 || len(b) != 26 || a >= b {
		t.Errorf("unexpected ids %s %s", a, b)
	}
}
