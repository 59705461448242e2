package service_test

import (
	"testing"
	"time"

	"github.com/yeisme/teamvault/pkg/internal/model"
	"github.com/yeisme/teamvault/pkg/internal/service"
	"github.com/yeisme/teamvault/pkg/internal/types"
)

const retention = 30 * 24 * time.Hour

// TestPurgeDeleted 超过保留期的软删除文件先删对象再删记录，对象删除失败的保留.
func TestPurgeDeleted(t *testing.T) {
	e := newEnv(t)
	uid, wsID := e.register("Alice", "alice@example.com")

	gone := e.completedFile(wsID, uid, "a.txt", "text/plain", 1)
	stuck := e.completedFile(wsID, uid, "b.txt", "text/plain", 1)
	e.completedFile(wsID, uid, "c.txt", "text/plain", 1)

	e.db.Delete(gone)
	e.db.Delete(stuck)
	e.store.failDelete[stuck.StorageKey] = true

	m := service.NewMaintenanceService(e.ctx)

	n, err := m.PurgeDeleted(e.ctx, retention)
	if err != nil || n != 0 {
		t.Fatalf("within retention purged %d, %v", n, err)
	}

	e.advance(retention + time.Hour)

	n, err = m.PurgeDeleted(e.ctx, retention)
	if err != nil || n != 1 {
		t.Fatalf("purged %d, %v", n, err)
	}

	if d := e.store.Deleted(); len(d) != 1 || d[0] != gone.StorageKey {
		t.Errorf("deleted objects = %v", d)
	}

	var ids []string
	e.db.Unscoped().Model(&model.File{}).Order("id").Pluck("id", &ids)

	if len(ids) != 2 {
		t.Errorf("remaining rows = %v", ids)
	}

	for _, id := range ids {
		if id == gone.ID {
			t.Error("purged row still present")
		}
	}
}

// TestMarkStaleUploads 超时的 pending 上传置为 failed.
func TestMarkStaleUploads(t *testing.T) {
	e := newEnv(t)
	uid, wsID := e.register("Alice", "alice@example.com")

	up, err := service.NewFileService(e.ctx).RequestUpload(e.ctx, uid, wsID, types.UploadRequest{Filename: "a.txt", Size: 1})
	if err != nil {
		t.Fatal(err)
	}

	m := service.NewMaintenanceService(e.ctx)

	if n, _ := m.MarkStaleUploads(e.ctx, 24*time.Hour); n != 0 {
		t.Errorf("fresh upload marked stale")
	}

	e.advance(25 * time.Hour)

	n, err := m.MarkStaleUploads(e.ctx, 24*time.Hour)
	if err != nil || n != 1 {
		t.Fatalf("marked %d, %v", n, err)
	}

	var f model.File
	e.db.Where("id = ?", up.FileID).Take(&f)

	if f.Status != model.FileFailed {
		t.Errorf("status = %s", f.Status)
	}
}
