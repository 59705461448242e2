package service_test

import (
	"testing"

	"github.com/yeisme/teamvault/pkg/internal/errs"
	"github.com/yeisme/teamvault/pkg/internal/model"
	"github.com/yeisme/teamvault/pkg/internal/service"
)

// TestWorkspaceStats 汇总与按一级类型分组.
func TestWorkspaceStats(t *testing.T) {
	e := newEnv(t)
	uid, wsID := e.register("Alice", "alice@example.com")
	stranger, _ := e.register("Eve", "eve@example.com")

	e.completedFile(wsID, uid, "a.png", "image/png", 10)
	e.completedFile(wsID, uid, "b.jpg", "image/JPEG", 20)
	e.completedFile(wsID, uid, "c.pdf", "application/pdf", 5)

	pending := e.completedFile(wsID, uid, "d.txt", "text/plain", 3)
	e.db.Model(pending).Update("status", model.FilePending)

	trashed := e.completedFile(wsID, uid, "e.txt", "text/plain", 7)
	e.db.Delete(trashed)

	stats := service.NewStatsService(e.ctx)

	got, err := stats.Workspace(e.ctx, uid, wsID)
	if err != nil {
		t.Fatal(err)
	}

	s := got.Summary
	if s.TotalFiles != 5 || s.ActiveFiles != 3 || s.PendingFiles != 1 || s.TrashedFiles != 1 || s.ActiveSize != 35 || s.TrashedSize != 7 {
		t.Errorf("summary = %+v", s)
	}

	if len(got.ByType) != 2 {
		t.Fatalf("by type = %+v", got.ByType)
	}

	if got.ByType[0].Type != "application" || got.ByType[1].Type != "image" || got.ByType[1].Count != 2 || got.ByType[1].Size != 30 {
		t.Errorf("by type = %+v", got.ByType)
	}

	_, err = stats.Workspace(e.ctx, stranger, wsID)
	wantKind(t, err, errs.KindForbidden)
}
