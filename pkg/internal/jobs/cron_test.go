package jobs_test

import (
	"context"
	"io"
	"os"
	"testing"
	"time"

	"github.com/yeisme/teamvault/pkg/configs"
	"github.com/yeisme/teamvault/pkg/internal/jobs"
	"github.com/yeisme/teamvault/pkg/internal/model"
	"github.com/yeisme/teamvault/pkg/internal/service/servicetest"
	"github.com/yeisme/teamvault/pkg/log"
	"github.com/yeisme/teamvault/pkg/scheduler"
)

func TestMain(m *testing.M) {
	log.SetOutput(io.Discard)
	os.Exit(m.Run())
}

// TestBuildDefaults 未配置时使用默认 cron 表达式.
func TestBuildDefaults(t *testing.T) {
	got := map[string]string{}
	for _, j := range jobs.Build(configs.JobsConfig{}) {
		got[j.Name] = j.Cron
	}

	want := map[string]string{
		jobs.JobInviteExpiry: jobs.CronInviteExpiry,
		jobs.JobUsageRefresh: jobs.CronUsageRefresh,
		jobs.JobPurgeDeleted: jobs.CronPurgeDeleted,
		jobs.JobStaleUploads: jobs.CronStaleUploads,
	}

	for name, cron := range want {
		if got[name] != cron {
			t.Errorf("job %s cron = %q, want %q", name, got[name], cron)
		}
	}

	custom := jobs.Build(configs.JobsConfig{InviteExpiryCron: "*/5 * * * *"})
	if custom[0].Name != jobs.JobInviteExpiry || custom[0].Cron != "*/5 * * * *" {
		t.Errorf("custom cron not applied: %+v", custom[0])
	}
}

// TestRunByNameUnknown 未知任务名返回错误.
func TestRunByNameUnknown(t *testing.T) {
	if err := jobs.RunByName(context.Background(), configs.JobsConfig{}, "nope"); err == nil {
		t.Fatal("expected error for unknown job")
	}

	if len(jobs.Names()) != 4 {
		t.Errorf("names = %v", jobs.Names())
	}
}

// TestRunInviteExpiry 过期的 pending 邀请被置为 expired，未过期的保持不变.
func TestRunInviteExpiry(t *testing.T) {
	env := servicetest.New(t)
	ctx := env.Context()

	owner := &model.User{Email: "owner@example.com", Name: "Owner", Plan: "pro", PasswordHash: "x"}
	if err := env.DB.Create(owner).Error; err != nil {
		t.Fatal(err)
	}

	ws := &model.Workspace{Name: "Team", OwnerID: owner.ID}
	if err := env.DB.Create(ws).Error; err != nil {
		t.Fatal(err)
	}

	past := time.Now().UTC().Add(-time.Hour)
	future := time.Now().UTC().Add(time.Hour)

	expired := &model.WorkspaceInvite{WorkspaceID: ws.ID, Email: "a@example.com", Role: "member",
		TokenHash: "h1", Status: model.InvitePending, InvitedBy: owner.ID, ExpiresAt: &past}
	live := &model.WorkspaceInvite{WorkspaceID: ws.ID, Email: "b@example.com", Role: "member",
		TokenHash: "h2", Status: model.InvitePending, InvitedBy: owner.ID, ExpiresAt: &future}

	for _, inv := range []*model.WorkspaceInvite{expired, live} {
		if err := env.DB.Create(inv).Error; err != nil {
			t.Fatal(err)
		}
	}

	if err := jobs.RunByName(ctx, configs.JobsConfig{}, jobs.JobInviteExpiry); err != nil {
		t.Fatal(err)
	}

	var got model.WorkspaceInvite
	if err := env.DB.Where("id = ?", expired.ID).Take(&got).Error; err != nil {
		t.Fatal(err)
	}

	if got.Status != model.InviteExpired {
		t.Errorf("expired invite status = %s", got.Status)
	}

	var stillLive model.WorkspaceInvite
	if err := env.DB.Where("id = ?", live.ID).Take(&stillLive).Error; err != nil {
		t.Fatal(err)
	}

	if stillLive.Status != model.InvitePending {
		t.Errorf("live invite status = %s", stillLive.Status)
	}
}

// TestRunMaintenanceOnEmptyDB 空库上的清理任务不报错.
func TestRunMaintenanceOnEmptyDB(t *testing.T) {
	env := servicetest.New(t)
	ctx := env.Context()

	for _, name := range []string{jobs.JobUsageRefresh, jobs.JobPurgeDeleted, jobs.JobStaleUploads} {
		if err := jobs.RunByName(ctx, configs.JobsConfig{}, name); err != nil {
			t.Errorf("%s: %v", name, err)
		}
	}
}

// TestRegisterCronJobs 注册后可在调度器中按名称查询.
func TestRegisterCronJobs(t *testing.T) {
	env := servicetest.New(t)

	sched, err := scheduler.NewScheduler()
	if err != nil {
		t.Fatal(err)
	}

	t.Cleanup(func() { _ = sched.Stop() })

	if err := jobs.RegisterCronJobs(context.Background(), sched, configs.JobsConfig{Enabled: true}); err == nil {
		t.Fatal("expected error without deps in context")
	}

	if err := jobs.RegisterCronJobs(env.Context(), sched, configs.JobsConfig{Enabled: true}); err != nil {
		t.Fatal(err)
	}

	infos := sched.GetJobInfos()
	if len(infos) != 4 {
		t.Fatalf("registered %d jobs", len(infos))
	}

	if infos[0].Name != jobs.JobPurgeDeleted {
		t.Errorf("jobs not sorted by name: %s", infos[0].Name)
	}
}
