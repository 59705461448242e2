// Package jobs 负责注册与实现业务定时任务（基于 scheduler）.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/yeisme/teamvault/pkg/configs"
	"github.com/yeisme/teamvault/pkg/internal/service"
	"github.com/yeisme/teamvault/pkg/log"
	"github.com/yeisme/teamvault/pkg/scheduler"
)

const (
	defaultDeletedRetention    = 30 * 24 * time.Hour
	defaultPendingUploadMaxAge = 24 * time.Hour
)

// Job 一个可调度的业务任务.
type Job struct {
	Name string
	Cron string
	Run  scheduler.JobFunc
}

// Build 按配置构造全部任务；运行时从 ctx 取服务依赖.
//   - 每小时把过期的 pending 邀请置为 expired
//   - 每 30 分钟重算全部用户的用量
//   - 每天物理删除超过保留期的软删除文件
//   - 每小时把长时间未确认的上传标记为 failed
func Build(cfg configs.JobsConfig) []Job {
	retention := cfg.DeletedRetention
	if retention <= 0 {
		retention = defaultDeletedRetention
	}

	maxAge := cfg.PendingUploadMaxAge
	if maxAge <= 0 {
		maxAge = defaultPendingUploadMaxAge
	}

	return []Job{
		{Name: JobInviteExpiry, Cron: or(cfg.InviteExpiryCron, CronInviteExpiry), Run: runInviteExpiry},
		{Name: JobUsageRefresh, Cron: or(cfg.UsageRefreshCron, CronUsageRefresh), Run: runUsageRefresh},
		{Name: JobPurgeDeleted, Cron: or(cfg.PurgeDeletedCron, CronPurgeDeleted), Run: func(ctx context.Context) error {
			return runPurgeDeleted(ctx, retention)
		}},
		{Name: JobStaleUploads, Cron: or(cfg.StaleUploadCron, CronStaleUploads), Run: func(ctx context.Context) error {
			return runStaleUploads(ctx, maxAge)
		}},
	}
}

// RegisterCronJobs 把任务注册到调度器，baseCtx 需已通过 service.WithDeps 注入依赖.
func RegisterCronJobs(baseCtx context.Context, sched *scheduler.Scheduler, cfg configs.JobsConfig) error {
	if sched == nil {
		return errors.New("scheduler is nil")
	}

	if service.FromContext(baseCtx) == nil {
		return errors.New("service dependencies not in context")
	}

	if !cfg.Enabled {
		log.Logger().Info().Msg("background jobs disabled")
		return nil
	}

	for _, j := range Build(cfg) {
		if err := sched.AddCron(baseCtx, j.Name, j.Cron, j.Run); err != nil {
			return err
		}
	}

	return nil
}

// RunByName 同步执行一次指定任务，供命令行使用.
func RunByName(ctx context.Context, cfg configs.JobsConfig, name string) error {
	for _, j := range Build(cfg) {
		if j.Name == name {
			return j.Run(ctx)
		}
	}

	return fmt.Errorf("unknown job %q, available: %v", name, Names())
}

// Names 全部任务名，已排序.
func Names() []string {
	all := Build(configs.JobsConfig{})

	out := make([]string, 0, len(all))
	for _, j := range all {
		out = append(out, j.Name)
	}

	sort.Strings(out)

	return out
}

func runInviteExpiry(ctx context.Context) error {
	n, err := service.NewInviteService(ctx).ExpireSweep(ctx)
	if err != nil {
		return err
	}

	if n > 0 {
		log.Ctx(ctx).Info().Str("job", JobInviteExpiry).Int64("expired", n).Msg("expired pending invites")
	}

	return nil
}

func runUsageRefresh(ctx context.Context) error {
	n, err := service.NewUsageService(ctx).RefreshAll(ctx)
	if err != nil {
		return fmt.Errorf("refreshed %d users before failure: %w", n, err)
	}

	log.Ctx(ctx).Debug().Str("job", JobUsageRefresh).Int("users", n).Msg("usage refreshed")

	return nil
}

func runPurgeDeleted(ctx context.Context, retention time.Duration) error {
	n, err := service.NewMaintenanceService(ctx).PurgeDeleted(ctx, retention)
	if n > 0 {
		log.Ctx(ctx).Info().Str("job", JobPurgeDeleted).Int("purged", n).Dur("retention", retention).Msg("purged deleted files")
	}

	return err
}

func runStaleUploads(ctx context.Context, maxAge time.Duration) error {
	n, err := service.NewMaintenanceService(ctx).MarkStaleUploads(ctx, maxAge)
	if err != nil {
		return err
	}

	if n > 0 {
		log.Ctx(ctx).Info().Str("job", JobStaleUploads).Int64("failed", n).Msg("marked stale uploads as failed")
	}

	return nil
}

func or(v, def string) string {
	if v == "" {
		return def
	}

	return v
}
