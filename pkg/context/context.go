// Package context 在 request.Context 中携带进程级资源：存储管理器与定时任务调度器.
// 业务服务依赖走 service.WithDeps，这里只放健康检查与管理接口需要的底层对象.
package context

import (
	"context"

	"github.com/yeisme/teamvault/pkg/internal/storage"
	"github.com/yeisme/teamvault/pkg/scheduler"
)

type (
	managerKey   struct{}
	schedulerKey struct{}
)

func value[T any](ctx context.Context, key any) T {
	v, _ := ctx.Value(key).(T)
	return v
}

// WithStorageManager 注入存储管理器.
func WithStorageManager(ctx context.Context, mgr *storage.Manager) context.Context {
	return context.WithValue(ctx, managerKey{}, mgr)
}

// GetManager 未注入时返回 nil.
func GetManager(ctx context.Context) *storage.Manager {
	return value[*storage.Manager](ctx, managerKey{})
}

// WithScheduler 注入调度器.
func WithScheduler(ctx context.Context, s *scheduler.Scheduler) context.Context {
	return context.WithValue(ctx, schedulerKey{}, s)
}

// GetScheduler 未注入时返回 nil.
func GetScheduler(ctx context.Context) *scheduler.Scheduler {
	return value[*scheduler.Scheduler](ctx, schedulerKey{})
}
