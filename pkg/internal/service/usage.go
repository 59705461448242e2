package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yeisme/teamvault/pkg/cache"
	"github.com/yeisme/teamvault/pkg/internal/errs"
	"github.com/yeisme/teamvault/pkg/internal/model"
	"github.com/yeisme/teamvault/pkg/internal/types"
	nlog "github.com/yeisme/teamvault/pkg/log"
	"github.com/yeisme/teamvault/pkg/metrics"
	"github.com/yeisme/teamvault/pkg/plan"
)

// UsageCacheTTL 用量快照缓存有效期.
const UsageCacheTTL = 5 * time.Minute

// 同一用户的并发重算合并为一次.
var usageFlight singleflight.Group

// UsageService 预聚合用量与计划限额校验.
type UsageService struct {
	*Deps
}

func NewUsageService(c context.Context) *UsageService {
	return &UsageService{Deps: mustDeps(c)}
}

// RefreshUserUsage 重算用户拥有的工作区中已完成且未删除文件的数量与大小，写回 user_usage.
func (s *UsageService) RefreshUserUsage(ctx context.Context, userID string) (types.UsageSnapshot, error) {
	v, err, _ := usageFlight.Do(userID, func() (any, error) {
		return s.refresh(ctx, userID)
	})
	if err != nil {
		return types.UsageSnapshot{}, err
	}

	return v.(types.UsageSnapshot), nil
}

func (s *UsageService) refresh(ctx context.Context, userID string) (types.UsageSnapshot, error) {
	var agg struct {
		Cnt int64 `gorm:"column:cnt"`
		Sum int64 `gorm:"column:sum"`
	}

	err := s.db(ctx).Model(&model.File{}).
		Select("COUNT(files.id) AS cnt, COALESCE(SUM(files.size),0) AS sum").
		Joins("JOIN workspaces ON workspaces.id = files.workspace_id").
		Where("workspaces.owner_id = ? AND files.status = ?", userID, model.FileCompleted).
		Scan(&agg).Error
	if err != nil {
		return types.UsageSnapshot{}, fmt.Errorf("aggregate usage: %w", err)
	}

	row := model.UserUsage{
		UserID:      userID,
		FileCount:   agg.Cnt,
		TotalBytes:  agg.Sum,
		RefreshedAt: s.now(),
	}

	err = s.db(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"file_count", "total_bytes", "refreshed_at"}),
	}).Create(&row).Error
	if err != nil {
		return types.UsageSnapshot{}, fmt.Errorf("store usage: %w", err)
	}

	snap := types.UsageSnapshot{
		UserID:      userID,
		FileCount:   row.FileCount,
		TotalBytes:  row.TotalBytes,
		RefreshedAt: row.RefreshedAt,
	}

	if s.Cache != nil {
		if err := cache.Set(ctx, s.Cache, cache.UsageKey(userID), snap, UsageCacheTTL); err != nil {
			nlog.Ctx(ctx).Debug().Err(err).Msg("cache usage snapshot")
		}
	}

	return snap, nil
}

// RefreshAll 重算全部用户，返回处理数量.
func (s *UsageService) RefreshAll(ctx context.Context) (int, error) {
	var ids []string
	if err := s.db(ctx).Model(&model.User{}).Order("id").Pluck("id", &ids).Error; err != nil {
		return 0, fmt.Errorf("list users: %w", err)
	}

	for i, id := range ids {
		if err := ctx.Err(); err != nil {
			return i, err
		}

		if _, err := s.RefreshUserUsage(ctx, id); err != nil {
			return i, err
		}
	}

	return len(ids), nil
}

// snapshot 优先读缓存.
func (s *UsageService) snapshot(ctx context.Context, userID string) (types.UsageSnapshot, error) {
	if s.Cache == nil {
		return s.RefreshUserUsage(ctx, userID)
	}

	return cache.GetOrSet(ctx, s.Cache, cache.UsageKey(userID), func() (types.UsageSnapshot, error) {
		return s.RefreshUserUsage(ctx, userID)
	}, UsageCacheTTL)
}

func (s *UsageService) userPlan(ctx context.Context, userID string) (plan.Plan, error) {
	return loadPlan(s.db(ctx), userID)
}

func loadPlan(db *gorm.DB, userID string) (plan.Plan, error) {
	var u model.User
	if err := db.Select("plan").Where("id = ?", userID).Take(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return plan.Free, errs.NotFound("User not found")
		}

		return plan.Free, errs.Internal(err)
	}

	return plan.Parse(u.Plan), nil
}

// CheckStorageLimit 总是先重算，再判断 current + additional 是否超过计划存储.
func (s *UsageService) CheckStorageLimit(ctx context.Context, userID string, additional int64) error {
	p, err := s.userPlan(ctx, userID)
	if err != nil {
		return err
	}

	snap, err := s.RefreshUserUsage(ctx, userID)
	if err != nil {
		return errs.Internal(err)
	}

	return limitErr(plan.CheckStorage(p, snap.TotalBytes, additional))
}

// CheckFileSizeLimit 单文件大小.
func CheckFileSizeLimit(p plan.Plan, size int64) error {
	return limitErr(plan.CheckFileSize(p, size))
}

// CheckWorkspaceLimit count 为已拥有的工作区数量.
func CheckWorkspaceLimit(p plan.Plan, count int64) error {
	return limitErr(plan.CheckWorkspaceCount(p, count))
}

// CheckInviteAllowed 计划是否允许邀请成员.
func CheckInviteAllowed(p plan.Plan) error {
	return limitErr(plan.CheckInviteAllowed(p))
}

func limitErr(err error) error {
	if err == nil {
		return nil
	}

	var le *plan.LimitError
	if errors.As(err, &le) {
		metrics.LimitRejections.WithLabelValues(string(le.Type)).Inc()
	}

	return errs.FromLimit(err)
}

// GetUsage 用量概览，百分比上限 100.
func (s *UsageService) GetUsage(ctx context.Context, userID string) (*types.UsageResponse, error) {
	p, err := s.userPlan(ctx, userID)
	if err != nil {
		return nil, err
	}

	snap, err := s.snapshot(ctx, userID)
	if err != nil {
		return nil, errs.Internal(err)
	}

	limits := p.Limits()

	return &types.UsageResponse{
		Used:       snap.TotalBytes,
		Total:      limits.StorageBytes,
		Plan:       p,
		Percentage: plan.Percentage(snap.TotalBytes, limits.StorageBytes),
		FileCount:  snap.FileCount,
		Limits:     limits,
	}, nil
}

// Plans 全部计划及上限，按存储容量升序.
func Plans() []types.PlanInfo {
	all := plan.All()

	out := make([]types.PlanInfo, 0, len(all))
	for p, l := range all {
		out = append(out, types.PlanInfo{Plan: p, Limits: l})
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Limits.StorageBytes < out[j].Limits.StorageBytes
	})

	return out
}

// SetPlan 修改用户计划（计费系统之外的管理入口）.
func (s *UsageService) SetPlan(ctx context.Context, email string, p plan.Plan) error {
	if !p.Valid() {
		return errs.Invalid(fmt.Sprintf("Unknown plan %q", p))
	}

	var u model.User
	if err := s.db(ctx).Where("email = ?", normalizeEmail(email)).Take(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errs.NotFound("User not found")
		}

		return errs.Internal(err)
	}

	if err := s.db(ctx).Model(&u).Update("plan", string(p)).Error; err != nil {
		return errs.Internal(err)
	}

	s.invalidateUsage(ctx, u.ID)

	return nil
}
