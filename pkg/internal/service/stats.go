package service

import (
	"context"
	"sort"
	"strings"

	"github.com/yeisme/teamvault/pkg/internal/errs"
	"github.com/yeisme/teamvault/pkg/internal/model"
	"github.com/yeisme/teamvault/pkg/internal/types"
)

// StatsService 工作区文件统计（基于 files 表聚合）.
type StatsService struct {
	*Deps
}

func NewStatsService(c context.Context) *StatsService {
	return &StatsService{Deps: mustDeps(c)}
}

// 通用聚合结果行.
type aggRow struct {
	Key string `gorm:"column:k"`
	Cnt int64  `gorm:"column:cnt"`
	Sum int64  `gorm:"column:sum"`
}

// Workspace 所有者或成员可见.
func (s *StatsService) Workspace(ctx context.Context, userID, workspaceID string) (*types.WorkspaceStats, error) {
	ws, _, err := requireRole(s.db(ctx), workspaceID, userID, Member, "")
	if err != nil {
		return nil, err
	}

	summary, err := s.FilesSummary(ctx, ws.ID)
	if err != nil {
		return nil, errs.Internal(err)
	}

	byType, err := s.FilesByType(ctx, ws.ID)
	if err != nil {
		return nil, errs.Internal(err)
	}

	return &types.WorkspaceStats{Summary: summary, ByType: byType}, nil
}

// FilesSummary 一次聚合统计已完成、待上传与回收的数量和大小.
func (s *StatsService) FilesSummary(ctx context.Context, workspaceID string) (types.StatsFilesSummary, error) {
	var agg struct {
		Total        int64 `gorm:"column:total"`
		ActiveCount  int64 `gorm:"column:active_count"`
		PendingCount int64 `gorm:"column:pending_count"`
		TrashedCount int64 `gorm:"column:trashed_count"`
		ActiveSize   int64 `gorm:"column:active_size"`
		TrashedSize  int64 `gorm:"column:trashed_size"`
	}

	// SQLite/MySQL/Postgres 兼容：COALESCE 避免空表时的 NULL
	selectExpr := "COUNT(*) AS total, " +
		"COALESCE(SUM(CASE WHEN deleted_at IS NULL AND status = 'completed' THEN 1 ELSE 0 END),0) AS active_count, " +
		"COALESCE(SUM(CASE WHEN deleted_at IS NULL AND status = 'pending' THEN 1 ELSE 0 END),0) AS pending_count, " +
		"COALESCE(SUM(CASE WHEN deleted_at IS NOT NULL THEN 1 ELSE 0 END),0) AS trashed_count, " +
		"COALESCE(SUM(CASE WHEN deleted_at IS NULL AND status = 'completed' THEN size ELSE 0 END),0) AS active_size, " +
		"COALESCE(SUM(CASE WHEN deleted_at IS NOT NULL THEN size ELSE 0 END),0) AS trashed_size"

	if err := s.db(ctx).Model(&model.File{}).
		Unscoped(). // 包含软删除数据
		Select(selectExpr).
		Where("workspace_id = ?", workspaceID).
		Scan(&agg).Error; err != nil {
		return types.StatsFilesSummary{}, err
	}

	return types.StatsFilesSummary{
		TotalFiles:   int(agg.Total),
		ActiveFiles:  int(agg.ActiveCount),
		PendingFiles: int(agg.PendingCount),
		TrashedFiles: int(agg.TrashedCount),
		ActiveSize:   agg.ActiveSize,
		TrashedSize:  agg.TrashedSize,
	}, nil
}

// FilesByType 已完成文件按 content_type 一级类型（image、video、application）聚合.
// 先按完整类型分组，再在内存中折叠前缀，避免依赖各数据库不同的字符串函数.
func (s *StatsService) FilesByType(ctx context.Context, workspaceID string) ([]types.StatsTypeItem, error) {
	var rows []aggRow

	err := s.db(ctx).Model(&model.File{}).
		Select("COALESCE(content_type,'') AS k, COUNT(*) AS cnt, COALESCE(SUM(size),0) AS sum").
		Where("workspace_id = ? AND status = ?", workspaceID, model.FileCompleted).
		Group("content_type").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	agg := map[string]*types.StatsTypeItem{}
	for _, r := range rows {
		k := topLevelType(r.Key)

		it, ok := agg[k]
		if !ok {
			it = &types.StatsTypeItem{Type: k}
			agg[k] = it
		}

		it.Count += int(r.Cnt)
		it.Size += r.Sum
	}

	out := make([]types.StatsTypeItem, 0, len(agg))
	for _, it := range agg {
		out = append(out, *it)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })

	return out, nil
}

func topLevelType(ct string) string {
	ct = strings.TrimSpace(ct)
	if ct == "" {
		return "unknown"
	}

	if major, _, ok := strings.Cut(ct, "/"); ok && major != "" {
		return strings.ToLower(major)
	}

	return strings.ToLower(ct)
}
