package service

import (
	"context"
	"fmt"
	"time"

	"github.com/yeisme/teamvault/pkg/internal/model"
	nlog "github.com/yeisme/teamvault/pkg/log"
	"github.com/yeisme/teamvault/pkg/queue"
)

const purgeBatchSize = 200

// MaintenanceService 定时任务使用的清理操作.
type MaintenanceService struct {
	*Deps
}

func NewMaintenanceService(c context.Context) *MaintenanceService {
	return &MaintenanceService{Deps: mustDeps(c)}
}

type purgeRow struct {
	model.File
	OwnerID string `gorm:"column:owner_id"`
}

// PurgeDeleted 物理删除软删除超过 retention 的文件：先删对象，成功后再删记录.
// 对象删除失败的文件保留到下一轮.
func (s *MaintenanceService) PurgeDeleted(ctx context.Context, retention time.Duration) (int, error) {
	if s.Store == nil {
		return 0, errNoObjectStore
	}

	cutoff := s.now().Add(-retention)
	purged := 0

	for {
		var rows []purgeRow
		if err := s.db(ctx).Unscoped().Model(&model.File{}).
			Select("files.*, COALESCE(workspaces.owner_id, '') AS owner_id").
			Joins("LEFT JOIN workspaces ON workspaces.id = files.workspace_id").
			Where("files.deleted_at IS NOT NULL AND files.deleted_at < ?", cutoff).
			Order("files.deleted_at").
			Limit(purgeBatchSize).
			Scan(&rows).Error; err != nil {
			return purged, fmt.Errorf("list deleted files: %w", err)
		}

		if len(rows) == 0 {
			return purged, nil
		}

		progressed := false

		for i := range rows {
			if err := ctx.Err(); err != nil {
				return purged, err
			}

			ok, err := s.purgeOne(ctx, &rows[i])
			if err != nil {
				return purged, err
			}

			if ok {
				purged++
				progressed = true
			}
		}

		if !progressed || len(rows) < purgeBatchSize {
			return purged, nil
		}
	}
}

func (s *MaintenanceService) purgeOne(ctx context.Context, r *purgeRow) (bool, error) {
	if err := s.Store.DeleteObject(ctx, r.StorageKey); err != nil {
		nlog.Ctx(ctx).Warn().Err(err).Str("file", r.ID).Str("key", r.StorageKey).Msg("purge object failed")

		return false, nil
	}

	if err := s.db(ctx).Unscoped().Where("id = ?", r.ID).Delete(&model.File{}).Error; err != nil {
		return false, fmt.Errorf("delete file row %s: %w", r.ID, err)
	}

	if s.Events != nil && s.Config.Events.AllowsEntity(string(model.EntityFile)) {
		err := queue.PublishFilePurged(ctx, s.Events, queue.FilePurgedPayload{
			FileID:      r.ID,
			WorkspaceID: r.WorkspaceID,
			OwnerID:     r.OwnerID,
			StorageKey:  r.StorageKey,
			Size:        r.Size,
		}, s.headerOpts(ctx)...)
		if err != nil {
			nlog.Ctx(ctx).Warn().Err(err).Str("file", r.ID).Msg("publish file purged")
		}
	}

	return true, nil
}

// MarkStaleUploads 创建超过 maxAge 仍为 pending 的上传标记为 failed.
func (s *MaintenanceService) MarkStaleUploads(ctx context.Context, maxAge time.Duration) (int64, error) {
	res := s.db(ctx).Model(&model.File{}).
		Where("status = ? AND created_at < ?", model.FilePending, s.now().Add(-maxAge)).
		Update("status", model.FileFailed)
	if res.Error != nil {
		return 0, fmt.Errorf("mark stale uploads: %w", res.Error)
	}

	return res.RowsAffected, nil
}
