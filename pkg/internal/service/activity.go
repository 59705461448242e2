package service

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/yeisme/teamvault/pkg/internal/errs"
	"github.com/yeisme/teamvault/pkg/internal/model"
	"github.com/yeisme/teamvault/pkg/internal/types"
	"github.com/yeisme/teamvault/pkg/tracing"
)

const (
	defaultActivityLimit = 50
	maxActivityLimit     = 100
)

// RecordInput 一条活动记录的输入，EntityType 为空时由事件类型推导.
type RecordInput struct {
	WorkspaceID string
	ActorID     string
	EventType   model.EventType
	EntityType  model.EntityType
	EntityID    string
	Metadata    model.Metadata
}

// ActivityService 工作区活动日志，只追加.
type ActivityService struct {
	*Deps
}

func NewActivityService(c context.Context) *ActivityService {
	return &ActivityService{Deps: mustDeps(c)}
}

// Record 单独写入一条活动；业务变更应在自身事务中通过 txScope.record 写入.
func (s *ActivityService) Record(ctx context.Context, in RecordInput) (*model.WorkspaceActivity, error) {
	var ownerID string

	var ws model.Workspace
	if err := s.db(ctx).Select("owner_id").Where("id = ?", in.WorkspaceID).Take(&ws).Error; err == nil {
		ownerID = ws.OwnerID
	}

	var out *model.WorkspaceActivity

	err := s.inTx(ctx, func(tx *txScope) error {
		a, err := tx.record(in, ownerID)
		out = a

		return err
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

func insertActivity(db *gorm.DB, in RecordInput) (*model.WorkspaceActivity, error) {
	if !in.EventType.Valid() {
		return nil, errs.Invalid(fmt.Sprintf("Unknown event type %q", in.EventType))
	}

	entity := in.EntityType
	if entity == "" {
		entity = in.EventType.Entity()
	}

	if !entity.Valid() {
		return nil, errs.Invalid(fmt.Sprintf("Unknown entity type %q", entity))
	}

	a := &model.WorkspaceActivity{
		WorkspaceID: in.WorkspaceID,
		ActorID:     in.ActorID,
		EventType:   in.EventType,
		EntityType:  entity,
		EntityID:    in.EntityID,
		Metadata:    in.Metadata,
	}

	if err := db.Create(a).Error; err != nil {
		return nil, fmt.Errorf("record activity %s: %w", in.EventType, err)
	}

	return a, nil
}

// activityRow 活动与发起人的联表结果.
type activityRow struct {
	model.WorkspaceActivity
	ActorName  string `gorm:"column:actor_name"`
	ActorEmail string `gorm:"column:actor_email"`
	ActorImage string `gorm:"column:actor_image"`
}

func (r activityRow) item() types.ActivityItem {
	return types.ActivityItem{
		ID:          r.ID,
		WorkspaceID: r.WorkspaceID,
		EventType:   string(r.EventType),
		EntityType:  string(r.EntityType),
		EntityID:    r.EntityID,
		Metadata:    r.Metadata,
		CreatedAt:   r.CreatedAt,
		Actor: types.ActivityActor{
			ID:    r.ActorID,
			Name:  r.ActorName,
			Email: r.ActorEmail,
			Image: r.ActorImage,
		},
	}
}

func (s *ActivityService) baseQuery(ctx context.Context, workspaceID string) *gorm.DB {
	return s.db(ctx).
		Table("workspace_activities AS a").
		Select("a.*, COALESCE(u.name, '') AS actor_name, COALESCE(u.email, '') AS actor_email, COALESCE(u.image, '') AS actor_image").
		Joins("LEFT JOIN users AS u ON u.id = a.actor_id").
		Where("a.workspace_id = ?", workspaceID)
}

// Query 按条件查询，最新的在前；发起人信息在读取时关联.
func (s *ActivityService) Query(ctx context.Context, workspaceID string, q types.ActivityQuery) (*types.ActivityList, error) {
	ctx, span := tracing.StartSpan(ctx, "activity.query")
	defer span.End()

	if q.EventType != "" && !model.EventType(q.EventType).Valid() {
		return nil, errs.Invalid(fmt.Sprintf("Unknown event type %q", q.EventType))
	}

	limit := q.Limit
	if limit <= 0 {
		limit = defaultActivityLimit
	}

	if limit > maxActivityLimit {
		limit = maxActivityLimit
	}

	offset := max(q.Offset, 0)

	tx := s.baseQuery(ctx, workspaceID)
	if q.EventType != "" {
		tx = tx.Where("a.event_type = ?", q.EventType)
	}

	if q.EntityType != "" {
		tx = tx.Where("a.entity_type = ?", q.EntityType)
	}

	if q.EntityID != "" {
		tx = tx.Where("a.entity_id = ?", q.EntityID)
	}

	var rows []activityRow
	if err := tx.Order("a.created_at DESC").Order("a.id DESC").
		Limit(limit).Offset(offset).
		Scan(&rows).Error; err != nil {
		return nil, errs.Internal(err)
	}

	items := make([]types.ActivityItem, 0, len(rows))
	for _, r := range rows {
		items = append(items, r.item())
	}

	return &types.ActivityList{Items: items, Limit: limit, Offset: offset}, nil
}

// GetByID 只返回属于该工作区的记录.
func (s *ActivityService) GetByID(ctx context.Context, workspaceID, activityID string) (*types.ActivityItem, error) {
	var row activityRow

	err := s.baseQuery(ctx, workspaceID).Where("a.id = ?", activityID).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.NotFound("Activity not found")
	}

	if err != nil {
		return nil, errs.Internal(err)
	}

	item := row.item()

	return &item, nil
}
