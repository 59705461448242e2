// Package service 实现工作区、成员邀请、文件、活动日志与用量限额的业务逻辑，不处理 HTTP 细节.
//
// 服务通过 context 中的 *Deps 获取依赖：
//
//	ctx = service.WithDeps(ctx, deps)
//	ws, err := service.NewWorkspaceService(ctx).Create(ctx, userID, "Team")
package service

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/yeisme/teamvault/pkg/auth"
	"github.com/yeisme/teamvault/pkg/cache"
	"github.com/yeisme/teamvault/pkg/configs"
	"github.com/yeisme/teamvault/pkg/internal/model"
	"github.com/yeisme/teamvault/pkg/internal/storage"
	nlog "github.com/yeisme/teamvault/pkg/log"
	"github.com/yeisme/teamvault/pkg/mailer"
	"github.com/yeisme/teamvault/pkg/metrics"
	"github.com/yeisme/teamvault/pkg/queue"
)

const producerName = "teamvault"

// ObjectStore 服务层使用的对象存储能力，*s3.Client 实现该接口.
type ObjectStore interface {
	PresignedUploadURL(ctx context.Context, key, contentType string, ttl time.Duration) (string, error)
	PresignedDownloadURL(ctx context.Context, key, filename string, ttl time.Duration) (string, error)
	PresignedPreviewURL(ctx context.Context, key, contentType string, ttl time.Duration) (string, error)
	DeleteObject(ctx context.Context, key string) error
	// ObjectSize 对象不存在时返回的错误须包装 s3.ErrObjectNotFound
	ObjectSize(ctx context.Context, key string) (int64, error)
}

// Deps 服务依赖. Cache、Events、Mailer 可以为 nil，对应功能降级为跳过.
type Deps struct {
	DB     *gorm.DB
	Store  ObjectStore
	Cache  *cache.Cache
	Events queue.Publisher
	Mailer mailer.Sender
	Tokens *auth.TokenManager
	Hasher *auth.Hasher
	Config configs.AppConfig
	// Now 可替换的时钟，测试中用于构造过期场景
	Now func() time.Time
}

// NewDeps 由存储管理器与配置组装依赖.
func NewDeps(m *storage.Manager, cfg configs.AppConfig) (*Deps, error) {
	sender, err := mailer.New(cfg.Email)
	if err != nil {
		return nil, fmt.Errorf("create mailer: %w", err)
	}

	d := &Deps{
		DB:     m.GetDBClient().GetDB(),
		Mailer: sender,
		Tokens: auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL),
		Hasher: auth.NewHasher(auth.DefaultParams),
		Config: cfg,
	}

	if s3 := m.GetS3Client(); s3 != nil {
		d.Store = s3
	}

	if kv := m.GetKVClient(); kv != nil {
		d.Cache = cache.NewCache(kv)
	}

	if mq := m.GetMQClient(); mq != nil {
		d.Events = mq
	}

	return d, nil
}

func (d *Deps) now() time.Time {
	if d.Now != nil {
		return d.Now().UTC()
	}

	return time.Now().UTC()
}

func (d *Deps) db(ctx context.Context) *gorm.DB {
	return d.DB.WithContext(ctx)
}

type depsKey struct{}

// WithDeps 把依赖放入 context.
func WithDeps(ctx context.Context, d *Deps) context.Context {
	return context.WithValue(ctx, depsKey{}, d)
}

// FromContext 取出依赖，不存在时返回 nil.
func FromContext(ctx context.Context) *Deps {
	if d, ok := ctx.Value(depsKey{}).(*Deps); ok {
		return d
	}

	return nil
}

// mustDeps 与存储客户端一样，依赖缺失属于启动错误.
func mustDeps(c context.Context) *Deps {
	d := FromContext(c)
	if d == nil || d.DB == nil {
		nlog.Logger().Fatal().Msg("service dependencies not initialized")
	}

	return d
}

// pendingEvent 事务内记录、提交后广播的活动.
type pendingEvent struct {
	activity model.WorkspaceActivity
	ownerID  string
}

// txScope 事务作用域，事务内只能使用 tx.
type txScope struct {
	tx     *gorm.DB
	events []pendingEvent
}

// record 在当前事务中追加一条活动.
func (s *txScope) record(in RecordInput, ownerID string) (*model.WorkspaceActivity, error) {
	a, err := insertActivity(s.tx, in)
	if err != nil {
		return nil, err
	}

	s.events = append(s.events, pendingEvent{activity: *a, ownerID: ownerID})

	return a, nil
}

// inTx 在事务中执行 fn，提交成功后广播事务内记录的活动.
func (d *Deps) inTx(ctx context.Context, fn func(s *txScope) error) error {
	var events []pendingEvent

	err := d.db(ctx).Transaction(func(tx *gorm.DB) error {
		s := &txScope{tx: tx}
		if err := fn(s); err != nil {
			return err
		}

		events = s.events

		return nil
	})
	if err != nil {
		return err
	}

	d.afterCommit(ctx, events)

	return nil
}

// afterCommit 统计、失效用量缓存并发布事件；失败只记录日志.
func (d *Deps) afterCommit(ctx context.Context, events []pendingEvent) {
	for _, ev := range events {
		a := ev.activity
		metrics.ActivityEvents.WithLabelValues(string(a.EventType)).Inc()

		if affectsUsage(a.EventType) && ev.ownerID != "" {
			d.invalidateUsage(ctx, ev.ownerID)
		}

		if d.Events == nil || !d.Config.Events.AllowsEntity(string(a.EntityType)) {
			continue
		}

		payload := queue.ActivityPayload{
			ActivityID:  a.ID,
			WorkspaceID: a.WorkspaceID,
			OwnerID:     ev.ownerID,
			ActorID:     a.ActorID,
			EventType:   string(a.EventType),
			EntityType:  string(a.EntityType),
			EntityID:    a.EntityID,
			Metadata:    a.Metadata,
		}

		if err := queue.PublishActivity(ctx, d.Events, payload, d.headerOpts(ctx)...); err != nil {
			nlog.Ctx(ctx).Warn().Err(err).Str("event", string(a.EventType)).Msg("publish activity failed")
		}
	}
}

func (d *Deps) headerOpts(ctx context.Context) []queue.Option {
	opts := []queue.Option{queue.WithProducer(producerName)}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		opts = append(opts, queue.WithTraceID(sc.TraceID().String()))
	}

	return opts
}

func affectsUsage(ev model.EventType) bool {
	switch ev {
	case model.EventFileUploaded, model.EventFileDeleted, model.EventWorkspaceDeleted:
		return true
	default:
		return false
	}
}

func (d *Deps) invalidateUsage(ctx context.Context, userID string) {
	if d.Cache == nil {
		return
	}

	if err := d.Cache.Delete(ctx, cache.UsageKey(userID)); err != nil {
		nlog.Ctx(ctx).Debug().Err(err).Str("user", userID).Msg("invalidate usage cache")
	}
}
