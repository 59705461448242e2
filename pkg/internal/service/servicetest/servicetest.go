// Package servicetest 为 handle、jobs 等上层包的测试构造完整的服务依赖：内存 SQLite、内存缓存、假对象存储与日志邮件.
package servicetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yeisme/teamvault/pkg/auth"
	"github.com/yeisme/teamvault/pkg/cache"
	"github.com/yeisme/teamvault/pkg/configs"
	"github.com/yeisme/teamvault/pkg/internal/model"
	"github.com/yeisme/teamvault/pkg/internal/service"
	"github.com/yeisme/teamvault/pkg/internal/storage/kv"
	"github.com/yeisme/teamvault/pkg/internal/storage/s3"
	"github.com/yeisme/teamvault/pkg/mailer"
)

// Secret 测试令牌签名密钥.
const Secret = "test-secret-test-secret"

// FastParams 低成本 Argon2 参数.
var FastParams = auth.Params{Time: 1, Memory: 1024, Threads: 1, KeyLen: 32, SaltLen: 16}

// Store 内存中的假对象存储，记录删除调用. 对象大小取文件记录中声明的大小.
type Store struct {
	mu         sync.Mutex
	db         *gorm.DB
	deleted    []string
	FailDelete bool
}

func (s *Store) PresignedUploadURL(_ context.Context, key, _ string, _ time.Duration) (string, error) {
	return "https://store.test/upload/" + key, nil
}

func (s *Store) PresignedDownloadURL(_ context.Context, key, _ string, _ time.Duration) (string, error) {
	return "https://store.test/download/" + key, nil
}

func (s *Store) PresignedPreviewURL(_ context.Context, key, _ string, _ time.Duration) (string, error) {
	return "https://store.test/preview/" + key, nil
}

func (s *Store) DeleteObject(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailDelete {
		return errors.New("delete failed")
	}

	s.deleted = append(s.deleted, key)

	return nil
}

func (s *Store) ObjectSize(_ context.Context, key string) (int64, error) {
	var f model.File
	if err := s.db.Unscoped().Where("storage_key = ?", key).Take(&f).Error; err != nil {
		return 0, fmt.Errorf("stat object %s: %w", key, s3.ErrObjectNotFound)
	}

	return f.Size, nil
}

// Deleted 已删除的对象键.
func (s *Store) Deleted() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]string(nil), s.deleted...)
}

// Env 一组测试依赖.
type Env struct {
	Deps  *service.Deps
	DB    *gorm.DB
	Store *Store
	Mail  *mailer.LogSender
	KV    kv.KVStore
}

// New 每次调用使用独立的内存数据库；单连接，事务内不能再用 Deps.DB.
func New(t testing.TB) *Env {
	t.Helper()

	dsn := "file:tv_" + model.NewID() + "?mode=memory&cache=shared&_pragma=foreign_keys(1)"

	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatal(err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatal(err)
	}

	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := model.Migrate(gdb, true); err != nil {
		t.Fatal(err)
	}

	store, _ := kv.NewMemoryKV(context.Background(), nil)

	cfg := configs.Defaults()
	cfg.App = configs.AppSectionConfig{Name: "TeamVault", BaseURL: "http://app.test"}
	cfg.Auth.JWTSecret = Secret

	e := &Env{
		DB:    gdb,
		Store: &Store{db: gdb},
		Mail:  &mailer.LogSender{},
		KV:    store,
	}

	e.Deps = &service.Deps{
		DB:     gdb,
		Store:  e.Store,
		Cache:  cache.NewCache(store),
		Mailer: e.Mail,
		Tokens: auth.NewTokenManager(Secret, cfg.Auth.Issuer, time.Hour),
		Hasher: auth.NewHasher(FastParams),
		Config: cfg,
	}

	return e
}

// Context 携带依赖的 context.
func (e *Env) Context() context.Context {
	return service.WithDeps(context.Background(), e.Deps)
}
