package service_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yeisme/teamvault/pkg/auth"
	"github.com/yeisme/teamvault/pkg/cache"
	"github.com/yeisme/teamvault/pkg/configs"
	"github.com/yeisme/teamvault/pkg/internal/errs"
	"github.com/yeisme/teamvault/pkg/internal/model"
	"github.com/yeisme/teamvault/pkg/internal/service"
	"github.com/yeisme/teamvault/pkg/internal/storage/kv"
	"github.com/yeisme/teamvault/pkg/internal/storage/s3"
	"github.com/yeisme/teamvault/pkg/internal/types"
	nlog "github.com/yeisme/teamvault/pkg/log"
	"github.com/yeisme/teamvault/pkg/mailer"
	"github.com/yeisme/teamvault/pkg/plan"
)

func TestMain(m *testing.M) {
	nlog.SetOutput(io.Discard)
	os.Exit(m.Run())
}

// fastParams 测试使用的低成本 Argon2 参数.
var fastParams = auth.Params{Time: 1, Memory: 1024, Threads: 1, KeyLen: 32, SaltLen: 16}

// fakeStore 记录调用的对象存储. 默认认为客户端已按声明大小上传.
type fakeStore struct {
	mu          sync.Mutex
	db          *gorm.DB
	deleted     []string
	failDelete  map[string]bool
	failPresign bool
	sizes       map[string]int64 // 覆盖实际上传的大小
	missing     map[string]bool  // 未上传的对象
}

func (f *fakeStore) PresignedUploadURL(_ context.Context, key, _ string, _ time.Duration) (string, error) {
	if f.failPresign {
		return "", errors.New("presign unavailable")
	}

	return "https://store.test/upload/" + key, nil
}

func (f *fakeStore) PresignedDownloadURL(_ context.Context, key, _ string, _ time.Duration) (string, error) {
	return "https://store.test/download/" + key, nil
}

func (f *fakeStore) PresignedPreviewURL(_ context.Context, key, _ string, _ time.Duration) (string, error) {
	return "https://store.test/preview/" + key, nil
}

func (f *fakeStore) DeleteObject(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failDelete[key] {
		return errors.New("delete failed")
	}

	f.deleted = append(f.deleted, key)

	return nil
}

func (f *fakeStore) ObjectSize(_ context.Context, key string) (int64, error) {
	f.mu.Lock()
	size, ok := f.sizes[key]
	missing := f.missing[key]
	f.mu.Unlock()

	if missing {
		return 0, fmt.Errorf("stat object %s: %w", key, s3.ErrObjectNotFound)
	}

	if ok {
		return size, nil
	}

	var file model.File
	if err := f.db.Unscoped().Where("storage_key = ?", key).Take(&file).Error; err != nil {
		return 0, fmt.Errorf("stat object %s: %w", key, s3.ErrObjectNotFound)
	}

	return file.Size, nil
}

func (f *fakeStore) Deleted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]string(nil), f.deleted...)
}

type env struct {
	t     *testing.T
	ctx   context.Context
	deps  *service.Deps
	db    *gorm.DB
	store *fakeStore
	mail  *mailer.LogSender
	shift time.Duration
}

// newEnv 每个测试独立的内存数据库；单连接，事务内只能使用事务句柄.
func newEnv(t *testing.T) *env {
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

	e := &env{
		t:     t,
		db:    gdb,
		store: &fakeStore{db: gdb, failDelete: map[string]bool{}, sizes: map[string]int64{}, missing: map[string]bool{}},
		mail:  &mailer.LogSender{},
	}

	e.deps = &service.Deps{
		DB:     gdb,
		Store:  e.store,
		Cache:  cache.NewCache(store),
		Mailer: e.mail,
		Tokens: auth.NewTokenManager("test-secret-test-secret", "teamvault", time.Hour),
		Hasher: auth.NewHasher(fastParams),
		Config: configs.AppConfig{
			App: configs.AppSectionConfig{Name: "TeamVault", BaseURL: "http://app.test"},
		},
		Now: func() time.Time { return time.Now().Add(e.shift) },
	}

	e.ctx = service.WithDeps(context.Background(), e.deps)

	return e
}

// advance 推进服务层时钟.
func (e *env) advance(d time.Duration) {
	e.shift += d
}

// register 通过注册流程创建用户，返回用户 ID 与默认工作区 ID.
func (e *env) register(name, email string) (string, string) {
	e.t.Helper()

	resp, err := service.NewUserService(e.ctx).Register(e.ctx, registerReq(name, email))
	if err != nil {
		e.t.Fatalf("register %s: %v", email, err)
	}

	return resp.User.ID, resp.WorkspaceID
}

// setPlan 修改计划.
func (e *env) setPlan(email string, p plan.Plan) {
	e.t.Helper()

	if err := service.NewUsageService(e.ctx).SetPlan(e.ctx, email, p); err != nil {
		e.t.Fatal(err)
	}
}

// addMember 直接写入成员关系.
func (e *env) addMember(workspaceID, userID string) {
	e.t.Helper()

	if err := e.db.Create(&model.WorkspaceMember{WorkspaceID: workspaceID, UserID: userID}).Error; err != nil {
		e.t.Fatal(err)
	}
}

// completedFile 直接写入一条已完成的文件记录.
func (e *env) completedFile(workspaceID, userID, name, contentType string, size int64) *model.File {
	e.t.Helper()

	f := &model.File{
		WorkspaceID: workspaceID,
		UploadedBy:  userID,
		Filename:    name,
		StorageKey:  model.NewID(),
		Size:        size,
		ContentType: contentType,
		Status:      model.FileCompleted,
	}
	if err := e.db.Create(f).Error; err != nil {
		e.t.Fatal(err)
	}

	return f
}

// activities 按写入顺序返回工作区的事件类型.
func (e *env) activities(workspaceID string) []model.EventType {
	e.t.Helper()

	var rows []model.WorkspaceActivity
	if err := e.db.Where("workspace_id = ?", workspaceID).Order("created_at").Order("id").Find(&rows).Error; err != nil {
		e.t.Fatal(err)
	}

	out := make([]model.EventType, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.EventType)
	}

	return out
}

var tokenRe = regexp.MustCompile(`token=([A-Za-z0-9_-]+)`)

// waitMailToken 等待异步邮件并从链接中取出令牌.
func (e *env) waitMailToken(to, subjectPart string) string {
	e.t.Helper()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		for _, m := range e.mail.Sent() {
			if m.To == to && strings.Contains(m.Subject, subjectPart) {
				if sub := tokenRe.FindStringSubmatch(m.HTML); sub != nil {
					return sub[1]
				}
			}
		}

		time.Sleep(10 * time.Millisecond)
	}

	e.t.Fatalf("no mail to %s matching %q", to, subjectPart)

	return ""
}

func wantKind(t *testing.T, err error, k errs.Kind) {
	t.Helper()

	if err == nil {
		t.Fatalf("expected %s error, got nil", k)
	}

	if got := errs.KindOf(err); got != k {
		t.Fatalf("expected %s error, got %s (%v)", k, got, err)
	}
}

func wantMessage(t *testing.T, err error, msg string) {
	t.Helper()

	var e *errs.Error
	if !errors.As(err, &e) || e.Message != msg {
		t.Fatalf("expected message %q, got %v", msg, err)
	}
}

const testPassword = "password123"

func registerReq(name, email string) types.RegisterRequest {
	return types.RegisterRequest{Name: name, Email: email, Password: testPassword}
}

func typesQuery(eventType string) types.ActivityQuery {
	return types.ActivityQuery{EventType: eventType}
}
