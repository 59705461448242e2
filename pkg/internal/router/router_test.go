package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/teamvault/pkg/configs"
	"github.com/yeisme/teamvault/pkg/internal/model"
	"github.com/yeisme/teamvault/pkg/internal/router"
	"github.com/yeisme/teamvault/pkg/internal/service"
	"github.com/yeisme/teamvault/pkg/internal/service/servicetest"
	"github.com/yeisme/teamvault/pkg/internal/storage"
	"github.com/yeisme/teamvault/pkg/internal/storage/db"
	"github.com/yeisme/teamvault/pkg/internal/storage/kv"
	"github.com/yeisme/teamvault/pkg/internal/types"
	"github.com/yeisme/teamvault/pkg/middleware"
	"github.com/yeisme/teamvault/pkg/plan"
	"github.com/yeisme/teamvault/pkg/scheduler"
)

const adminToken = "admin-token-for-tests"

type server struct {
	engine *gin.Engine
	env    *servicetest.Env
}

// newServer 按 app 的顺序挂载依赖注入、认证与调度器中间件.
func newServer(t *testing.T) *server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	env := servicetest.New(t)
	cfg := env.Deps.Config
	cfg.Auth.AdminToken = adminToken

	sched, err := scheduler.NewScheduler()
	if err != nil {
		t.Fatal(err)
	}

	t.Cleanup(func() { _ = sched.Stop() })

	if err := sched.AddCron(env.Context(), "noop", "0 0 1 1 *", func(ctx context.Context) error { return nil }); err != nil {
		t.Fatal(err)
	}

	sched.Start()

	kvc, err := kv.New(env.Context(), &configs.KVConfig{})
	if err != nil {
		t.Fatal(err)
	}

	// 未配置对象存储，用于观察就绪检查的降级结果
	manager := &storage.Manager{DB: &db.Client{DB: env.DB}, KV: kvc}

	e := gin.New()
	e.Use(
		middleware.DepsMiddleware(manager, env.Deps),
		middleware.AuthMiddleware(cfg.Auth, env.Deps.Tokens),
		middleware.SchedulerMiddleware(sched),
	)

	router.Register(e.Group("/api/v1"), router.Options{
		Cache:     env.Deps.Cache,
		Auth:      cfg.Auth,
		RateLimit: cfg.RateLimit,
	})

	return &server{engine: e, env: env}
}

func (s *server) do(t *testing.T, method, path, token string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}

	req := httptest.NewRequest(method, "/api/v1"+path, &buf)
	req.Header.Set("Content-Type", "application/json")

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}

	return v
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()

	if w.Code != want {
		t.Fatalf("status = %d, want %d, body = %s", w.Code, want, w.Body.String())
	}
}

// register 注册用户，返回登录令牌与默认工作区.
func (s *server) register(t *testing.T, email string) (string, string) {
	t.Helper()

	w := s.do(t, http.MethodPost, "/auth/register", "", types.RegisterRequest{
		Name:     strings.Split(email, "@")[0],
		Email:    email,
		Password: "correct-horse-battery",
	})
	expectStatus(t, w, http.StatusCreated)

	res := decode[types.AuthResponse](t, w)
	if res.Token == "" || res.WorkspaceID == "" {
		t.Fatalf("register response missing token or workspace: %+v", res)
	}

	return res.Token, res.WorkspaceID
}

// TestRegisterLoginAndMe 注册、登录与当前用户.
func TestRegisterLoginAndMe(t *testing.T) {
	s := newServer(t)
	token, _ := s.register(t, "alice@example.com")

	w := s.do(t, http.MethodGet, "/me", token, nil)
	expectStatus(t, w, http.StatusOK)

	me := decode[types.MeResponse](t, w)
	if me.User.Email != "alice@example.com" || me.User.Plan != string(plan.Free) {
		t.Fatalf("unexpected me: %+v", me.User)
	}

	w = s.do(t, http.MethodPost, "/auth/login", "", types.LoginRequest{Email: "ALICE@example.com", Password: "correct-horse-battery"})
	expectStatus(t, w, http.StatusOK)

	w = s.do(t, http.MethodPost, "/auth/login", "", types.LoginRequest{Email: "alice@example.com", Password: "wrong-password"})
	expectStatus(t, w, http.StatusUnauthorized)

	w = s.do(t, http.MethodPost, "/auth/register", "", types.RegisterRequest{Name: "A", Email: "alice@example.com", Password: "correct-horse-battery"})
	expectStatus(t, w, http.StatusBadRequest)
}

// TestUnauthenticated 受保护接口缺少或携带无效令牌时返回 401.
func TestUnauthenticated(t *testing.T) {
	s := newServer(t)

	for _, tc := range []struct{ name, token string }{
		{"missing", ""},
		{"garbage", "not-a-jwt"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			w := s.do(t, http.MethodGet, "/workspaces", tc.token, nil)
			expectStatus(t, w, http.StatusUnauthorized)

			if got := decode[map[string]string](t, w)["error"]; got != "Unauthorized" {
				t.Fatalf("error = %q", got)
			}
		})
	}
}

// TestRegisterValidation 请求体校验失败返回 400.
func TestRegisterValidation(t *testing.T) {
	s := newServer(t)

	w := s.do(t, http.MethodPost, "/auth/register", "", map[string]string{"name": "x", "password": "correct-horse-battery"})
	expectStatus(t, w, http.StatusBadRequest)

	w = s.do(t, http.MethodPost, "/auth/register", "", types.RegisterRequest{Name: "x", Email: "x@example.com", Password: "short"})
	expectStatus(t, w, http.StatusBadRequest)
}

// TestWorkspaceLifecycle 创建、重命名、激活与删除.
func TestWorkspaceLifecycle(t *testing.T) {
	s := newServer(t)
	token, defaultID := s.register(t, "owner@example.com")

	w := s.do(t, http.MethodPost, "/workspaces", token, types.CreateWorkspaceRequest{Name: "Design"})
	expectStatus(t, w, http.StatusCreated)

	ws := decode[types.WorkspaceInfo](t, w)
	if ws.Name != "Design" || ws.Role != "owner" {
		t.Fatalf("unexpected workspace: %+v", ws)
	}

	w = s.do(t, http.MethodPost, "/workspaces", token, types.CreateWorkspaceRequest{Name: " Design "})
	expectStatus(t, w, http.StatusBadRequest)

	w = s.do(t, http.MethodPatch, "/workspaces/"+ws.ID, token, types.RenameWorkspaceRequest{Name: "Design Team"})
	expectStatus(t, w, http.StatusOK)

	w = s.do(t, http.MethodGet, "/workspaces/"+ws.ID, token, nil)
	expectStatus(t, w, http.StatusOK)

	if got := decode[types.WorkspaceInfo](t, w).Name; got != "Design Team" {
		t.Fatalf("name = %q", got)
	}

	w = s.do(t, http.MethodPost, "/workspaces/"+ws.ID+"/activate", token, nil)
	expectStatus(t, w, http.StatusOK)

	w = s.do(t, http.MethodGet, "/workspaces", token, nil)
	expectStatus(t, w, http.StatusOK)

	if list := decode[types.WorkspaceList](t, w); len(list.Owned) != 2 || len(list.Member) != 0 {
		t.Fatalf("unexpected list: %+v", list)
	}

	w = s.do(t, http.MethodDelete, "/workspaces/"+ws.ID, token, nil)
	expectStatus(t, w, http.StatusOK)

	if del := decode[types.DeleteWorkspaceResponse](t, w); !del.Success || del.RedirectTo != "/dashboard/workspace/"+defaultID {
		t.Fatalf("unexpected delete response: %+v", del)
	}

	w = s.do(t, http.MethodGet, "/workspaces/"+ws.ID, token, nil)
	expectStatus(t, w, http.StatusNotFound)
}

// TestWorkspaceLimit 免费计划第四个工作区返回限额信息.
func TestWorkspaceLimit(t *testing.T) {
	s := newServer(t)
	token, _ := s.register(t, "limit@example.com")

	for _, name := range []string{"Two", "Three"} {
		w := s.do(t, http.MethodPost, "/workspaces", token, types.CreateWorkspaceRequest{Name: name})
		expectStatus(t, w, http.StatusCreated)
	}

	w := s.do(t, http.MethodPost, "/workspaces", token, types.CreateWorkspaceRequest{Name: "Four"})
	expectStatus(t, w, http.StatusBadRequest)

	res := decode[struct {
		Error        string `json:"error"`
		LimitType    string `json:"limitType"`
		CurrentUsage *int64 `json:"currentUsage"`
		Limit        *int64 `json:"limit"`
	}](t, w)

	if res.LimitType != string(plan.LimitWorkspace) || res.Limit == nil || *res.Limit != 3 || res.CurrentUsage == nil || *res.CurrentUsage != 3 {
		t.Fatalf("unexpected limit response: %s", w.Body.String())
	}
}

// TestInviteOnFreePlan 免费计划不能邀请成员.
func TestInviteOnFreePlan(t *testing.T) {
	s := newServer(t)
	token, wsID := s.register(t, "free@example.com")

	w := s.do(t, http.MethodPost, "/workspaces/"+wsID+"/invites", token, types.SendInviteRequest{Email: "friend@example.com"})
	expectStatus(t, w, http.StatusBadRequest)

	if got := decode[map[string]any](t, w)["limitType"]; got != string(plan.LimitInvite) {
		t.Fatalf("limitType = %v", got)
	}
}

// TestInviteAcceptFlow 匿名预览、受邀人接受后可读取成员与活动日志.
func TestInviteAcceptFlow(t *testing.T) {
	s := newServer(t)
	ownerToken, wsID := s.register(t, "boss@example.com")
	guestToken, _ := s.register(t, "guest@example.com")

	if err := s.env.DB.Model(&model.User{}).Where("email = ?", "boss@example.com").Update("plan", string(plan.Pro)).Error; err != nil {
		t.Fatal(err)
	}

	w := s.do(t, http.MethodPost, "/workspaces/"+wsID+"/invites", ownerToken, types.SendInviteRequest{Email: "someone@example.com"})
	expectStatus(t, w, http.StatusCreated)

	var ws model.Workspace
	if err := s.env.DB.Where("id = ?", wsID).Take(&ws).Error; err != nil {
		t.Fatal(err)
	}

	ctx := s.env.Context()

	created, err := service.NewInviteService(ctx).Create(ctx, wsID, ws.OwnerID, "guest@example.com", "member", 0)
	if err != nil {
		t.Fatal(err)
	}

	// 接受前受邀人无权访问活动日志
	w = s.do(t, http.MethodGet, "/workspaces/"+wsID+"/activity", guestToken, nil)
	expectStatus(t, w, http.StatusForbidden)

	w = s.do(t, http.MethodGet, "/invites/"+created.Token, "", nil)
	expectStatus(t, w, http.StatusOK)

	if p := decode[types.InvitePreview](t, w); p.Status != types.InvitePreviewValid || p.WorkspaceID != wsID {
		t.Fatalf("unexpected preview: %+v", p)
	}

	w = s.do(t, http.MethodGet, "/invites/unknown-token", "", nil)
	expectStatus(t, w, http.StatusOK)

	if p := decode[types.InvitePreview](t, w); p.Status != types.InvitePreviewInvalid {
		t.Fatalf("unknown token status = %q", p.Status)
	}

	w = s.do(t, http.MethodPost, "/invites/"+created.Token+"/accept", "", nil)
	expectStatus(t, w, http.StatusUnauthorized)

	w = s.do(t, http.MethodPost, "/invites/"+created.Token+"/accept", ownerToken, nil)
	expectStatus(t, w, http.StatusBadRequest)

	w = s.do(t, http.MethodPost, "/invites/"+created.Token+"/accept", guestToken, nil)
	expectStatus(t, w, http.StatusOK)

	if res := decode[types.AcceptInviteResponse](t, w); !res.Success || res.WorkspaceID != wsID {
		t.Fatalf("unexpected accept: %+v", res)
	}

	w = s.do(t, http.MethodGet, "/workspaces/"+wsID+"/members", guestToken, nil)
	expectStatus(t, w, http.StatusOK)

	if members := decode[[]types.MemberInfo](t, w); len(members) != 2 {
		t.Fatalf("members = %d, want owner and guest", len(members))
	}

	w = s.do(t, http.MethodGet, "/workspaces/"+wsID+"/activity?eventType=member.added", guestToken, nil)
	expectStatus(t, w, http.StatusOK)

	list := decode[types.ActivityList](t, w)
	if len(list.Items) != 1 || list.Items[0].Actor.Email != "guest@example.com" {
		t.Fatalf("unexpected activity: %+v", list.Items)
	}

	w = s.do(t, http.MethodGet, "/workspaces/"+wsID+"/activity/"+list.Items[0].ID, guestToken, nil)
	expectStatus(t, w, http.StatusOK)

	// 成员不能删除工作区
	w = s.do(t, http.MethodDelete, "/workspaces/"+wsID, guestToken, nil)
	expectStatus(t, w, http.StatusForbidden)
}

// TestFileFlow 申请上传、确认、下载链接与删除.
func TestFileFlow(t *testing.T) {
	s := newServer(t)
	token, wsID := s.register(t, "files@example.com")

	w := s.do(t, http.MethodPost, "/workspaces/"+wsID+"/files", token, types.UploadRequest{
		Filename:    "report.pdf",
		ContentType: "application/pdf",
		Size:        1024,
	})
	expectStatus(t, w, http.StatusCreated)

	up := decode[types.UploadResponse](t, w)
	if up.FileID == "" || !strings.HasPrefix(up.URL, "https://store.test/upload/") {
		t.Fatalf("unexpected upload response: %+v", up)
	}

	w = s.do(t, http.MethodPost, "/files/"+up.FileID+"/confirm", token, nil)
	expectStatus(t, w, http.StatusOK)

	if f := decode[types.FileInfo](t, w); f.Status != string(model.FileCompleted) {
		t.Fatalf("status = %q", f.Status)
	}

	w = s.do(t, http.MethodGet, "/files/"+up.FileID+"/download", token, nil)
	expectStatus(t, w, http.StatusOK)

	if cc := w.Header().Get("Cache-Control"); !strings.Contains(cc, "no-store") {
		t.Fatalf("Cache-Control = %q", cc)
	}

	w = s.do(t, http.MethodPost, "/workspaces/"+wsID+"/files", token, types.UploadRequest{
		Filename: "huge.bin",
		Size:     plan.Free.Limits().MaxFileSizeBytes + 1,
	})
	expectStatus(t, w, http.StatusBadRequest)

	if got := decode[map[string]any](t, w)["limitType"]; got != string(plan.LimitFileSize) {
		t.Fatalf("limitType = %v", got)
	}

	w = s.do(t, http.MethodDelete, "/files/"+up.FileID, token, nil)
	expectStatus(t, w, http.StatusOK)

	w = s.do(t, http.MethodGet, "/workspaces/"+wsID+"/files", token, nil)
	expectStatus(t, w, http.StatusOK)

	if files := decode[[]types.FileInfo](t, w); len(files) != 0 {
		t.Fatalf("files after delete = %d", len(files))
	}
}

// TestPlansCached 计划列表匿名可读，写入缓存后第二次命中.
func TestPlansCached(t *testing.T) {
	s := newServer(t)

	w := s.do(t, http.MethodGet, "/plans", "", nil)
	expectStatus(t, w, http.StatusOK)

	if plans := decode[[]types.PlanInfo](t, w); len(plans) != 2 || plans[0].Plan != plan.Free {
		t.Fatalf("unexpected plans: %+v", plans)
	}

	// 缓存异步写入
	deadline := time.Now().Add(2 * time.Second)
	for {
		w = s.do(t, http.MethodGet, "/plans", "", nil)
		if w.Header().Get("X-Cache") == "HIT" {
			break
		}

		if time.Now().After(deadline) {
			t.Fatal("plans response never served from cache")
		}

		time.Sleep(10 * time.Millisecond)
	}

	etag := w.Header().Get("ETag")

	w = s.do(t, http.MethodGet, "/plans", "", nil, "If-None-Match", etag)
	expectStatus(t, w, http.StatusNotModified)
}

// TestAdminScheduler 管理令牌保护的调度器接口.
func TestAdminScheduler(t *testing.T) {
	s := newServer(t)

	w := s.do(t, http.MethodGet, "/admin/scheduler/jobs", "", nil)
	expectStatus(t, w, http.StatusUnauthorized)

	w = s.do(t, http.MethodGet, "/admin/scheduler/jobs", "", nil, middleware.AdminTokenHeader, adminToken)
	expectStatus(t, w, http.StatusOK)

	res := decode[struct {
		Jobs []scheduler.JobInfo `json:"jobs"`
	}](t, w)
	if len(res.Jobs) != 1 || res.Jobs[0].Name != "noop" {
		t.Fatalf("unexpected jobs: %+v", res.Jobs)
	}

	w = s.do(t, http.MethodPost, "/admin/scheduler/jobs/missing/run", adminToken, nil)
	expectStatus(t, w, http.StatusNotFound)

	w = s.do(t, http.MethodPost, "/admin/scheduler/jobs/noop/run", adminToken, nil)
	expectStatus(t, w, http.StatusAccepted)

	w = s.do(t, http.MethodDelete, "/admin/scheduler/jobs/not-a-uuid", adminToken, nil)
	expectStatus(t, w, http.StatusBadRequest)

	w = s.do(t, http.MethodDelete, "/admin/scheduler/jobs/"+res.Jobs[0].ID, adminToken, nil)
	expectStatus(t, w, http.StatusOK)

	w = s.do(t, http.MethodDelete, "/admin/scheduler/jobs/"+res.Jobs[0].ID, adminToken, nil)
	expectStatus(t, w, http.StatusNotFound)
}

// TestHealth 健康检查无需登录，缺失的组件使就绪检查返回 503.
func TestHealth(t *testing.T) {
	s := newServer(t)

	w := s.do(t, http.MethodGet, "/health/kv", "", nil)
	expectStatus(t, w, http.StatusOK)

	if got := decode[map[string]any](t, w); got["type"] != "memory" {
		t.Fatalf("kv health = %v", got)
	}

	expectStatus(t, s.do(t, http.MethodGet, "/health/db", "", nil), http.StatusOK)
	expectStatus(t, s.do(t, http.MethodGet, "/health/s3", "", nil), http.StatusServiceUnavailable)
	expectStatus(t, s.do(t, http.MethodGet, "/health/mq", "", nil), http.StatusServiceUnavailable)

	w = s.do(t, http.MethodGet, "/health", "", nil)
	expectStatus(t, w, http.StatusServiceUnavailable)

	ready := decode[struct {
		Status     string            `json:"status"`
		Components map[string]string `json:"components"`
	}](t, w)

	if ready.Status != "degraded" || ready.Components["db"] != "ok" || ready.Components["kv"] != "ok" || ready.Components["s3"] == "ok" {
		t.Fatalf("ready = %+v", ready)
	}
}
