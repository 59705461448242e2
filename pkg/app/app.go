// Package app 提供应用程序的初始化和配置功能.
package app

import (
	contextPkg "context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/yeisme/teamvault/pkg/api"
	"github.com/yeisme/teamvault/pkg/configs"
	"github.com/yeisme/teamvault/pkg/internal/consumer"
	"github.com/yeisme/teamvault/pkg/internal/jobs"
	"github.com/yeisme/teamvault/pkg/internal/router"
	"github.com/yeisme/teamvault/pkg/internal/service"
	"github.com/yeisme/teamvault/pkg/internal/storage"
	"github.com/yeisme/teamvault/pkg/log"
	"github.com/yeisme/teamvault/pkg/metrics"
	"github.com/yeisme/teamvault/pkg/middleware"
	"github.com/yeisme/teamvault/pkg/scheduler"
	"github.com/yeisme/teamvault/pkg/tracing"
)

const shutdownTimeout = 15 * time.Second

// Option 在配置加载之后、组件初始化之前调整配置.
type Option func(*configs.AppConfig)

// WithDebug 开启调试模式与 debug 日志.
func WithDebug() Option {
	return func(c *configs.AppConfig) {
		c.Server.Debug = true
		c.Log.Level = "debug"
	}
}

type App struct {
	Engine    *gin.Engine
	config    *configs.AppConfig
	manager   *storage.Manager
	deps      *service.Deps
	scheduler *scheduler.Scheduler
}

// NewApp 依次初始化配置、追踪、指标、存储与服务依赖，并挂载中间件与路由.
func NewApp(configPath string, opts ...Option) (*App, error) {
	ctx := contextPkg.Background()

	if err := configs.InitConfig(configPath); err != nil {
		return nil, fmt.Errorf("init config: %w", err)
	}

	config := configs.GetConfig()
	for _, opt := range opts {
		opt(config)
	}

	configs.SetConfig(*config)
	log.Init()
	if !config.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := tracing.InitTracer(config.Tracing); err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	if err := metrics.InitMetrics(config.Metrics); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	manager, err := storage.Init(ctx)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	deps, err := service.NewDeps(manager, *config)
	if err != nil {
		_ = manager.Close()
		return nil, fmt.Errorf("init services: %w", err)
	}

	// 计划定义随版本变化，启动时丢弃旧的响应缓存
	if err := middleware.InvalidateResponses(ctx, deps.Cache); err != nil {
		log.Logger().Warn().Err(err).Msg("invalidate response cache")
	}

	sched, err := scheduler.NewScheduler()
	if err != nil {
		_ = manager.Close()
		return nil, fmt.Errorf("init scheduler: %w", err)
	}

	if err := jobs.RegisterCronJobs(service.WithDeps(ctx, deps), sched, config.Jobs); err != nil {
		_ = manager.Close()
		return nil, fmt.Errorf("register jobs: %w", err)
	}

	l := log.Logger()
	gin.DefaultWriter = log.NewGinWriter(l, zerolog.InfoLevel)
	gin.DefaultErrorWriter = log.NewGinWriter(l, zerolog.ErrorLevel)

	engine := gin.New()
	engine.Use(
		gin.Recovery(),
		middleware.CORSMiddleware(config.Server),
		gzip.Gzip(gzip.DefaultCompression),
		middleware.TracingMiddleware(),
		middleware.PrometheusMiddleware(),
		middleware.GinLoggerMiddleware(),
		middleware.RateLimitMiddleware(config.RateLimit),
		middleware.CircuitBreakerMiddleware(config.CircuitBreaker),
		middleware.DepsMiddleware(manager, deps),
		middleware.AuthMiddleware(config.Auth, deps.Tokens),
		middleware.SchedulerMiddleware(sched),
	)

	api.RegisterGroup(engine, router.Options{
		Cache:     deps.Cache,
		Auth:      config.Auth,
		RateLimit: config.RateLimit,
	})

	if err := metrics.StartMetricsServer(config.Metrics, engine, config.Server.Pprof); err != nil {
		_ = manager.Close()
		return nil, fmt.Errorf("start metrics: %w", err)
	}

	return &App{
		Engine:    engine,
		config:    config,
		manager:   manager,
		deps:      deps,
		scheduler: sched,
	}, nil
}

// Run 启动事件消费、定时任务与 HTTP 服务，收到 SIGINT/SIGTERM 后优雅退出.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(contextPkg.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	l := log.Logger()

	if mq := a.manager.GetMQClient(); mq != nil {
		consumer.New(a.deps.Cache).Register(mq)

		go func() {
			if err := mq.Run(ctx); err != nil {
				l.Error().Err(err).Msg("event router stopped")
			}
		}()
	}

	a.scheduler.Start()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.config.Server.Host, a.config.Server.Port),
		Handler:           a.Engine,
		ReadHeaderTimeout: a.config.Server.GetTimeoutDuration(),
		WriteTimeout:      a.config.Server.GetTimeoutDuration(),
	}

	errCh := make(chan error, 1)

	go func() {
		l.Info().Str("addr", srv.Addr).Msg("HTTP server listening")

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}

		close(errCh)
	}()

	var runErr error

	select {
	case <-ctx.Done():
	case runErr = <-errCh:
	}

	l.Info().Msg("Shutting down")

	shutdownCtx, cancel := contextPkg.WithTimeout(contextPkg.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		l.Error().Err(err).Msg("HTTP server shutdown")
	}

	if err := a.scheduler.Stop(); err != nil {
		l.Error().Err(err).Msg("scheduler shutdown")
	}

	if err := a.manager.Close(); err != nil {
		l.Error().Err(err).Msg("storage shutdown")
	}

	if err := tracing.ShutdownTracer(shutdownCtx); err != nil {
		l.Error().Err(err).Msg("tracer shutdown")
	}

	return runErr
}
