// Package log 基于 zerolog 的全局日志，控制台写 stderr，可选 lumberjack 轮转文件.
//
// 业务代码统一使用 Ctx(ctx)，请求链路上存在 span 时自动附带 trace_id 与 span_id.
package log

import (
	"context"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/natefinch/lumberjack"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"

	"github.com/yeisme/teamvault/pkg/configs"
)

var (
	mu     sync.RWMutex
	logger zerolog.Logger
	once   sync.Once
)

// New 按配置构建 logger，console 为控制台输出目标.
// debug 时附带调用位置，级别不高于 debug.
func New(cfg configs.LogConfig, debug bool, console io.Writer) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		lvl = zerolog.InfoLevel
	}

	if debug && lvl > zerolog.DebugLevel {
		lvl = zerolog.DebugLevel
	}

	if cfg.Format != "json" {
		console = zerolog.ConsoleWriter{Out: console, TimeFormat: time.TimeOnly}
	}

	out := console
	if cfg.File.Enabled && cfg.File.Path != "" {
		out = zerolog.MultiLevelWriter(console, &lumberjack.Logger{
			Filename:   cfg.File.Path,
			MaxSize:    cfg.File.MaxSizeMB,
			MaxBackups: cfg.File.MaxBackups,
			MaxAge:     cfg.File.MaxAgeDays,
			Compress:   cfg.File.Compress,
		})
	}

	zctx := zerolog.New(out).Level(lvl).With().Timestamp()
	if debug {
		zctx = zctx.Caller()
	}

	return zctx.Logger()
}

// Init 使用全局配置初始化，重复调用无效.
func Init() {
	once.Do(func() {
		c := configs.GetConfig()
		replace(New(c.Log, c.Server.Debug, os.Stderr))
	})
}

func replace(l zerolog.Logger) {
	mu.Lock()
	logger = l
	log.Logger = l
	mu.Unlock()
}

// Logger 全局 logger，首次调用时初始化.
func Logger() *zerolog.Logger {
	Init()

	mu.RLock()
	l := logger
	mu.RUnlock()

	return &l
}

// SetOutput 替换全局 logger 的输出，测试中用于静默或捕获日志.
func SetOutput(w io.Writer) {
	once.Do(func() {})
	replace(zerolog.New(w).With().Timestamp().Logger())
}

// Ctx 请求内的 logger.
func Ctx(ctx context.Context) *zerolog.Logger {
	l := *Logger()
	if ctx == nil {
		return &l
	}

	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		l = l.With().
			Str("trace_id", sc.TraceID().String()).
			Str("span_id", sc.SpanID().String()).
			Logger()
	}

	return &l
}

// GinWriter 把 gin 的文本输出转成日志事件，错误输出记为 error，其余为 debug.
type GinWriter struct {
	logger *zerolog.Logger
	level  zerolog.Level
}

func NewGinWriter(logger *zerolog.Logger, level zerolog.Level) *GinWriter {
	return &GinWriter{logger: logger, level: level}
}

func (w *GinWriter) Write(p []byte) (int, error) {
	if msg := strings.TrimSpace(string(p)); msg != "" {
		lvl := zerolog.DebugLevel
		if w.level >= zerolog.ErrorLevel {
			lvl = zerolog.ErrorLevel
		}

		w.logger.WithLevel(lvl).Msg(msg)
	}

	return len(p), nil
}
