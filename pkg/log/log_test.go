package log_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/yeisme/teamvault/pkg/configs"
	"github.com/yeisme/teamvault/pkg/log"
)

// TestGinWriter 测试 Gin 输出被转发为 zerolog 事件.
func TestGinWriter(t *testing.T) {
	var buf bytes.Buffer

	l := zerolog.New(&buf)
	w := log.NewGinWriter(&l, zerolog.ErrorLevel)

	n, err := w.Write([]byte("  route conflict \n"))
	if err != nil {
		t.Fatal(err)
	}

	if n != len("  route conflict \n") {
		t.Errorf("unexpected n %d", n)
	}

	out := buf.String()
	if !strings.Contains(out, `"level":"error"`) || !strings.Contains(out, "route conflict") {
		t.Errorf("unexpected output %s", out)
	}
}

// TestCtxWithoutSpan 没有 span 时不附带 trace 字段.
func TestCtxWithoutSpan(t *testing.T) {
	var buf bytes.Buffer

	log.SetOutput(&buf)

	l := log.Ctx(context.Background())
	l.Info().Msg("hello")

	if strings.Contains(buf.String(), "trace_id") {
		t.Errorf("unexpected trace id in %s", buf.String())
	}

	if !strings.Contains(buf.String(), "hello") {
		t.Errorf("message not written: %s", buf.String())
	}
}

// TestCtxWithSpan 链式调用附带当前 span 的 trace id.
func TestCtxWithSpan(t *testing.T) {
	var buf bytes.Buffer

	log.SetOutput(&buf)

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{0x4b, 0xf9, 0x2f, 0x35, 0x77, 0xb3, 0x4d, 0xa6, 0xa3, 0xce, 0x92, 0x9d, 0x0e, 0x0e, 0x47, 0x36},
		SpanID:     trace.SpanID{0x00, 0xf0, 0x67, 0xaa, 0x0b, 0xa9, 0x02, 0xb7},
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	log.Ctx(ctx).Warn().Str("workspace", "ws-1").Msg("invite expired")

	out := buf.String()
	if !strings.Contains(out, `"trace_id":"4bf92f3577b34da6a3ce929d0e0e4736"`) || !strings.Contains(out, `"span_id":"00f067aa0ba902b7"`) {
		t.Fatalf("trace fields missing: %s", out)
	}
}

// TestNewJSONLevel json 格式按配置级别过滤.
func TestNewJSONLevel(t *testing.T) {
	var buf bytes.Buffer

	l := log.New(configs.LogConfig{Level: "warn", Format: "json"}, false, &buf)
	l.Info().Msg("dropped")
	l.Warn().Str("workspace", "ws1").Msg("kept")

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Errorf("info should be filtered: %s", out)
	}

	if !strings.Contains(out, `"workspace":"ws1"`) || !strings.Contains(out, `"level":"warn"`) {
		t.Errorf("unexpected output %s", out)
	}
}

// TestNewDebugLowersLevel 调试模式下至少输出 debug.
func TestNewDebugLowersLevel(t *testing.T) {
	var buf bytes.Buffer

	l := log.New(configs.LogConfig{Level: "error", Format: "json"}, true, &buf)
	l.Debug().Msg("visible")

	if !strings.Contains(buf.String(), "visible") || !strings.Contains(buf.String(), `"caller"`) {
		t.Errorf("unexpected output %s", buf.String())
	}
}
