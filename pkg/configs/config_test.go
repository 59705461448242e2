package configs_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/yeisme/teamvault/pkg/configs"
)

// TestDefaultsAreValid 默认配置必须能通过校验.
func TestDefaultsAreValid(t *testing.T) {
	c := configs.Defaults()
	if err := c.Validate(); err != nil {
		t.Fatalf("defaults should validate, got %v", err)
	}

	if c.KV.Type != configs.KVTypeMemory {
		t.Errorf("expected memory kv by default, got %s", c.KV.Type)
	}

	if c.MQ.Type != configs.MQTypeMemory {
		t.Errorf("expected memory mq by default, got %s", c.MQ.Type)
	}

	if c.S3.GetPresignExpiry() != time.Hour {
		t.Errorf("expected 1h presign expiry, got %s", c.S3.GetPresignExpiry())
	}
}

// TestInitConfigFromFile 测试从 YAML 文件加载并覆盖默认值.
func TestInitConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	content := []byte(`
server:
  port: 9191
  reload_config: false
db:
  type: sqlite
  database: demo
app:
  base_url: https://vault.example.com
`)

	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), content, 0o600); err != nil {
		t.Fatal(err)
	}

	if err := configs.InitConfig(dir); err != nil {
		t.Fatalf("InitConfig failed: %v", err)
	}

	c := configs.GetConfig()
	if c.Server.Port != 9191 {
		t.Errorf("expected port 9191, got %d", c.Server.Port)
	}

	if c.DB.GetDBType() != "SQLite" {
		t.Errorf("expected SQLite, got %s", c.DB.GetDBType())
	}

	if c.DB.GetDSN() != "file:demo.db" {
		t.Errorf("unexpected dsn %q", c.DB.GetDSN())
	}

	if c.App.BaseURL != "https://vault.example.com" {
		t.Errorf("unexpected base url %q", c.App.BaseURL)
	}
}

// TestInitConfigEnvOverride 测试环境变量覆盖.
func TestInitConfigEnvOverride(t *testing.T) {
	t.Setenv("TEAMVAULT_SERVER_PORT", "7070")

	if err := configs.InitConfig(t.TempDir()); err != nil {
		t.Fatalf("InitConfig failed: %v", err)
	}

	if got := configs.GetConfig().Server.Port; got != 7070 {
		t.Errorf("expected env override 7070, got %d", got)
	}
}

// TestInitConfigRejectsInvalid 非法值应被拒绝.
func TestInitConfigRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "bad.yaml")

	if err := os.WriteFile(file, []byte("kv:\n  type: etcd\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := configs.InitConfig(file); err == nil {
		t.Fatal("expected validation error for unknown kv type")
	}
}

// TestEventsAllowsEntity 测试事件开关.
func TestEventsAllowsEntity(t *testing.T) {
	c := configs.Defaults()
	if !c.Events.AllowsEntity("file") {
		t.Error("file events should be enabled by default")
	}

	c.Events.Enabled = false
	if c.Events.AllowsEntity("file") {
		t.Error("global switch should disable all events")
	}
}

// TestRedacted 打印用副本不包含密钥，原配置不受影响.
func TestRedacted(t *testing.T) {
	c := configs.Defaults()
	c.Auth.JWTSecret = "a-very-long-signing-secret"
	c.Email.Password = ""

	r := c.Redacted()

	if r.Auth.JWTSecret != "******" || r.S3.SecretAccessKey != "******" {
		t.Errorf("secrets not redacted: %q %q", r.Auth.JWTSecret, r.S3.SecretAccessKey)
	}

	if r.Email.Password != "" {
		t.Errorf("empty secret should stay empty, got %q", r.Email.Password)
	}

	if c.Auth.JWTSecret != "a-very-long-signing-secret" {
		t.Error("original config was modified")
	}

	if r.Server.Port != c.Server.Port {
		t.Error("non-secret fields should be kept")
	}
}

// TestShouldTrip 请求数不足或未启用时不打开.
func TestShouldTrip(t *testing.T) {
	cb := configs.CircuitBreakerConfig{Enabled: true, FailureRatio: 0.5, MinRequests: 4}

	tests := []struct {
		requests, failures uint32
		want               bool
	}{
		{0, 0, false},
		{3, 3, false},
		{4, 1, false},
		{4, 2, true},
		{10, 9, true},
	}

	for _, tt := range tests {
		if got := cb.ShouldTrip(tt.requests, tt.failures); got != tt.want {
			t.Errorf("ShouldTrip(%d, %d) = %v, want %v", tt.requests, tt.failures, got, tt.want)
		}
	}

	cb.Enabled = false
	if cb.ShouldTrip(10, 10) {
		t.Error("disabled breaker should never trip")
	}
}
