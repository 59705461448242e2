package s3_test

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/sony/gobreaker"

	"github.com/yeisme/teamvault/pkg/configs"
	"github.com/yeisme/teamvault/pkg/internal/storage/s3"
)

func newClient(t *testing.T) *s3.Client {
	t.Helper()

	cfg := configs.S3Config{
		Endpoint:        "http://localhost:9000",
		AccessKeyID:     "minioadmin",
		SecretAccessKey: "minioadmin",
		BucketName:      "teamvault-test",
		Region:          "us-east-1",
		PresignExpiry:   3600,
	}

	c, err := s3.New(&cfg, configs.CircuitBreakerConfig{})
	if err != nil {
		t.Fatal(err)
	}

	return c
}

// TestPresignedUploadURL 预签名在设置 region 时离线生成.
func TestPresignedUploadURL(t *testing.T) {
	c := newClient(t)

	raw, err := c.PresignedUploadURL(context.Background(), "01ABC.txt", "text/plain", 0)
	if err != nil {
		t.Fatal(err)
	}

	u, err := url.Parse(raw)
	if err != nil {
		t.Fatal(err)
	}

	if u.Host != "localhost:9000" || u.Path != "/teamvault-test/01ABC.txt" {
		t.Errorf("unexpected url %s", raw)
	}

	q := u.Query()
	if q.Get("X-Amz-Expires") != "3600" {
		t.Errorf("expected default expiry 3600, got %s", q.Get("X-Amz-Expires"))
	}

	if !strings.Contains(strings.ToLower(q.Get("X-Amz-SignedHeaders")), "content-type") {
		t.Errorf("content-type should be signed: %s", q.Get("X-Amz-SignedHeaders"))
	}
}

// TestPresignedDownloadURL 下载链接带附件文件名.
func TestPresignedDownloadURL(t *testing.T) {
	c := newClient(t)

	raw, err := c.PresignedDownloadURL(context.Background(), "01ABC.txt", "report.txt", 10*time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	u, _ := url.Parse(raw)
	q := u.Query()

	if q.Get("response-content-disposition") != `attachment; filename=report.txt` {
		t.Errorf("unexpected disposition %q", q.Get("response-content-disposition"))
	}

	if q.Get("X-Amz-Expires") != "600" {
		t.Errorf("expected 600, got %s", q.Get("X-Amz-Expires"))
	}
}

// TestPresignedPreviewURL 预览链接使用 inline 与原始类型.
func TestPresignedPreviewURL(t *testing.T) {
	c := newClient(t)

	raw, err := c.PresignedPreviewURL(context.Background(), "01ABC.png", "image/png", 0)
	if err != nil {
		t.Fatal(err)
	}

	u, _ := url.Parse(raw)
	q := u.Query()

	if q.Get("response-content-type") != "image/png" || q.Get("response-content-disposition") != "inline" {
		t.Errorf("unexpected params %v", q)
	}
}

// TestBreakerGuardsPresign 存储不可达导致熔断打开后，预签名也快速失败.
func TestBreakerGuardsPresign(t *testing.T) {
	cfg := configs.S3Config{
		Endpoint:        "http://127.0.0.1:1",
		AccessKeyID:     "minioadmin",
		SecretAccessKey: "minioadmin",
		BucketName:      "teamvault-test",
		Region:          "us-east-1",
	}

	c, err := s3.New(&cfg, configs.CircuitBreakerConfig{
		Enabled:      true,
		FailureRatio: 0.5,
		MinRequests:  1,
		Window:       time.Minute,
		OpenTimeout:  time.Minute,
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := c.PresignedUploadURL(context.Background(), "01ABC.txt", "text/plain", 0); err != nil {
		t.Fatalf("closed breaker: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	if _, err := c.ObjectSize(ctx, "01ABC.txt"); err == nil {
		t.Fatal("unreachable store reported an object")
	}

	_, err = c.PresignedUploadURL(context.Background(), "01ABC.txt", "text/plain", 0)
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("upload presign with open breaker: %v", err)
	}

	_, err = c.PresignedDownloadURL(context.Background(), "01ABC.txt", "report.txt", 0)
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("download presign with open breaker: %v", err)
	}
}
