// Package s3 封装 S3 兼容对象存储：预签名上传/下载/预览链接、删除对象与存储桶初始化.
// 服务端从不中转文件内容，客户端凭预签名链接直传.
package s3

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"time"

	minio "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/sony/gobreaker"

	"github.com/yeisme/teamvault/pkg/configs"
	nlog "github.com/yeisme/teamvault/pkg/log"
)

// ErrObjectNotFound 对象不存在.
var ErrObjectNotFound = errors.New("object not found")

// Client 包装 MinIO 客户端，固定使用单个存储桶.
type Client struct {
	*minio.Client

	bucket  string
	region  string
	expiry  time.Duration
	breaker *gobreaker.CircuitBreaker
}

// New 创建 MinIO 客户端，不发起网络请求；Region 非空时预签名可离线计算.
func New(cfg *configs.S3Config, cb configs.CircuitBreakerConfig) (*Client, error) {
	endpoint := cfg.Endpoint
	secure := cfg.UseSSL
	// 允许用户传完整 schema endpoint（http:// 或 https://）
	if u, err := url.Parse(endpoint); err == nil && u.Host != "" {
		endpoint = u.Host
		secure = u.Scheme == "https"
	}

	cli, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	cli.SetAppInfo("teamvault", configs.AppVersion)

	return &Client{
		Client:  cli,
		bucket:  cfg.BucketName,
		region:  cfg.Region,
		expiry:  cfg.GetPresignExpiry(),
		breaker: newBreaker(cb),
	}, nil
}

// newBreaker 对象存储调用熔断；未启用时 ShouldTrip 恒为 false. 对象不存在不计为失败.
func newBreaker(cfg configs.CircuitBreakerConfig) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:         "s3",
		MaxRequests:  cfg.HalfOpenProbes,
		Interval:     cfg.Window,
		Timeout:      cfg.OpenTimeout,
		ReadyToTrip:  func(n gobreaker.Counts) bool { return cfg.ShouldTrip(n.Requests, n.TotalFailures) },
		IsSuccessful: func(err error) bool { return err == nil || isNoSuchKey(err) },
	})
}

func isNoSuchKey(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}

// presign 熔断打开时预签名同样快速失败，避免发出注定失败的直传链接.
func (c *Client) presign(fn func() (*url.URL, error)) (*url.URL, error) {
	res, err := c.breaker.Execute(func() (any, error) { return fn() })
	if err != nil {
		return nil, err
	}

	u, ok := res.(*url.URL)
	if !ok {
		return nil, errors.New("presign: unexpected result")
	}

	return u, nil
}

// Bucket 返回使用的存储桶名.
func (c *Client) Bucket() string {
	return c.bucket
}

// DefaultExpiry 返回默认预签名有效期.
func (c *Client) DefaultExpiry() time.Duration {
	return c.expiry
}

// EnsureBucket 存储桶不存在时创建.
func (c *Client) EnsureBucket(ctx context.Context) error {
	_, err := c.breaker.Execute(func() (any, error) {
		exists, err := c.BucketExists(ctx, c.bucket)
		if err != nil {
			return nil, fmt.Errorf("check bucket %s: %w", c.bucket, err)
		}

		if exists {
			return nil, nil
		}

		if err := c.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{Region: c.region}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", c.bucket, err)
		}

		nlog.Logger().Info().Str("bucket", c.bucket).Msg("bucket created")

		return nil, nil
	})

	return err
}

func (c *Client) ttl(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return c.expiry
	}

	return ttl
}

// PresignedUploadURL 生成 PUT 直传链接，Content-Type 参与签名，客户端上传时必须携带相同的请求头.
func (c *Client) PresignedUploadURL(ctx context.Context, key, contentType string, ttl time.Duration) (string, error) {
	headers := http.Header{}
	if contentType != "" {
		headers.Set("Content-Type", contentType)
	}

	u, err := c.presign(func() (*url.URL, error) {
		return c.PresignHeader(ctx, http.MethodPut, c.bucket, key, c.ttl(ttl), nil, headers)
	})
	if err != nil {
		return "", fmt.Errorf("presign put %s: %w", key, err)
	}

	return u.String(), nil
}

// PresignedDownloadURL 生成以附件形式下载的链接.
func (c *Client) PresignedDownloadURL(ctx context.Context, key, filename string, ttl time.Duration) (string, error) {
	params := url.Values{}
	params.Set("response-content-disposition", contentDisposition("attachment", filename))

	u, err := c.presign(func() (*url.URL, error) {
		return c.PresignedGetObject(ctx, c.bucket, key, c.ttl(ttl), params)
	})
	if err != nil {
		return "", fmt.Errorf("presign get %s: %w", key, err)
	}

	return u.String(), nil
}

// PresignedPreviewURL 生成浏览器内联预览链接.
func (c *Client) PresignedPreviewURL(ctx context.Context, key, contentType string, ttl time.Duration) (string, error) {
	params := url.Values{}
	if contentType != "" {
		params.Set("response-content-type", contentType)
	}

	params.Set("response-content-disposition", "inline")

	u, err := c.presign(func() (*url.URL, error) {
		return c.PresignedGetObject(ctx, c.bucket, key, c.ttl(ttl), params)
	})
	if err != nil {
		return "", fmt.Errorf("presign preview %s: %w", key, err)
	}

	return u.String(), nil
}

// DeleteObject 删除对象，对象不存在视为成功.
func (c *Client) DeleteObject(ctx context.Context, key string) error {
	_, err := c.breaker.Execute(func() (any, error) {
		return nil, c.RemoveObject(ctx, c.bucket, key, minio.RemoveObjectOptions{})
	})
	if err != nil {
		if isNoSuchKey(err) {
			return nil
		}

		return fmt.Errorf("delete object %s: %w", key, err)
	}

	return nil
}

// ObjectSize 返回对象实际大小，用于确认上传. 对象不存在时返回 ErrObjectNotFound.
func (c *Client) ObjectSize(ctx context.Context, key string) (int64, error) {
	res, err := c.breaker.Execute(func() (any, error) {
		return c.StatObject(ctx, c.bucket, key, minio.StatObjectOptions{})
	})
	if err != nil {
		if isNoSuchKey(err) {
			return 0, fmt.Errorf("stat object %s: %w", key, ErrObjectNotFound)
		}

		return 0, fmt.Errorf("stat object %s: %w", key, err)
	}

	info, ok := res.(minio.ObjectInfo)
	if !ok {
		return 0, fmt.Errorf("stat object %s: unexpected result", key)
	}

	return info.Size, nil
}

// HealthCheck 检查存储桶是否可访问.
func (c *Client) HealthCheck(ctx context.Context) error {
	_, err := c.BucketExists(ctx, c.bucket)

	return err
}

// Close 关闭 S3 客户端连接（无实际操作，接口兼容）.
func (c *Client) Close() error {
	return nil
}

// contentDisposition 构造带文件名的 Content-Disposition，非 ASCII 文件名按 RFC 6266 编码.
func contentDisposition(kind, filename string) string {
	if filename == "" {
		return kind
	}

	if v := mime.FormatMediaType(kind, map[string]string{"filename": filename}); v != "" {
		return v
	}

	return kind
}
