// Package storage 聚合数据库、对象存储、KV 缓存与消息队列客户端.
//
// Example:
//
//	mgr, err := storage.Init(ctx)
//	if err != nil {
//	    // 处理错误
//	}
//	defer mgr.Close()
//
//	db := mgr.GetDBClient()
//	s3 := mgr.GetS3Client()
package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/yeisme/teamvault/pkg/configs"
	dbc "github.com/yeisme/teamvault/pkg/internal/storage/db"
	kvc "github.com/yeisme/teamvault/pkg/internal/storage/kv"
	mqc "github.com/yeisme/teamvault/pkg/internal/storage/mq"
	s3c "github.com/yeisme/teamvault/pkg/internal/storage/s3"
	nlog "github.com/yeisme/teamvault/pkg/log"
)

// Manager 聚合所有存储资源.
type Manager struct {
	S3 *s3c.Client
	DB *dbc.Client
	KV *kvc.Client
	MQ *mqc.Client
}

var (
	mgr     *Manager
	mgrErr  error
	mgrOnce sync.Once
)

// Init 使用全局配置初始化存储，重复调用只返回已初始化实例.
func Init(ctx context.Context) (*Manager, error) {
	mgrOnce.Do(func() {
		mgr, mgrErr = NewManager(ctx, configs.GetConfig())
	})

	return mgr, mgrErr
}

// NewManager 按给定配置创建全部客户端；任一失败时关闭已创建的客户端.
func NewManager(ctx context.Context, cfg *configs.AppConfig) (*Manager, error) {
	m := &Manager{}

	dbi, err := dbc.New(ctx, &cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("init db: %w", err)
	}

	m.DB = dbi

	if cfg.DB.AutoMigrate {
		if err := dbi.Migrate(ctx); err != nil {
			_ = m.Close()
			return nil, fmt.Errorf("migrate db: %w", err)
		}
	}

	s3i, err := s3c.New(&cfg.S3, cfg.CircuitBreaker)
	if err != nil {
		_ = m.Close()
		return nil, fmt.Errorf("init s3: %w", err)
	}

	m.S3 = s3i

	if cfg.S3.EnsureBucket {
		// 对象存储暂不可用时仍允许启动，健康检查会暴露问题
		if err := s3i.EnsureBucket(ctx); err != nil {
			nlog.Logger().Warn().Err(err).Str("bucket", s3i.Bucket()).Msg("ensure bucket failed")
		}
	}

	kvi, err := kvc.New(ctx, &cfg.KV)
	if err != nil {
		_ = m.Close()
		return nil, fmt.Errorf("init kv: %w", err)
	}

	m.KV = kvi

	mqi, err := mqc.New(ctx, &cfg.MQ, cfg.Metrics.Enabled)
	if err != nil {
		_ = m.Close()
		return nil, fmt.Errorf("init mq: %w", err)
	}

	m.MQ = mqi

	nlog.Logger().Info().
		Str("db", cfg.DB.GetDBType()).
		Str("kv", string(kvi.Type())).
		Str("mq", string(mqi.Type())).
		Msg("storage manager initialized")

	return m, nil
}

// GetS3Client 获取 S3 客户端.
func (m *Manager) GetS3Client() *s3c.Client {
	return m.S3
}

// GetDBClient 获取 DB 客户端.
func (m *Manager) GetDBClient() *dbc.Client {
	return m.DB
}

// GetKVClient 获取 KV 客户端.
func (m *Manager) GetKVClient() *kvc.Client {
	return m.KV
}

// GetMQClient 获取 MQ 客户端.
func (m *Manager) GetMQClient() *mqc.Client {
	return m.MQ
}

// Close 关闭全部客户端，MQ 先于数据库关闭.
func (m *Manager) Close() error {
	var errs []error

	if m.MQ != nil {
		errs = append(errs, m.MQ.Close())
	}

	if m.KV != nil {
		errs = append(errs, m.KV.Close())
	}

	if m.S3 != nil {
		errs = append(errs, m.S3.Close())
	}

	if m.DB != nil {
		errs = append(errs, m.DB.Close())
	}

	return errors.Join(errs...)
}
