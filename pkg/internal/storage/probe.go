package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// 可探测的组件.
const (
	ComponentDB = "db"
	ComponentS3 = "s3"
	ComponentKV = "kv"
	ComponentMQ = "mq"
)

// Components 探测顺序.
var Components = []string{ComponentDB, ComponentS3, ComponentKV, ComponentMQ}

const probeKey = "health:probe"

var errNotInitialized = errors.New("not initialized")

// Probe 检查单个组件的连通性. KV 通过写入并读回探针键检查；
// 事件总线在创建时已建立连接，此处只确认客户端存在.
func (m *Manager) Probe(ctx context.Context, component string) error {
	if m == nil {
		return errNotInitialized
	}

	switch component {
	case ComponentDB:
		if m.DB == nil || m.DB.DB == nil {
			return errNotInitialized
		}

		return m.DB.Ping(ctx)
	case ComponentS3:
		if m.S3 == nil || m.S3.Client == nil {
			return errNotInitialized
		}

		return m.S3.HealthCheck(ctx)
	case ComponentKV:
		if m.KV == nil || m.KV.KVStore == nil {
			return errNotInitialized
		}

		if err := m.KV.Set(ctx, probeKey, []byte("ok"), time.Minute); err != nil {
			return err
		}

		_, err := m.KV.Get(ctx, probeKey)

		return err
	case ComponentMQ:
		if m.MQ == nil {
			return errNotInitialized
		}

		return nil
	default:
		return fmt.Errorf("unknown component %q", component)
	}
}

// ProbeAll 并发探测全部组件，返回每个组件的结果（nil 表示正常）.
func (m *Manager) ProbeAll(ctx context.Context) map[string]error {
	results := make([]error, len(Components))

	var g errgroup.Group
	for i, name := range Components {
		g.Go(func() error {
			results[i] = m.Probe(ctx, name)
			return nil
		})
	}

	_ = g.Wait()

	out := make(map[string]error, len(Components))
	for i, name := range Components {
		out[name] = results[i]
	}

	return out
}
