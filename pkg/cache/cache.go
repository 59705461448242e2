// Package cache 在 KV 存储之上提供带类型的读穿缓存，值使用 sonic 序列化.
//
// 业务上缓存两类数据：用户用量快照（usage:<userID>）与响应缓存（rc:<hash>）.
// 缓存未命中或失败不影响主流程，调用方总能回源数据库.
//
//	c := cache.NewCache(kvClient)
//	snap, err := cache.GetOrSet(ctx, c, cache.UsageKey(userID), load, time.Minute)
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"

	"github.com/yeisme/teamvault/pkg/internal/storage/kv"
	nlog "github.com/yeisme/teamvault/pkg/log"
)

const usagePrefix = "usage:"

// ErrMiss 键不存在、已过期或内容无法解码.
var ErrMiss = errors.New("cache: miss")

// UsageKey 用户用量快照的缓存键.
func UsageKey(userID string) string {
	return usagePrefix + userID
}

// Cache 对 kv.KVStore 的类型化封装.
type Cache struct {
	store kv.KVStore
}

func NewCache(store kv.KVStore) *Cache {
	return &Cache{store: store}
}

// Get 读取并解码. 解码失败的旧数据会被删除并按未命中处理.
func Get[T any](ctx context.Context, c *Cache, key string) (T, error) {
	var value T

	data, err := c.store.Get(ctx, key)
	if errors.Is(err, kv.ErrNotFound) {
		return value, ErrMiss
	}

	if err != nil {
		return value, fmt.Errorf("cache get %s: %w", key, err)
	}

	if err := sonic.Unmarshal(data, &value); err != nil {
		_ = c.store.Delete(ctx, key)

		var zero T

		return zero, ErrMiss
	}

	return value, nil
}

// Set 编码后写入，ttl <= 0 使用存储的默认过期策略.
func Set[T any](ctx context.Context, c *Cache, key string, value T, ttl time.Duration) error {
	data, err := sonic.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", key, err)
	}

	return c.store.Set(ctx, key, data, ttl)
}

// GetOrSet 读穿：未命中或存储不可用时调用 load 回源，回源结果尽力写回.
// load 的错误原样返回且不缓存.
func GetOrSet[T any](ctx context.Context, c *Cache, key string, load func() (T, error), ttl time.Duration) (T, error) {
	value, err := Get[T](ctx, c, key)
	if err == nil {
		return value, nil
	}

	if !errors.Is(err, ErrMiss) {
		nlog.Ctx(ctx).Debug().Err(err).Str("key", key).Msg("cache unavailable, loading from source")
	}

	value, err = load()
	if err != nil {
		var zero T

		return zero, err
	}

	if err := Set(ctx, c, key, value, ttl); err != nil {
		nlog.Ctx(ctx).Debug().Err(err).Str("key", key).Msg("cache write back")
	}

	return value, nil
}

// Delete 删除单个键，键不存在不是错误.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := c.store.Delete(ctx, key); err != nil && !errors.Is(err, kv.ErrNotFound) {
		return err
	}

	return nil
}

// DeletePrefix 删除前缀下的全部键；单个键失败不会中断，返回合并后的错误.
func (c *Cache) DeletePrefix(ctx context.Context, prefix string) error {
	keys, err := c.store.Keys(ctx, prefix+"*")
	if err != nil {
		return fmt.Errorf("cache list %s*: %w", prefix, err)
	}

	var errs []error

	for _, key := range keys {
		if err := c.Delete(ctx, key); err != nil {
			errs = append(errs, fmt.Errorf("delete %s: %w", key, err))
		}
	}

	return errors.Join(errs...)
}
