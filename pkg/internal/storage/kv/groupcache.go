package kv

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang/groupcache"

	"github.com/yeisme/teamvault/pkg/configs"
)

// GroupcacheKV 基于 Groupcache 的 KV 实现.
// groupcache 中的值不可变，每次写入或删除递增版本号，读取时使用 key@version 作为缓存键.
type GroupcacheKV struct {
	cache   *groupcache.Group    // Groupcache 缓存组
	peers   *groupcache.HTTPPool // 对等节点池
	data    map[string][]byte    // 本地存储数据
	version map[string]uint64    // 每个键的版本
	mu      sync.RWMutex         // 保护 data 与 version 的读写锁
}

// groupcacheGetter 实现 groupcache.Getter 接口，从本地数据加载.
type groupcacheGetter struct {
	kv *GroupcacheKV
}

func (g *groupcacheGetter) Get(_ context.Context, versioned string, dest groupcache.Sink) error {
	key := versioned
	if i := strings.LastIndexByte(versioned, '@'); i >= 0 {
		key = versioned[:i]
	}

	g.kv.mu.RLock()
	value, exists := g.kv.data[key]
	g.kv.mu.RUnlock()

	if !exists {
		return ErrNotFound
	}

	if err := dest.SetBytes(value); err != nil {
		return fmt.Errorf("failed to set bytes to sink: %w", err)
	}

	return nil
}

var (
	groupsMu sync.Mutex
	groups   = map[string]*GroupcacheKV{}
	poolOnce sync.Once
	pool     *groupcache.HTTPPool
)

// NewGroupcacheKV 创建 Groupcache KV 实例；同名缓存组在进程内复用.
func NewGroupcacheKV(_ context.Context, cfg *configs.KVConfig) (KVStore, error) {
	gcConfig := cfg.Groupcache
	if gcConfig.Name == "" {
		return nil, fmt.Errorf("groupcache name is required")
	}

	groupsMu.Lock()
	defer groupsMu.Unlock()

	if existing, ok := groups[gcConfig.Name]; ok {
		return existing, nil
	}

	kv := &GroupcacheKV{
		data:    make(map[string][]byte),
		version: make(map[string]uint64),
	}

	kv.cache = groupcache.NewGroup(gcConfig.Name, gcConfig.CacheBytes, &groupcacheGetter{kv: kv})

	// 如果有对等节点，设置 HTTP 池；HTTPPool 每个进程只能注册一次
	if len(gcConfig.Peers) > 0 {
		poolOnce.Do(func() {
			pool = groupcache.NewHTTPPoolOpts(gcConfig.Self, &groupcache.HTTPPoolOptions{})
		})
		pool.Set(gcConfig.Peers...)
		kv.peers = pool
	}

	groups[gcConfig.Name] = kv

	return kv, nil
}

func (g *GroupcacheKV) cacheKey(key string) (string, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if _, ok := g.data[key]; !ok {
		return "", false
	}

	return key + "@" + strconv.FormatUint(g.version[key], 10), true
}

// Get 获取键的值.
func (g *GroupcacheKV) Get(ctx context.Context, key string) ([]byte, error) {
	ck, ok := g.cacheKey(key)
	if !ok {
		return nil, ErrNotFound
	}

	var data []byte

	if err := g.cache.Get(ctx, ck, groupcache.AllocatingByteSliceSink(&data)); err != nil {
		return nil, fmt.Errorf("failed to get key: %w", err)
	}

	val, live := splitExpiry(data, time.Now())
	if !live {
		_ = g.Delete(ctx, key)
		return nil, ErrNotFound
	}

	return bytes.Clone(val), nil
}

// Set 设置键的值.
func (g *GroupcacheKV) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	encoded := withExpiry(value, ttl, time.Now())

	g.mu.Lock()
	defer g.mu.Unlock()

	g.data[key] = encoded
	g.version[key]++

	return nil
}

// Delete 删除键.
func (g *GroupcacheKV) Delete(_ context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.data, key)
	g.version[key]++

	return nil
}

// Exists 检查键是否存在.
func (g *GroupcacheKV) Exists(ctx context.Context, key string) (bool, error) {
	if _, err := g.Get(ctx, key); err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}

		return false, err
	}

	return true, nil
}

// Keys 获取所有键.
func (g *GroupcacheKV) Keys(_ context.Context, pattern string) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	keys := make([]string, 0, len(g.data))
	for key := range g.data {
		if matchPattern(pattern, key) {
			keys = append(keys, key)
		}
	}

	return keys, nil
}

// Close 关闭缓存.
func (g *GroupcacheKV) Close() error {
	// Groupcache 没有显式的关闭方法
	return nil
}

func init() {
	RegisterKVFactory(configs.KVTypeGroupcache, NewGroupcacheKV)
}
