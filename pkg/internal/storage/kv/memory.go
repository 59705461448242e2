package kv

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/yeisme/teamvault/pkg/configs"
)

type memoryEntry struct {
	value    []byte
	expireAt time.Time // 零值表示不过期
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expireAt.IsZero() && !now.Before(e.expireAt)
}

// MemoryKV 进程内缓存，单实例部署与测试使用. 过期键在读取时清除.
type MemoryKV struct {
	mu   sync.RWMutex
	data map[string]memoryEntry
}

func NewMemoryKV(context.Context, *configs.KVConfig) (KVStore, error) {
	return &MemoryKV{data: make(map[string]memoryEntry)}, nil
}

func (m *MemoryKV) load(key string) (memoryEntry, bool) {
	m.mu.RLock()
	e, ok := m.data[key]
	m.mu.RUnlock()

	if !ok {
		return e, false
	}

	if e.expired(time.Now()) {
		m.mu.Lock()
		// 期间可能已被重新写入
		if cur, ok := m.data[key]; ok && cur.expired(time.Now()) {
			delete(m.data, key)
		}
		m.mu.Unlock()

		return e, false
	}

	return e, true
}

func (m *MemoryKV) Get(_ context.Context, key string) ([]byte, error) {
	e, ok := m.load(key)
	if !ok {
		return nil, ErrNotFound
	}

	return bytes.Clone(e.value), nil
}

func (m *MemoryKV) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	e := memoryEntry{value: bytes.Clone(value)}
	if ttl > 0 {
		e.expireAt = time.Now().Add(ttl)
	}

	m.mu.Lock()
	m.data[key] = e
	m.mu.Unlock()

	return nil
}

func (m *MemoryKV) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()

	return nil
}

func (m *MemoryKV) Exists(_ context.Context, key string) (bool, error) {
	_, ok := m.load(key)
	return ok, nil
}

// Keys pattern 以 * 结尾时按前缀匹配，不返回已过期的键.
func (m *MemoryKV) Keys(_ context.Context, pattern string) ([]string, error) {
	now := time.Now()
	keys := make([]string, 0)

	m.mu.RLock()
	for k, e := range m.data {
		if matchPattern(pattern, k) && !e.expired(now) {
			keys = append(keys, k)
		}
	}
	m.mu.RUnlock()

	return keys, nil
}

func (m *MemoryKV) Close() error {
	return nil
}

func init() {
	RegisterKVFactory(configs.KVTypeMemory, NewMemoryKV)
}
