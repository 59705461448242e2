package cache_test

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/yeisme/teamvault/pkg/cache"
	"github.com/yeisme/teamvault/pkg/internal/storage/kv"
)

type snapshot struct {
	UserID     string `json:"userId"`
	FileCount  int64  `json:"fileCount"`
	TotalBytes int64  `json:"totalBytes"`
}

func newCache(t *testing.T) (*cache.Cache, kv.KVStore) {
	t.Helper()

	store, err := kv.NewMemoryKV(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}

	return cache.NewCache(store), store
}

// brokenStore 所有操作都失败，模拟 KV 不可用.
type brokenStore struct{ kv.KVStore }

var errDown = errors.New("kv down")

func (brokenStore) Get(context.Context, string) ([]byte, error) { return nil, errDown }
func (brokenStore) Set(context.Context, string, []byte, time.Duration) error { return errDown }
func (brokenStore) Delete(context.Context, string) error { return errDown }
func (brokenStore) Keys(context.Context, string) ([]string, error) { return nil, errDown }

// TestSetGet 写入后按类型读回.
func TestSetGet(t *testing.T) {
	c, _ := newCache(t)
	ctx := context.Background()

	want := snapshot{UserID: "u1", FileCount: 3, TotalBytes: 4096}
	if err := cache.Set(ctx, c, cache.UsageKey("u1"), want, time.Minute); err != nil {
		t.Fatal(err)
	}

	got, err := cache.Get[snapshot](ctx, c, cache.UsageKey("u1"))
	if err != nil {
		t.Fatal(err)
	}

	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

// TestGetMiss 不存在的键返回 ErrMiss.
func TestGetMiss(t *testing.T) {
	c, _ := newCache(t)

	if _, err := cache.Get[snapshot](context.Background(), c, "usage:none"); !errors.Is(err, cache.ErrMiss) {
		t.Fatalf("err = %v, want ErrMiss", err)
	}
}

// TestGetCorrupt 无法解码的旧数据按未命中处理并被清除.
func TestGetCorrupt(t *testing.T) {
	c, store := newCache(t)
	ctx := context.Background()

	if err := store.Set(ctx, "usage:bad", []byte("{not json"), time.Minute); err != nil {
		t.Fatal(err)
	}

	if _, err := cache.Get[snapshot](ctx, c, "usage:bad"); !errors.Is(err, cache.ErrMiss) {
		t.Fatalf("err = %v, want ErrMiss", err)
	}

	if ok, _ := store.Exists(ctx, "usage:bad"); ok {
		t.Fatal("corrupt entry should be deleted")
	}
}

// TestExpiry 过期后未命中.
func TestExpiry(t *testing.T) {
	c, _ := newCache(t)
	ctx := context.Background()

	if err := cache.Set(ctx, c, "usage:ttl", snapshot{UserID: "ttl"}, 20*time.Millisecond); err != nil {
		t.Fatal(err)
	}

	time.Sleep(50 * time.Millisecond)

	if _, err := cache.Get[snapshot](ctx, c, "usage:ttl"); !errors.Is(err, cache.ErrMiss) {
		t.Fatalf("err = %v, want ErrMiss after ttl", err)
	}
}

// TestGetOrSet 首次回源并写回，之后命中缓存.
func TestGetOrSet(t *testing.T) {
	c, _ := newCache(t)
	ctx := context.Background()

	loads := 0
	load := func() (snapshot, error) {
		loads++
		return snapshot{UserID: "u2", FileCount: int64(loads)}, nil
	}

	for range 3 {
		got, err := cache.GetOrSet(ctx, c, cache.UsageKey("u2"), load, time.Minute)
		if err != nil {
			t.Fatal(err)
		}

		if got.FileCount != 1 {
			t.Fatalf("FileCount = %d, want value from first load", got.FileCount)
		}
	}

	if loads != 1 {
		t.Fatalf("loads = %d, want 1", loads)
	}
}

// TestGetOrSetLoadError 回源失败不写缓存.
func TestGetOrSetLoadError(t *testing.T) {
	c, _ := newCache(t)
	ctx := context.Background()
	boom := errors.New("db unavailable")

	if _, err := cache.GetOrSet(ctx, c, "usage:err", func() (snapshot, error) { return snapshot{}, boom }, time.Minute); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want load error", err)
	}

	if _, err := cache.Get[snapshot](ctx, c, "usage:err"); !errors.Is(err, cache.ErrMiss) {
		t.Fatalf("failed load should not be cached, err = %v", err)
	}
}

// TestGetOrSetStoreDown KV 不可用时仍能回源.
func TestGetOrSetStoreDown(t *testing.T) {
	c := cache.NewCache(brokenStore{})

	got, err := cache.GetOrSet(context.Background(), c, "usage:x", func() (snapshot, error) {
		return snapshot{UserID: "x"}, nil
	}, time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	if got.UserID != "x" {
		t.Fatalf("got %+v", got)
	}

	if _, err := cache.Get[snapshot](context.Background(), c, "usage:x"); err == nil || errors.Is(err, cache.ErrMiss) {
		t.Fatalf("store error should be surfaced by Get, got %v", err)
	}
}

// TestDelete 删除不存在的键不是错误.
func TestDelete(t *testing.T) {
	c, _ := newCache(t)
	ctx := context.Background()

	if err := cache.Set(ctx, c, cache.UsageKey("u3"), snapshot{UserID: "u3"}, time.Minute); err != nil {
		t.Fatal(err)
	}

	if err := c.Delete(ctx, cache.UsageKey("u3")); err != nil {
		t.Fatal(err)
	}

	if err := c.Delete(ctx, cache.UsageKey("u3")); err != nil {
		t.Fatalf("second delete: %v", err)
	}

	if _, err := cache.Get[snapshot](ctx, c, cache.UsageKey("u3")); !errors.Is(err, cache.ErrMiss) {
		t.Fatalf("err = %v", err)
	}
}

// TestDeletePrefix 只删除指定前缀的键.
func TestDeletePrefix(t *testing.T) {
	c, store := newCache(t)
	ctx := context.Background()

	for _, key := range []string{"rc:1", "rc:2", "usage:a"} {
		if err := cache.Set(ctx, c, key, key, time.Minute); err != nil {
			t.Fatal(err)
		}
	}

	if err := c.DeletePrefix(ctx, "rc:"); err != nil {
		t.Fatal(err)
	}

	keys, err := store.Keys(ctx, "*")
	if err != nil {
		t.Fatal(err)
	}

	if !slices.Equal(keys, []string{"usage:a"}) {
		t.Fatalf("remaining keys = %v", keys)
	}
}

// TestDeletePrefixStoreDown 列举失败时返回错误.
func TestDeletePrefixStoreDown(t *testing.T) {
	c := cache.NewCache(brokenStore{})

	if err := c.DeletePrefix(context.Background(), "rc:"); !errors.Is(err, errDown) {
		t.Fatalf("err = %v, want wrapped store error", err)
	}
}
