package kv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/yeisme/teamvault/pkg/configs"
)

// NATSKV JetStream KV bucket. bucket 的 TTL 取默认缓存时间，
// 更短的逐键过期写在值头部，读取时判断.
type NATSKV struct {
	nc *nats.Conn
	kv jetstream.KeyValue
}

func NewNATSKV(ctx context.Context, cfg *configs.KVConfig) (KVStore, error) {
	var opts []nats.Option
	if cfg.NATS.User != "" {
		opts = append(opts, nats.UserInfo(cfg.NATS.User, cfg.NATS.Password))
	}

	nc, err := nats.Connect(cfg.NATS.URL, append(opts, nats.Name("teamvault-kv"))...)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", cfg.NATS.URL, err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      cfg.NATS.Bucket,
		Description: "teamvault cache",
		TTL:         cfg.DefaultTTL,
		History:     1,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("kv bucket %s: %w", cfg.NATS.Bucket, err)
	}

	return &NATSKV{nc: nc, kv: kv}, nil
}

func (n *NATSKV) Get(ctx context.Context, key string) ([]byte, error) {
	entry, err := n.kv.Get(ctx, key)
	switch {
	case errors.Is(err, jetstream.ErrKeyNotFound):
		return nil, ErrNotFound
	case err != nil:
		return nil, fmt.Errorf("nats kv get %s: %w", key, err)
	}

	val, live := splitExpiry(entry.Value(), time.Now())
	if !live {
		_ = n.kv.Delete(ctx, key)
		return nil, ErrNotFound
	}

	return val, nil
}

func (n *NATSKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if _, err := n.kv.Put(ctx, key, withExpiry(value, ttl, time.Now())); err != nil {
		return fmt.Errorf("nats kv put %s: %w", key, err)
	}

	return nil
}

func (n *NATSKV) Delete(ctx context.Context, key string) error {
	if err := n.kv.Delete(ctx, key); err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("nats kv delete %s: %w", key, err)
	}

	return nil
}

func (n *NATSKV) Exists(ctx context.Context, key string) (bool, error) {
	_, err := n.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}

	return err == nil, err
}

// Keys 列出 bucket 中匹配的键. 过期判断需要读取值，因此逐个检查.
func (n *NATSKV) Keys(ctx context.Context, pattern string) ([]string, error) {
	lister, err := n.kv.ListKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("nats kv keys: %w", err)
	}
	defer func() { _ = lister.Stop() }()

	keys := make([]string, 0)

	for key := range lister.Keys() {
		if !matchPattern(pattern, key) {
			continue
		}

		if ok, err := n.Exists(ctx, key); err == nil && ok {
			keys = append(keys, key)
		}
	}

	return keys, nil
}

func (n *NATSKV) Close() error {
	return n.nc.Drain()
}

func init() {
	RegisterKVFactory(configs.KVTypeNATS, NewNATSKV)
}
