package mq

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"github.com/yeisme/teamvault/pkg/configs"
)

// redisOutputBuffer 每个订阅的输出通道缓冲.
const redisOutputBuffer = 64

var errRedisClosed = errors.New("redis event bus closed")

func init() {
	RegisterFactory(configs.MQTypeRedis, redisFactory)
}

// redisFrame pub/sub 上传输的帧，保留消息 ID 与元数据.
type redisFrame struct {
	UUID     string            `json:"uuid"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Payload  []byte            `json:"payload"`
}

// redisBus 同一连接同时作为 Publisher 与 Subscriber.
// Redis pub/sub 不持久化，订阅者离线期间的事件会丢失，Nack 也不会重投.
type redisBus struct {
	rdb    *redis.Client
	logger watermill.LoggerAdapter

	mu     sync.Mutex
	subs   []*redis.PubSub
	closed bool
	done   chan struct{}
}

func redisFactory(ctx context.Context, cfg *configs.MQConfig, logger watermill.LoggerAdapter) (message.Publisher, message.Subscriber, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}

	bus := &redisBus{rdb: rdb, logger: logger, done: make(chan struct{})}

	return bus, bus, nil
}

func (b *redisBus) Publish(topic string, msgs ...*message.Message) error {
	for _, msg := range msgs {
		data, err := sonic.Marshal(redisFrame{UUID: msg.UUID, Metadata: msg.Metadata, Payload: msg.Payload})
		if err != nil {
			return fmt.Errorf("encode %s: %w", topic, err)
		}

		if err := b.rdb.Publish(msg.Context(), topic, data).Err(); err != nil {
			return fmt.Errorf("publish %s: %w", topic, err)
		}
	}

	return nil
}

func (b *redisBus) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, errRedisClosed
	}

	ps := b.rdb.Subscribe(ctx, topic)
	b.subs = append(b.subs, ps)

	out := make(chan *message.Message, redisOutputBuffer)
	go b.forward(ctx, topic, ps, out)

	return out, nil
}

// forward 逐条投递并等待处理结果，保证同一主题内顺序处理.
func (b *redisBus) forward(ctx context.Context, topic string, ps *redis.PubSub, out chan<- *message.Message) {
	defer close(out)

	for {
		raw, err := ps.ReceiveMessage(ctx)
		if err != nil {
			return
		}

		msg := b.decode(topic, raw.Payload)

		select {
		case out <- msg:
		case <-b.done:
			return
		case <-ctx.Done():
			return
		}

		select {
		case <-msg.Acked():
		case <-msg.Nacked():
			b.logger.Info("event dropped after nack", watermill.LogFields{"topic": topic, "uuid": msg.UUID})
		case <-b.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

// decode 无法识别的帧按原始负载处理.
func (b *redisBus) decode(topic, data string) *message.Message {
	var f redisFrame
	if err := sonic.UnmarshalString(data, &f); err != nil || f.UUID == "" {
		b.logger.Debug("raw redis payload", watermill.LogFields{"topic": topic})
		return message.NewMessage(watermill.NewUUID(), []byte(data))
	}

	msg := message.NewMessage(f.UUID, f.Payload)
	for k, v := range f.Metadata {
		msg.Metadata.Set(k, v)
	}

	return msg
}

// Close 关闭全部订阅与连接，可重复调用.
func (b *redisBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}

	b.closed = true
	close(b.done)

	var errs []error
	for _, ps := range b.subs {
		if err := ps.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	errs = append(errs, b.rdb.Close())

	return errors.Join(errs...)
}
