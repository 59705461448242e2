// Package mq 活动事件总线，基于 watermill.
//
// 三种实现按配置选择：
//   - memory: 进程内 gochannel，单实例与测试
//   - nats: JetStream 持久化，多实例按 queue group 分摊
//   - redis: pub/sub，不持久化
//
// 生产者通过 Publish 发送 queue 包封装的消息，消费者在 Run 之前用 AddHandler 注册：
//
//	client.AddHandler("usage-invalidate", queue.TopicFileUploaded, fn)
//	go client.Run(ctx)
package mq

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	watermill "github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/components/metrics"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/yeisme/teamvault/pkg/configs"
	nlog "github.com/yeisme/teamvault/pkg/log"
)

// Factory 按配置创建 Publisher 与 Subscriber.
type Factory func(ctx context.Context, cfg *configs.MQConfig, logger watermill.LoggerAdapter) (message.Publisher, message.Subscriber, error)

var (
	factoriesMu sync.RWMutex
	factories   = map[configs.MQType]Factory{}

	errNotReady = errors.New("event bus not initialized")
)

// RegisterFactory 在 init 中调用.
func RegisterFactory(t configs.MQType, f Factory) {
	factoriesMu.Lock()
	factories[t] = f
	factoriesMu.Unlock()
}

// RegisteredTypes 已注册实现，按名称排序.
func RegisteredTypes() []configs.MQType {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()

	out := make([]configs.MQType, 0, len(factories))
	for t := range factories {
		out = append(out, t)
	}

	slices.Sort(out)

	return out
}

// Client 事件总线客户端，实现 queue.Publisher.
type Client struct {
	kind   configs.MQType
	pub    message.Publisher
	sub    message.Subscriber
	router *message.Router

	mu       sync.Mutex
	handlers []string
}

// New 创建客户端；withMetrics 时把 watermill 指标注册到默认 prometheus registry.
func New(ctx context.Context, cfg *configs.MQConfig, withMetrics bool) (*Client, error) {
	kind := cfg.GetMQType()

	factoriesMu.RLock()
	factory, ok := factories[kind]
	factoriesMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unsupported mq type: %s", kind)
	}

	logger := NewLoggerAdapter()

	pub, sub, err := factory(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("init mq (%s): %w", kind, err)
	}

	router, err := message.NewRouter(message.RouterConfig{}, logger)
	if err != nil {
		return nil, fmt.Errorf("create router: %w", err)
	}

	// Retry 在内层，panic 被 Recoverer 转为错误后同样参与重试
	router.AddMiddleware(
		middleware.Recoverer,
		retryMiddleware(cfg.Consumer, logger),
	)

	if withMetrics {
		mb := metrics.NewPrometheusMetricsBuilder(prometheus.DefaultRegisterer, "teamvault", "events")
		mb.AddPrometheusRouterMetrics(router)

		if pub, err = mb.DecoratePublisher(pub); err != nil {
			return nil, fmt.Errorf("publisher metrics: %w", err)
		}

		if sub, err = mb.DecorateSubscriber(sub); err != nil {
			return nil, fmt.Errorf("subscriber metrics: %w", err)
		}
	}

	nlog.Logger().Info().Str("type", string(kind)).Msg("event bus ready")

	return &Client{kind: kind, pub: pub, sub: sub, router: router}, nil
}

func retryMiddleware(cfg configs.MQConsumerConfig, logger watermill.LoggerAdapter) message.HandlerMiddleware {
	r := middleware.Retry{
		MaxRetries:      cfg.MaxRetries,
		InitialInterval: cfg.InitialInterval,
		MaxInterval:     cfg.MaxInterval,
		Multiplier:      2,
		Logger:          logger,
	}

	return r.Middleware
}

// Publish 逐条发布到 topic.
func (c *Client) Publish(_ context.Context, topic string, msgs ...*message.Message) error {
	if c == nil || c.pub == nil {
		return errNotReady
	}

	return c.pub.Publish(topic, msgs...)
}

// Type 当前实现.
func (c *Client) Type() configs.MQType {
	return c.kind
}

// AddHandler 注册只消费的处理器，需在 Run 之前调用；返回错误的消息按重试策略重投.
func (c *Client) AddHandler(name, topic string, fn message.NoPublishHandlerFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.router.AddNoPublisherHandler(name, topic, c.sub, fn)
	c.handlers = append(c.handlers, name)
}

// Handlers 已注册的处理器名称.
func (c *Client) Handlers() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return slices.Clone(c.handlers)
}

// Run 阻塞直到 ctx 取消；没有处理器时立即返回.
func (c *Client) Run(ctx context.Context) error {
	if len(c.Handlers()) == 0 {
		return nil
	}

	return c.router.Run(ctx)
}

// Running Router 启动完成后关闭.
func (c *Client) Running() chan struct{} {
	return c.router.Running()
}

// Close 依次关闭 Router、Publisher、Subscriber.
func (c *Client) Close() error {
	var errs []error

	if c.router != nil {
		errs = append(errs, c.router.Close())
	}

	if c.pub != nil {
		errs = append(errs, c.pub.Close())
	}

	if c.sub != nil {
		errs = append(errs, c.sub.Close())
	}

	return errors.Join(errs...)
}
