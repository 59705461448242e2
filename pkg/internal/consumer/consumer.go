// Package consumer 订阅活动事件，在多实例部署下失效其它节点的用量缓存.
//
//	c := consumer.New(cache.NewCache(kvClient))
//	c.Register(mqClient)
//	go mqClient.Run(ctx)
package consumer

import (
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/yeisme/teamvault/pkg/cache"
	nlog "github.com/yeisme/teamvault/pkg/log"
	"github.com/yeisme/teamvault/pkg/metrics"
	"github.com/yeisme/teamvault/pkg/queue"
)

const (
	resultOK      = "ok"
	resultError   = "error"
	resultSkipped = "skipped"
)

// Registrar 注册只消费的处理器，mq.Client 实现该接口.
type Registrar interface {
	AddHandler(name, topic string, fn message.NoPublishHandlerFunc)
}

// Consumer 用量缓存失效与消费统计.
type Consumer struct {
	cache *cache.Cache
}

// New cache 为 nil 时只统计不失效.
func New(c *cache.Cache) *Consumer {
	return &Consumer{cache: c}
}

// Register 为每个影响用量的主题注册处理器.
func (c *Consumer) Register(r Registrar) {
	for _, topic := range queue.UsageTopics {
		r.AddHandler("usage-invalidate."+queue.EventForTopic(topic), topic, c.handler(topic))
	}

	r.AddHandler("invite-expired.log", queue.TopicInviteExpired, c.logExpired)
}

func (c *Consumer) handler(topic string) message.NoPublishHandlerFunc {
	return func(msg *message.Message) error {
		result := c.invalidate(topic, msg)
		metrics.EventsConsumed.WithLabelValues(topic, result).Inc()

		return nil
	}
}

// ownerOf 文件清理事件与活动事件的负载结构不同.
func ownerOf(topic string, msg *message.Message) (string, error) {
	if topic == queue.TopicFilePurged {
		m, err := queue.ParseFilePurged(msg)

		return m.Payload.OwnerID, err
	}

	m, err := queue.ParseActivity(msg)

	return m.Payload.OwnerID, err
}

// invalidate 解析失败或删除失败只记录日志，不重投消息.
func (c *Consumer) invalidate(topic string, msg *message.Message) string {
	ctx := msg.Context()

	owner, err := ownerOf(topic, msg)
	if err != nil {
		nlog.Ctx(ctx).Warn().Err(err).Str("topic", topic).Str("message_id", msg.UUID).Msg("decode event")

		return resultError
	}

	if owner == "" || c.cache == nil {
		return resultSkipped
	}

	if err := c.cache.Delete(ctx, cache.UsageKey(owner)); err != nil {
		nlog.Ctx(ctx).Warn().Err(err).Str("user", owner).Msg("invalidate usage cache")

		return resultError
	}

	return resultOK
}

func (c *Consumer) logExpired(msg *message.Message) error {
	m, err := queue.ParseInvitesExpired(msg)
	if err != nil {
		metrics.EventsConsumed.WithLabelValues(queue.TopicInviteExpired, resultError).Inc()

		return nil
	}

	nlog.Ctx(msg.Context()).Info().Int64("count", m.Payload.Count).Str("producer", m.Header.Producer).Msg("invites expired")
	metrics.EventsConsumed.WithLabelValues(queue.TopicInviteExpired, resultOK).Inc()

	return nil
}
