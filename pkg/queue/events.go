package queue

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"
)

// Publisher 发布消息的最小接口，mq.Client 实现该接口.
type Publisher interface {
	Publish(ctx context.Context, topic string, msgs ...*message.Message) error
}

func publish[T any](ctx context.Context, pub Publisher, topic string, payload T, opts []Option) error {
	msg, err := NewWatermillMessage(topic, payload, opts...)
	if err != nil {
		return err
	}

	msg.SetContext(ctx)

	return pub.Publish(ctx, topic, msg)
}

// PublishActivity 发布活动事件，主题由事件类型推导.
func PublishActivity(ctx context.Context, pub Publisher, payload ActivityPayload, opts ...Option) error {
	return publish(ctx, pub, TopicForEvent(payload.EventType), payload, opts)
}

// ParseActivity 解析活动事件.
func ParseActivity(msg *message.Message) (Message[ActivityPayload], error) {
	return ParseWatermillMessage[ActivityPayload](msg)
}

// PublishFilePurged 清理任务物理删除文件后发布，无对应活动记录.
func PublishFilePurged(ctx context.Context, pub Publisher, payload FilePurgedPayload, opts ...Option) error {
	return publish(ctx, pub, TopicFilePurged, payload, opts)
}

// ParseFilePurged 解析文件清理事件.
func ParseFilePurged(msg *message.Message) (Message[FilePurgedPayload], error) {
	return ParseWatermillMessage[FilePurgedPayload](msg)
}

// PublishInvitesExpired 一次过期清理只发一条汇总事件.
func PublishInvitesExpired(ctx context.Context, pub Publisher, count int64, opts ...Option) error {
	return publish(ctx, pub, TopicInviteExpired, InvitesExpiredPayload{Count: count}, opts)
}

// ParseInvitesExpired 解析过期汇总事件.
func ParseInvitesExpired(msg *message.Message) (Message[InvitesExpiredPayload], error) {
	return ParseWatermillMessage[InvitesExpiredPayload](msg)
}
