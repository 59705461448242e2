// Package queue 定义活动事件的消息封装，用于在活动记录提交后异步通知下游（用量缓存失效、指标统计）.
//
// 消息信封 JSON 结构
//
//	{
//	  "header": {
//	    "topic": "tv.file.uploaded",
//	    "trace_id": "optional-trace-id",
//	    "producer": "teamvault",
//	    "occurred_at": "2025-01-02T03:04:05.123456Z",
//	    "version": "v1"
//	  },
//	  "payload": { ... 取决于具体主题 ... }
//	}
//
// 发布示例
//
//	err := queue.PublishActivity(ctx, mqClient, queue.ActivityPayload{
//	  WorkspaceID: ws.ID,
//	  ActorID:     user.ID,
//	  EventType:   "file.uploaded",
//	}, queue.WithProducer("teamvault"))
//
// 注意事项
//  1. occurred_at 为 UTC
//  2. 消费者应忽略未知字段
//  3. 消息 ID 使用活动记录 ID，消费者可据此幂等
package queue

import (
	"errors"
	"fmt"
	"time"

	watermill "github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/bytedance/sonic"
)

// PayloadVersionV1 当前信封版本.
const PayloadVersionV1 = "v1"

// watermill 元数据键，便于不解码负载时路由与排查.
const (
	MetaTopic      = "topic"
	MetaTraceID    = "trace_id"
	MetaProducer   = "producer"
	MetaOccurredAt = "occurred_at"
	MetaVersion    = "version"
)

// ErrUnsupportedVersion 信封版本不是本服务能解析的版本.
var ErrUnsupportedVersion = errors.New("queue: unsupported payload version")

// Option 修改事件头.
type Option func(*EventHeader)

// WithTraceID 关联发布时的追踪 ID.
func WithTraceID(id string) Option { return func(h *EventHeader) { h.TraceID = id } }

// WithProducer 标记生产者.
func WithProducer(p string) Option { return func(h *EventHeader) { h.Producer = p } }

// WithOccurredAt 使用业务发生时间（如活动记录的 created_at），默认取当前时间.
func WithOccurredAt(t time.Time) Option { return func(h *EventHeader) { h.OccurredAt = t.UTC() } }

// NewEventHeader 构造事件头.
func NewEventHeader(topic string, opts ...Option) EventHeader {
	hdr := EventHeader{Topic: topic, OccurredAt: time.Now().UTC(), Version: PayloadVersionV1}
	for _, opt := range opts {
		opt(&hdr)
	}

	return hdr
}

// Encode 序列化信封.
func Encode[T any](msg Message[T]) ([]byte, error) {
	return sonic.Marshal(msg)
}

// Decode 反序列化信封；缺省版本按 v1 处理，其它版本拒绝.
func Decode[T any](b []byte) (Message[T], error) {
	var m Message[T]
	if err := sonic.Unmarshal(b, &m); err != nil {
		return m, fmt.Errorf("decode envelope: %w", err)
	}

	switch m.Header.Version {
	case "", PayloadVersionV1:
		return m, nil
	default:
		return m, fmt.Errorf("%w: %q", ErrUnsupportedVersion, m.Header.Version)
	}
}

// identified 负载自带稳定 ID 时用作消息 ID，消费者据此去重.
type identified interface {
	MessageID() string
}

// NewWatermillMessage 构造 watermill 消息并把事件头同步到元数据.
func NewWatermillMessage[T any](topic string, payload T, opts ...Option) (*message.Message, error) {
	header := NewEventHeader(topic, opts...)

	data, err := Encode(Message[T]{Header: header, Payload: payload})
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", topic, err)
	}

	id := watermill.NewUUID()
	if v, ok := any(payload).(identified); ok && v.MessageID() != "" {
		id = v.MessageID()
	}

	msg := message.NewMessage(id, data)
	msg.Metadata.Set(MetaTopic, topic)
	msg.Metadata.Set(MetaOccurredAt, header.OccurredAt.Format(time.RFC3339Nano))
	msg.Metadata.Set(MetaVersion, header.Version)

	if header.TraceID != "" {
		msg.Metadata.Set(MetaTraceID, header.TraceID)
	}

	if header.Producer != "" {
		msg.Metadata.Set(MetaProducer, header.Producer)
	}

	return msg, nil
}

// ParseWatermillMessage 解出泛型负载.
func ParseWatermillMessage[T any](msg *message.Message) (Message[T], error) {
	return Decode[T](msg.Payload)
}
