package mq

import (
	"context"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	nc "github.com/nats-io/nats.go"

	"github.com/yeisme/teamvault/pkg/configs"
)

func init() {
	RegisterFactory(configs.MQTypeNATS, natsFactory)
}

// natsOptions 连接选项；凭据优先级 JWT > NKey > 用户名密码.
func natsOptions(cfg *configs.MQNATSConfig) []nc.Option {
	opts := []nc.Option{
		nc.Name(cfg.ClientName),
		nc.MaxReconnects(cfg.MaxReconnects),
		nc.ReconnectWait(cfg.ReconnectWait),
		nc.PingInterval(cfg.PingInterval),
		nc.ReconnectBufSize(cfg.ReconnectBufSize),
		nc.DrainTimeout(30 * time.Second),
		nc.RetryOnFailedConnect(true),
	}

	switch {
	case cfg.JWT != "":
		opts = append(opts, nc.UserJWTAndSeed(cfg.JWT, cfg.NKey))
	case cfg.NKey != "":
		opts = append(opts, nc.Nkey(cfg.NKey, nil))
	case cfg.User != "":
		opts = append(opts, nc.UserInfo(cfg.User, cfg.Password))
	}

	return opts
}

// natsFactory 多实例部署使用，JetStream 持久化活动事件，实例间按 queue group 分摊消费.
func natsFactory(_ context.Context, cfg *configs.MQConfig, logger watermill.LoggerAdapter) (message.Publisher, message.Subscriber, error) {
	js := nats.JetStreamConfig{
		Disabled:      !cfg.NATS.JetStream,
		AutoProvision: cfg.NATS.AutoProvision,
		TrackMsgId:    true, // 消息 ID 即活动 ID，重复发布由服务端去重
		AckAsync:      cfg.NATS.AckAsync,
		DurablePrefix: cfg.NATS.DurablePrefix,
	}

	url := cfg.NATSURL()
	opts := natsOptions(&cfg.NATS)
	marshaler := &nats.NATSMarshaler{}

	logger.Info("connecting to nats", watermill.LogFields{
		"url":         url,
		"jetstream":   cfg.NATS.JetStream,
		"queue_group": cfg.NATS.QueueGroup,
	})

	pub, err := nats.NewPublisher(nats.PublisherConfig{
		URL:         url,
		NatsOptions: opts,
		JetStream:   js,
		Marshaler:   marshaler,
	}, logger)
	if err != nil {
		return nil, nil, err
	}

	sub, err := nats.NewSubscriber(nats.SubscriberConfig{
		URL:              url,
		NatsOptions:      opts,
		JetStream:        js,
		Unmarshaler:      marshaler,
		QueueGroupPrefix: cfg.NATS.QueueGroup,
	}, logger)
	if err != nil {
		_ = pub.Close()
		return nil, nil, err
	}

	return pub, sub, nil
}
