package mq

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/yeisme/teamvault/pkg/configs"
)

const defaultMemoryBuffer = 256

func init() {
	RegisterFactory(configs.MQTypeMemory, memoryFactory)
}

// memoryFactory 进程内 gochannel，Publisher 与 Subscriber 为同一实例.
// 未订阅的主题直接丢弃，与 Redis pub/sub 行为一致.
func memoryFactory(_ context.Context, cfg *configs.MQConfig, logger watermill.LoggerAdapter) (message.Publisher, message.Subscriber, error) {
	capacity := cfg.Memory.BufferCapacity
	if capacity <= 0 {
		capacity = defaultMemoryBuffer
	}

	ch := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: capacity}, logger)

	return ch, ch, nil
}
