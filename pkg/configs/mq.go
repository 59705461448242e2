package configs

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// MQType 事件总线实现.
type MQType string

const (
	MQTypeMemory MQType = "memory" // 进程内 gochannel，单实例部署与测试使用
	MQTypeNATS   MQType = "nats"
	MQTypeRedis  MQType = "redis"
)

// MQConfig 活动事件总线配置.
// 事件只用于缓存失效等旁路处理，总线不可用不影响业务写入.
type MQConfig struct {
	Type     MQType           `mapstructure:"type"     rule:"oneof=memory nats redis"`
	Memory   MQMemoryConfig   `mapstructure:"memory"`
	NATS     MQNATSConfig     `mapstructure:"nats"`
	Redis    MQRedisConfig    `mapstructure:"redis"`
	Consumer MQConsumerConfig `mapstructure:"consumer"`
}

// MQMemoryConfig 进程内总线.
type MQMemoryConfig struct {
	// BufferCapacity 每个订阅者的输出缓冲.
	BufferCapacity int64 `mapstructure:"buffer_capacity" rule:"min=0"`
}

// MQNATSConfig NATS 连接与 JetStream.
type MQNATSConfig struct {
	URLs       []string `mapstructure:"urls"`
	ClientName string   `mapstructure:"client_name"`
	User       string   `mapstructure:"user"`
	Password   string   `mapstructure:"password"`
	JWT        string   `mapstructure:"jwt"`
	NKey       string   `mapstructure:"nkey"`

	MaxReconnects    int           `mapstructure:"max_reconnects"     rule:"min=-1,max=100"`
	ReconnectWait    time.Duration `mapstructure:"reconnect_wait"`
	PingInterval     time.Duration `mapstructure:"ping_interval"`
	ReconnectBufSize int           `mapstructure:"reconnect_buf_size" rule:"min=0,max=8388608"`

	// JetStream 关闭时退化为 core NATS，离线期间的事件会丢失.
	JetStream     bool   `mapstructure:"jetstream"`
	AutoProvision bool   `mapstructure:"auto_provision"`
	AckAsync      bool   `mapstructure:"ack_async"`
	DurablePrefix string `mapstructure:"durable_prefix"`
	// QueueGroup 非空时多实例共享消费，每个事件只被一个实例处理.
	QueueGroup string `mapstructure:"queue_group"`
}

// MQRedisConfig Redis pub/sub.
type MQRedisConfig struct {
	Addr     string `mapstructure:"addr"     rule:"omitempty,hostname_port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"       rule:"min=0,max=15"`
}

// MQConsumerConfig 事件处理失败时的重试策略.
type MQConsumerConfig struct {
	MaxRetries      int           `mapstructure:"max_retries"       rule:"min=0,max=20"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
}

// GetMQType 未配置时使用进程内总线.
func (c *MQConfig) GetMQType() MQType {
	if c.Type == "" {
		return MQTypeMemory
	}

	return c.Type
}

// NATSURL 多个地址以逗号连接，nats.go 会在其中轮换.
func (c *MQConfig) NATSURL() string {
	if len(c.NATS.URLs) == 0 {
		return "nats://localhost:4222"
	}

	return strings.Join(c.NATS.URLs, ",")
}

func (c *MQConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("mq.type", MQTypeMemory)

	v.SetDefault("mq.memory.buffer_capacity", 256)

	v.SetDefault("mq.nats.urls", []string{"nats://localhost:4222"})
	v.SetDefault("mq.nats.client_name", "teamvault")
	v.SetDefault("mq.nats.max_reconnects", 5)
	v.SetDefault("mq.nats.reconnect_wait", "5s")
	v.SetDefault("mq.nats.ping_interval", "20s")
	v.SetDefault("mq.nats.reconnect_buf_size", 32*1024)
	v.SetDefault("mq.nats.jetstream", true)
	v.SetDefault("mq.nats.auto_provision", true)
	v.SetDefault("mq.nats.ack_async", false)
	v.SetDefault("mq.nats.durable_prefix", "teamvault")
	v.SetDefault("mq.nats.queue_group", "teamvault-workers")

	v.SetDefault("mq.redis.addr", "localhost:6379")
	v.SetDefault("mq.redis.db", 0)

	v.SetDefault("mq.consumer.max_retries", 3)
	v.SetDefault("mq.consumer.initial_interval", "200ms")
	v.SetDefault("mq.consumer.max_interval", "5s")
}
