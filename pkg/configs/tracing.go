package configs

import (
	"time"

	"github.com/spf13/viper"
)

// TracingConfig OpenTelemetry 链路追踪.
type TracingConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Exporter otlp-http、otlp-grpc 或 zipkin.
	Exporter string `mapstructure:"exporter" rule:"oneof=otlp-http otlp-grpc zipkin"`
	Endpoint string `mapstructure:"endpoint"`
	// Insecure 仅 otlp-grpc 使用，关闭 TLS.
	Insecure bool `mapstructure:"insecure"`
	// SampleRate 根 span 采样率，下游服务跟随上游的采样决定.
	SampleRate   float64           `mapstructure:"sample_rate"    rule:"min=0,max=1"`
	BatchTimeout time.Duration     `mapstructure:"batch_timeout"`
	MaxBatchSize int               `mapstructure:"max_batch_size" rule:"min=0"`
	MaxQueueSize int               `mapstructure:"max_queue_size" rule:"min=0"`
	Attributes   map[string]string `mapstructure:"attributes"` // 附加资源属性，如 deployment.environment
}

func (c *TracingConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.exporter", "otlp-http")
	v.SetDefault("tracing.endpoint", "http://localhost:4318")
	v.SetDefault("tracing.insecure", true)
	v.SetDefault("tracing.sample_rate", 1.0)
	v.SetDefault("tracing.batch_timeout", "5s")
	v.SetDefault("tracing.max_batch_size", 512)
	v.SetDefault("tracing.max_queue_size", 2048)
	v.SetDefault("tracing.attributes", map[string]string{})
}
