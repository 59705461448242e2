package configs

import (
	"time"

	"github.com/spf13/viper"
)

// CircuitBreakerConfig 熔断参数，HTTP 入口与对象存储调用共用.
type CircuitBreakerConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// FailureRatio 统计窗口内失败占比达到该值即打开.
	FailureRatio float64 `mapstructure:"failure_ratio"      rule:"min=0,max=1"`
	// MinRequests 窗口内请求数不足时不判断.
	MinRequests uint32        `mapstructure:"min_requests"`
	Window      time.Duration `mapstructure:"window"`       // 关闭状态下计数清零周期
	OpenTimeout time.Duration `mapstructure:"open_timeout"` // 打开后多久进入半开
	// HalfOpenProbes 半开状态放行的请求数.
	HalfOpenProbes uint32 `mapstructure:"half_open_probes"`
}

// ShouldTrip 根据窗口内的请求与失败计数判断是否打开.
func (c CircuitBreakerConfig) ShouldTrip(requests, failures uint32) bool {
	if !c.Enabled || requests == 0 || requests < c.MinRequests {
		return false
	}

	return float64(failures)/float64(requests) >= c.FailureRatio
}

func (c *CircuitBreakerConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("circuit_breaker.enabled", false)
	v.SetDefault("circuit_breaker.failure_ratio", 0.5)
	v.SetDefault("circuit_breaker.min_requests", 20)
	v.SetDefault("circuit_breaker.window", "60s")
	v.SetDefault("circuit_breaker.open_timeout", "30s")
	v.SetDefault("circuit_breaker.half_open_probes", 5)
}
