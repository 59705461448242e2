package configs

import (
	"github.com/spf13/viper"
)

// MetricsConfig Prometheus 指标. 指标挂在主服务端口上.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"            rule:"omitempty,startswith=/"`
	// RuntimeMetrics 额外采集 Go runtime 与进程指标.
	RuntimeMetrics bool `mapstructure:"runtime_metrics"`
	// ConstLabels 附加到本服务全部业务指标，例如 region、instance.
	ConstLabels map[string]string `mapstructure:"const_labels"`
}

// MetricsPath 未配置时为 /metrics.
func (c MetricsConfig) MetricsPath() string {
	if c.Path == "" {
		return "/metrics"
	}

	return c.Path
}

func (c *MetricsConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("metrics.runtime_metrics", true)
	v.SetDefault("metrics.const_labels", map[string]string{})
}
