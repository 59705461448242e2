package configs

import (
	"github.com/spf13/viper"
)

// LogConfig 日志配置. 控制台始终输出到 stderr，文件输出可选.
type LogConfig struct {
	Level string `mapstructure:"level"  rule:"oneof=trace debug info warn error"`
	// Format console 为彩色可读格式，json 便于采集.
	Format string        `mapstructure:"format" rule:"oneof=console json"`
	File   LogFileConfig `mapstructure:"file"`
}

// LogFileConfig 按大小轮转的文件日志.
type LogFileConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Path       string `mapstructure:"path"         rule:"required_if=Enabled true"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"  rule:"min=1"`
	MaxBackups int    `mapstructure:"max_backups"  rule:"min=0"`
	MaxAgeDays int    `mapstructure:"max_age_days" rule:"min=0"`
	Compress   bool   `mapstructure:"compress"`
}

func (l *LogConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.file.enabled", false)
	v.SetDefault("log.file.path", "logs/teamvault.log")
	v.SetDefault("log.file.max_size_mb", 100)
	v.SetDefault("log.file.max_backups", 7)
	v.SetDefault("log.file.max_age_days", 28)
	v.SetDefault("log.file.compress", true)
}
