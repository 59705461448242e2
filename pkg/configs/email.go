package configs

import "github.com/spf13/viper"

// EmailConfig 邮件发送配置，driver 为 log 时仅写日志不外发.
type EmailConfig struct {
	Driver   string `mapstructure:"driver"    rule:"oneof=smtp log"`
	From     string `mapstructure:"from"      rule:"required"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"      rule:"min=0,max=65535"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	TLS      bool   `mapstructure:"tls"`
	Timeout  int    `mapstructure:"timeout"   rule:"min=1,max=120"` // 发送超时（秒）
}

func (c *EmailConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("email.driver", "log")
	v.SetDefault("email.from", "TeamVault <noreply@teamvault.local>")
	v.SetDefault("email.host", "localhost")
	v.SetDefault("email.port", 587)
	v.SetDefault("email.username", "")
	v.SetDefault("email.password", "")
	v.SetDefault("email.tls", true)
	v.SetDefault("email.timeout", 15)
}
