package configs

import (
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultTokenTTL          = 24 * time.Hour // 登录令牌有效期
	DefaultVerifyTokenTTL    = 24 * time.Hour // 邮箱验证链接有效期
	DefaultResetTokenTTL     = time.Hour      // 重置密码链接有效期
	DefaultPasswordMinLength = 8              // 密码最小长度
)

// AuthConfig 控制登录令牌签发与请求认证.
type AuthConfig struct {
	Enabled           bool          `mapstructure:"enabled"`                                 // 开启认证校验
	JWTSecret         string        `mapstructure:"jwt_secret"          rule:"required,min=16"` // HMAC 签名密钥
	Issuer            string        `mapstructure:"issuer"`                                  // 令牌签发者
	TokenTTL          time.Duration `mapstructure:"token_ttl"`                               // 登录令牌有效期
	VerifyTokenTTL    time.Duration `mapstructure:"verify_token_ttl"`                        // 邮箱验证令牌有效期
	ResetTokenTTL     time.Duration `mapstructure:"reset_token_ttl"`                         // 重置密码令牌有效期
	PasswordMinLength int           `mapstructure:"password_min_length" rule:"min=6,max=128"`
	SkipPaths         []string      `mapstructure:"skip_paths"` // 跳过认证的路径前缀（如 /metrics、/api/v1/health）
	AdminToken        string        `mapstructure:"admin_token"` // 管理接口（调度器）使用的静态令牌，空则关闭管理接口
}

func (c *AuthConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("auth.enabled", true)
	v.SetDefault("auth.jwt_secret", "change-me-in-production-please")
	v.SetDefault("auth.issuer", "teamvault")
	v.SetDefault("auth.token_ttl", DefaultTokenTTL)
	v.SetDefault("auth.verify_token_ttl", DefaultVerifyTokenTTL)
	v.SetDefault("auth.reset_token_ttl", DefaultResetTokenTTL)
	v.SetDefault("auth.password_min_length", DefaultPasswordMinLength)
	v.SetDefault("auth.admin_token", "")
	v.SetDefault("auth.skip_paths", []string{
		"/metrics",
		"/debug/pprof",
		"/swagger",
		"/api/v1/health",
		"/api/v1/auth",
		"/api/v1/plans",
		"/api/v1/invites",
		"/api/v1/admin",
	})
}
