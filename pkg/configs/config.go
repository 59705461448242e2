// Package configs 管理应用程序配置，包括数据库、对象存储、KV、消息队列、认证与邮件等配置信息.
// configs 包支持多种配置格式（YAML、JSON、TOML、dotenv）并启用热重载.
//
// Example:
//
//	import "github.com/yeisme/teamvault/pkg/configs"
//
//	err := configs.InitConfig("./")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	config := configs.GetConfig()
//	fmt.Println(config.Server.Port)
//
// Example accessing DB config:
//
//	dbConfig := configs.GetConfig().DB
//	fmt.Println("DSN:", dbConfig.GetDSN())
//
// Example accessing S3 config:
//
//	s3Config := configs.GetConfig().S3
//	fmt.Println("S3 Endpoint:", s3Config.GetEndpointURL())
package configs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/yeisme/teamvault/pkg/rule"
)

// AppVersion 应用版本号，构建时可通过 -ldflags 覆盖.
var AppVersion = "0.1.0"

// EnvPrefix 环境变量前缀，例如 TEAMVAULT_SERVER_PORT.
const EnvPrefix = "TEAMVAULT"

type (
	// AppConfig 全局应用程序配置.
	AppConfig struct {
		App            AppSectionConfig     `mapstructure:"app"`             // 应用级配置，例如对外访问地址
		DB             DBConfig             `mapstructure:"db"`              // DBConfig 数据库配置
		S3             S3Config             `mapstructure:"s3"`              // S3Config 对象存储配置
		KV             KVConfig             `mapstructure:"kv"`              // KVConfig 键值缓存配置
		MQ             MQConfig             `mapstructure:"mq"`              // MQConfig 消息队列配置
		Server         ServerConfig         `mapstructure:"server"`          // ServerConfig 服务器端口、调试、超时等
		Log            LogConfig            `mapstructure:"log"`             // LogConfig 日志相关配置
		Auth           AuthConfig           `mapstructure:"auth"`            // AuthConfig 登录令牌与跳过路径
		Email          EmailConfig          `mapstructure:"email"`           // EmailConfig 邮件发送
		Events         EventsConfig         `mapstructure:"events"`          // EventsConfig 事件发布开关
		Jobs           JobsConfig           `mapstructure:"jobs"`            // JobsConfig 定时任务
		RateLimit      RateLimitConfig      `mapstructure:"rate_limit"`      // RateLimitConfig 限流
		CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"` // CircuitBreakerConfig 熔断
		Metrics        MetricsConfig        `mapstructure:"metrics"`         // MetricsConfig 指标
		Tracing        TracingConfig        `mapstructure:"tracing"`         // TracingConfig 链路追踪
	}
)

var (
	// globalConfig 全局配置实例.
	globalConfig AppConfig
	// appViper 全局 Viper 实例.
	appViper *viper.Viper
	// cfgMu 保护热重载时的并发读写.
	cfgMu sync.RWMutex
)

// InitConfig 加载应用程序配置，支持多种格式(yaml、json、toml、dotenv)并启用热重载.
// path 为空或目录中不存在配置文件时，仅使用默认值与环境变量.
func InitConfig(path string) error {
	v := viper.New()
	setAllDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	hasFile := false

	if path != "" {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			// 是文件，使用SetConfigFile，Viper会自动检测类型
			v.SetConfigFile(path)

			hasFile = true
		} else {
			for _, dir := range []string{path, filepath.Join(path, "configs")} {
				for _, ext := range []string{"yaml", "yml", "json", "toml", "env", "dotenv"} {
					cfg := filepath.Join(dir, "config."+ext)
					if _, err := os.Stat(cfg); err == nil {
						v.SetConfigFile(cfg)

						hasFile = true

						break
					}
				}

				if hasFile {
					break
				}
			}
		}
	}

	if hasFile {
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	cfgMu.Lock()
	globalConfig = cfg
	appViper = v
	cfgMu.Unlock()

	if hasFile {
		reloadConfigs(v, cfg.Server.ReloadConfig)
	}

	return nil
}

// Validate 使用 rule 标签校验配置.
func (c *AppConfig) Validate() error {
	if err := rule.ValidateStruct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	return nil
}

// setAllDefaults 设置所有配置的默认值.
func setAllDefaults(v *viper.Viper) {
	var c AppConfig

	c.App.setDefaults(v)
	c.Server.setDefaults(v)
	c.DB.setDefaults(v)
	c.S3.setDefaults(v)
	c.KV.setDefaults(v)
	c.MQ.setDefaults(v)
	c.Log.setDefaults(v)
	c.Auth.setDefaults(v)
	c.Email.setDefaults(v)
	c.Events.setDefaults(v)
	c.Jobs.setDefaults(v)
	c.RateLimit.setDefaults(v)
	c.CircuitBreaker.setDefaults(v)
	c.Metrics.setDefaults(v)
	c.Tracing.setDefaults(v)
}

func reloadConfigs(v *viper.Viper, isHotReload bool) {
	if !isHotReload {
		return
	}
	// 启用配置热重载
	v.OnConfigChange(func(e fsnotify.Event) {
		fmt.Println("Config file changed:", e.Name)

		var cfg AppConfig
		if err := v.Unmarshal(&cfg); err != nil {
			fmt.Printf("Error reloading config: %v\n", err)
			return
		}

		if err := cfg.Validate(); err != nil {
			fmt.Printf("Ignoring invalid config: %v\n", err)
			return
		}

		cfgMu.Lock()
		globalConfig = cfg
		cfgMu.Unlock()
	})
	v.WatchConfig()
}

// GetConfig 返回全局配置实例.
func GetConfig() *AppConfig {
	cfgMu.RLock()
	defer cfgMu.RUnlock()

	c := globalConfig

	return &c
}

// SetConfig 直接替换全局配置，主要用于测试与嵌入式场景.
func SetConfig(c AppConfig) {
	cfgMu.Lock()
	globalConfig = c
	cfgMu.Unlock()
}

// GetViper 返回全局 Viper 实例.
func GetViper() *viper.Viper {
	return appViper
}

// Defaults 返回仅由默认值组成的配置，不读取文件与环境变量.
func Defaults() AppConfig {
	v := viper.New()
	setAllDefaults(v)

	var c AppConfig
	_ = v.Unmarshal(&c)

	return c
}
