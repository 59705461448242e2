package configs

import (
	"time"

	"github.com/spf13/viper"
)

// JobsConfig 定时任务配置，cron 表达式为空表示不注册该任务.
type JobsConfig struct {
	Enabled             bool          `mapstructure:"enabled"`
	InviteExpiryCron    string        `mapstructure:"invite_expiry_cron"`
	UsageRefreshCron    string        `mapstructure:"usage_refresh_cron"`
	PurgeDeletedCron    string        `mapstructure:"purge_deleted_cron"`
	StaleUploadCron     string        `mapstructure:"stale_upload_cron"`
	DeletedRetention    time.Duration `mapstructure:"deleted_retention"`     // 软删除文件保留时长
	PendingUploadMaxAge time.Duration `mapstructure:"pending_upload_max_age"` // 超过该时长仍未确认的上传视为失败
}

func (c *JobsConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("jobs.enabled", true)
	v.SetDefault("jobs.invite_expiry_cron", "0 * * * *")  // 每小时
	v.SetDefault("jobs.usage_refresh_cron", "*/30 * * * *") // 每 30 分钟
	v.SetDefault("jobs.purge_deleted_cron", "30 3 * * *")  // 每天 03:30
	v.SetDefault("jobs.stale_upload_cron", "15 * * * *")   // 每小时第 15 分
	v.SetDefault("jobs.deleted_retention", 30*24*time.Hour)
	v.SetDefault("jobs.pending_upload_max_age", 24*time.Hour)
}
