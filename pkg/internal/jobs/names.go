package jobs

// 任务名称常量，管理接口与命令行按名称触发.
const (
	JobInviteExpiry = "invites.expire"
	JobUsageRefresh = "usage.refresh"
	JobPurgeDeleted = "files.purge_deleted"
	JobStaleUploads = "files.stale_uploads"
)

// 配置缺省时使用的 cron 表达式，与 configs.JobsConfig 默认值一致.
const (
	CronInviteExpiry = "0 * * * *"
	CronUsageRefresh = "*/30 * * * *"
	CronPurgeDeleted = "30 3 * * *"
	CronStaleUploads = "15 * * * *"
)
