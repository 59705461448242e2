package configs

import "github.com/spf13/viper"

// EventsConfig 控制事件发布的开关（全局与分主题）。
type EventsConfig struct {
	Enabled  bool                 `mapstructure:"enabled"` // 总开关
	Activity ActivityEventsConfig `mapstructure:"activity"`
}

// ActivityEventsConfig 活动日志写入后是否向消息队列广播。
type ActivityEventsConfig struct {
	Workspace bool `mapstructure:"workspace"`
	File      bool `mapstructure:"file"`
	Member    bool `mapstructure:"member"`
	Invite    bool `mapstructure:"invite"`
}

// AllowsEntity 判断某实体类型的事件是否允许发布.
func (c *EventsConfig) AllowsEntity(entityType string) bool {
	if !c.Enabled {
		return false
	}

	switch entityType {
	case "workspace":
		return c.Activity.Workspace
	case "file":
		return c.Activity.File
	case "member":
		return c.Activity.Member
	case "invite":
		return c.Activity.Invite
	default:
		return false
	}
}

func (c *EventsConfig) setDefaults(v *viper.Viper) {
	// 总开关：默认启用事件系统
	v.SetDefault("events.enabled", true)

	v.SetDefault("events.activity.workspace", true)
	v.SetDefault("events.activity.file", true)
	v.SetDefault("events.activity.member", true)
	v.SetDefault("events.activity.invite", true)
}
