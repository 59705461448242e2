// Package queue 定义消息主题常量，供发布/订阅使用.
package queue

import "strings"

// 主题命名规范：tv.<实体>.<动作>，与活动事件类型一一对应，尽量稳定且向后兼容.
const (
	TopicPrefix = "tv."

	// 工作区.
	TopicWorkspaceCreated = "tv.workspace.created"
	TopicWorkspaceRenamed = "tv.workspace.renamed"
	TopicWorkspaceDeleted = "tv.workspace.deleted"

	// 文件.
	TopicFileUploaded   = "tv.file.uploaded"
	TopicFileRenamed    = "tv.file.renamed"
	TopicFileDeleted    = "tv.file.deleted"
	TopicFileDownloaded = "tv.file.downloaded"
	TopicFilePurged     = "tv.file.purged" // 清理任务物理删除，无对应活动记录

	// 成员.
	TopicMemberAdded   = "tv.member.added"
	TopicMemberRemoved = "tv.member.removed"

	// 邀请.
	TopicInviteSent      = "tv.invite.sent"
	TopicInviteAccepted  = "tv.invite.accepted"
	TopicInviteCancelled = "tv.invite.cancelled"
	TopicInviteExpired   = "tv.invite.expired" // 过期清理批量事件
)

// 主题分组.
var (
	WorkspaceTopics = []string{TopicWorkspaceCreated, TopicWorkspaceRenamed, TopicWorkspaceDeleted}
	FileTopics      = []string{TopicFileUploaded, TopicFileRenamed, TopicFileDeleted, TopicFileDownloaded, TopicFilePurged}
	MemberTopics    = []string{TopicMemberAdded, TopicMemberRemoved}
	InviteTopics    = []string{TopicInviteSent, TopicInviteAccepted, TopicInviteCancelled, TopicInviteExpired}

	// UsageTopics 影响存储用量的主题.
	UsageTopics = []string{TopicFileUploaded, TopicFileDeleted, TopicFilePurged, TopicWorkspaceDeleted}
)

// TopicForEvent 将活动事件类型（如 file.uploaded）映射为主题.
func TopicForEvent(eventType string) string {
	return TopicPrefix + eventType
}

// EventForTopic 由主题反推事件类型.
func EventForTopic(topic string) string {
	return strings.TrimPrefix(topic, TopicPrefix)
}
