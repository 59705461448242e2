// Package plan 定义订阅计划的用量上限，以及与数据库无关的纯函数限额校验.
package plan

import (
	"fmt"
	"strings"
)

// Plan 用户订阅计划.
type Plan string

const (
	Free Plan = "free"
	Pro  Plan = "pro"
)

// Unlimited 表示该维度没有上限.
const Unlimited = -1

const (
	KiB int64 = 1024
	MiB       = 1024 * KiB
	GiB       = 1024 * MiB
)

// Limits 单个计划的用量上限.
type Limits struct {
	StorageBytes     int64 `json:"storageBytes"`
	MaxWorkspaces    int   `json:"maxWorkspaces"` // Unlimited(-1) 表示不限
	MaxFileSizeBytes int64 `json:"maxFileSizeBytes"`
	AllowsInvites    bool  `json:"allowsInvites"`
}

var limits = map[Plan]Limits{
	Free: {
		StorageBytes:     50 * MiB,
		MaxWorkspaces:    3,
		MaxFileSizeBytes: 10 * MiB,
		AllowsInvites:    false,
	},
	Pro: {
		StorageBytes:     10 * GiB,
		MaxWorkspaces:    Unlimited,
		MaxFileSizeBytes: 100 * MiB,
		AllowsInvites:    true,
	},
}

// Parse 解析计划名，未知或空值一律视为 Free.
func Parse(s string) Plan {
	p := Plan(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := limits[p]; ok {
		return p
	}

	return Free
}

// Valid 判断是否为已知计划.
func (p Plan) Valid() bool {
	_, ok := limits[p]

	return ok
}

// Limits 返回计划上限，未知计划按 Free 处理.
func (p Plan) Limits() Limits {
	if l, ok := limits[p]; ok {
		return l
	}

	return limits[Free]
}

// All 返回所有计划及其上限，用于对外展示.
func All() map[Plan]Limits {
	out := make(map[Plan]Limits, len(limits))
	for k, v := range limits {
		out[k] = v
	}

	return out
}

// LimitType 超限类型.
type LimitType string

const (
	LimitStorage   LimitType = "storage"
	LimitFileSize  LimitType = "file_size"
	LimitWorkspace LimitType = "workspace"
	LimitInvite    LimitType = "invite"
)

// LimitError 用量超限错误，CurrentUsage 与 Limit 在 invite 类型下为 0.
type LimitError struct {
	Message      string
	Type         LimitType
	CurrentUsage int64
	Limit        int64
}

func (e *LimitError) Error() string {
	return e.Message
}

// CheckFileSize 单文件大小超过计划上限时返回 LimitError.
func CheckFileSize(p Plan, size int64) error {
	limit := p.Limits().MaxFileSizeBytes
	if size > limit {
		return &LimitError{
			Message:      fmt.Sprintf("File size exceeds limit for your plan. Maximum file size is %s.", FormatBytes(limit)),
			Type:         LimitFileSize,
			CurrentUsage: size,
			Limit:        limit,
		}
	}

	return nil
}

// CheckStorage 已用量加新增量超过总存储上限时返回 LimitError，恰好等于上限允许.
func CheckStorage(p Plan, current, additional int64) error {
	limit := p.Limits().StorageBytes
	if current+additional > limit {
		return &LimitError{
			Message: fmt.Sprintf("Storage limit exceeded. You're using %s of %s. Upgrade to Pro for more space.",
				FormatBytes(current), FormatBytes(limit)),
			Type:         LimitStorage,
			CurrentUsage: current,
			Limit:        limit,
		}
	}

	return nil
}

// CheckWorkspaceCount 已拥有的工作区数量达到上限时返回 LimitError.
func CheckWorkspaceCount(p Plan, count int64) error {
	limit := p.Limits().MaxWorkspaces
	if limit == Unlimited {
		return nil
	}

	if count >= int64(limit) {
		return &LimitError{
			Message:      fmt.Sprintf("Free plan allows up to %d workspaces. Upgrade to Pro for unlimited workspaces.", limit),
			Type:         LimitWorkspace,
			CurrentUsage: count,
			Limit:        int64(limit),
		}
	}

	return nil
}

// CheckInviteAllowed 计划不允许邀请成员时返回 LimitError.
func CheckInviteAllowed(p Plan) error {
	if !p.Limits().AllowsInvites {
		return &LimitError{
			Message: "Invites are not available on the Free plan. Upgrade to Pro to invite team members.",
			Type:    LimitInvite,
		}
	}

	return nil
}

// FormatBytes 以 B/KB/MB/GB 输出，保留一位小数.
func FormatBytes(n int64) string {
	switch {
	case n < KiB:
		return fmt.Sprintf("%d B", n)
	case n < MiB:
		return fmt.Sprintf("%.1f KB", float64(n)/float64(KiB))
	case n < GiB:
		return fmt.Sprintf("%.1f MB", float64(n)/float64(MiB))
	default:
		return fmt.Sprintf("%.1f GB", float64(n)/float64(GiB))
	}
}

// Percentage 计算用量百分比，上限 100.
func Percentage(used, total int64) float64 {
	if total <= 0 {
		return 0
	}

	pct := float64(used) / float64(total) * 100
	if pct > 100 {
		return 100
	}

	return pct
}
