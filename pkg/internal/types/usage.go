package types

import (
	"time"

	"github.com/yeisme/teamvault/pkg/plan"
)

// UsageSnapshot 用户用量快照，缓存与数据库预聚合共用.
type UsageSnapshot struct {
	UserID      string    `json:"userId"`
	FileCount   int64     `json:"fileCount"`
	TotalBytes  int64     `json:"totalBytes"`
	RefreshedAt time.Time `json:"refreshedAt"`
}

// UsageResponse 用量概览.
type UsageResponse struct {
	Used       int64       `json:"used"`
	Total      int64       `json:"total"`
	Plan       plan.Plan   `json:"plan"`
	Percentage float64     `json:"percentage"`
	FileCount  int64       `json:"fileCount"`
	Limits     plan.Limits `json:"limits"`
}

// PlanInfo 计划及其上限.
type PlanInfo struct {
	Plan   plan.Plan   `json:"plan"`
	Limits plan.Limits `json:"limits"`
}
