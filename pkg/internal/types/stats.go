package types

// StatsFilesSummary 工作区文件总体统计.
type StatsFilesSummary struct {
	TotalFiles   int   `json:"totalFiles"`
	ActiveFiles  int   `json:"activeFiles"`
	PendingFiles int   `json:"pendingFiles"`
	TrashedFiles int   `json:"trashedFiles"`
	ActiveSize   int64 `json:"activeSize"`
	TrashedSize  int64 `json:"trashedSize"`
}

// StatsTypeItem 按 MIME 一级类型聚合.
type StatsTypeItem struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
	Size  int64  `json:"size"`
}

// WorkspaceStats 工作区统计.
type WorkspaceStats struct {
	Summary StatsFilesSummary `json:"summary"`
	ByType  []StatsTypeItem   `json:"byType"`
}
