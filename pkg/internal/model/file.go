package model

import (
	"time"

	"gorm.io/gorm"
)

// FileStatus 上传状态.
type FileStatus string

const (
	FilePending   FileStatus = "pending"
	FileCompleted FileStatus = "completed"
	FileFailed    FileStatus = "failed"
)

// File 对象存储中文件的元数据；删除为软删除，对象本体由清理任务回收.
type File struct {
	ID          string     `gorm:"primaryKey;size:26"                    json:"id"`
	WorkspaceID string     `gorm:"size:26;not null;index"                json:"workspaceId"`
	UploadedBy  string     `gorm:"size:26;index"                         json:"uploadedBy"`
	Filename    string     `gorm:"size:512;not null"                     json:"filename"`
	StorageKey  string     `gorm:"size:512;not null;uniqueIndex"         json:"storageKey"`
	Size        int64      `json:"size"`
	ContentType string     `gorm:"size:255"                              json:"contentType"`
	Status      FileStatus `gorm:"size:16;not null;default:pending;index" json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	// 软删除，默认查询自动过滤
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deletedAt,omitempty"`
}

func (f *File) BeforeCreate(*gorm.DB) error {
	if f.ID == "" {
		f.ID = NewID()
	}

	if f.Status == "" {
		f.Status = FilePending
	}

	return nil
}

// UserUsage 按用户预聚合的存储用量，由刷新操作整体重算.
type UserUsage struct {
	UserID      string    `gorm:"primaryKey;size:26" json:"userId"`
	FileCount   int64     `gorm:"not null;default:0" json:"fileCount"`
	TotalBytes  int64     `gorm:"not null;default:0" json:"totalBytes"`
	RefreshedAt time.Time `json:"refreshedAt"`
}

func (UserUsage) TableName() string {
	return "user_usage"
}
