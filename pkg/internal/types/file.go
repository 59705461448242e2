package types

import "time"

// UploadRequest 请求预签名上传.
type UploadRequest struct {
	Filename    string `json:"filename"    rule:"required,min=1,max=255"`
	ContentType string `json:"contentType" rule:"omitempty,max=255"`
	Size        int64  `json:"size"        rule:"min=0"`
}

// UploadResponse 预签名上传信息，客户端需带上 Headers 以 PUT 方式上传.
type UploadResponse struct {
	URL     string            `json:"url"`
	Key     string            `json:"key"`
	Method  string            `json:"method"`
	Headers map[string]string `json:"headers"`
	FileID  string            `json:"fileId"`
}

// RenameFileRequest 重命名文件.
type RenameFileRequest struct {
	Filename string `json:"filename" rule:"required,min=1,max=255"`
}

// FileInfo 文件元数据.
type FileInfo struct {
	ID          string    `json:"id"`
	WorkspaceID string    `json:"workspaceId"`
	UploadedBy  string    `json:"uploadedBy"`
	Filename    string    `json:"filename"`
	StorageKey  string    `json:"storageKey"`
	Size        int64     `json:"size"`
	ContentType string    `json:"contentType"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// URLResponse 预签名访问链接.
type URLResponse struct {
	URL         string    `json:"url"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"contentType"`
	Size        int64     `json:"size"`
	ExpiresAt   time.Time `json:"expiresAt"`
}
