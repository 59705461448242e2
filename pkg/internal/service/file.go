package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/yeisme/teamvault/pkg/internal/errs"
	"github.com/yeisme/teamvault/pkg/internal/model"
	"github.com/yeisme/teamvault/pkg/internal/storage/s3"
	"github.com/yeisme/teamvault/pkg/internal/types"
	nlog "github.com/yeisme/teamvault/pkg/log"
	"github.com/yeisme/teamvault/pkg/tracing"
)

const (
	// DefaultContentType 未声明类型时使用.
	DefaultContentType = "application/octet-stream"
	// DefaultPresignedTTL 预签名链接有效期.
	DefaultPresignedTTL = time.Hour
	maxFilename         = 255
	maxExtension        = 16
)

var (
	errFileNotFound     = errs.NotFound("File not found")
	errFileDeleted      = errs.Gone("File has been deleted")
	errUploadIncomplete = errs.Invalid("File upload not completed")
	errNoObjectStore    = errors.New("object store not configured")
)

// FileService 文件元数据与预签名访问；文件本体由客户端直传对象存储.
type FileService struct {
	*Deps
}

func NewFileService(c context.Context) *FileService {
	return &FileService{Deps: mustDeps(c)}
}

func cleanFilename(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errs.Invalid("Filename is required")
	}

	if utf8.RuneCountInString(name) > maxFilename {
		return "", errs.Invalid("Filename must be 255 characters or less")
	}

	return name, nil
}

// storageKey ULID 加原文件扩展名，扩展名只保留字母数字.
func storageKey(filename string) string {
	id := model.NewID()

	i := strings.LastIndexByte(filename, '.')
	if i < 0 || i == len(filename)-1 {
		return id
	}

	ext := strings.ToLower(filename[i+1:])
	if len(ext) > maxExtension {
		return id
	}

	for _, r := range ext {
		if r > unicode.MaxASCII || !(unicode.IsLetter(r) || unicode.IsDigit(r)) {
			return id
		}
	}

	return id + "." + ext
}

// FileInfo 转换为响应结构.
func FileInfo(f *model.File) types.FileInfo {
	return types.FileInfo{
		ID:          f.ID,
		WorkspaceID: f.WorkspaceID,
		UploadedBy:  f.UploadedBy,
		Filename:    f.Filename,
		StorageKey:  f.StorageKey,
		Size:        f.Size,
		ContentType: f.ContentType,
		Status:      string(f.Status),
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}

// RequestUpload 所有者或成员；按工作区所有者的计划校验单文件与总存储，
// 创建 pending 记录并返回预签名 PUT.
func (s *FileService) RequestUpload(ctx context.Context, userID, workspaceID string, req types.UploadRequest) (*types.UploadResponse, error) {
	ctx, span := tracing.StartSpan(ctx, "file.request_upload")
	defer span.End()

	filename, err := cleanFilename(req.Filename)
	if err != nil {
		return nil, err
	}

	if req.Size < 0 {
		return nil, errs.Invalid("Size must not be negative")
	}

	ws, _, err := requireRole(s.db(ctx), workspaceID, userID, Member, "Forbidden")
	if err != nil {
		return nil, err
	}

	p, err := loadPlan(s.db(ctx), ws.OwnerID)
	if err != nil {
		return nil, err
	}

	if err := CheckFileSizeLimit(p, req.Size); err != nil {
		return nil, err
	}

	if err := (&UsageService{Deps: s.Deps}).CheckStorageLimit(ctx, ws.OwnerID, req.Size); err != nil {
		return nil, err
	}

	if s.Store == nil {
		return nil, errs.Internal(errNoObjectStore)
	}

	contentType := strings.TrimSpace(req.ContentType)
	if contentType == "" {
		contentType = DefaultContentType
	}

	f := &model.File{
		WorkspaceID: ws.ID,
		UploadedBy:  userID,
		Filename:    filename,
		StorageKey:  storageKey(filename),
		Size:        req.Size,
		ContentType: contentType,
		Status:      model.FilePending,
	}

	if err := s.db(ctx).Create(f).Error; err != nil {
		return nil, errs.Internal(err)
	}

	url, err := s.Store.PresignedUploadURL(ctx, f.StorageKey, contentType, DefaultPresignedTTL)
	if err != nil {
		if uerr := s.db(ctx).Model(f).Update("status", model.FileFailed).Error; uerr != nil {
			nlog.Ctx(ctx).Warn().Err(uerr).Str("file", f.ID).Msg("mark file failed")
		}

		return nil, errs.Internal(err)
	}

	return &types.UploadResponse{
		URL:     url,
		Key:     f.StorageKey,
		Method:  "PUT",
		Headers: map[string]string{"Content-Type": contentType},
		FileID:  f.ID,
	}, nil
}

// load 读取文件（含已软删除）并校验工作区访问权限.
func (s *FileService) load(ctx context.Context, userID, fileID string) (*model.File, *model.Workspace, error) {
	var f model.File

	err := s.db(ctx).Unscoped().Where("id = ?", fileID).Take(&f).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, errFileNotFound
	}

	if err != nil {
		return nil, nil, errs.Internal(err)
	}

	ws, _, err := requireRole(s.db(ctx), f.WorkspaceID, userID, Member, "Forbidden")
	if err != nil {
		return nil, nil, err
	}

	return &f, ws, nil
}

// Confirm 客户端上传成功后标记完成，记录 file.uploaded；重复确认不重复记录.
func (s *FileService) Confirm(ctx context.Context, userID, fileID string) (*types.FileInfo, error) {
	f, ws, err := s.load(ctx, userID, fileID)
	if err != nil {
		return nil, err
	}

	if f.DeletedAt.Valid {
		return nil, errFileDeleted
	}

	switch f.Status {
	case model.FileCompleted:
		info := FileInfo(f)

		return &info, nil
	case model.FileFailed:
		return nil, errs.Invalid("File upload has failed")
	}

	if err := s.verifyObject(ctx, f); err != nil {
		return nil, err
	}

	err = s.inTx(ctx, func(tx *txScope) error {
		res := tx.tx.Model(f).Where("status = ?", model.FilePending).Update("status", model.FileCompleted)
		if res.Error != nil {
			return res.Error
		}

		if res.RowsAffected == 0 {
			return errs.Invalid("File upload is no longer pending")
		}

		f.Status = model.FileCompleted

		_, err := tx.record(RecordInput{
			WorkspaceID: ws.ID,
			ActorID:     userID,
			EventType:   model.EventFileUploaded,
			EntityID:    f.ID,
			Metadata:    model.Metadata{"filename": f.Filename, "size": f.Size, "contentType": f.ContentType},
		}, ws.OwnerID)

		return err
	})
	if err != nil {
		return nil, errs.Internal(err)
	}

	info := FileInfo(f)

	return &info, nil
}

// verifyObject 对象必须已上传且大小与申请时声明的一致.
// 不一致时文件保持 pending，客户端可在链接有效期内重新上传.
func (s *FileService) verifyObject(ctx context.Context, f *model.File) error {
	if s.Store == nil {
		return errs.Internal(errNoObjectStore)
	}

	size, err := s.Store.ObjectSize(ctx, f.StorageKey)
	if errors.Is(err, s3.ErrObjectNotFound) {
		return errs.Invalid("Uploaded file not found in storage")
	}

	if err != nil {
		return errs.Internal(err)
	}

	if size != f.Size {
		return errs.Invalid(fmt.Sprintf("Uploaded size %d does not match declared size %d", size, f.Size))
	}

	return nil
}

// Fail 上传失败，仅 pending 可迁移.
func (s *FileService) Fail(ctx context.Context, userID, fileID string) error {
	f, _, err := s.load(ctx, userID, fileID)
	if err != nil {
		return err
	}

	if f.DeletedAt.Valid {
		return errFileDeleted
	}

	if f.Status != model.FilePending {
		return errs.Invalid("File upload is no longer pending")
	}

	return errs.Internal(s.db(ctx).Model(f).Update("status", model.FileFailed).Error)
}

// List 已完成且未删除的文件，按创建时间升序.
func (s *FileService) List(ctx context.Context, userID, workspaceID string) ([]types.FileInfo, error) {
	ws, _, err := requireRole(s.db(ctx), workspaceID, userID, Member, "Forbidden")
	if err != nil {
		return nil, err
	}

	var files []model.File
	if err := s.db(ctx).Where("workspace_id = ? AND status = ?", ws.ID, model.FileCompleted).
		Order("created_at").Order("id").Find(&files).Error; err != nil {
		return nil, errs.Internal(err)
	}

	out := make([]types.FileInfo, 0, len(files))
	for i := range files {
		out = append(out, FileInfo(&files[i]))
	}

	return out, nil
}

// Rename 记录 file.renamed {oldFilename,newFilename}.
func (s *FileService) Rename(ctx context.Context, userID, fileID, filename string) (*types.FileInfo, error) {
	filename, err := cleanFilename(filename)
	if err != nil {
		return nil, err
	}

	f, ws, err := s.load(ctx, userID, fileID)
	if err != nil {
		return nil, err
	}

	if f.DeletedAt.Valid {
		return nil, errFileDeleted
	}

	oldName := f.Filename

	err = s.inTx(ctx, func(tx *txScope) error {
		if err := tx.tx.Model(f).Update("filename", filename).Error; err != nil {
			return err
		}

		f.Filename = filename

		_, err := tx.record(RecordInput{
			WorkspaceID: ws.ID,
			ActorID:     userID,
			EventType:   model.EventFileRenamed,
			EntityID:    f.ID,
			Metadata:    model.Metadata{"oldFilename": oldName, "newFilename": filename},
		}, ws.OwnerID)

		return err
	})
	if err != nil {
		return nil, errs.Internal(err)
	}

	info := FileInfo(f)

	return &info, nil
}

// Delete 软删除，对象本体由清理任务回收；记录 file.deleted {filename}.
func (s *FileService) Delete(ctx context.Context, userID, fileID string) error {
	f, ws, err := s.load(ctx, userID, fileID)
	if err != nil {
		return err
	}

	if f.DeletedAt.Valid {
		return errFileDeleted
	}

	err = s.inTx(ctx, func(tx *txScope) error {
		if err := tx.tx.Delete(f).Error; err != nil {
			return err
		}

		_, err := tx.record(RecordInput{
			WorkspaceID: ws.ID,
			ActorID:     userID,
			EventType:   model.EventFileDeleted,
			EntityID:    f.ID,
			Metadata:    model.Metadata{"filename": f.Filename},
		}, ws.OwnerID)

		return err
	})

	return errs.Internal(err)
}

func (s *FileService) readable(ctx context.Context, userID, fileID string) (*model.File, *model.Workspace, error) {
	f, ws, err := s.load(ctx, userID, fileID)
	if err != nil {
		return nil, nil, err
	}

	if f.DeletedAt.Valid {
		return nil, nil, errFileDeleted
	}

	if f.Status != model.FileCompleted {
		return nil, nil, errUploadIncomplete
	}

	if s.Store == nil {
		return nil, nil, errs.Internal(errNoObjectStore)
	}

	return f, ws, nil
}

func (s *FileService) urlResponse(f *model.File, url string) *types.URLResponse {
	return &types.URLResponse{
		URL:         url,
		Filename:    f.Filename,
		ContentType: f.ContentType,
		Size:        f.Size,
		ExpiresAt:   s.now().Add(DefaultPresignedTTL),
	}
}

// PreviewURL 内联展示链接，不记录活动.
func (s *FileService) PreviewURL(ctx context.Context, userID, fileID string) (*types.URLResponse, error) {
	f, _, err := s.readable(ctx, userID, fileID)
	if err != nil {
		return nil, err
	}

	url, err := s.Store.PresignedPreviewURL(ctx, f.StorageKey, f.ContentType, DefaultPresignedTTL)
	if err != nil {
		return nil, errs.Internal(err)
	}

	return s.urlResponse(f, url), nil
}

// DownloadURL 附件下载链接，记录 file.downloaded {filename}.
func (s *FileService) DownloadURL(ctx context.Context, userID, fileID string) (*types.URLResponse, error) {
	f, ws, err := s.readable(ctx, userID, fileID)
	if err != nil {
		return nil, err
	}

	url, err := s.Store.PresignedDownloadURL(ctx, f.StorageKey, f.Filename, DefaultPresignedTTL)
	if err != nil {
		return nil, errs.Internal(err)
	}

	err = s.inTx(ctx, func(tx *txScope) error {
		_, err := tx.record(RecordInput{
			WorkspaceID: ws.ID,
			ActorID:     userID,
			EventType:   model.EventFileDownloaded,
			EntityID:    f.ID,
			Metadata:    model.Metadata{"filename": f.Filename},
		}, ws.OwnerID)

		return err
	})
	if err != nil {
		return nil, errs.Internal(err)
	}

	return s.urlResponse(f, url), nil
}
