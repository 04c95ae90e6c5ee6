package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// FileInfo 文件元数据结构
type FileInfo struct {
	ID       string // 文件标识，上传文件为UUID，其它为去掉扩展名的文件名
	Name     string // 文件名
	Size     int64  // 文件大小(字节)
	MimeType string // 文件MIME类型
	Path     string // 存储内的相对路径或对象名，作为Get/Delete的键
}

// Storage 文件存储接口
// 输入文件的枚举和读取，以及上传文件的保存，可以有不同实现(本地文件系统、MinIO、GCS)
type Storage interface {
	// Save 保存文件并返回文件信息
	Save(ctx context.Context, reader io.Reader, filename string) (FileInfo, error)

	// Get 按路径获取文件内容
	Get(ctx context.Context, path string) (io.ReadCloser, error)

	// Delete 按路径删除文件
	Delete(ctx context.Context, path string) error

	// List 列出所有文件，按路径排序
	List(ctx context.Context) ([]FileInfo, error)

	// Exists 检查文件是否存在
	Exists(ctx context.Context, path string) (bool, error)
}

// SkippedError 枚举时有条目无法读取，其余文件仍然返回
type SkippedError struct {
	Paths []string
	Errs  []error
}

func (e *SkippedError) Error() string {
	return fmt.Sprintf("skipped %d unreadable entries", len(e.Paths))
}

// Unwrap 返回各条目的错误
func (e *SkippedError) Unwrap() []error {
	return e.Errs
}

// Discover 列出存储中满足条件的文件
// 返回顺序即发现顺序，按路径字典序
// 部分条目无法读取时同时返回可读文件和*SkippedError
func Discover(ctx context.Context, s Storage, match func(name string) bool) ([]FileInfo, error) {
	files, err := s.List(ctx)
	var skipped *SkippedError
	if err != nil && !errors.As(err, &skipped) {
		return nil, err
	}

	out := make([]FileInfo, 0, len(files))
	for _, f := range files {
		if match == nil || match(f.Name) {
			out = append(out, f)
		}
	}
	sortByPath(out)
	if skipped != nil {
		return out, skipped
	}
	return out, nil
}

func sortByPath(files []FileInfo) {
	sort.Slice(files, func(i, j int) bool {
		return files[i].Path < files[j].Path
	})
}

// uploadObjectName 生成上传文件的对象名，按年月日分目录
func uploadObjectName(filename string) (id, name string) {
	id = uuid.New().String()
	now := time.Now()
	datePath := fmt.Sprintf("%04d/%02d/%02d", now.Year(), now.Month(), now.Day())
	return id, path.Join("uploads", datePath, id+filepath.Ext(filename))
}

// fileInfoFromKey 从对象名构建文件信息
func fileInfoFromKey(key string, size int64) FileInfo {
	name := path.Base(key)
	return FileInfo{
		ID:       strings.TrimSuffix(name, path.Ext(name)),
		Name:     name,
		Size:     size,
		MimeType: getMimeType(name),
		Path:     key,
	}
}

// getMimeType 根据扩展名获取MIME类型
func getMimeType(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return "application/pdf"
	case ".txt":
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}
