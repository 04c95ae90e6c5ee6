package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GCSStorage Google Cloud Storage存储实现
type GCSStorage struct {
	client *gcs.Client
	bucket *gcs.BucketHandle
	prefix string
}

// GCSConfig GCS存储配置
type GCSConfig struct {
	Bucket          string // 存储桶名称
	Prefix          string // 只处理该前缀下的对象
	CredentialsFile string // 服务账号文件，为空时使用默认凭据
}

// NewGCSStorage 创建GCS存储实例
func NewGCSStorage(ctx context.Context, cfg GCSConfig) (*GCSStorage, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("gcs bucket is required")
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}

	return &GCSStorage{
		client: client,
		bucket: client.Bucket(cfg.Bucket),
		prefix: cfg.Prefix,
	}, nil
}

// Close 关闭客户端
func (s *GCSStorage) Close() error {
	return s.client.Close()
}

// Save 上传文件到GCS
func (s *GCSStorage) Save(ctx context.Context, reader io.Reader, filename string) (FileInfo, error) {
	id, objectName := uploadObjectName(filename)
	objectName = path.Join(s.prefix, objectName)
	contentType := getMimeType(filename)

	w := s.bucket.Object(objectName).NewWriter(ctx)
	w.ContentType = contentType

	size, err := io.Copy(w, reader)
	if err != nil {
		_ = w.Close()
		return FileInfo{}, fmt.Errorf("failed to upload file: %w", err)
	}
	if err := w.Close(); err != nil {
		return FileInfo{}, fmt.Errorf("failed to finalize upload: %w", err)
	}

	return FileInfo{
		ID:       id,
		Name:     filename,
		Size:     size,
		MimeType: contentType,
		Path:     objectName,
	}, nil
}

// Get 获取GCS中的对象
func (s *GCSStorage) Get(ctx context.Context, objectName string) (io.ReadCloser, error) {
	r, err := s.bucket.Object(objectName).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get object: %w", err)
	}
	return r, nil
}

// Delete 删除GCS中的对象
func (s *GCSStorage) Delete(ctx context.Context, objectName string) error {
	if err := s.bucket.Object(objectName).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

// List 列出前缀下的所有对象
func (s *GCSStorage) List(ctx context.Context) ([]FileInfo, error) {
	var files []FileInfo

	it := s.bucket.Objects(ctx, &gcs.Query{Prefix: s.prefix})
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error listing objects: %w", err)
		}
		files = append(files, fileInfoFromKey(attrs.Name, attrs.Size))
	}

	sortByPath(files)
	return files, nil
}

// Exists 检查GCS中是否存在指定对象
func (s *GCSStorage) Exists(ctx context.Context, objectName string) (bool, error) {
	_, err := s.bucket.Object(objectName).Attrs(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat object: %w", err)
	}
	return true, nil
}
