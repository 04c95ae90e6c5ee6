package storage

import (
	"context"
	"fmt"
)

// Config 存储配置，Type选择具体实现
type Config struct {
	Type            string // local, minio 或 gcs
	Path            string
	Bucket          string
	Prefix          string
	Endpoint        string
	AccessKey       string
	SecretKey       string
	UseSSL          bool
	CredentialsFile string
}

// New 根据配置创建存储实现
func New(ctx context.Context, cfg Config) (Storage, error) {
	switch cfg.Type {
	case "", "local":
		return NewLocalStorage(LocalConfig{Path: cfg.Path})
	case "minio":
		return NewMinioStorage(ctx, MinioConfig{
			Endpoint:  cfg.Endpoint,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
			UseSSL:    cfg.UseSSL,
			Bucket:    cfg.Bucket,
			Prefix:    cfg.Prefix,
		})
	case "gcs":
		return NewGCSStorage(ctx, GCSConfig{
			Bucket:          cfg.Bucket,
			Prefix:          cfg.Prefix,
			CredentialsFile: cfg.CredentialsFile,
		})
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}
