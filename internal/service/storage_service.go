package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"socialhub_backend/internal/config"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// StoredObject 存储子系统的返回值：路径、外链、类型、大小
type StoredObject struct {
	Path     string `json:"path"`
	URL      string `json:"url"`
	MimeType string `json:"mimeType"`
	Size     int64  `json:"size"`
}

// StorageProvider 定义通用存储接口
type StorageProvider interface {
	Upload(ctx context.Context, objectPath string, reader io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, objectPath string) error
	GetURL(objectPath string) string
}

// LocalStorageProvider 本地存储实现
type LocalStorageProvider struct {
	Config *config.StorageConfig
}

func (p *LocalStorageProvider) Upload(ctx context.Context, objectPath string, reader io.Reader, size int64, contentType string) (string, error) {
	dst := filepath.Join(p.Config.LocalPath, objectPath)
	dir := filepath.Dir(dst)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", err
		}
	}

	out, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	defer out.Close()

	_, err = io.Copy(out, reader)
	if err != nil {
		return "", err
	}

	return p.GetURL(objectPath), nil
}

func (p *LocalStorageProvider) Delete(ctx context.Context, objectPath string) error {
	return os.Remove(filepath.Join(p.Config.LocalPath, objectPath))
}

func (p *LocalStorageProvider) GetURL(objectPath string) string {
	return "/uploads/" + objectPath
}

// MinioStorageProvider MinIO存储实现
type MinioStorageProvider struct {
	Config *config.StorageConfig
	Client *minio.Client
}

func NewMinioStorageProvider(cfg *config.StorageConfig) (*MinioStorageProvider, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessID, cfg.MinioSecret, ""),
		Secure: false,
	})
	if err != nil {
		return nil, err
	}
	return &MinioStorageProvider{Config: cfg, Client: client}, nil
}

func (p *MinioStorageProvider) Upload(ctx context.Context, objectPath string, reader io.Reader, size int64, contentType string) (string, error) {
	_, err := p.Client.PutObject(ctx, p.Config.MinioBucket, objectPath, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", err
	}
	return p.GetURL(objectPath), nil
}

func (p *MinioStorageProvider) Delete(ctx context.Context, objectPath string) error {
	return p.Client.RemoveObject(ctx, p.Config.MinioBucket, objectPath, minio.RemoveObjectOptions{})
}

func (p *MinioStorageProvider) GetURL(objectPath string) string {
	return "/" + p.Config.MinioBucket + "/" + objectPath
}

// OSSStorageProvider 阿里云OSS存储实现
type OSSStorageProvider struct {
	Config *config.StorageConfig
	Client *oss.Client
}

func NewOSSStorageProvider(cfg *config.StorageConfig) (*OSSStorageProvider, error) {
	client, err := oss.New(cfg.OSSEndpoint, cfg.OSSAccessKey, cfg.OSSSecretKey)
	if err != nil {
		return nil, err
	}
	return &OSSStorageProvider{Config: cfg, Client: client}, nil
}

func (p *OSSStorageProvider) Upload(ctx context.Context, objectPath string, reader io.Reader, size int64, contentType string) (string, error) {
	bucket, err := p.Client.Bucket(p.Config.OSSBucket)
	if err != nil {
		return "", err
	}

	if err := bucket.PutObject(objectPath, reader); err != nil {
		return "", err
	}
	return p.GetURL(objectPath), nil
}

func (p *OSSStorageProvider) Delete(ctx context.Context, objectPath string) error {
	bucket, err := p.Client.Bucket(p.Config.OSSBucket)
	if err != nil {
		return err
	}
	return bucket.DeleteObject(objectPath)
}

func (p *OSSStorageProvider) GetURL(objectPath string) string {
	return fmt.Sprintf("https://%s.%s/%s", p.Config.OSSBucket, p.Config.OSSEndpoint, objectPath)
}

// StorageService 媒体/存储子系统的入口
// 按 (归属用户, 命名空间) 生成对象路径，上传同步完成，失败由调用方整体回滚
type StorageService struct {
	Provider StorageProvider
}

func NewStorageService(cfg *config.Config) *StorageService {
	var provider StorageProvider
	switch cfg.Storage.Type {
	case "minio":
		p, err := NewMinioStorageProvider(&cfg.Storage)
		if err == nil {
			provider = p
		}
	case "oss":
		p, err := NewOSSStorageProvider(&cfg.Storage)
		if err == nil {
			provider = p
		}
	}

	if provider == nil {
		provider = &LocalStorageProvider{Config: &cfg.Storage}
	}

	return &StorageService{Provider: provider}
}

// Store namespace 形如 "messages"、"avatars"、"posts"
func (s *StorageService) Store(ctx context.Context, namespace string, ownerID uint, filename string, reader io.Reader, size int64, contentType string) (*StoredObject, error) {
	objectPath := fmt.Sprintf("%s/%d/%s_%s%s",
		namespace,
		ownerID,
		time.Now().Format("20060102"),
		uuid.New().String()[:8],
		filepath.Ext(filename),
	)

	url, err := s.Provider.Upload(ctx, objectPath, reader, size, contentType)
	if err != nil {
		return nil, err
	}

	return &StoredObject{
		Path:     objectPath,
		URL:      url,
		MimeType: contentType,
		Size:     size,
	}, nil
}

func (s *StorageService) Delete(ctx context.Context, objectPath string) error {
	return s.Provider.Delete(ctx, objectPath)
}

func (s *StorageService) GetURL(objectPath string) string {
	return s.Provider.GetURL(objectPath)
}
