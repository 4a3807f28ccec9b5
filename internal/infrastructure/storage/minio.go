package storage

import (
	"bytes"
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOConfig holds object-storage connection settings.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// MinIOStorage implements BlobStore against MinIO / any S3-compatible store.
type MinIOStorage struct {
	client *minio.Client
	bucket string
}

func NewMinIOStorage(ctx context.Context, cfg MinIOConfig) (*MinIOStorage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return &MinIOStorage{client: client, bucket: cfg.Bucket}, nil
}

// Store uploads under a fresh key, so a failed attempt never collides with a
// later retry and is never referenced by any row.
func (s *MinIOStorage) Store(ctx context.Context, folder string, img *ProcessedImage) (*Object, error) {
	key := fmt.Sprintf("%s/%s.%s", folder, uuid.New().String(), img.Format)

	_, err := s.client.PutObject(ctx, s.bucket, key,
		bytes.NewReader(img.Data), int64(len(img.Data)),
		minio.PutObjectOptions{ContentType: img.ContentType},
	)
	if err != nil {
		return nil, wrapMinioErr(err)
	}

	scheme := "http"
	if s.client.EndpointURL().Scheme == "https" {
		scheme = "https"
	}
	url := fmt.Sprintf("%s://%s/%s/%s", scheme, s.client.EndpointURL().Host, s.bucket, key)
	return &Object{Key: key, URL: url}, nil
}

func (s *MinIOStorage) Remove(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return wrapMinioErr(err)
	}
	return nil
}

// RemovePrefix deletes every object under prefix (all images of one listing).
func (s *MinIOStorage) RemovePrefix(ctx context.Context, prefix string) error {
	objectsCh := s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})
	for object := range objectsCh {
		if object.Err != nil {
			return wrapMinioErr(object.Err)
		}
		if err := s.client.RemoveObject(ctx, s.bucket, object.Key, minio.RemoveObjectOptions{}); err != nil {
			return wrapMinioErr(err)
		}
	}
	return nil
}

func wrapMinioErr(err error) error {
	resp := minio.ToErrorResponse(err)
	if resp.Code == "QuotaExceeded" || resp.Code == "XMinioAdminBucketQuotaExceeded" {
		return fmt.Errorf("%w: %v", ErrStorageQuotaExceeded, err)
	}
	return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
}
