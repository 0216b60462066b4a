package minio

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/yourusername/lms-api/internal/domain/repository"
)

// Config holds object storage connection settings.
type Config struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	Bucket        string
	UseSSL        bool
	PublicBaseURL string
}

// MediaRepo implements repository.MediaRepository on MinIO / S3.
type MediaRepo struct {
	client  *minio.Client
	bucket  string
	baseURL string
}

// NewMediaRepo connects to the object store and makes sure the bucket exists.
func NewMediaRepo(ctx context.Context, cfg Config) (*MediaRepo, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", cfg.Bucket, err)
		}
		log.Printf("[MediaRepo] created bucket %s", cfg.Bucket)
	}

	baseURL := strings.TrimRight(cfg.PublicBaseURL, "/")
	if baseURL == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		baseURL = fmt.Sprintf("%s://%s/%s", scheme, cfg.Endpoint, cfg.Bucket)
	}

	return &MediaRepo{client: client, bucket: cfg.Bucket, baseURL: baseURL}, nil
}

// Put uploads an object and returns its key and public URL.
func (r *MediaRepo) Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (*repository.MediaObject, error) {
	info, err := r.client.PutObject(ctx, r.bucket, key, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to put object %s: %w", key, err)
	}

	return &repository.MediaObject{
		Key:         key,
		URL:         r.objectURL(key),
		Size:        info.Size,
		ContentType: contentType,
	}, nil
}

// Remove deletes an object by key.
func (r *MediaRepo) Remove(ctx context.Context, key string) error {
	if err := r.client.RemoveObject(ctx, r.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to remove object %s: %w", key, err)
	}
	return nil
}

// KeyFromURL accepts only URLs built by objectURL.
func (r *MediaRepo) KeyFromURL(url string) (string, bool) {
	key := strings.TrimPrefix(url, r.baseURL+"/")
	if key == url || key == "" {
		return "", false
	}
	return key, true
}

// Ping checks that the bucket is reachable.
func (r *MediaRepo) Ping(ctx context.Context) error {
	_, err := r.client.BucketExists(ctx, r.bucket)
	return err
}

// objectURL is the public URL of key.
func (r *MediaRepo) objectURL(key string) string {
	return r.baseURL + "/" + key
}
