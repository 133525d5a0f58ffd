// Package imagestore adapts an S3-compatible object store to the narrow
// contract the design catalog needs: upload bytes, get back a public URL
// plus an opaque handle, delete by handle.
package imagestore

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/atelier-studio/atelier-api/config"
	"github.com/atelier-studio/atelier-api/internal/api"
)

var _ Store = (*MinioStore)(nil)

// Upload is the result of a successful image upload. ExternalID is
// opaque to callers; only this package knows it is an object key.
type Upload struct {
	URL        string
	ExternalID string
}

type Store interface {
	Upload(ctx context.Context, data []byte, originalName string) (*Upload, error)
	// Delete is idempotent: deleting an already-absent object reports true.
	Delete(ctx context.Context, externalID string) (bool, error)
}

type MinioStore struct {
	logger    *slog.Logger
	mc        *minio.Client
	bucket    string
	publicURL string
	useSSL    bool
	endpoint  string
}

func NewMinioStore(cfg config.ImageStoreConfig, logger *slog.Logger) (*MinioStore, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("image store endpoint is required")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("image store access key and secret key are required")
	}

	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create image store client: %w", err)
	}

	return &MinioStore{
		logger:    logger,
		mc:        mc,
		bucket:    cfg.Bucket,
		publicURL: cfg.PublicURL,
		useSSL:    cfg.UseSSL,
		endpoint:  cfg.Endpoint,
	}, nil
}

// EnsureBucket creates the bucket on first boot against a fresh store.
func (s *MinioStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.mc.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := s.mc.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket: %w", err)
		}
		s.logger.InfoContext(ctx, "Created image store bucket", slog.String("bucket", s.bucket))
	}
	return nil
}

func (s *MinioStore) Upload(ctx context.Context, data []byte, originalName string) (*Upload, error) {
	key := objectKey(originalName)
	contentType := http.DetectContentType(data)

	_, err := s.mc.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Image upload failed",
			slog.String("key", key), slog.Any("error", err))
		return nil, fmt.Errorf("failed to upload image: %v: %w", err, api.ErrImageStore)
	}

	s.logger.InfoContext(ctx, "Image uploaded", slog.String("key", key))
	return &Upload{
		URL:        s.objectURL(key),
		ExternalID: key,
	}, nil
}

func (s *MinioStore) Delete(ctx context.Context, externalID string) (bool, error) {
	err := s.mc.RemoveObject(ctx, s.bucket, externalID, minio.RemoveObjectOptions{})
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" {
			return true, nil
		}
		s.logger.ErrorContext(ctx, "Image delete failed",
			slog.String("external_id", externalID), slog.Any("error", err))
		return false, fmt.Errorf("failed to delete image: %v: %w", err, api.ErrImageStore)
	}
	s.logger.InfoContext(ctx, "Image deleted", slog.String("external_id", externalID))
	return true, nil
}

func (s *MinioStore) objectURL(key string) string {
	if s.publicURL != "" {
		return strings.TrimRight(s.publicURL, "/") + "/" + s.bucket + "/" + key
	}
	scheme := "http"
	if s.useSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, s.endpoint, s.bucket, key)
}

// objectKey builds a collision-resistant key; callers must treat the
// result as opaque.
func objectKey(originalName string) string {
	ext := strings.ToLower(path.Ext(originalName))
	return fmt.Sprintf("designs/design-%d-%s%s", time.Now().UnixMilli(), uuid.NewString()[:8], ext)
}
