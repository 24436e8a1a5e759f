package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
)

// ErrS3NotImplemented is returned by every S3Storage operation until the
// backend is actually written.
var ErrS3NotImplemented = errors.New("storage: s3 backend not implemented")

// S3Storage is the placeholder for an S3 (or MinIO) backed archive. The
// configuration is validated so a misconfigured deployment fails at startup
// rather than on the first upload.
type S3Storage struct {
	bucket   string
	region   string
	endpoint string
}

func NewS3Storage(cfg *Config) (*S3Storage, error) {
	if cfg.S3Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	if cfg.S3Region == "" {
		return nil, fmt.Errorf("s3 region is required")
	}
	return &S3Storage{
		bucket:   cfg.S3Bucket,
		region:   cfg.S3Region,
		endpoint: cfg.S3Endpoint,
	}, nil
}

func (s *S3Storage) Upload(ctx context.Context, userID uuid.UUID, filename string, contentType string, r io.Reader) (*FileInfo, error) {
	return nil, ErrS3NotImplemented
}

func (s *S3Storage) Download(ctx context.Context, userID, fileID uuid.UUID) (io.ReadCloser, *FileInfo, error) {
	return nil, nil, ErrS3NotImplemented
}

func (s *S3Storage) Delete(ctx context.Context, userID, fileID uuid.UUID) error {
	return ErrS3NotImplemented
}

func (s *S3Storage) List(ctx context.Context, userID uuid.UUID) ([]*FileInfo, error) {
	return nil, ErrS3NotImplemented
}

func (s *S3Storage) GetInfo(ctx context.Context, userID, fileID uuid.UUID) (*FileInfo, error) {
	return nil, ErrS3NotImplemented
}

func (s *S3Storage) GetReader(ctx context.Context, userID, fileID uuid.UUID) (io.ReadCloser, error) {
	return nil, ErrS3NotImplemented
}
