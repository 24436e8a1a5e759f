// Package storage archives original uploads per user, so a failed parse can
// be re-run later (after a password is supplied, say) without asking the user
// to upload the file again.
package storage

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound means the upload id is unknown or belongs to another user.
var ErrNotFound = errors.New("storage: file not found")

// FileInfo describes one archived upload.
type FileInfo struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	Name        string    `json:"name"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	// Checksum is the hex SHA-256 of the stored bytes.
	Checksum string `json:"checksum"`
	// Path is the backend-internal location, relative to the user's area.
	Path      string    `json:"path"`
	CreatedAt time.Time `json:"created_at"`
}

// Storage is the upload archive contract.
type Storage interface {
	// Upload stores a file under the user's area and returns its metadata.
	Upload(ctx context.Context, userID uuid.UUID, filename string, contentType string, r io.Reader) (*FileInfo, error)

	// Download retrieves a file with its metadata.
	Download(ctx context.Context, userID, fileID uuid.UUID) (io.ReadCloser, *FileInfo, error)

	// Delete removes a file and its metadata.
	Delete(ctx context.Context, userID, fileID uuid.UUID) error

	// List returns every archived upload of one user.
	List(ctx context.Context, userID uuid.UUID) ([]*FileInfo, error)

	// GetInfo returns metadata without opening the content.
	GetInfo(ctx context.Context, userID, fileID uuid.UUID) (*FileInfo, error)

	// GetReader opens the stored bytes for streaming re-processing.
	GetReader(ctx context.Context, userID, fileID uuid.UUID) (io.ReadCloser, error)
}

// Type identifies the storage backend.
type Type string

const (
	TypeLocal Type = "local"
	TypeS3    Type = "s3"
)

// Config selects and parameterizes the backend. Values come from pkg/config.
type Config struct {
	Type Type

	LocalPath string

	S3Bucket          string
	S3Region          string
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3Endpoint        string
}

// New picks the backend for the configuration.
func New(cfg *Config) (Storage, error) {
	switch cfg.Type {
	case TypeS3:
		return NewS3Storage(cfg)
	case TypeLocal:
		fallthrough
	default:
		return NewLocalStorage(cfg.LocalPath)
	}
}
