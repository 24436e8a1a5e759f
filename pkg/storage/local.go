package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// LocalStorage keeps uploads on the local filesystem: one directory per user,
// with a .meta subdirectory of JSON sidecars keyed by file id.
type LocalStorage struct {
	basePath string
}

func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	return &LocalStorage{basePath: basePath}, nil
}

func (s *LocalStorage) Upload(ctx context.Context, userID uuid.UUID, filename string, contentType string, r io.Reader) (*FileInfo, error) {
	fileID := uuid.New()

	userDir := filepath.Join(s.basePath, userID.String())
	if err := os.MkdirAll(userDir, 0o755); err != nil {
		return nil, fmt.Errorf("create user directory: %w", err)
	}

	// Unique on disk even when the same filename is uploaded twice.
	storedName := fmt.Sprintf("%s_%s", fileID.String()[:8], sanitizeFilename(filename))
	filePath := filepath.Join(userDir, storedName)

	f, err := os.Create(filePath)
	if err != nil {
		return nil, fmt.Errorf("create file: %w", err)
	}
	defer f.Close()

	hash := sha256.New()
	size, err := io.Copy(io.MultiWriter(f, hash), r)
	if err != nil {
		os.Remove(filePath)
		return nil, fmt.Errorf("write file: %w", err)
	}

	if contentType == "" {
		contentType = "application/octet-stream"
	}
	info := &FileInfo{
		ID:          fileID,
		UserID:      userID,
		Name:        filename,
		Size:        size,
		ContentType: contentType,
		Checksum:    hex.EncodeToString(hash.Sum(nil)),
		Path:        storedName,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.saveMetadata(userID, fileID, info); err != nil {
		os.Remove(filePath)
		return nil, err
	}
	return info, nil
}

func (s *LocalStorage) Download(ctx context.Context, userID, fileID uuid.UUID) (io.ReadCloser, *FileInfo, error) {
	info, err := s.GetInfo(ctx, userID, fileID)
	if err != nil {
		return nil, nil, err
	}

	f, err := os.Open(filepath.Join(s.basePath, userID.String(), info.Path))
	if err != nil {
		return nil, nil, fmt.Errorf("open file: %w", err)
	}
	return f, info, nil
}

func (s *LocalStorage) Delete(ctx context.Context, userID, fileID uuid.UUID) error {
	info, err := s.GetInfo(ctx, userID, fileID)
	if err != nil {
		return err
	}

	filePath := filepath.Join(s.basePath, userID.String(), info.Path)
	if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete file: %w", err)
	}
	os.Remove(s.metaPath(userID, fileID))
	return nil
}

func (s *LocalStorage) List(ctx context.Context, userID uuid.UUID) ([]*FileInfo, error) {
	metaDir := filepath.Join(s.basePath, userID.String(), ".meta")
	entries, err := os.ReadDir(metaDir)
	if os.IsNotExist(err) {
		return []*FileInfo{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list metadata: %w", err)
	}

	files := make([]*FileInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		id, err := uuid.Parse(strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			continue
		}
		info, err := s.GetInfo(ctx, userID, id)
		if err != nil {
			continue
		}
		files = append(files, info)
	}
	return files, nil
}

func (s *LocalStorage) GetInfo(ctx context.Context, userID, fileID uuid.UUID) (*FileInfo, error) {
	data, err := os.ReadFile(s.metaPath(userID, fileID))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, fileID)
	}
	if err != nil {
		return nil, fmt.Errorf("read metadata: %w", err)
	}

	var info FileInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("parse metadata: %w", err)
	}
	return &info, nil
}

func (s *LocalStorage) GetReader(ctx context.Context, userID, fileID uuid.UUID) (io.ReadCloser, error) {
	info, err := s.GetInfo(ctx, userID, fileID)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(filepath.Join(s.basePath, userID.String(), info.Path))
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	return f, nil
}

func (s *LocalStorage) metaPath(userID, fileID uuid.UUID) string {
	return filepath.Join(s.basePath, userID.String(), ".meta", fileID.String()+".json")
}

func (s *LocalStorage) saveMetadata(userID, fileID uuid.UUID, info *FileInfo) error {
	metaDir := filepath.Join(s.basePath, userID.String(), ".meta")
	if err := os.MkdirAll(metaDir, 0o755); err != nil {
		return fmt.Errorf("create metadata directory: %w", err)
	}

	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(metaDir, fileID.String()+".json"), data, 0o644); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	return nil
}

// sanitizeFilename strips path separators and shell-hostile characters.
func sanitizeFilename(name string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		"..", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
	)
	return replacer.Replace(name)
}
