package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/google/uuid"
)

// FilesystemStorage implements BlobStore on local disk. References are paths
// relative to BaseURL, matching how the HTTP layer serves the upload root.
type FilesystemStorage struct {
	root    string
	baseURL string
}

func NewFilesystemStorage(root, baseURL string) (*FilesystemStorage, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload root: %w", err)
	}
	return &FilesystemStorage{root: root, baseURL: strings.TrimSuffix(baseURL, "/")}, nil
}

// Store writes to a temp file and renames it into place, so an interrupted
// write never leaves a referenced partial artifact.
func (s *FilesystemStorage) Store(ctx context.Context, folder string, img *ProcessedImage) (*Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := fmt.Sprintf("%s/%s.%s", folder, uuid.New().String(), img.Format)
	dest := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return nil, wrapFsErr(err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".upload-*")
	if err != nil {
		return nil, wrapFsErr(err)
	}
	if _, err := tmp.Write(img.Data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, wrapFsErr(err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return nil, wrapFsErr(err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		os.Remove(tmp.Name())
		return nil, wrapFsErr(err)
	}

	return &Object{Key: key, URL: s.baseURL + "/" + key}, nil
}

func (s *FilesystemStorage) Remove(ctx context.Context, key string) error {
	err := os.Remove(filepath.Join(s.root, filepath.FromSlash(key)))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return wrapFsErr(err)
	}
	return nil
}

func (s *FilesystemStorage) RemovePrefix(ctx context.Context, prefix string) error {
	err := os.RemoveAll(filepath.Join(s.root, filepath.FromSlash(prefix)))
	if err != nil {
		return wrapFsErr(err)
	}
	return nil
}

func wrapFsErr(err error) error {
	if errors.Is(err, syscall.ENOSPC) || errors.Is(err, syscall.EDQUOT) {
		return fmt.Errorf("%w: %v", ErrStorageQuotaExceeded, err)
	}
	return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
}
