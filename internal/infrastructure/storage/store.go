package storage

import (
	"context"
	"errors"
)

var (
	// ErrStorageUnavailable signals a transient backend failure (network,
	// disk). Callers treat it as retryable.
	ErrStorageUnavailable = errors.New("blob storage unavailable")
	// ErrStorageQuotaExceeded signals the backend refused the write for
	// capacity reasons.
	ErrStorageQuotaExceeded = errors.New("blob storage quota exceeded")
)

// Object is a stored blob: Key is the internal handle used for deletion, URL
// is the stable publicly-resolvable reference persisted in the database.
type Object struct {
	Key string
	URL string
}

// BlobStore persists processed images. Implementations must not leave a
// referenced partial artifact behind on a failed Store.
type BlobStore interface {
	Store(ctx context.Context, folder string, img *ProcessedImage) (*Object, error)
	Remove(ctx context.Context, key string) error
	RemovePrefix(ctx context.Context, prefix string) error
}
