// Package storage is the blob storage boundary used for downloaded artifacts
// and the retention sweep.
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotFound is returned for a missing object or directory.
var ErrNotFound = errors.New("storage: not found")

// Entry describes one stored object.
type Entry struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// BlobStore is implemented by the local filesystem and the Supabase bucket.
// Paths are slash-separated and relative to the store root.
type BlobStore interface {
	// List returns the files directly under dir. Subdirectories are skipped.
	List(ctx context.Context, dir string) ([]Entry, error)
	Write(ctx context.Context, path string, r io.Reader, contentType string) (int64, error)
	Delete(ctx context.Context, path string) error
	// URL is where a client can fetch the stored object.
	URL(path string) string
	HealthCheck(ctx context.Context) error
}
