package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Local stores blobs under a base directory. The directory is created lazily
// on first write so that a sweep of a never-used store sees it as missing.
type Local struct {
	baseDir   string
	urlPrefix string
}

var _ BlobStore = (*Local)(nil)

// NewLocal returns a store rooted at baseDir. Objects are addressed publicly
// as urlPrefix + "/" + path.
func NewLocal(baseDir, urlPrefix string) (*Local, error) {
	if strings.TrimSpace(baseDir) == "" {
		return nil, fmt.Errorf("base directory is required")
	}
	if info, err := os.Stat(baseDir); err == nil && !info.IsDir() {
		return nil, fmt.Errorf("base directory path %s is not a directory", baseDir)
	}
	return &Local{baseDir: baseDir, urlPrefix: strings.TrimRight(urlPrefix, "/")}, nil
}

// resolve maps a store path to a filesystem path inside baseDir.
func (s *Local) resolve(p string) (string, error) {
	clean := filepath.Clean(s.baseDir)
	full := filepath.Clean(filepath.Join(clean, filepath.FromSlash(p)))
	if full != clean && !strings.HasPrefix(full, clean+string(filepath.Separator)) {
		return "", fmt.Errorf("path traversal detected: %s", p)
	}
	return full, nil
}

func (s *Local) List(_ context.Context, dir string) ([]Entry, error) {
	full, err := s.resolve(dir)
	if err != nil {
		return nil, err
	}
	dirents, err := os.ReadDir(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", full, err)
	}

	entries := make([]Entry, 0, len(dirents))
	for _, d := range dirents {
		if !d.Type().IsRegular() {
			continue
		}
		info, err := d.Info()
		if err != nil {
			// Removed between ReadDir and Info.
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("stat %s: %w", d.Name(), err)
		}
		entries = append(entries, Entry{
			Path:    path.Join(filepath.ToSlash(dir), d.Name()),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	return entries, nil
}

// Write streams r to a temp file and renames it into place.
func (s *Local) Write(_ context.Context, p string, r io.Reader, _ string) (int64, error) {
	if strings.TrimSpace(p) == "" {
		return 0, fmt.Errorf("path is required")
	}
	full, err := s.resolve(p)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return 0, fmt.Errorf("create parent directories: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(full), ".upload-*")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	n, copyErr := io.Copy(tmp, r)
	closeErr := tmp.Close()
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(tmp.Name())
		if copyErr != nil {
			return n, fmt.Errorf("write %s: %w", p, copyErr)
		}
		return n, fmt.Errorf("close %s: %w", p, closeErr)
	}
	if err := os.Rename(tmp.Name(), full); err != nil {
		_ = os.Remove(tmp.Name())
		return n, fmt.Errorf("rename into %s: %w", p, err)
	}
	return n, nil
}

func (s *Local) Delete(_ context.Context, p string) error {
	full, err := s.resolve(p)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("remove %s: %w", p, err)
	}
	return nil
}

func (s *Local) URL(p string) string {
	return s.urlPrefix + "/" + strings.TrimLeft(p, "/")
}

// HealthCheck succeeds when the base directory is absent (it will be
// created on demand) or is a writable directory.
func (s *Local) HealthCheck(_ context.Context) error {
	info, err := os.Stat(s.baseDir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", s.baseDir)
	}
	marker := filepath.Join(s.baseDir, ".writable_test")
	if err := os.WriteFile(marker, []byte("ok"), 0o600); err != nil {
		return fmt.Errorf("base directory is not writable: %w", err)
	}
	return os.Remove(marker)
}
