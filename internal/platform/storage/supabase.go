package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"downloader/internal/logger"

	"github.com/antoineross/supabase-go"
	"github.com/gabriel-vasile/mimetype"
	storage_go "github.com/supabase-community/storage-go"
)

const listPageSize = 1000

// object is the subset of a bucket listing entry the store needs.
type object struct {
	name      string
	isFolder  bool
	size      int64
	updatedAt time.Time
}

// bucketOps isolates the storage-go calls so tests can fake the bucket.
type bucketOps struct {
	upload func(p string, r io.Reader, contentType string) error
	remove func(paths []string) (int, error)
	list   func(dir string, limit, offset int) ([]object, error)
}

// Supabase stores blobs in a Supabase Storage bucket.
type Supabase struct {
	log     *logger.Logger
	ops     bucketOps
	baseURL string
	bucket  string
}

var _ BlobStore = (*Supabase)(nil)

type SupabaseConfig struct {
	URL        string
	ServiceKey string
	Bucket     string
}

func NewSupabase(cfg SupabaseConfig) (*Supabase, error) {
	if cfg.URL == "" || cfg.ServiceKey == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("supabase storage requires url, service key and bucket")
	}
	client, err := supabase.NewClient(cfg.URL, cfg.ServiceKey, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Supabase client: %w", err)
	}
	st := client.Storage
	bucket := cfg.Bucket
	ops := bucketOps{
		upload: func(p string, r io.Reader, contentType string) error {
			upsert := true
			_, err := st.UploadFile(bucket, p, r, storage_go.FileOptions{ContentType: &contentType, Upsert: &upsert})
			return err
		},
		remove: func(paths []string) (int, error) {
			removed, err := st.RemoveFile(bucket, paths)
			return len(removed), err
		},
		list: func(dir string, limit, offset int) ([]object, error) {
			files, err := st.ListFiles(bucket, dir, storage_go.FileSearchOptions{Limit: limit, Offset: offset})
			if err != nil {
				return nil, err
			}
			out := make([]object, 0, len(files))
			for _, f := range files {
				out = append(out, toObject(f.Name, f.Id, f.UpdatedAt, f.Metadata))
			}
			return out, nil
		},
	}
	return newSupabaseWithOps(ops, cfg.URL, bucket), nil
}

func newSupabaseWithOps(ops bucketOps, baseURL, bucket string) *Supabase {
	return &Supabase{
		log:     logger.New("SupabaseStorage"),
		ops:     ops,
		baseURL: strings.TrimRight(baseURL, "/"),
		bucket:  bucket,
	}
}

// toObject reads size and modification time out of the listing metadata.
// Folders come back without an id.
func toObject(name, id, updatedAt string, metadata interface{}) object {
	o := object{name: name, isFolder: id == ""}
	if t, err := time.Parse(time.RFC3339, updatedAt); err == nil {
		o.updatedAt = t
	}
	md, ok := metadata.(map[string]interface{})
	if !ok {
		return o
	}
	switch v := md["size"].(type) {
	case float64:
		o.size = int64(v)
	case int64:
		o.size = v
	case int:
		o.size = int64(v)
	}
	if s, ok := md["lastModified"].(string); ok {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			o.updatedAt = t
		}
	}
	return o
}

// List pages through the bucket prefix. A prefix with no objects is reported
// as empty since buckets have no real directories.
func (s *Supabase) List(_ context.Context, dir string) ([]Entry, error) {
	dir = strings.Trim(dir, "/")
	var entries []Entry
	for offset := 0; ; offset += listPageSize {
		page, err := s.ops.list(dir, listPageSize, offset)
		if err != nil {
			return nil, fmt.Errorf("list %s/%s: %w", s.bucket, dir, err)
		}
		for _, o := range page {
			if o.isFolder {
				continue
			}
			entries = append(entries, Entry{Path: path.Join(dir, o.name), Size: o.size, ModTime: o.updatedAt})
		}
		if len(page) < listPageSize {
			break
		}
	}
	return entries, nil
}

// Write buffers r so the content type can be sniffed before upload.
func (s *Supabase) Write(_ context.Context, p string, r io.Reader, contentType string) (int64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, fmt.Errorf("read upload body: %w", err)
	}
	if contentType == "" {
		contentType = mimetype.Detect(data).String()
	}
	p = strings.TrimLeft(p, "/")
	if err := s.ops.upload(p, bytes.NewReader(data), contentType); err != nil {
		s.log.LogWarnf("Supabase upload failed for %s: %v", p, err)
		return 0, fmt.Errorf("upload %s: %w", p, err)
	}
	return int64(len(data)), nil
}

func (s *Supabase) Delete(_ context.Context, p string) error {
	n, err := s.ops.remove([]string{strings.TrimLeft(p, "/")})
	if err != nil {
		return fmt.Errorf("remove %s: %w", p, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Supabase) URL(p string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", s.baseURL, s.bucket, strings.TrimLeft(p, "/"))
}

func (s *Supabase) HealthCheck(_ context.Context) error {
	if _, err := s.ops.list("", 1, 0); err != nil {
		return fmt.Errorf("supabase bucket %s unreachable: %w", s.bucket, err)
	}
	return nil
}
