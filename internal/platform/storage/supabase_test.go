package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBucket struct {
	objects     map[string][]byte
	contentType map[string]string
	modTime     time.Time
	listErr     error
}

func newFakeBucket() *fakeBucket {
	return &fakeBucket{
		objects:     map[string][]byte{},
		contentType: map[string]string{},
		modTime:     time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (f *fakeBucket) ops() bucketOps {
	return bucketOps{
		upload: func(p string, r io.Reader, ct string) error {
			b, err := io.ReadAll(r)
			if err != nil {
				return err
			}
			f.objects[p] = b
			f.contentType[p] = ct
			return nil
		},
		remove: func(paths []string) (int, error) {
			n := 0
			for _, p := range paths {
				if _, ok := f.objects[p]; ok {
					delete(f.objects, p)
					n++
				}
			}
			return n, nil
		},
		list: func(dir string, limit, offset int) ([]object, error) {
			if f.listErr != nil {
				return nil, f.listErr
			}
			var out []object
			seen := map[string]bool{}
			for p, b := range f.objects {
				rest := p
				if dir != "" {
					if !strings.HasPrefix(p, dir+"/") {
						continue
					}
					rest = strings.TrimPrefix(p, dir+"/")
				}
				if i := strings.Index(rest, "/"); i >= 0 {
					if !seen[rest[:i]] {
						seen[rest[:i]] = true
						out = append(out, object{name: rest[:i], isFolder: true})
					}
					continue
				}
				out = append(out, object{name: rest, size: int64(len(b)), updatedAt: f.modTime})
			}
			if offset >= len(out) {
				return nil, nil
			}
			end := offset + limit
			if end > len(out) {
				end = len(out)
			}
			return out[offset:end], nil
		},
	}
}

func TestSupabaseWriteDetectsContentType(t *testing.T) {
	bucket := newFakeBucket()
	store := newSupabaseWithOps(bucket.ops(), "https://proj.supabase.co/", "media")

	n, err := store.Write(context.Background(), "/downloads/page.html", strings.NewReader("<html><body>hi</body></html>"), "")
	require.NoError(t, err)
	assert.EqualValues(t, 28, n)
	assert.Contains(t, bucket.contentType["downloads/page.html"], "text/html")

	_, err = store.Write(context.Background(), "downloads/clip.mp4", strings.NewReader("data"), "video/mp4")
	require.NoError(t, err)
	assert.Equal(t, "video/mp4", bucket.contentType["downloads/clip.mp4"])

	assert.Equal(t, "https://proj.supabase.co/storage/v1/object/public/media/downloads/clip.mp4", store.URL("downloads/clip.mp4"))
}

func TestSupabaseListSkipsFolders(t *testing.T) {
	bucket := newFakeBucket()
	bucket.objects["downloads/a.mp4"] = []byte("12345")
	bucket.objects["downloads/sub/b.mp4"] = []byte("1")
	store := newSupabaseWithOps(bucket.ops(), "https://proj.supabase.co", "media")

	entries, err := store.List(context.Background(), "downloads")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "downloads/a.mp4", entries[0].Path)
	assert.EqualValues(t, 5, entries[0].Size)
	assert.Equal(t, bucket.modTime, entries[0].ModTime)
}

func TestSupabaseListPages(t *testing.T) {
	bucket := newFakeBucket()
	for i := 0; i < listPageSize+5; i++ {
		bucket.objects[fmt.Sprintf("d/f%04d", i)] = []byte("x")
	}
	store := newSupabaseWithOps(bucket.ops(), "https://proj.supabase.co", "media")
	entries, err := store.List(context.Background(), "d")
	require.NoError(t, err)
	assert.Len(t, entries, listPageSize+5)
}

func TestSupabaseDeleteMissing(t *testing.T) {
	bucket := newFakeBucket()
	bucket.objects["x.mp4"] = []byte("1")
	store := newSupabaseWithOps(bucket.ops(), "https://proj.supabase.co", "media")

	require.NoError(t, store.Delete(context.Background(), "x.mp4"))
	assert.ErrorIs(t, store.Delete(context.Background(), "x.mp4"), ErrNotFound)
}

func TestSupabaseHealthCheck(t *testing.T) {
	bucket := newFakeBucket()
	store := newSupabaseWithOps(bucket.ops(), "https://proj.supabase.co", "media")
	assert.NoError(t, store.HealthCheck(context.Background()))

	bucket.listErr = errors.New("unauthorized")
	assert.Error(t, store.HealthCheck(context.Background()))
}

func TestToObjectReadsMetadata(t *testing.T) {
	o := toObject("a.mp4", "id-1", "2024-01-01T00:00:00Z", map[string]interface{}{
		"size":         float64(42),
		"lastModified": "2024-02-01T00:00:00Z",
	})
	assert.False(t, o.isFolder)
	assert.EqualValues(t, 42, o.size)
	assert.Equal(t, 2024, o.updatedAt.Year())
	assert.Equal(t, time.February, o.updatedAt.Month())

	folder := toObject("sub", "", "", nil)
	assert.True(t, folder.isFolder)
}
