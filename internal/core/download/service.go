// Package download fetches a resolved format into blob storage.
package download

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"

	"downloader/internal/core/media"
	"downloader/internal/logger"
	"downloader/internal/platform/storage"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
)

const (
	defaultTimeout     = 300 * time.Second
	defaultMaxFileSize = 100 << 20
	maxFilenameInput   = 255
	maxFilenameStem    = 200
	sniffLen           = 3072
)

var mimeTypes = map[string]string{
	"mp4":  "video/mp4",
	"mp3":  "audio/mpeg",
	"webm": "video/webm",
	"avi":  "video/x-msvideo",
	"mov":  "video/quicktime",
}

var (
	unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9\-_.]`)
	underscores = regexp.MustCompile(`_+`)

	errTooLarge = errors.New("file exceeds the size limit")
)

// MimeType maps an allowed format to its content type.
func MimeType(format string) (string, bool) {
	m, ok := mimeTypes[strings.ToLower(format)]
	return m, ok
}

type Options struct {
	Dir         string
	MaxFileSize int64
	Timeout     time.Duration
}

type Request struct {
	FormatURL string `json:"format_url" form:"format_url"`
	Filename  string `json:"filename" form:"filename"`
	Format    string `json:"format" form:"format"`
}

type Result struct {
	Filename string `json:"filename"`
	URL      string `json:"url"`
	MimeType string `json:"mime_type"`
	Size     int64  `json:"size"`
}

type Service struct {
	log    *logger.Logger
	store  storage.BlobStore
	client *http.Client
	opts   Options
	clock  func() time.Time
}

func NewService(store storage.BlobStore, opts Options) *Service {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = defaultMaxFileSize
	}
	if opts.Dir == "" {
		opts.Dir = "downloads"
	}
	return &Service{
		log:    logger.New("DownloadService"),
		store:  store,
		client: &http.Client{Timeout: opts.Timeout},
		opts:   opts,
		clock:  time.Now,
	}
}

// Validate checks a request before any network work.
func (s *Service) Validate(req Request) error {
	if _, ok := MimeType(req.Format); !ok {
		return media.NewError(media.ErrInvalidURL, "", fmt.Sprintf("unsupported format %q", req.Format), nil)
	}
	u, err := url.Parse(strings.TrimSpace(req.FormatURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return media.NewError(media.ErrInvalidURL, "", "format_url must be an absolute http(s) URL", nil)
	}
	if strings.TrimSpace(req.Filename) == "" || len(req.Filename) > maxFilenameInput {
		return media.NewError(media.ErrInvalidURL, "", "filename is required and at most 255 characters", nil)
	}
	return nil
}

// Download fetches req.FormatURL once and stores it as
// <dir>/<unix>_<sanitized name>. There is no retry.
func (s *Service) Download(ctx context.Context, req Request) (*Result, error) {
	if err := s.Validate(req); err != nil {
		return nil, err
	}
	format := strings.ToLower(req.Format)
	name := fmt.Sprintf("%d_%s", s.clock().Unix(), SanitizeFilename(req.Filename, format, s.clock))
	key := path.Join(s.opts.Dir, name)
	contentType, _ := MimeType(format)

	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.FormatURL, nil)
	if err != nil {
		return nil, storageErr("build request", err)
	}
	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, storageErr("fetch", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, storageErr("fetch", fmt.Errorf("unexpected status code: %d", resp.StatusCode))
	}
	if resp.ContentLength > s.opts.MaxFileSize {
		return nil, storageErr("fetch", fmt.Errorf("%w: %s", errTooLarge, humanize.IBytes(uint64(resp.ContentLength))))
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(resp.Body, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, storageErr("read", err)
	}
	head = head[:n]
	detected := mimetype.Detect(head)
	s.log.LogDebugf("Detected %s for %s (declared %s)", detected.String(), name, contentType)

	body := &capReader{r: io.MultiReader(bytes.NewReader(head), resp.Body), remaining: s.opts.MaxFileSize}
	size, err := s.store.Write(ctx, key, body, contentType)
	if err != nil {
		return nil, storageErr("write", err)
	}

	s.log.Info().Str("file", key).Str("size", humanize.IBytes(uint64(size))).Msg("Download stored")
	return &Result{Filename: name, URL: s.store.URL(key), MimeType: contentType, Size: size}, nil
}

// SanitizeFilename keeps [A-Za-z0-9._-], collapses underscores, strips
// leading dots and dashes, bounds the stem and appends the extension.
func SanitizeFilename(name, ext string, clock func() time.Time) string {
	name = unsafeChars.ReplaceAllString(name, "_")
	name = underscores.ReplaceAllString(name, "_")
	name = strings.TrimLeft(name, ".-")
	if len(name) > maxFilenameStem {
		name = name[:maxFilenameStem]
	}
	if name == "" {
		return "download_" + strconv.FormatInt(clock().Unix(), 10) + "." + ext
	}
	if !strings.HasSuffix(strings.ToLower(name), "."+ext) {
		name += "." + ext
	}
	return name
}

func storageErr(op string, err error) error {
	return media.NewError(media.ErrStorageIO, "", op, err)
}

// capReader fails once more than remaining bytes have been read, so the
// store discards the partial write.
type capReader struct {
	r         io.Reader
	remaining int64
}

func (c *capReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.remaining -= int64(n)
	if c.remaining < 0 {
		return n, errTooLarge
	}
	return n, err
}
