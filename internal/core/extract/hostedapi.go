package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"downloader/internal/core/media"
	"downloader/internal/logger"
)

type HostedAPIConfig struct {
	Enabled  bool
	Key      string
	Host     string
	Endpoint string
	Timeout  time.Duration
}

// HostedAPI resolves through a RapidAPI-style metadata service.
type HostedAPI struct {
	log    *logger.Logger
	cfg    HostedAPIConfig
	client *http.Client
}

func NewHostedAPI(cfg HostedAPIConfig) *HostedAPI {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &HostedAPI{
		log:    logger.New("HostedAPI"),
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

func (h *HostedAPI) Name() media.Strategy { return media.StrategyHostedAPI }

func (h *HostedAPI) Enabled() bool { return h.cfg.Enabled && h.cfg.Key != "" }

type hostedFormat struct {
	FormatID flexString `json:"format_id"`
	URL      string     `json:"url"`
	Ext      string     `json:"ext"`
	Quality  flexString `json:"quality"`
	Height   flexFloat  `json:"height"`
	ABR      flexFloat  `json:"abr"`
	VCodec   string     `json:"vcodec"`
	Filesize flexFloat  `json:"filesize"`
	Type     string     `json:"type"`
}

type hostedResponse struct {
	Title     string          `json:"title"`
	Thumbnail string          `json:"thumbnail"`
	Duration  flexFloat       `json:"duration"`
	Formats   []hostedFormat  `json:"formats"`
	Error     json.RawMessage `json:"error"`
}

func (h *HostedAPI) Resolve(ctx context.Context, url string) (*media.Result, error) {
	body, err := json.Marshal(map[string]string{"id": media.ParseReference(url).ContentID()})
	if err != nil {
		return nil, h.fail(media.ErrUpstreamRejected, "encode request", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, h.fail(media.ErrTransport, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-RapidAPI-Key", h.cfg.Key)
	req.Header.Set("X-RapidAPI-Host", h.cfg.Host)

	start := time.Now()
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, h.fail(media.ErrTransport, "request failed", err)
	}
	defer resp.Body.Close()
	h.log.LogDebugf("Hosted API answered %d in %v", resp.StatusCode, time.Since(start))

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, h.fail(media.ErrTransport, "read response", err)
	}
	switch {
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return nil, h.fail(media.ErrTransport, fmt.Sprintf("status %d", resp.StatusCode), nil)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, h.fail(media.ErrUpstreamRejected, fmt.Sprintf("status %d", resp.StatusCode), nil)
	}

	var data hostedResponse
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, h.fail(media.ErrUpstreamRejected, "undecodable response", err)
	}
	if msg, ok := apiError(data.Error); ok {
		return nil, h.fail(media.ErrUpstreamRejected, "API returned error: "+msg, nil)
	}
	return h.toResult(url, data), nil
}

func (h *HostedAPI) toResult(url string, data hostedResponse) *media.Result {
	res := &media.Result{
		Title:        strings.TrimSpace(data.Title),
		SourceURL:    url,
		StrategyUsed: media.StrategyHostedAPI,
		Formats:      []media.FormatDescriptor{},
	}
	if res.Title == "" {
		res.Title = media.UnknownTitle
	}
	if data.Thumbnail != "" {
		thumb := data.Thumbnail
		res.ThumbnailURL = &thumb
	}
	res.DurationSeconds = media.WholeSeconds(float64(data.Duration))
	for _, f := range data.Formats {
		if f.URL == "" {
			continue
		}
		res.Formats = append(res.Formats, media.Normalize(media.SourceFormat{
			FormatID: string(f.FormatID),
			URL:      f.URL,
			Ext:      f.Ext,
			VCodec:   f.VCodec,
			Type:     f.Type,
			Quality:  string(f.Quality),
			Height:   int(f.Height),
			ABR:      float64(f.ABR),
			Filesize: int64(f.Filesize),
		}, media.StrategyHostedAPI))
	}
	return res
}

// apiError reports whether the response carries an error field. Only an
// absent or null field means success; any other value is a rejection.
func apiError(raw json.RawMessage) (string, bool) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return "", false
	}
	var msg string
	if err := json.Unmarshal(raw, &msg); err == nil && msg != "" {
		return msg, true
	}
	return s, true
}

func (h *HostedAPI) fail(kind media.ErrorKind, msg string, err error) error {
	var ne interface{ Timeout() bool }
	if err != nil && errors.As(err, &ne) && ne.Timeout() {
		kind = media.ErrTransport
	}
	return media.NewError(kind, media.StrategyHostedAPI, msg, err)
}
