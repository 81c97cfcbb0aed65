package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"downloader/internal/core/media"
	"downloader/internal/logger"
)

type LocalToolConfig struct {
	Enabled bool
	Binary  string
	Timeout time.Duration
}

// runFunc executes name with args and returns its captured output.
type runFunc func(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)

// killWaitDelay bounds how long Wait lingers on output pipes held open by
// descendants after the tool has been killed.
const killWaitDelay = 2 * time.Second

// execRun runs the tool in its own process group so that cancelling ctx
// kills every process it spawned, not just the direct child.
func execRun(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	setProcessGroup(cmd)
	cmd.WaitDelay = killWaitDelay
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// LocalTool shells out to a yt-dlp compatible extractor.
type LocalTool struct {
	log      *logger.Logger
	cfg      LocalToolConfig
	lookPath func(string) (string, error)
	run      runFunc
}

func NewLocalTool(cfg LocalToolConfig) *LocalTool {
	if cfg.Binary == "" {
		cfg.Binary = "yt-dlp"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &LocalTool{log: logger.New("LocalTool"), cfg: cfg, lookPath: exec.LookPath, run: execRun}
}

func (l *LocalTool) Name() media.Strategy { return media.StrategyLocalTool }

func (l *LocalTool) Enabled() bool { return l.cfg.Enabled }

type toolFormat struct {
	FormatID       flexString `json:"format_id"`
	URL            string     `json:"url"`
	Ext            string     `json:"ext"`
	VCodec         string     `json:"vcodec"`
	Height         flexFloat  `json:"height"`
	ABR            flexFloat  `json:"abr"`
	Filesize       flexFloat  `json:"filesize"`
	FilesizeApprox flexFloat  `json:"filesize_approx"`
}

type toolOutput struct {
	Title      string       `json:"title"`
	WebpageURL string       `json:"webpage_url"`
	Thumbnail  string       `json:"thumbnail"`
	Duration   flexFloat    `json:"duration"`
	Formats    []toolFormat `json:"formats"`
}

func (l *LocalTool) Resolve(ctx context.Context, url string) (*media.Result, error) {
	bin, err := l.lookPath(l.cfg.Binary)
	if err != nil {
		return nil, media.NewError(media.ErrToolUnavailable, media.StrategyLocalTool,
			fmt.Sprintf("%s is not installed or not available in PATH", l.cfg.Binary), err)
	}

	ctx, cancel := context.WithTimeout(ctx, l.cfg.Timeout)
	defer cancel()

	start := time.Now()
	stdout, stderr, err := l.run(ctx, bin, "--dump-json", "--no-playlist", "--no-warnings", url)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, media.NewError(media.ErrTransport, media.StrategyLocalTool,
			fmt.Sprintf("timed out after %v", l.cfg.Timeout), ctxErr)
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, media.NewError(media.ErrToolFailed, media.StrategyLocalTool,
				fmt.Sprintf("exit %d: %s", exitErr.ExitCode(), excerpt(stderr)), err)
		}
		return nil, media.NewError(media.ErrToolFailed, media.StrategyLocalTool, excerpt(stderr), err)
	}
	l.log.LogDebugf("%s finished in %v", l.cfg.Binary, time.Since(start))

	var out toolOutput
	if err := json.Unmarshal(bytes.TrimSpace(stdout), &out); err != nil {
		return nil, media.NewError(media.ErrToolFailed, media.StrategyLocalTool, "failed to parse tool output", err)
	}
	return toolResult(url, out), nil
}

func toolResult(url string, out toolOutput) *media.Result {
	res := &media.Result{
		Title:        strings.TrimSpace(out.Title),
		SourceURL:    out.WebpageURL,
		StrategyUsed: media.StrategyLocalTool,
		Formats:      []media.FormatDescriptor{},
	}
	if res.Title == "" {
		res.Title = media.UnknownTitle
	}
	if res.SourceURL == "" {
		res.SourceURL = url
	}
	if out.Thumbnail != "" {
		thumb := out.Thumbnail
		res.ThumbnailURL = &thumb
	}
	res.DurationSeconds = media.WholeSeconds(float64(out.Duration))
	for _, f := range out.Formats {
		if f.URL == "" {
			continue
		}
		res.Formats = append(res.Formats, media.Normalize(media.SourceFormat{
			FormatID:       string(f.FormatID),
			URL:            f.URL,
			Ext:            f.Ext,
			VCodec:         f.VCodec,
			Height:         int(f.Height),
			ABR:            float64(f.ABR),
			Filesize:       int64(f.Filesize),
			FilesizeApprox: int64(f.FilesizeApprox),
		}, media.StrategyLocalTool))
	}
	return res
}

func excerpt(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 300 {
		s = s[:300] + "..."
	}
	if s == "" {
		return "no output"
	}
	return s
}
