package resolve

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/url"
	"strings"
	"time"

	"downloader/internal/core/media"
	"downloader/internal/logger"
	"downloader/internal/platform/kv"
)

// Strategy is one way of turning a URL into a Result.
type Strategy interface {
	Name() media.Strategy
	Enabled() bool
	Resolve(ctx context.Context, url string) (*media.Result, error)
}

type Options struct {
	MaxURLLength   int
	AllowedDomains []string
	BlockedDomains []string

	CacheEnabled bool
	CacheTTL     time.Duration
	CachePrefix  string
}

// Service runs the strategies in priority order until one succeeds.
type Service struct {
	log        *logger.Logger
	strategies []Strategy
	cache      kv.Store
	opts       Options
}

// NewService keeps the given strategy order. cache may be nil.
func NewService(strategies []Strategy, cache kv.Store, opts Options) *Service {
	if opts.MaxURLLength <= 0 {
		opts.MaxURLLength = 2048
	}
	if opts.CachePrefix == "" {
		opts.CachePrefix = "downloader"
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = time.Hour
	}
	return &Service{log: logger.New("ResolveService"), strategies: strategies, cache: cache, opts: opts}
}

// Validate checks raw is an acceptable absolute http(s) URL and returns it
// trimmed.
func (s *Service) Validate(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", invalid("url is required")
	}
	if len(raw) > s.opts.MaxURLLength {
		return "", invalid("url is too long")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", media.NewError(media.ErrInvalidURL, "", "malformed url", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" || u.Hostname() == "" {
		return "", invalid("url must be an absolute http(s) url")
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	if matchesDomain(host, s.opts.BlockedDomains) {
		return "", invalid("domain is blocked")
	}
	if len(s.opts.AllowedDomains) > 0 && !matchesDomain(host, s.opts.AllowedDomains) {
		return "", invalid("domain is not allowed")
	}
	return raw, nil
}

func invalid(msg string) error { return media.NewError(media.ErrInvalidURL, "", msg, nil) }

func matchesDomain(host string, domains []string) bool {
	for _, d := range domains {
		d = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(d)), "www.")
		if d != "" && (host == d || strings.HasSuffix(host, "."+d)) {
			return true
		}
	}
	return false
}

// Resolve validates raw, then tries each enabled strategy in order. Only
// an exhausted pipeline or invalid input is reported as an error.
func (s *Service) Resolve(ctx context.Context, raw string) (*media.Result, error) {
	u, err := s.Validate(raw)
	if err != nil {
		return nil, err
	}
	if cached, ok := s.cached(ctx, u); ok {
		s.log.LogDebugf("Cache hit for %s", u)
		return cached, nil
	}

	var (
		lastErr   error
		fallbacks []media.Fallback
	)
	for _, st := range s.strategies {
		if !st.Enabled() {
			continue
		}
		start := time.Now()
		res, err := st.Resolve(ctx, u)
		if err != nil {
			kind := media.KindOf(err)
			if kind == "" {
				kind = media.ErrTransport
				err = media.NewError(kind, st.Name(), "", err)
			}
			s.log.Warn().Str("strategy", string(st.Name())).Str("kind", string(kind)).Str("url", u).
				Err(err).Msg("Strategy failed, falling back")
			fallbacks = append(fallbacks, media.Fallback{Strategy: st.Name(), Kind: kind})
			lastErr = err
			continue
		}
		res.StrategyUsed = st.Name()
		res.Fallbacks = fallbacks
		if res.Formats == nil {
			res.Formats = []media.FormatDescriptor{}
		}
		s.log.LogInfof("Resolved %s via %s in %v (%d formats)", u, st.Name(), time.Since(start), len(res.Formats))
		s.store(ctx, u, res)
		return res, nil
	}

	if lastErr == nil {
		return nil, media.NewError(media.ErrAllStrategiesExhausted, "", "no resolution strategy is enabled", nil)
	}
	return nil, media.NewError(media.ErrAllStrategiesExhausted, "", "all strategies failed", lastErr)
}

func (s *Service) cacheKey(u string) string {
	sum := sha256.Sum256([]byte(u))
	return s.opts.CachePrefix + ":video_info:" + hex.EncodeToString(sum[:])
}

func (s *Service) cached(ctx context.Context, u string) (*media.Result, bool) {
	if !s.opts.CacheEnabled || s.cache == nil {
		return nil, false
	}
	b, err := s.cache.Get(ctx, s.cacheKey(u))
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			s.log.LogWarnf("Result cache read failed: %v", err)
		}
		return nil, false
	}
	var res media.Result
	if err := json.Unmarshal(b, &res); err != nil || !res.HasFormats() {
		return nil, false
	}
	return &res, true
}

// store caches results that have something to download.
func (s *Service) store(ctx context.Context, u string, res *media.Result) {
	if !s.opts.CacheEnabled || s.cache == nil || !res.HasFormats() {
		return
	}
	b, err := json.Marshal(res)
	if err != nil {
		return
	}
	if err := s.cache.Put(ctx, s.cacheKey(u), b, s.opts.CacheTTL); err != nil {
		s.log.LogWarnf("Result cache write failed: %v", err)
	}
}
