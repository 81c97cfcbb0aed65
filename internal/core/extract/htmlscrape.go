package extract

import (
	"bytes"
	"context"
	"net/url"
	"path"
	"regexp"
	"strings"

	"downloader/internal/core/media"
	"downloader/internal/logger"

	"github.com/PuerkitoBio/goquery"
)

const (
	scrapeWarning      = "Direct parsing is unreliable and may not work for all sites."
	scrapeEmptyWarning = "No downloadable media was found in the page markup."
)

var mediaURLPattern = regexp.MustCompile(`["']([^"']*\.(?:mp4|webm|avi|mov|mp3|m4a))["']`)

// HTMLScrape is the best-effort strategy that reads media URLs straight
// out of the page markup.
type HTMLScrape struct {
	log     *logger.Logger
	enabled bool
	fetcher PageFetcher
}

func NewHTMLScrape(enabled bool, fetcher PageFetcher) *HTMLScrape {
	return &HTMLScrape{log: logger.New("HTMLScrape"), enabled: enabled, fetcher: fetcher}
}

func (h *HTMLScrape) Name() media.Strategy { return media.StrategyHTMLScrape }

func (h *HTMLScrape) Enabled() bool { return h.enabled }

// Resolve never reports empty extraction as an error: the result carries no
// formats and a warning instead.
func (h *HTMLScrape) Resolve(ctx context.Context, rawURL string) (*media.Result, error) {
	page, err := h.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, media.NewError(media.ErrTransport, media.StrategyHTMLScrape, "failed to fetch page content", err)
	}
	base, err := url.Parse(page.URL)
	if err != nil || page.URL == "" {
		base, _ = url.Parse(rawURL)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		return nil, media.NewError(media.ErrUpstreamRejected, media.StrategyHTMLScrape, "unparsable markup", err)
	}

	res := &media.Result{
		Title:        extractTitle(doc),
		SourceURL:    rawURL,
		ThumbnailURL: extractThumbnail(doc, base),
		StrategyUsed: media.StrategyHTMLScrape,
		Warning:      scrapeWarning,
		Formats:      []media.FormatDescriptor{},
	}

	for _, attempt := range []func() []media.SourceFormat{
		func() []media.SourceFormat { return mediaElementFormats(doc, base) },
		func() []media.SourceFormat { return markupURLFormats(page.Body) },
	} {
		if found := attempt(); len(found) > 0 {
			res.Formats = normalizeUnique(found)
			break
		}
	}
	if len(res.Formats) == 0 {
		res.Warning = scrapeWarning + " " + scrapeEmptyWarning
		h.log.LogDebugf("No media found at %s", rawURL)
	}
	return res, nil
}

func extractTitle(doc *goquery.Document) string {
	if t := metaContent(doc, `meta[property="og:title"]`, `meta[name="twitter:title"]`); t != "" {
		return t
	}
	for _, sel := range []string{"title", "h1"} {
		if t := strings.TrimSpace(doc.Find(sel).First().Text()); t != "" {
			return t
		}
	}
	return media.UnknownTitle
}

func extractThumbnail(doc *goquery.Document, base *url.URL) *string {
	thumb := metaContent(doc, `meta[property="og:image"]`, `meta[name="twitter:image"]`)
	if thumb == "" {
		thumb, _ = doc.Find(`link[rel="image_src"]`).First().Attr("href")
		thumb = strings.TrimSpace(thumb)
	}
	if thumb == "" {
		return nil
	}
	if abs := resolveHTTP(base, thumb); abs != "" {
		thumb = abs
	}
	return &thumb
}

func metaContent(doc *goquery.Document, selectors ...string) string {
	for _, sel := range selectors {
		if v, ok := doc.Find(sel).First().Attr("content"); ok {
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		}
	}
	return ""
}

// mediaElementFormats reads src attributes from video and audio elements
// and their source children.
func mediaElementFormats(doc *goquery.Document, base *url.URL) []media.SourceFormat {
	var out []media.SourceFormat
	for _, group := range []struct {
		selector string
		kind     media.Kind
	}{
		{"video source, video", media.KindVideo},
		{"audio source, audio", media.KindAudio},
	} {
		doc.Find(group.selector).Each(func(_ int, s *goquery.Selection) {
			src, ok := s.Attr("src")
			if !ok {
				return
			}
			abs := resolveHTTP(base, strings.TrimSpace(src))
			if abs == "" {
				return
			}
			out = append(out, media.SourceFormat{URL: abs, Ext: extOf(abs), Type: string(group.kind)})
		})
	}
	return out
}

// markupURLFormats scans raw markup for quoted media URLs. Only absolute
// http(s) URLs are kept.
func markupURLFormats(body []byte) []media.SourceFormat {
	// Inline JSON often escapes slashes.
	text := strings.ReplaceAll(string(body), `\/`, `/`)
	var out []media.SourceFormat
	for _, m := range mediaURLPattern.FindAllStringSubmatch(text, -1) {
		u, err := url.Parse(m[1])
		if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			continue
		}
		out = append(out, media.SourceFormat{URL: m[1], Ext: extOf(m[1])})
	}
	return out
}

func normalizeUnique(found []media.SourceFormat) []media.FormatDescriptor {
	seen := make(map[string]bool, len(found))
	out := make([]media.FormatDescriptor, 0, len(found))
	for _, f := range found {
		if seen[f.URL] {
			continue
		}
		seen[f.URL] = true
		out = append(out, media.Normalize(f, media.StrategyHTMLScrape))
	}
	return out
}

// resolveHTTP resolves ref against base and returns it only when the result
// is an http(s) URL.
func resolveHTTP(base *url.URL, ref string) string {
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if base != nil {
		u = base.ResolveReference(u)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ""
	}
	return u.String()
}

func extOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(path.Ext(u.Path), ".")
}
