package extract

import (
	"context"
	"errors"
	"testing"

	"downloader/internal/core/media"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFetcher struct {
	page Page
	err  error
}

func (s stubFetcher) Fetch(context.Context, string) (Page, error) { return s.page, s.err }

func scrape(t *testing.T, pageURL, html string) *media.Result {
	t.Helper()
	h := NewHTMLScrape(true, stubFetcher{page: Page{URL: pageURL, Body: []byte(html)}})
	res, err := h.Resolve(context.Background(), pageURL)
	require.NoError(t, err)
	return res
}

func TestHTMLScrapeMediaElements(t *testing.T) {
	res := scrape(t, "https://site.test/watch/1", `<html><head>
		<meta property="og:title" content=" Great Clip ">
		<meta property="og:image" content="/thumb.jpg">
		<title>ignored</title></head><body>
		<video src="/media/clip.mp4"><source src="clip.webm"></video>
		<video src="/media/clip.mp4"></video>
		<audio><source src="https://cdn.test/track.mp3"></audio>
		<video src="blob:https://site.test/123"></video>
	</body></html>`)

	assert.Equal(t, "Great Clip", res.Title)
	require.NotNil(t, res.ThumbnailURL)
	assert.Equal(t, "https://site.test/thumb.jpg", *res.ThumbnailURL)
	assert.Equal(t, media.StrategyHTMLScrape, res.StrategyUsed)
	assert.NotEmpty(t, res.Warning)

	var urls []string
	for _, f := range res.Formats {
		urls = append(urls, f.SourceURL)
	}
	assert.ElementsMatch(t, []string{
		"https://site.test/media/clip.mp4",
		"https://site.test/watch/clip.webm",
		"https://cdn.test/track.mp3",
	}, urls)
	for _, f := range res.Formats {
		if f.SourceURL == "https://cdn.test/track.mp3" {
			assert.Equal(t, media.KindAudio, f.Kind)
			assert.Equal(t, "mp3", f.Container)
		} else {
			assert.Equal(t, media.KindVideo, f.Kind)
		}
	}
}

func TestHTMLScrapeRegexFallback(t *testing.T) {
	res := scrape(t, "https://site.test/p", `<html><head><title>Player</title></head><body>
		<script>var cfg = {"file":"https:\/\/cdn.test\/v\/hd.mp4","alt":'https://cdn.test/a.m4a',"rel":"/local/x.mp4"};</script>
		<script>var again = "https://cdn.test/v/hd.mp4";</script>
	</body></html>`)

	assert.Equal(t, "Player", res.Title)
	require.Len(t, res.Formats, 2, "relative matches are dropped and duplicates removed")
	assert.Equal(t, "https://cdn.test/v/hd.mp4", res.Formats[0].SourceURL)
	assert.Equal(t, media.KindVideo, res.Formats[0].Kind)
	assert.Equal(t, "https://cdn.test/a.m4a", res.Formats[1].SourceURL)
	assert.Equal(t, media.KindAudio, res.Formats[1].Kind)
}

func TestHTMLScrapeElementsWinOverRegex(t *testing.T) {
	res := scrape(t, "https://site.test/p", `<video src="https://cdn.test/a.mp4"></video>
		<script>x = "https://cdn.test/other.webm"</script>`)
	require.Len(t, res.Formats, 1)
	assert.Equal(t, "https://cdn.test/a.mp4", res.Formats[0].SourceURL)
}

func TestHTMLScrapeEmptyIsNotAnError(t *testing.T) {
	res := scrape(t, "https://site.test/p", `<html><body><h1> Heading </h1></body></html>`)
	assert.Equal(t, "Heading", res.Title)
	assert.Empty(t, res.Formats)
	assert.NotNil(t, res.Formats)
	assert.Contains(t, res.Warning, scrapeEmptyWarning)
	assert.Nil(t, res.ThumbnailURL)
}

func TestHTMLScrapeTitleFallbacks(t *testing.T) {
	assert.Equal(t, "TW", scrape(t, "https://s.test", `<meta name="twitter:title" content="TW"><title>T</title>`).Title)
	assert.Equal(t, media.UnknownTitle, scrape(t, "https://s.test", `<p>nothing</p>`).Title)
}

func TestHTMLScrapeThumbnailFromLink(t *testing.T) {
	res := scrape(t, "https://s.test/a/b", `<link rel="image_src" href="https://img.test/x.png">`)
	require.NotNil(t, res.ThumbnailURL)
	assert.Equal(t, "https://img.test/x.png", *res.ThumbnailURL)
}

func TestHTMLScrapeFetchFailureIsTransport(t *testing.T) {
	h := NewHTMLScrape(true, stubFetcher{err: errors.New("connection refused")})
	_, err := h.Resolve(context.Background(), "https://s.test")
	require.Error(t, err)
	assert.Equal(t, media.ErrTransport, media.KindOf(err))
}
