package extract

import (
	"context"
	"fmt"
	"time"

	"downloader/internal/logger"

	"github.com/gocolly/colly"
)

// Page is a fetched HTML document. URL is the final location after redirects.
type Page struct {
	URL  string
	Body []byte
}

// PageFetcher retrieves the markup the HTML scrape strategy works on.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (Page, error)
}

// CollyFetcher performs a plain HTTP fetch with a browser header profile.
type CollyFetcher struct {
	log       *logger.Logger
	userAgent string
	timeout   time.Duration
}

func NewCollyFetcher(userAgent string, timeout time.Duration) *CollyFetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &CollyFetcher{log: logger.New("CollyFetcher"), userAgent: userAgent, timeout: timeout}
}

func (f *CollyFetcher) Fetch(ctx context.Context, url string) (Page, error) {
	if err := ctx.Err(); err != nil {
		return Page{}, err
	}
	timeout := f.timeout
	if dl, ok := ctx.Deadline(); ok && time.Until(dl) < timeout {
		timeout = time.Until(dl)
	}

	// A fresh collector per fetch keeps visited-URL state from leaking
	// between jobs.
	c := colly.NewCollector(colly.AllowURLRevisit())
	c.SetRequestTimeout(timeout)
	profile := randomProfile()

	var page Page
	var fetchErr error
	c.OnRequest(func(r *colly.Request) {
		profile.apply(*r.Headers, f.userAgent)
	})
	c.OnResponse(func(r *colly.Response) {
		page = Page{URL: r.Request.URL.String(), Body: r.Body}
	})
	c.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode > 0 {
			fetchErr = fmt.Errorf("status %d: %w", r.StatusCode, err)
			return
		}
		fetchErr = err
	})

	start := time.Now()
	if err := c.Visit(url); err != nil && fetchErr == nil {
		fetchErr = err
	}
	if fetchErr != nil {
		return Page{}, fetchErr
	}
	if page.URL == "" {
		return Page{}, fmt.Errorf("no response from %s", url)
	}
	f.log.LogDebugf("Fetched %s (%d bytes) in %v", page.URL, len(page.Body), time.Since(start))
	return page, nil
}
