package extract

import (
	"context"
	"fmt"
	"time"

	"downloader/internal/logger"

	"github.com/playwright-community/playwright-go"
)

// BrowserFetcher renders pages in headless Chromium before handing the DOM
// to the scraper, for sites that inject their players with JavaScript.
type BrowserFetcher struct {
	log       *logger.Logger
	userAgent string
	timeout   time.Duration
	start     func() (*playwright.Playwright, error)
}

func NewBrowserFetcher(userAgent string, timeout time.Duration) *BrowserFetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &BrowserFetcher{log: logger.New("BrowserFetcher"), userAgent: userAgent, timeout: timeout, start: func() (*playwright.Playwright, error) { return playwright.Run() }}
}

// Fetch spends at most the fetch timeout, driver startup included.
func (f *BrowserFetcher) Fetch(ctx context.Context, url string) (Page, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()
	if err := ctx.Err(); err != nil {
		return Page{}, err
	}

	pw, err := f.startDriver(ctx)
	if err != nil {
		f.log.LogErrorf("Failed to start Playwright: %v", err)
		return Page{}, fmt.Errorf("playwright initialization failed: %w", err)
	}
	defer pw.Stop()

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(true),
		Timeout:  playwright.Float(remainingMillis(ctx)),
		Args: []string{
			"--no-sandbox",
			"--disable-dev-shm-usage",
			"--disable-gpu",
		},
	})
	if err != nil {
		return Page{}, fmt.Errorf("browser launch failed: %w", err)
	}
	defer browser.Close()

	ua := f.userAgent
	if ua == "" {
		ua = randomProfile().UserAgent
	}
	bctx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		UserAgent: playwright.String(ua),
		Viewport:  &playwright.Size{Width: 1920, Height: 1080},
	})
	if err != nil {
		return Page{}, fmt.Errorf("browser context failed: %w", err)
	}
	defer bctx.Close()

	page, err := bctx.NewPage()
	if err != nil {
		return Page{}, fmt.Errorf("new page failed: %w", err)
	}

	resp, err := page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(remainingMillis(ctx)),
	})
	if err != nil {
		return Page{}, fmt.Errorf("navigate %s: %w", url, err)
	}
	if resp != nil && resp.Status() >= 400 {
		return Page{}, fmt.Errorf("status %d from %s", resp.Status(), url)
	}
	// Players often attach their sources after the DOM is ready. Best effort.
	settle := remainingMillis(ctx)
	if settle > 5000 {
		settle = 5000
	}
	if err := page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   playwright.LoadStateNetworkidle,
		Timeout: playwright.Float(settle),
	}); err != nil {
		f.log.LogDebugf("Network did not settle for %s: %v", url, err)
	}

	html, err := page.Content()
	if err != nil {
		return Page{}, fmt.Errorf("read content: %w", err)
	}
	return Page{URL: page.URL(), Body: []byte(html)}, nil
}

type driverStart struct {
	pw  *playwright.Playwright
	err error
}

// startDriver gives up when ctx ends. A driver that comes up late is
// stopped in the background.
func (f *BrowserFetcher) startDriver(ctx context.Context) (*playwright.Playwright, error) {
	done := make(chan driverStart, 1)
	go func() {
		pw, err := f.start()
		done <- driverStart{pw: pw, err: err}
	}()
	select {
	case r := <-done:
		return r.pw, r.err
	case <-ctx.Done():
		go func() {
			if r := <-done; r.pw != nil {
				_ = r.pw.Stop()
			}
		}()
		return nil, ctx.Err()
	}
}

// remainingMillis is the time left before ctx's deadline, at least 1ms.
func remainingMillis(ctx context.Context) float64 {
	dl, ok := ctx.Deadline()
	if !ok {
		return 0
	}
	ms := float64(time.Until(dl).Milliseconds())
	if ms < 1 {
		ms = 1
	}
	return ms
}
