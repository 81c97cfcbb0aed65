package extract

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrowserFetcherDriverStartIsBounded(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	f := NewBrowserFetcher("", 100*time.Millisecond)
	f.start = func() (*playwright.Playwright, error) {
		<-release
		return nil, errors.New("driver never came up")
	}

	start := time.Now()
	_, err := f.Fetch(context.Background(), "https://example.com")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestBrowserFetcherDriverFailure(t *testing.T) {
	f := NewBrowserFetcher("", time.Second)
	f.start = func() (*playwright.Playwright, error) { return nil, errors.New("missing driver") }

	_, err := f.Fetch(context.Background(), "https://example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing driver")
}
