package extract

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"downloader/internal/core/media"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHostedAPI(t *testing.T, handler http.HandlerFunc) *HostedAPI {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewHostedAPI(HostedAPIConfig{
		Enabled:  true,
		Key:      "secret",
		Host:     "example.p.rapidapi.com",
		Endpoint: srv.URL + "/dl",
		Timeout:  2 * time.Second,
	})
}

func TestHostedAPIEnabledRequiresKey(t *testing.T) {
	assert.False(t, NewHostedAPI(HostedAPIConfig{Enabled: true}).Enabled())
	assert.False(t, NewHostedAPI(HostedAPIConfig{Key: "k"}).Enabled())
	assert.True(t, NewHostedAPI(HostedAPIConfig{Enabled: true, Key: "k"}).Enabled())
}

func TestHostedAPIResolve(t *testing.T) {
	var gotBody map[string]string
	api := newHostedAPI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "secret", r.Header.Get("X-RapidAPI-Key"))
		assert.Equal(t, "example.p.rapidapi.com", r.Header.Get("X-RapidAPI-Host"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = w.Write([]byte(`{
			"title": "Test",
			"thumbnail": "https://img/t.jpg",
			"duration": "212",
			"formats": [
				{"url": "https://cdn/a.mp4", "ext": "mp4", "height": 720},
				{"url": "https://cdn/b.mp3", "ext": "mp3", "quality": 128, "type": "audio", "filesize": "1024"},
				{"ext": "mp4"}
			]
		}`))
	})

	res, err := api.Resolve(context.Background(), "https://www.youtube.com/watch?v=abc123")
	require.NoError(t, err)
	assert.Equal(t, "abc123", gotBody["id"])
	assert.Equal(t, "Test", res.Title)
	assert.Equal(t, media.StrategyHostedAPI, res.StrategyUsed)
	require.NotNil(t, res.DurationSeconds)
	assert.EqualValues(t, 212, *res.DurationSeconds)
	require.Len(t, res.Formats, 2, "entries without a url are dropped")

	video := res.Formats[0]
	assert.Equal(t, media.KindVideo, video.Kind)
	assert.Equal(t, "mp4", video.Container)
	require.NotNil(t, video.QualityLabel)
	assert.Equal(t, "720", *video.QualityLabel)

	audio := res.Formats[1]
	assert.Equal(t, media.KindAudio, audio.Kind)
	require.NotNil(t, audio.QualityLabel)
	assert.Equal(t, "128", *audio.QualityLabel)
	require.NotNil(t, audio.ApproxSizeBytes)
	assert.EqualValues(t, 1024, *audio.ApproxSizeBytes)
}

func TestHostedAPIUnknownHostSendsRawURL(t *testing.T) {
	var gotBody map[string]string
	api := newHostedAPI(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write([]byte(`{"formats": []}`))
	})
	res, err := api.Resolve(context.Background(), "https://example.com/v/1")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/v/1", gotBody["id"])
	assert.Equal(t, media.UnknownTitle, res.Title)
	assert.Empty(t, res.Formats)
}

func TestHostedAPIErrorKinds(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   media.ErrorKind
	}{
		{"error field", 200, `{"error": "quota exceeded"}`, media.ErrUpstreamRejected},
		{"error object", 200, `{"error": {"code": 1}}`, media.ErrUpstreamRejected},
		{"empty error string", 200, `{"error": "", "formats": []}`, media.ErrUpstreamRejected},
		{"false error", 200, `{"error": false, "formats": []}`, media.ErrUpstreamRejected},
		{"bad json", 200, `<html>`, media.ErrUpstreamRejected},
		{"not found", 404, `{}`, media.ErrUpstreamRejected},
		{"server error", 503, `{}`, media.ErrTransport},
		{"rate limited", 429, `{}`, media.ErrTransport},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newHostedAPI(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := api.Resolve(context.Background(), "https://youtu.be/x")
			require.Error(t, err)
			assert.Equal(t, tt.want, media.KindOf(err))
		})
	}
}

func TestHostedAPINullErrorIsNotAFailure(t *testing.T) {
	api := newHostedAPI(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"title": "ok", "error": null, "formats": []}`))
	})
	_, err := api.Resolve(context.Background(), "https://youtu.be/x")
	assert.NoError(t, err)
}

func TestHostedAPITimeoutIsTransport(t *testing.T) {
	api := newHostedAPI(t, func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(300 * time.Millisecond)
	})
	api.client.Timeout = 50 * time.Millisecond
	_, err := api.Resolve(context.Background(), "https://youtu.be/x")
	require.Error(t, err)
	assert.Equal(t, media.ErrTransport, media.KindOf(err))
}
