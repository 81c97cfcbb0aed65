package media

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseReference(t *testing.T) {
	tests := []struct {
		url      string
		platform string
		id       string
		str      string
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=10", "youtube", "dQw4w9WgXcQ", "youtube:dQw4w9WgXcQ"},
		{"https://youtu.be/dQw4w9WgXcQ?si=x", "youtube", "dQw4w9WgXcQ", "youtube:dQw4w9WgXcQ"},
		{"https://m.youtube.com/watch?v=abc", "youtube", "abc", "youtube:abc"},
		{"https://vimeo.com/123456", "vimeo", "123456", "vimeo:123456"},
		{"https://x.com/user/status/1", "twitter", "", "https://x.com/user/status/1"},
		{"https://fb.watch/abc", "facebook", "", "https://fb.watch/abc"},
		{"https://example.com/watch?v=abc123", "", "", "https://example.com/watch?v=abc123"},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			ref := ParseReference(tt.url)
			assert.Equal(t, tt.platform, ref.Platform)
			assert.Equal(t, tt.id, ref.ID)
			assert.Equal(t, tt.str, ref.String())
		})
	}
}

func TestContentIDFallsBackToURL(t *testing.T) {
	assert.Equal(t, "dQw4w9WgXcQ", ParseReference("https://youtu.be/dQw4w9WgXcQ").ContentID())
	assert.Equal(t, "https://example.com/v", ParseReference("https://example.com/v").ContentID())
}
