//go:build unix

package extract

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"downloader/internal/core/media"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeStub installs an executable shell script named yt-dlp in a temp dir.
func writeStub(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "yt-dlp")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0o755))
	return path
}

func TestLocalToolTimeoutKillsForkedChildren(t *testing.T) {
	bin := writeStub(t, "sleep 5 &\nsleep 5")
	l := NewLocalTool(LocalToolConfig{Enabled: true, Binary: bin, Timeout: 200 * time.Millisecond})

	start := time.Now()
	_, err := l.Resolve(context.Background(), "https://youtu.be/abc")
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.Equal(t, media.ErrTransport, media.KindOf(err))
	assert.Less(t, elapsed, 2*time.Second)
}

func TestLocalToolRunsRealBinary(t *testing.T) {
	bin := writeStub(t, `echo '{"title":"Stub","formats":[{"format_id":"18","url":"https://cdn/18","ext":"mp4","height":360}]}'`)
	l := NewLocalTool(LocalToolConfig{Enabled: true, Binary: bin, Timeout: 5 * time.Second})

	res, err := l.Resolve(context.Background(), "https://youtu.be/abc")
	require.NoError(t, err)
	assert.Equal(t, "Stub", res.Title)
	require.Len(t, res.Formats, 1)
	assert.Equal(t, "360", *res.Formats[0].QualityLabel)
}
