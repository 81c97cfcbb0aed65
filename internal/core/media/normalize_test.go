package media

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeHeightOnlyVideo(t *testing.T) {
	d := Normalize(SourceFormat{URL: "https://cdn/a.mp4", Ext: "mp4", Height: 720}, StrategyHostedAPI)
	assert.Equal(t, KindVideo, d.Kind)
	assert.Equal(t, "mp4", d.Container)
	require.NotNil(t, d.QualityLabel)
	assert.Equal(t, "720", *d.QualityLabel)
	assert.Nil(t, d.ApproxSizeBytes)
	assert.NotEmpty(t, d.FormatID)
}

func TestNormalizeKindRules(t *testing.T) {
	tests := []struct {
		name string
		src  SourceFormat
		want Kind
	}{
		{"video codec present", SourceFormat{VCodec: "avc1.64001F", Ext: "m4a"}, KindVideo},
		{"video codec none", SourceFormat{VCodec: "none", Ext: "webm"}, KindAudio},
		{"declared audio", SourceFormat{Type: "audio", Ext: "mp4"}, KindAudio},
		{"declared video", SourceFormat{Type: "Video", Ext: "mp3"}, KindVideo},
		{"audio container", SourceFormat{Ext: "M4A"}, KindAudio},
		{"fallback", SourceFormat{Ext: "webm"}, KindVideo},
		{"nothing known", SourceFormat{}, KindVideo},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.src, StrategyLocalTool).Kind)
		})
	}
}

func TestNormalizeContainerDefaults(t *testing.T) {
	assert.Equal(t, "mp3", Normalize(SourceFormat{VCodec: "none"}, StrategyLocalTool).Container)
	assert.Equal(t, "mp4", Normalize(SourceFormat{}, StrategyLocalTool).Container)
	assert.Equal(t, "webm", Normalize(SourceFormat{Ext: ".WEBM"}, StrategyLocalTool).Container)
}

func TestNormalizeQualityPrecedence(t *testing.T) {
	q := Normalize(SourceFormat{Quality: "hd1080", Height: 720, ABR: 128}, StrategyHostedAPI).QualityLabel
	require.NotNil(t, q)
	assert.Equal(t, "hd1080", *q)

	q = Normalize(SourceFormat{Quality: "unknown", Height: 480}, StrategyHostedAPI).QualityLabel
	require.NotNil(t, q)
	assert.Equal(t, "480", *q)

	q = Normalize(SourceFormat{ABR: 128, VCodec: "none"}, StrategyLocalTool).QualityLabel
	require.NotNil(t, q)
	assert.Equal(t, "128", *q)

	assert.Nil(t, Normalize(SourceFormat{}, StrategyLocalTool).QualityLabel)
}

func TestNormalizeSizePrecedence(t *testing.T) {
	d := Normalize(SourceFormat{Filesize: 10, FilesizeApprox: 20}, StrategyLocalTool)
	require.NotNil(t, d.ApproxSizeBytes)
	assert.EqualValues(t, 10, *d.ApproxSizeBytes)

	d = Normalize(SourceFormat{FilesizeApprox: 20}, StrategyLocalTool)
	require.NotNil(t, d.ApproxSizeBytes)
	assert.EqualValues(t, 20, *d.ApproxSizeBytes)
}

func TestNormalizeFormatIDIsDeterministic(t *testing.T) {
	src := SourceFormat{URL: "https://cdn/x.mp4"}
	a := Normalize(src, StrategyHTMLScrape)
	b := Normalize(src, StrategyHTMLScrape)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a.FormatID, Normalize(SourceFormat{URL: "https://cdn/y.mp4"}, StrategyHTMLScrape).FormatID)
	assert.NotEqual(t, a.FormatID, Normalize(src, StrategyLocalTool).FormatID)

	assert.Equal(t, "137", Normalize(SourceFormat{FormatID: "137", URL: "u"}, StrategyLocalTool).FormatID)
}

func TestWholeSeconds(t *testing.T) {
	assert.Nil(t, WholeSeconds(0))
	assert.Nil(t, WholeSeconds(-3))
	require.NotNil(t, WholeSeconds(61.5))
	assert.EqualValues(t, 62, *WholeSeconds(61.5))
	assert.EqualValues(t, 212, *WholeSeconds(212))
	assert.EqualValues(t, 1, *WholeSeconds(0.6))
}
