package media

import (
	"crypto/sha1"
	"encoding/hex"
	"strconv"
	"strings"
)

// SourceFormat is a strategy's raw view of one variant before
// normalization. Zero values mean absent.
type SourceFormat struct {
	FormatID       string
	URL            string
	Ext            string
	VCodec         string
	Type           string
	Quality        string
	Height         int
	ABR            float64
	Filesize       int64
	FilesizeApprox int64
}

var audioContainers = map[string]bool{"mp3": true, "m4a": true, "wav": true, "aac": true}

// Normalize maps a raw variant onto a FormatDescriptor. It never fails and
// is deterministic for equal inputs.
func Normalize(src SourceFormat, strategy Strategy) FormatDescriptor {
	ext := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(src.Ext), "."))
	kind := kindOf(src, ext)

	container := ext
	if container == "" {
		if kind == KindAudio {
			container = "mp3"
		} else {
			container = "mp4"
		}
	}

	d := FormatDescriptor{
		FormatID:  src.FormatID,
		SourceURL: src.URL,
		Container: container,
		Kind:      kind,
	}
	if d.FormatID == "" {
		d.FormatID = syntheticID(strategy, src.URL)
	}
	if q := qualityLabel(src); q != "" {
		d.QualityLabel = &q
	}
	switch {
	case src.Filesize > 0:
		n := src.Filesize
		d.ApproxSizeBytes = &n
	case src.FilesizeApprox > 0:
		n := src.FilesizeApprox
		d.ApproxSizeBytes = &n
	}
	return d
}

func kindOf(src SourceFormat, ext string) Kind {
	vcodec := strings.ToLower(strings.TrimSpace(src.VCodec))
	switch {
	case vcodec == "none":
		return KindAudio
	case vcodec != "":
		return KindVideo
	}
	switch Kind(strings.ToLower(strings.TrimSpace(src.Type))) {
	case KindAudio:
		return KindAudio
	case KindVideo:
		return KindVideo
	}
	if audioContainers[ext] {
		return KindAudio
	}
	return KindVideo
}

func qualityLabel(src SourceFormat) string {
	q := strings.TrimSpace(src.Quality)
	if q != "" && !strings.EqualFold(q, "unknown") {
		return q
	}
	if src.Height > 0 {
		return strconv.Itoa(src.Height)
	}
	if src.ABR > 0 {
		return strconv.FormatFloat(src.ABR, 'f', -1, 64)
	}
	return ""
}

func syntheticID(strategy Strategy, url string) string {
	sum := sha1.Sum([]byte(url))
	return string(strategy) + "-" + hex.EncodeToString(sum[:])[:12]
}
