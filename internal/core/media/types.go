// Package media holds the canonical resolution data model shared by the
// strategies, the pipeline and the job store.
package media

import "math"

type Kind string

const (
	KindVideo Kind = "video"
	KindAudio Kind = "audio"
)

type Strategy string

const (
	StrategyHostedAPI  Strategy = "hosted_api"
	StrategyLocalTool  Strategy = "local_tool"
	StrategyHTMLScrape Strategy = "html_scrape"
)

// FormatDescriptor is one downloadable variant.
type FormatDescriptor struct {
	FormatID        string  `json:"format_id"`
	SourceURL       string  `json:"url"`
	Container       string  `json:"ext"`
	Kind            Kind    `json:"type"`
	QualityLabel    *string `json:"quality,omitempty"`
	ApproxSizeBytes *int64  `json:"filesize,omitempty"`
}

// Fallback records a strategy that failed before the one that succeeded.
type Fallback struct {
	Strategy Strategy  `json:"strategy"`
	Kind     ErrorKind `json:"kind"`
}

// Result is the output of a successful resolution. Formats may be empty.
type Result struct {
	Title           string             `json:"title"`
	SourceURL       string             `json:"url"`
	ThumbnailURL    *string            `json:"thumbnail,omitempty"`
	DurationSeconds *int64             `json:"duration,omitempty"`
	Formats         []FormatDescriptor `json:"formats"`
	StrategyUsed    Strategy           `json:"strategy"`
	Warning         string             `json:"warning,omitempty"`
	Fallbacks       []Fallback         `json:"fallbacks,omitempty"`
}

const UnknownTitle = "Unknown Title"

func (r *Result) HasFormats() bool { return r != nil && len(r.Formats) > 0 }

// WholeSeconds rounds a reported duration to whole seconds. Non-positive
// durations are unknown.
func WholeSeconds(d float64) *int64 {
	if d <= 0 {
		return nil
	}
	s := int64(math.Round(d))
	return &s
}
