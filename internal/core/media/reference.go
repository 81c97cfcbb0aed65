package media

import (
	"net/url"
	"regexp"
	"strings"
)

// Reference identifies a piece of content on a known platform.
type Reference struct {
	Platform string
	ID       string
	raw      string
}

// String yields platform:id, or the raw URL when no id could be extracted.
func (r Reference) String() string {
	if r.ID == "" {
		return r.raw
	}
	return r.Platform + ":" + r.ID
}

// ContentID is what a hosted API expects: the id when known, else the URL.
func (r Reference) ContentID() string {
	if r.ID == "" {
		return r.raw
	}
	return r.ID
}

var platformDomains = []struct {
	platform string
	domains  []string
}{
	{"youtube", []string{"youtube.com", "youtu.be", "m.youtube.com"}},
	{"vimeo", []string{"vimeo.com"}},
	{"twitter", []string{"twitter.com", "x.com", "t.co"}},
	{"instagram", []string{"instagram.com"}},
	{"tiktok", []string{"tiktok.com"}},
	{"facebook", []string{"facebook.com", "fb.watch"}},
	{"dailymotion", []string{"dailymotion.com"}},
	{"twitch", []string{"twitch.tv"}},
}

var idPatterns = map[string]*regexp.Regexp{
	"youtube": regexp.MustCompile(`(?:youtube\.com/watch\?v=|youtu\.be/)([^&\n?#]+)`),
	"vimeo":   regexp.MustCompile(`vimeo\.com/(\d+)`),
}

// ParseReference detects the platform from the host and extracts the
// content id where a pattern is known. Unknown hosts yield platform "".
func ParseReference(raw string) Reference {
	ref := Reference{raw: raw, Platform: DetectPlatform(raw)}
	if re, ok := idPatterns[ref.Platform]; ok {
		if m := re.FindStringSubmatch(raw); len(m) == 2 {
			ref.ID = m[1]
		}
	}
	return ref
}

func DetectPlatform(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	for _, p := range platformDomains {
		for _, d := range p.domains {
			if host == d || strings.HasSuffix(host, "."+d) {
				return p.platform
			}
		}
	}
	return ""
}
