package extract

import (
	"math/rand"
	"net/http"
)

// headerProfile is a coherent set of browser request headers.
type headerProfile struct {
	UserAgent       string
	Accept          string
	AcceptLanguage  string
	SecFetchDest    string
	SecFetchMode    string
	SecFetchSite    string
	SecChUa         string
	SecChUaMobile   string
	SecChUaPlatform string
}

const htmlAccept = "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8"

var desktopProfiles = []headerProfile{
	{
		UserAgent:       "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
		Accept:          htmlAccept,
		AcceptLanguage:  "en-US,en;q=0.9",
		SecFetchDest:    "document",
		SecFetchMode:    "navigate",
		SecFetchSite:    "none",
		SecChUa:         `"Google Chrome";v="131", "Chromium";v="131", "Not_A Brand";v="24"`,
		SecChUaMobile:   "?0",
		SecChUaPlatform: `"macOS"`,
	},
	{
		UserAgent:       "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
		Accept:          htmlAccept,
		AcceptLanguage:  "en-US,en;q=0.9",
		SecFetchDest:    "document",
		SecFetchMode:    "navigate",
		SecFetchSite:    "none",
		SecChUa:         `"Google Chrome";v="131", "Chromium";v="131", "Not_A Brand";v="24"`,
		SecChUaMobile:   "?0",
		SecChUaPlatform: `"Windows"`,
	},
	{
		// Safari sends no client hints.
		UserAgent:      "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/18.2 Safari/605.1.15",
		Accept:         "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		AcceptLanguage: "en-US,en;q=0.9",
		SecFetchDest:   "document",
		SecFetchMode:   "navigate",
		SecFetchSite:   "none",
	},
}

func randomProfile() headerProfile {
	return desktopProfiles[rand.Intn(len(desktopProfiles))]
}

// apply sets the profile on h. A non-empty userAgent overrides the profile's.
func (p headerProfile) apply(h http.Header, userAgent string) {
	ua := p.UserAgent
	if userAgent != "" {
		ua = userAgent
	}
	h.Set("User-Agent", ua)
	h.Set("Accept", p.Accept)
	h.Set("Accept-Language", p.AcceptLanguage)
	set := func(k, v string) {
		if v != "" {
			h.Set(k, v)
		}
	}
	set("Sec-Fetch-Dest", p.SecFetchDest)
	set("Sec-Fetch-Mode", p.SecFetchMode)
	set("Sec-Fetch-Site", p.SecFetchSite)
	set("Sec-Ch-Ua", p.SecChUa)
	set("Sec-Ch-Ua-Mobile", p.SecChUaMobile)
	set("Sec-Ch-Ua-Platform", p.SecChUaPlatform)
}
