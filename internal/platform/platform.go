// Package platform classifies free-form user input into a platform target and
// extracts platform-specific identifiers from video URLs.
package platform

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/iconidentify/buzzteacher/internal/domain"
)

var (
	urlPattern          = regexp.MustCompile(`(?i)https?://[^\s]+`)
	tiktokHandlePattern = regexp.MustCompile(`@[^/?#]+`)
	tiktokUserPattern   = regexp.MustCompile(`(?i)tiktok\.com/@([^/?#]+)`)
	tiktokIDPattern     = regexp.MustCompile(`/(?:video|photo)/(\d+)`)
	longDigitsPattern   = regexp.MustCompile(`(\d{8,})`)
	youtubePathPattern  = regexp.MustCompile(`^/(?:shorts|embed|live)/([A-Za-z0-9_-]{6,})`)
	youtuBePathPattern  = regexp.MustCompile(`^/([A-Za-z0-9_-]{6,})`)
	youtubeQueryPattern = regexp.MustCompile(`(?i)[?&]v=([A-Za-z0-9_-]{6,})`)
	instagramPattern    = regexp.MustCompile(`(?i)instagram\.com/(?:p|reel|reels)/([^/?#]+)`)
	xStatusPattern      = regexp.MustCompile(`status/(\d+)`)
)

// trailingPunct is stripped from the end of a URL found in prose.
const trailingPunct = `.,;:!?)]}>"'` + "。、」』）"

var hostPlatforms = []struct {
	domain   string
	platform domain.Platform
}{
	{"tiktok.com", domain.PlatformTikTok},
	{"youtube.com", domain.PlatformYouTube},
	{"youtu.be", domain.PlatformYouTube},
	{"instagram.com", domain.PlatformInstagram},
	{"twitter.com", domain.PlatformX},
	{"x.com", domain.PlatformX},
}

// Classify extracts the first well-formed URL from text and classifies it.
// Input without a URL yields a target of kind TargetNone.
func Classify(text string) domain.PlatformTarget {
	raw := ExtractURL(text)
	if raw == "" {
		return domain.PlatformTarget{Kind: domain.TargetNone, Platform: domain.PlatformUnknown}
	}

	p := Detect(raw)
	kind := domain.TargetVideo
	if p == domain.PlatformTikTok && IsTikTokProfile(raw) {
		kind = domain.TargetProfile
	}

	return domain.PlatformTarget{
		Kind:     kind,
		Platform: p,
		RawURL:   raw,
	}
}

// ExtractURL returns the first well-formed http(s) URL in text, or "".
func ExtractURL(text string) string {
	for _, candidate := range urlPattern.FindAllString(text, -1) {
		candidate = strings.TrimRight(candidate, trailingPunct)
		u, err := url.Parse(candidate)
		if err != nil || u.Host == "" {
			continue
		}
		return candidate
	}
	return ""
}

// Detect infers the platform from the URL host.
func Detect(rawURL string) domain.Platform {
	host := hostOf(rawURL)
	if host == "" {
		return domain.PlatformUnknown
	}
	for _, hp := range hostPlatforms {
		if host == hp.domain || strings.HasSuffix(host, "."+hp.domain) {
			return hp.platform
		}
	}
	return domain.PlatformUnknown
}

// IsTikTokProfile reports whether rawURL points at a TikTok account page
// rather than a single post.
func IsTikTokProfile(rawURL string) bool {
	if !strings.Contains(strings.ToLower(rawURL), "tiktok.com") {
		return false
	}
	if strings.Contains(rawURL, "/video/") || strings.Contains(rawURL, "/photo/") {
		return false
	}
	return tiktokHandlePattern.MatchString(rawURL)
}

// TikTokUsername extracts the @handle (without @) from a TikTok URL.
func TikTokUsername(rawURL string) string {
	if m := tiktokUserPattern.FindStringSubmatch(rawURL); m != nil {
		return m[1]
	}
	return ""
}

// TikTokVideoID extracts the numeric post id from a TikTok URL.
func TikTokVideoID(rawURL string) string {
	if m := tiktokIDPattern.FindStringSubmatch(rawURL); m != nil {
		return m[1]
	}
	if m := longDigitsPattern.FindStringSubmatch(rawURL); m != nil {
		return m[1]
	}
	return ""
}

// YouTubeVideoID extracts the video id from watch, shorts, embed, live and
// youtu.be URLs.
func YouTubeVideoID(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		if m := youtubeQueryPattern.FindStringSubmatch(rawURL); m != nil {
			return m[1]
		}
		return ""
	}

	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	switch {
	case host == "youtu.be":
		if m := youtuBePathPattern.FindStringSubmatch(u.Path); m != nil {
			return m[1]
		}
	case strings.Contains(host, "youtube.com"):
		if u.Path == "/watch" {
			return u.Query().Get("v")
		}
		if m := youtubePathPattern.FindStringSubmatch(u.Path); m != nil {
			return m[1]
		}
	}
	return ""
}

// InstagramShortcode extracts the post/reel shortcode from an Instagram URL.
func InstagramShortcode(rawURL string) string {
	if m := instagramPattern.FindStringSubmatch(rawURL); m != nil {
		return m[1]
	}
	return ""
}

// XStatusID extracts the status id from an X/Twitter URL.
func XStatusID(rawURL string) string {
	if m := xStatusPattern.FindStringSubmatch(rawURL); m != nil {
		return m[1]
	}
	return ""
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
