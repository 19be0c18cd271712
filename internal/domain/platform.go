package domain

// Platform identifies the short-form video platform a URL belongs to.
type Platform string

const (
	PlatformTikTok    Platform = "TikTok"
	PlatformInstagram Platform = "Instagram"
	PlatformYouTube   Platform = "YouTube"
	PlatformX         Platform = "X"
	PlatformUnknown   Platform = "Unknown"
)

// String returns the display name of the platform.
func (p Platform) String() string {
	return string(p)
}

// TargetKind distinguishes single-video URLs from creator profile URLs.
type TargetKind string

const (
	TargetNone    TargetKind = "none"
	TargetVideo   TargetKind = "video"
	TargetProfile TargetKind = "profile"
)

// PlatformTarget is the classified form of a request's embedded URL.
// It is derived once per request and never mutated.
type PlatformTarget struct {
	Kind     TargetKind
	Platform Platform
	RawURL   string
}

// HasURL reports whether a URL was found in the input.
func (t PlatformTarget) HasURL() bool {
	return t.Kind != TargetNone && t.RawURL != ""
}

// IsProfile reports whether the target is a creator profile.
func (t PlatformTarget) IsProfile() bool {
	return t.Kind == TargetProfile
}
