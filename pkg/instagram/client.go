// Package instagram fetches Instagram reel insights and videos through
// RapidAPI-hosted scrapers.
package instagram

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/url"

	"github.com/iconidentify/buzzteacher/internal/config"
	"github.com/iconidentify/buzzteacher/internal/domain"
	"github.com/iconidentify/buzzteacher/internal/downloader"
	"github.com/iconidentify/buzzteacher/internal/platform"
	"github.com/iconidentify/buzzteacher/pkg/rapidapi"
)

const (
	mobileUserAgent = "Mozilla/5.0 (iPhone; CPU iPhone OS 16_0 like Mac OS X) AppleWebKit/605.1.15"
	referer         = "https://www.instagram.com/"
)

// Client implements the insight and media clients for Instagram.
type Client struct {
	api     *rapidapi.Client
	media   *rapidapi.Client
	fetcher downloader.Fetcher
	logger  *slog.Logger
}

// NewClient creates a new Instagram client.
func NewClient(cfg config.RapidAPIConfig, fetcher downloader.Fetcher, logger *slog.Logger) *Client {
	return &Client{
		api:     rapidapi.NewClient(cfg.InstagramKey, cfg.InstagramHost, cfg.Timeout),
		media:   rapidapi.NewClient(cfg.InstagramKey, cfg.InstagramMediaHost, cfg.Timeout),
		fetcher: fetcher,
		logger:  logger,
	}
}

type imageVersions struct {
	Candidates []struct {
		URL string `json:"url"`
	} `json:"candidates"`
}

type post struct {
	PlayCount     *int64         `json:"play_count"`
	ViewCount     *int64         `json:"view_count"`
	LikeCount     *int64         `json:"like_count"`
	CommentCount  *int64         `json:"comment_count"`
	ReshareCount  *int64         `json:"reshare_count"`
	VideoDuration *float64       `json:"video_duration"`
	ThumbnailURL  string         `json:"thumbnail_url"`
	Images        *imageVersions `json:"image_versions2"`
}

type postInfoResponse struct {
	Data *post `json:"data"`
	post
}

// FetchInsight returns the engagement counters of one reel or post. Saves
// are never reported by the API.
func (c *Client) FetchInsight(ctx context.Context, videoURL string) (*domain.InsightRecord, error) {
	shortcode := platform.InstagramShortcode(videoURL)
	if shortcode == "" {
		return nil, fmt.Errorf("extract shortcode from %q: %w", videoURL, domain.ErrUnavailable)
	}

	var resp postInfoResponse
	if err := c.api.GetJSON(ctx, "/v1/post_info", url.Values{"code_or_id_or_url": {shortcode}}, &resp); err != nil {
		return nil, fmt.Errorf("fetch post info: %w", err)
	}

	p := &resp.post
	if resp.Data != nil {
		p = resp.Data
	}

	rec := &domain.InsightRecord{
		URL:       videoURL,
		Platform:  domain.PlatformInstagram,
		Views:     rapidapi.FirstCount(p.PlayCount, p.ViewCount),
		Likes:     p.LikeCount,
		Comments:  p.CommentCount,
		Shares:    p.ReshareCount,
		Thumbnail: p.ThumbnailURL,
	}
	if p.VideoDuration != nil {
		d := int(math.Round(*p.VideoDuration))
		rec.DurationSec = &d
	}
	if rec.Thumbnail == "" && p.Images != nil && len(p.Images.Candidates) > 0 {
		rec.Thumbnail = p.Images.Candidates[0].URL
	}
	return rec, nil
}

type videoVersion struct {
	URL string `json:"url"`
}

type mediaResponse struct {
	VideoURL string `json:"video_url"`
	Data     *struct {
		VideoURL string `json:"video_url"`
	} `json:"data"`
	VideoVersions []videoVersion `json:"video_versions"`
	Media         *struct {
		VideoVersions []videoVersion `json:"video_versions"`
	} `json:"media"`
}

func (r *mediaResponse) link() string {
	switch {
	case r.VideoURL != "":
		return r.VideoURL
	case r.Data != nil && r.Data.VideoURL != "":
		return r.Data.VideoURL
	case len(r.VideoVersions) > 0:
		return r.VideoVersions[0].URL
	case r.Media != nil && len(r.Media.VideoVersions) > 0:
		return r.Media.VideoVersions[0].URL
	}
	return ""
}

// DownloadVideo resolves a direct media URL for a reel and downloads it.
func (c *Client) DownloadVideo(ctx context.Context, videoURL string) ([]byte, error) {
	query := url.Values{
		"reel_post_code_or_url": {videoURL},
		"type":                  {"reel"},
	}

	var resp mediaResponse
	if err := c.media.GetJSON(ctx, "/get_media_data.php", query, &resp); err != nil {
		return nil, fmt.Errorf("resolve media url: %w", err)
	}

	mediaURL := resp.link()
	if mediaURL == "" {
		return nil, fmt.Errorf("no video url in response: %w", domain.ErrUnavailable)
	}

	c.logger.Debug("downloading instagram video", "url", videoURL)
	return c.fetcher.Fetch(ctx, mediaURL,
		downloader.WithUserAgent(mobileUserAgent),
		downloader.WithReferer(referer),
	)
}
