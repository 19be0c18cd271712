// Package tiktok fetches TikTok insights, videos and account posts through
// RapidAPI-hosted services.
package tiktok

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"github.com/iconidentify/buzzteacher/internal/config"
	"github.com/iconidentify/buzzteacher/internal/domain"
	"github.com/iconidentify/buzzteacher/internal/downloader"
	"github.com/iconidentify/buzzteacher/internal/platform"
	"github.com/iconidentify/buzzteacher/pkg/rapidapi"
)

// Client implements the insight, media and profile clients for TikTok.
type Client struct {
	api      *rapidapi.Client
	download *rapidapi.Client
	fetcher  downloader.Fetcher
	logger   *slog.Logger
}

// NewClient creates a new TikTok client.
func NewClient(cfg config.RapidAPIConfig, fetcher downloader.Fetcher, logger *slog.Logger) *Client {
	return &Client{
		api:      rapidapi.NewClient(cfg.TikTokKey, cfg.TikTokHost, cfg.Timeout),
		download: rapidapi.NewClient(cfg.TikTokKey, cfg.TikTokDownloadHost, cfg.Timeout),
		fetcher:  fetcher,
		logger:   logger,
	}
}

// stats accepts both the camelCase and snake_case counter spellings.
type stats struct {
	PlayCount     *int64 `json:"playCount"`
	PlayCountS    *int64 `json:"play_count"`
	DiggCount     *int64 `json:"diggCount"`
	DiggCountS    *int64 `json:"digg_count"`
	CommentCount  *int64 `json:"commentCount"`
	CommentCountS *int64 `json:"comment_count"`
	ShareCount    *int64 `json:"shareCount"`
	ShareCountS   *int64 `json:"share_count"`
	CollectCount  *int64 `json:"collectCount"`
	CollectCountS *int64 `json:"collect_count"`
}

func (s stats) insight() domain.InsightRecord {
	return domain.InsightRecord{
		Views:    rapidapi.FirstCount(s.PlayCount, s.PlayCountS),
		Likes:    rapidapi.FirstCount(s.DiggCount, s.DiggCountS),
		Comments: rapidapi.FirstCount(s.CommentCount, s.CommentCountS),
		Shares:   rapidapi.FirstCount(s.ShareCount, s.ShareCountS),
		Saves:    rapidapi.FirstCount(s.CollectCount, s.CollectCountS),
	}
}

type videoInfo struct {
	Duration    *int   `json:"duration"`
	Cover       string `json:"cover"`
	OriginCover string `json:"originCover"`
}

type item struct {
	ID         string     `json:"id"`
	Desc       string     `json:"desc"`
	CreateTime int64      `json:"createTime"`
	Stats      *stats     `json:"stats"`
	VideoStats *stats     `json:"video_stats"`
	Video      *videoInfo `json:"video"`
	Duration   *int       `json:"duration"`
	Cover      string     `json:"cover"`
}

func (it *item) insight(videoURL string) *domain.InsightRecord {
	var rec domain.InsightRecord
	switch {
	case it.Stats != nil:
		rec = it.Stats.insight()
	case it.VideoStats != nil:
		rec = it.VideoStats.insight()
	}
	rec.URL = videoURL
	rec.Platform = domain.PlatformTikTok
	rec.DurationSec = it.Duration
	rec.Thumbnail = it.Cover
	if it.Video != nil {
		if it.Video.Duration != nil {
			rec.DurationSec = it.Video.Duration
		}
		rec.Thumbnail = rapidapi.FirstString(it.Video.Cover, it.Video.OriginCover, it.Cover)
	}
	return &rec
}

type detailResponse struct {
	ItemInfo *struct {
		ItemStruct *item `json:"itemStruct"`
	} `json:"itemInfo"`
	Item *item `json:"item"`
	item
}

func (r *detailResponse) post() *item {
	switch {
	case r.ItemInfo != nil && r.ItemInfo.ItemStruct != nil:
		return r.ItemInfo.ItemStruct
	case r.Item != nil:
		return r.Item
	default:
		return &r.item
	}
}

// FetchInsight returns the engagement counters of one post.
func (c *Client) FetchInsight(ctx context.Context, videoURL string) (*domain.InsightRecord, error) {
	id := platform.TikTokVideoID(videoURL)
	if id == "" {
		return nil, fmt.Errorf("extract video id from %q: %w", videoURL, domain.ErrUnavailable)
	}

	var resp detailResponse
	if err := c.api.GetJSON(ctx, "/api/post/detail", url.Values{"videoId": {id}}, &resp); err != nil {
		return nil, fmt.Errorf("fetch post detail: %w", err)
	}

	return resp.post().insight(videoURL), nil
}

type mediaResponse struct {
	VideoURL     string `json:"videoUrl"`
	VideoURLS    string `json:"video_url"`
	DownloadURL  string `json:"downloadUrl"`
	DownloadURLS string `json:"download_url"`
	HDVideoURL   string `json:"hdVideoUrl"`
	Data         *struct {
		VideoURL  string `json:"videoUrl"`
		VideoURLS string `json:"video_url"`
	} `json:"data"`
}

func (r *mediaResponse) link() string {
	u := rapidapi.FirstString(r.VideoURL, r.VideoURLS, r.DownloadURL, r.DownloadURLS, r.HDVideoURL)
	if u == "" && r.Data != nil {
		u = rapidapi.FirstString(r.Data.VideoURL, r.Data.VideoURLS)
	}
	return u
}

// DownloadVideo resolves a direct media URL and downloads it.
func (c *Client) DownloadVideo(ctx context.Context, videoURL string) ([]byte, error) {
	var resp mediaResponse
	if err := c.download.GetJSON(ctx, "/media", url.Values{"videoUrl": {videoURL}}, &resp); err != nil {
		return nil, fmt.Errorf("resolve media url: %w", err)
	}

	mediaURL := resp.link()
	if mediaURL == "" {
		return nil, fmt.Errorf("no video url in response: %w", domain.ErrUnavailable)
	}

	c.logger.Debug("downloading tiktok video", "url", videoURL)
	return c.fetcher.Fetch(ctx, mediaURL)
}

type userInfoResponse struct {
	UserInfo struct {
		User struct {
			SecUID   string `json:"secUid"`
			UniqueID string `json:"uniqueId"`
		} `json:"user"`
	} `json:"userInfo"`
}

type postsResponse struct {
	Data struct {
		ItemList []item `json:"itemList"`
	} `json:"data"`
}

// ListVideos returns up to count of the account's most recent posts.
func (c *Client) ListVideos(ctx context.Context, profileURL string, count int) (*domain.Profile, error) {
	username := platform.TikTokUsername(profileURL)
	if username == "" {
		return nil, fmt.Errorf("extract username from %q: %w", profileURL, domain.ErrUnavailable)
	}

	var info userInfoResponse
	if err := c.api.GetJSON(ctx, "/api/user/info", url.Values{"uniqueId": {username}}, &info); err != nil {
		return nil, fmt.Errorf("fetch user info: %w", err)
	}
	secUID := info.UserInfo.User.SecUID
	if secUID == "" {
		return nil, fmt.Errorf("user %s not found: %w", username, domain.ErrUnavailable)
	}

	var posts postsResponse
	query := url.Values{
		"secUid": {secUID},
		"count":  {strconv.Itoa(count)},
		"cursor": {"0"},
	}
	if err := c.api.GetJSON(ctx, "/api/user/posts", query, &posts); err != nil {
		return nil, fmt.Errorf("fetch user posts: %w", err)
	}

	items := posts.Data.ItemList
	if count > 0 && len(items) > count {
		items = items[:count]
	}

	profile := &domain.Profile{
		Username: username,
		Videos:   make([]domain.VideoRecord, 0, len(items)),
	}
	for i := range items {
		it := &items[i]
		videoURL := fmt.Sprintf("https://www.tiktok.com/@%s/video/%s", username, it.ID)

		var created time.Time
		if it.CreateTime > 0 {
			created = time.Unix(it.CreateTime, 0).UTC()
		}

		profile.Videos = append(profile.Videos, domain.VideoRecord{
			ID:        it.ID,
			URL:       videoURL,
			Caption:   it.Desc,
			CreatedAt: created,
			Insight:   *it.insight(videoURL),
		})
	}

	c.logger.Info("tiktok profile fetched", "username", username, "videos", len(profile.Videos))
	return profile, nil
}
